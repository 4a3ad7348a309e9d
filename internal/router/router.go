package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"brasserie/internal/handler"
	"brasserie/pkg/logger"
)

// New wires every handler under /api/v1 and attaches the structured
// request logging middleware.
func New(
	log *logger.Logger,
	stockHandler *handler.StockHandler,
	menuHandler *handler.MenuHandler,
	orderHandler *handler.OrderHandler,
	loyaltyHandler *handler.LoyaltyHandler,
	healthCheck http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(log.HTTPMiddleware)

	r.Get("/health", healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", stockHandler.GetAllStock)
			r.Post("/", stockHandler.CreateStock)
			r.Get("/{name}", stockHandler.GetStock)
			r.Patch("/{name}", stockHandler.UpdateStock)
			r.Post("/{name}/adjust", stockHandler.AdjustStock)
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", menuHandler.GetAllMenuItems)
			r.Post("/", menuHandler.CreateMenuItem)
			r.Get("/availability", menuHandler.GetAvailability)
			r.Get("/{id}", menuHandler.GetMenuItem)
			r.Put("/{id}", menuHandler.UpdateMenuItem)
			r.Delete("/{id}", menuHandler.DeleteMenuItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.GetAllOrders)
			r.Post("/", orderHandler.CreateOrder)
			r.Get("/{id}", orderHandler.GetOrderByID)
			r.Delete("/{id}", orderHandler.CancelOrder)
			r.Patch("/{id}/status", orderHandler.UpdateOrderStatus)
		})

		r.Route("/loyalty", func(r chi.Router) {
			r.Post("/discount-preview", loyaltyHandler.DiscountPreview)
			r.Get("/{customerID}/balance", loyaltyHandler.GetBalance)
			r.Get("/{customerID}/claims", loyaltyHandler.ListClaims)
			r.Post("/{customerID}/claims", loyaltyHandler.CreateClaim)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", loyaltyHandler.ListCoupons)
			r.Post("/", loyaltyHandler.CreateCoupon)
		})
	})

	return r
}
