package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"brasserie/internal/service"
	"brasserie/models"
	"brasserie/pkg/logger"
)

type LoyaltyHandler struct {
	loyaltyService service.LoyaltyServiceInterface
	logger         *logger.Logger
}

func NewLoyaltyHandler(loyaltyService service.LoyaltyServiceInterface, logger *logger.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		loyaltyService: loyaltyService,
		logger:         logger.WithComponent("loyalty_handler"),
	}
}

// GetBalance handles GET /api/v1/loyalty/{customerID}/balance
func (h *LoyaltyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	balance, err := h.loyaltyService.PointsBalance(customerID)
	if err != nil {
		h.logger.Warn("Failed to compute points balance", "customer_id", customerID, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, map[string]interface{}{
		"customer_id": customerID,
		"balance":     balance,
	})
}

type claimCouponRequest struct {
	CouponID string `json:"coupon_id"`
}

// CreateClaim handles POST /api/v1/loyalty/{customerID}/claims
func (h *LoyaltyHandler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var req claimCouponRequest
	if err := parseRequestBody(r, &req); err != nil {
		h.logger.Warn("Invalid request body for coupon claim", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claim, err := h.loyaltyService.ClaimCoupon(customerID, req.CouponID)
	if err != nil {
		h.logger.Warn("Failed to claim coupon",
			"customer_id", customerID,
			"coupon_id", req.CouponID,
			"error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusCreated, claim)
}

// ListClaims handles GET /api/v1/loyalty/{customerID}/claims
func (h *LoyaltyHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	claims, err := h.loyaltyService.ListClaims(customerID)
	if err != nil {
		h.logger.Warn("Failed to list coupon claims", "customer_id", customerID, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, claims)
}

type discountPreviewRequest struct {
	CustomerID string  `json:"customer_id"`
	ClaimID    string  `json:"claim_id"`
	CartTotal  float64 `json:"cart_total"`
}

// DiscountPreview handles POST /api/v1/loyalty/discount-preview. It
// computes what a claim would take off a cart without redeeming it.
func (h *LoyaltyHandler) DiscountPreview(w http.ResponseWriter, r *http.Request) {
	var req discountPreviewRequest
	if err := parseRequestBody(r, &req); err != nil {
		h.logger.Warn("Invalid request body for discount preview", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claim, err := h.loyaltyService.VerifyClaim(req.ClaimID, req.CustomerID, time.Now())
	if err != nil {
		h.logger.Warn("Discount preview rejected", "claim_id", req.ClaimID, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	discount, err := h.loyaltyService.DiscountFor(claim, req.CartTotal)
	if err != nil {
		h.logger.Warn("Failed to compute discount", "claim_id", req.ClaimID, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, map[string]interface{}{
		"claim_id":   req.ClaimID,
		"cart_total": req.CartTotal,
		"discount":   discount,
	})
}

// ListCoupons handles GET /api/v1/coupons
func (h *LoyaltyHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.loyaltyService.ListCoupons()
	if err != nil {
		h.logger.Error("Failed to list coupons", "error", err)
		writeErrorResponse(h.logger, w, http.StatusInternalServerError, "Failed to fetch coupons")
		return
	}

	writeJSONResponse(h.logger, w, http.StatusOK, coupons)
}

// CreateCoupon handles POST /api/v1/coupons
func (h *LoyaltyHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var coupon models.Coupon
	if err := parseRequestBody(r, &coupon); err != nil {
		h.logger.Warn("Invalid request body for create coupon", "error", err)
		writeErrorResponse(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.loyaltyService.CreateCoupon(&coupon); err != nil {
		h.logger.Warn("Failed to create coupon", "name", coupon.Name, "error", err)
		writeErrorResponse(h.logger, w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(h.logger, w, http.StatusCreated, coupon)
}
