package models

import "time"

// Customer is the minimal identity row the fulfillment engine needs for
// order attribution and loyalty accounting. Authentication lives outside
// this service; the UI layer supplies the identity.
type Customer struct {
	ID        string    `json:"customer_id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
