package domain

import "time"

type HoldStatus string

const (
	HoldStatusRequested        HoldStatus = "REQUESTED"
	HoldStatusActive           HoldStatus = "ACTIVE"
	HoldStatusConfirmRequested HoldStatus = "CONFIRM_REQUESTED"
	HoldStatusConfirmed        HoldStatus = "CONFIRMED"
	HoldStatusExpired          HoldStatus = "EXPIRED"
	HoldStatusFailed           HoldStatus = "FAILED"
)

// Hold is a time-boxed reservation of seats on one offer at a locked price.
// It is built from the reservation response and never shares memory with a FlightOffer.
type Hold struct {
	ID            string     `json:"id"`
	OfferID       string     `json:"offer_id"`
	Seats         int        `json:"seats"`
	PassengerName string     `json:"passenger_name"`
	PriceSnapshot float64    `json:"price_snapshot"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Status        HoldStatus `json:"status"`
}

type ReserveRequest struct {
	OfferID          string
	Seats            int
	PassengerName    string
	PassengerContact string
}

type Reservation struct {
	HoldID        string
	OfferID       string
	Seats         int
	PriceSnapshot float64
	ExpiresAt     time.Time
}

type ConfirmResult struct {
	BookingCode string
	Status      string
	PricePaid   float64
}

type CancelResult struct {
	Status       string   `json:"status"`
	Refunded     bool     `json:"refunded"`
	RefundAmount *float64 `json:"refund_amount,omitempty"`
}

type BookingDetails struct {
	ID               int64          `json:"id"`
	FlightID         string         `json:"flight_id"`
	Code             string         `json:"pnr"`
	Status           string         `json:"status"`
	SeatsBooked      int            `json:"seats_booked"`
	PricePaid        *float64       `json:"price_paid,omitempty"`
	PriceSnapshot    *float64       `json:"price_snapshot,omitempty"`
	Currency         string         `json:"currency,omitempty"`
	PassengerName    string         `json:"passenger_name,omitempty"`
	PassengerContact string         `json:"passenger_contact,omitempty"`
	PaymentMeta      map[string]any `json:"payment_meta,omitempty"`
	HoldExpiresAt    string         `json:"hold_expires_at,omitempty"`
	CreatedAt        string         `json:"created_at,omitempty"`
	UpdatedAt        string         `json:"updated_at,omitempty"`
}

type ReceiptFlight struct {
	ID           string `json:"id"`
	FlightNumber string `json:"flight_number"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	DepartureISO string `json:"departure_iso"`
	ArrivalISO   string `json:"arrival_iso"`
}

type Receipt struct {
	Booking   BookingDetails `json:"booking"`
	Flight    ReceiptFlight  `json:"flight"`
	TotalPaid *float64       `json:"total_paid,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}
