package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/spf13/cast"
)

// Confirm statuses reported by the booking service.
const (
	confirmStatusConfirmed        = "confirmed"
	confirmStatusAlreadyConfirmed = "already_confirmed"
	confirmStatusExpired          = "expired"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingClient struct {
	client
}

func NewBookingClient(baseURL string, timeout time.Duration, hc *http.Client) *BookingClient {
	return &BookingClient{client: newClient(baseURL, timeout, hc)}
}

type reserveRequest struct {
	FlightID         any    `json:"flight_id"`
	Seats            int    `json:"seats"`
	PassengerName    string `json:"passenger_name,omitempty"`
	PassengerContact string `json:"passenger_contact,omitempty"`
}

type reserveResponse struct {
	ReservationID any     `json:"reservation_id"`
	FlightID      any     `json:"flight_id"`
	Seats         int     `json:"seats"`
	PriceSnapshot float64 `json:"price_snapshot"`
	HoldExpiresAt string  `json:"hold_expires_at"`
}

type confirmRequest struct {
	ReservationID  any            `json:"reservation_id"`
	PaymentSuccess bool           `json:"payment_success"`
	PaymentMeta    map[string]any `json:"payment_meta,omitempty"`
}

type confirmResponse struct {
	BookingID any      `json:"booking_id"`
	PNR       *string  `json:"pnr"`
	Status    string   `json:"status"`
	PricePaid *float64 `json:"price_paid"`
}

type cancelRequest struct {
	ReservationID any            `json:"reservation_id,omitempty"`
	PNR           string         `json:"pnr,omitempty"`
	Refund        bool           `json:"refund"`
	RefundMeta    map[string]any `json:"refund_meta,omitempty"`
}

// CancelTarget names either a hold (reservation) or a confirmed booking (PNR).
type CancelTarget struct {
	HoldID      string
	BookingCode string
	Refund      bool
}

// Reserve places a hold. 4xx answers mean the offer can no longer be held.
func (c *BookingClient) Reserve(ctx context.Context, sess session.Session, req domain.ReserveRequest) (*domain.Reservation, error) {
	body := reserveRequest{
		FlightID:         numericID(req.OfferID),
		Seats:            req.Seats,
		PassengerName:    req.PassengerName,
		PassengerContact: req.PassengerContact,
	}
	var resp reserveResponse
	if err := c.do(ctx, sess, http.MethodPost, "/api/v1/bookings/reserve", nil, body, &resp); err != nil {
		return nil, reserveFailure(err)
	}

	holdID, err := cast.ToStringE(resp.ReservationID)
	if err != nil || holdID == "" {
		return nil, domain.NewFailure(domain.FailureNetwork, "reservation response without reservation id")
	}
	expiresAt, err := parseInstant(resp.HoldExpiresAt)
	if err != nil {
		return nil, domain.NewFailure(domain.FailureNetwork, fmt.Sprintf("reservation response: %v", err))
	}
	offerID := cast.ToString(resp.FlightID)
	if offerID == "" {
		offerID = req.OfferID
	}
	seats := resp.Seats
	if seats == 0 {
		seats = req.Seats
	}

	return &domain.Reservation{
		HoldID:        holdID,
		OfferID:       offerID,
		Seats:         seats,
		PriceSnapshot: resp.PriceSnapshot,
		ExpiresAt:     expiresAt,
	}, nil
}

// Confirm converts a hold into a booking. Payment is simulated.
func (c *BookingClient) Confirm(ctx context.Context, sess session.Session, holdID string, passengers []domain.Passenger) (*domain.ConfirmResult, error) {
	body := confirmRequest{
		ReservationID:  numericID(holdID),
		PaymentSuccess: true,
		PaymentMeta: map[string]any{
			"method":         "DEMO_PAY",
			"reservation_id": holdID,
			"passengers":     passengers,
		},
	}
	var resp confirmResponse
	if err := c.do(ctx, sess, http.MethodPost, "/api/v1/bookings/confirm", nil, body, &resp); err != nil {
		return nil, confirmFailure(err)
	}

	status := strings.ToLower(strings.TrimSpace(resp.Status))
	switch status {
	case confirmStatusConfirmed, confirmStatusAlreadyConfirmed:
		if resp.PNR == nil || *resp.PNR == "" {
			return nil, domain.NewFailure(domain.FailureConfirmation, "booking confirmed without a booking code")
		}
		result := &domain.ConfirmResult{BookingCode: *resp.PNR, Status: status}
		if resp.PricePaid != nil {
			result.PricePaid = *resp.PricePaid
		}
		return result, nil
	case confirmStatusExpired:
		return nil, domain.NewFailure(domain.FailureHoldExpired, "hold expired before confirmation")
	default:
		return nil, domain.NewFailure(domain.FailureConfirmation, fmt.Sprintf("confirmation rejected: %s", strings.ReplaceAll(status, "_", " ")))
	}
}

func (c *BookingClient) Cancel(ctx context.Context, sess session.Session, target CancelTarget) (*domain.CancelResult, error) {
	body := cancelRequest{PNR: target.BookingCode, Refund: target.Refund}
	if target.HoldID != "" {
		body.ReservationID = numericID(target.HoldID)
	}
	if target.Refund {
		body.RefundMeta = map[string]any{"refund_method": "original_payment"}
	}
	var resp domain.CancelResult
	if err := c.do(ctx, sess, http.MethodPost, "/api/v1/bookings/cancel", nil, body, &resp); err != nil {
		return nil, lookupError(err)
	}
	return &resp, nil
}

func (c *BookingClient) Lookup(ctx context.Context, sess session.Session, code string) (*domain.BookingDetails, error) {
	var raw bookingOut
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/bookings/lookup/"+url.PathEscape(code), nil, nil, &raw); err != nil {
		return nil, lookupError(err)
	}
	details := raw.toDomain()
	return &details, nil
}

func (c *BookingClient) Receipt(ctx context.Context, sess session.Session, code string) (*domain.Receipt, error) {
	var raw receiptOut
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/bookings/receipt/"+url.PathEscape(code), nil, nil, &raw); err != nil {
		return nil, lookupError(err)
	}
	return &domain.Receipt{
		Booking: raw.Booking.toDomain(),
		Flight: domain.ReceiptFlight{
			ID:           cast.ToString(raw.Flight.ID),
			FlightNumber: raw.Flight.FlightNumber,
			Origin:       raw.Flight.Origin,
			Destination:  raw.Flight.Destination,
			DepartureISO: raw.Flight.DepartureISO,
			ArrivalISO:   raw.Flight.ArrivalISO,
		},
		TotalPaid: raw.TotalPaid,
		Currency:  raw.Currency,
		Notes:     raw.Notes,
	}, nil
}

type bookingOut struct {
	ID               any            `json:"id"`
	FlightID         any            `json:"flight_id"`
	SeatsBooked      int            `json:"seats_booked"`
	PricePaid        *float64       `json:"price_paid"`
	PriceSnapshot    *float64       `json:"price_snapshot"`
	Currency         *string        `json:"currency"`
	PNR              *string        `json:"pnr"`
	Status           string         `json:"status"`
	PassengerName    *string        `json:"passenger_name"`
	PassengerContact *string        `json:"passenger_contact"`
	PaymentMeta      map[string]any `json:"payment_meta"`
	HoldExpiresAt    *string        `json:"hold_expires_at"`
	CreatedAt        *string        `json:"created_at"`
	UpdatedAt        *string        `json:"updated_at"`
}

func (b bookingOut) toDomain() domain.BookingDetails {
	return domain.BookingDetails{
		ID:               cast.ToInt64(b.ID),
		FlightID:         cast.ToString(b.FlightID),
		Code:             deref(b.PNR),
		Status:           b.Status,
		SeatsBooked:      b.SeatsBooked,
		PricePaid:        b.PricePaid,
		PriceSnapshot:    b.PriceSnapshot,
		Currency:         deref(b.Currency),
		PassengerName:    deref(b.PassengerName),
		PassengerContact: deref(b.PassengerContact),
		PaymentMeta:      b.PaymentMeta,
		HoldExpiresAt:    deref(b.HoldExpiresAt),
		CreatedAt:        deref(b.CreatedAt),
		UpdatedAt:        deref(b.UpdatedAt),
	}
}

type receiptOut struct {
	Booking bookingOut `json:"booking"`
	Flight  struct {
		ID           any    `json:"id"`
		FlightNumber string `json:"flight_number"`
		Origin       string `json:"origin"`
		Destination  string `json:"destination"`
		DepartureISO string `json:"departure_iso"`
		ArrivalISO   string `json:"arrival_iso"`
	} `json:"flight"`
	TotalPaid *float64 `json:"total_paid"`
	Currency  string   `json:"currency"`
	Notes     string   `json:"notes"`
}

func reserveFailure(err error) error {
	if he, ok := asHTTPError(err); ok && he.ClientError() {
		return domain.NewFailure(domain.FailureReservationConflict, he.Detail)
	}
	return domain.NewFailure(domain.FailureNetwork, err.Error())
}

func confirmFailure(err error) error {
	he, ok := asHTTPError(err)
	if !ok || !he.ClientError() {
		return domain.NewFailure(domain.FailureNetwork, err.Error())
	}
	if he.Status == http.StatusGone || strings.Contains(strings.ToLower(he.Detail), "expired") {
		return domain.NewFailure(domain.FailureHoldExpired, he.Detail)
	}
	return domain.NewFailure(domain.FailureConfirmation, he.Detail)
}

func lookupError(err error) error {
	if he, ok := asHTTPError(err); ok && he.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, he.Detail)
	}
	return err
}

// numericID sends ids as JSON numbers when they look like integers; the booking
// service keys reservations by integer id.
func numericID(id string) any {
	if n, err := cast.ToInt64E(id); err == nil && cast.ToString(n) == id {
		return n
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
