package domain

import "strings"

type Leg string

const (
	LegOutbound Leg = "outbound"
	LegReturn   Leg = "return"
)

type AttemptStatus string

const (
	AttemptInProgress      AttemptStatus = "IN_PROGRESS"
	AttemptConfirmed       AttemptStatus = "CONFIRMED"
	AttemptPartiallyFailed AttemptStatus = "PARTIALLY_FAILED"
	AttemptFailed          AttemptStatus = "FAILED"
	AttemptExpired         AttemptStatus = "EXPIRED"
)

func (s AttemptStatus) Terminal() bool {
	return s != AttemptInProgress
}

// BookingCodes holds the codes issued per leg. Empty means not issued.
type BookingCodes struct {
	Outbound string `json:"outbound,omitempty"`
	Return   string `json:"return,omitempty"`
}

// Compensation records the release of an outbound hold after the return leg failed.
type Compensation struct {
	HoldID   string `json:"hold_id"`
	Released bool   `json:"released"`
	Error    string `json:"error,omitempty"`
}

// AttemptRequest asks for holds on an outbound offer and, optionally, a return offer.
type AttemptRequest struct {
	OutboundOfferID string           `json:"outbound_offer_id" validate:"required"`
	ReturnOfferID   string           `json:"return_offer_id,omitempty"`
	Seats           int              `json:"seats" validate:"min=1,max=9"`
	Passenger       PassengerDetails `json:"passenger"`
	AutoConfirm     bool             `json:"auto_confirm"`
}

func (r AttemptRequest) Normalize() AttemptRequest {
	r.OutboundOfferID = strings.TrimSpace(r.OutboundOfferID)
	r.ReturnOfferID = strings.TrimSpace(r.ReturnOfferID)
	r.Passenger = r.Passenger.Normalize()
	return r
}

func (r AttemptRequest) Validate() error {
	return validationFailure(r)
}

func (r AttemptRequest) RoundTrip() bool {
	return r.ReturnOfferID != ""
}
