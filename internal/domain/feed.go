package domain

import "time"

const (
	FeedMessageFlightUpdate          = "flight_update"
	FeedMessageConnectionEstablished = "connection_established"
)

// FeedEvent is one price/seat delta delivered by the push feed.
type FeedEvent struct {
	OfferID      string
	FlightNumber string
	Delta        OfferDelta
	Timestamp    time.Time
}

type FeedMessage struct {
	Type    string
	Message string
	Event   *FeedEvent
}

type FeedStatus struct {
	Connected    bool      `json:"connected"`
	Stale        bool      `json:"stale"`
	Source       string    `json:"source"`
	LastEventAt  time.Time `json:"last_event_at,omitempty"`
	DisconnectAt time.Time `json:"disconnected_at,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}
