package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/spf13/cast"
)

// Decode parses one feed frame. Numeric fields may arrive as numbers or strings.
// Frames that are not JSON objects, such as "pong", decode to a message with an empty type.
func Decode(data []byte) (domain.FeedMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return domain.FeedMessage{}, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.FeedMessage{}, fmt.Errorf("decode feed message: %w", err)
	}

	msg := domain.FeedMessage{
		Type:    cast.ToString(raw["type"]),
		Message: cast.ToString(raw["message"]),
	}
	if msg.Type != domain.FeedMessageFlightUpdate {
		return msg, nil
	}

	ev := domain.FeedEvent{
		OfferID:      cast.ToString(raw["flight_id"]),
		FlightNumber: cast.ToString(raw["flight_number"]),
	}
	if ev.OfferID == "" {
		return domain.FeedMessage{}, fmt.Errorf("decode feed message: flight_update without flight_id")
	}
	if v, ok := raw["price"]; ok && v != nil {
		price, err := cast.ToFloat64E(v)
		if err != nil {
			return domain.FeedMessage{}, fmt.Errorf("decode feed message: price: %w", err)
		}
		ev.Delta.Price = &price
	}
	if v, ok := raw["seats"]; ok && v != nil {
		seats, err := cast.ToIntE(v)
		if err != nil {
			return domain.FeedMessage{}, fmt.Errorf("decode feed message: seats: %w", err)
		}
		ev.Delta.Seats = &seats
	}
	if v, ok := raw["timestamp"]; ok && v != nil {
		if ts, err := cast.ToTimeE(v); err == nil {
			ev.Timestamp = ts.UTC()
		}
	}
	msg.Event = &ev
	return msg, nil
}
