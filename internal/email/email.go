package email

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Domenick1991/flysmart/internal/kafka"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender renders attempt events into notification mails. Delivery is a plain write
// to the configured output.
type Sender struct {
	out io.Writer
}

func NewSender() *Sender {
	return &Sender{out: os.Stdout}
}

func NewSenderTo(out io.Writer) *Sender {
	return &Sender{out: out}
}

func (s *Sender) Send(ctx context.Context, event kafka.AttemptEvent) error {
	msg, ok := Compose(event)
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(s.out, "send email to %s: %s\n%s\n", msg.To, msg.Subject, msg.Body)
	return err
}

// Compose reports false for events nobody needs to be told about.
func Compose(event kafka.AttemptEvent) (Message, bool) {
	if event.Email == "" {
		return Message{}, false
	}

	msg := Message{To: event.Email}
	name := event.PassengerName
	if name == "" {
		name = "traveller"
	}

	switch event.Type {
	case kafka.EventAttemptReserved:
		msg.Subject = "Your seats are on hold"
		msg.Body = fmt.Sprintf("Hi %s, your seats are held until %s. Confirm before then to keep them.", name, event.ExpiresAt.UTC().Format(time.RFC3339))
	case kafka.EventAttemptConfirmed:
		msg.Subject = "Booking confirmed"
		msg.Body = fmt.Sprintf("Hi %s, your booking is confirmed. PNR: %s.", name, codes(event))
	case kafka.EventAttemptPartiallyFailed:
		msg.Subject = "Booking partially confirmed"
		msg.Body = fmt.Sprintf("Hi %s, your outbound flight is confirmed (PNR %s) but the return flight could not be booked: %s.", name, event.OutboundCode, reason(event))
	case kafka.EventAttemptExpired:
		msg.Subject = "Your hold has expired"
		msg.Body = fmt.Sprintf("Hi %s, your seats were released because the hold expired.", name)
	case kafka.EventAttemptFailed:
		msg.Subject = "Booking failed"
		msg.Body = fmt.Sprintf("Hi %s, we could not complete your booking: %s.", name, reason(event))
	default:
		return Message{}, false
	}
	return msg, true
}

func codes(event kafka.AttemptEvent) string {
	var out []string
	for _, c := range []string{event.OutboundCode, event.ReturnCode} {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, ", ")
}

func reason(event kafka.AttemptEvent) string {
	if event.FailureDetail != "" {
		return event.FailureDetail
	}
	if event.FailureKind != "" {
		return strings.ToLower(strings.ReplaceAll(event.FailureKind, "_", " "))
	}
	return "unknown error"
}
