// Package mybookings keeps the booking codes a user has been issued and re-fetches their details.
package mybookings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/Domenick1991/flysmart/internal/upstream"
)

const DefaultListLimit = 50

var ErrInvalidCode = errors.New("booking code is required")

type MyBookingsUseCase interface {
	Add(ctx context.Context, subject, code string) error
	List(ctx context.Context, sess session.Session) ([]Entry, error)
	Details(ctx context.Context, sess session.Session, code string) (*domain.BookingDetails, error)
	Receipt(ctx context.Context, sess session.Session, code string) (*domain.Receipt, error)
	Cancel(ctx context.Context, sess session.Session, code string, refund bool) (*domain.CancelResult, error)
}

// CodeStore is the append-only, de-duplicated list of codes per identity.
type CodeStore interface {
	AddBookingCode(ctx context.Context, subject, code string) error
	ListBookingCodes(ctx context.Context, subject string, limit int) ([]string, error)
}

type BookingGateway interface {
	Lookup(ctx context.Context, sess session.Session, code string) (*domain.BookingDetails, error)
	Receipt(ctx context.Context, sess session.Session, code string) (*domain.Receipt, error)
	Cancel(ctx context.Context, sess session.Session, target upstream.CancelTarget) (*domain.CancelResult, error)
}

// Entry is one line of "my bookings". Details is nil when the lookup failed.
type Entry struct {
	Code    string                 `json:"pnr"`
	Details *domain.BookingDetails `json:"booking,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type Service struct {
	codes   CodeStore
	booking BookingGateway
	limit   int
}

type Option func(*Service)

func WithListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewService(codes CodeStore, booking BookingGateway, opts ...Option) *Service {
	s := &Service{codes: codes, booking: booking, limit: DefaultListLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Add(ctx context.Context, subject, code string) error {
	code = normalize(code)
	if code == "" {
		return ErrInvalidCode
	}
	if subject == "" || subject == session.Anonymous {
		return nil
	}
	if err := s.codes.AddBookingCode(ctx, subject, code); err != nil {
		return fmt.Errorf("record booking %s: %w", code, err)
	}
	return nil
}

// List returns the caller's bookings, newest first, with details fetched from the booking service.
// Callers without an identity token have no list.
func (s *Service) List(ctx context.Context, sess session.Session) ([]Entry, error) {
	if sess.Anonymous() {
		return []Entry{}, nil
	}
	codes, err := s.codes.ListBookingCodes(ctx, sess.Subject(), s.limit)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	entries := make([]Entry, 0, len(codes))
	for _, code := range codes {
		entry := Entry{Code: code}
		details, err := s.booking.Lookup(ctx, sess, code)
		if err != nil {
			log.Printf("lookup booking %s: %v", code, err)
			entry.Error = err.Error()
		} else {
			entry.Details = details
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) Details(ctx context.Context, sess session.Session, code string) (*domain.BookingDetails, error) {
	code = normalize(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	return s.booking.Lookup(ctx, sess, code)
}

func (s *Service) Receipt(ctx context.Context, sess session.Session, code string) (*domain.Receipt, error) {
	code = normalize(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	return s.booking.Receipt(ctx, sess, code)
}

// Cancel cancels a confirmed booking, optionally with a refund.
func (s *Service) Cancel(ctx context.Context, sess session.Session, code string, refund bool) (*domain.CancelResult, error) {
	code = normalize(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	res, err := s.booking.Cancel(ctx, sess, upstream.CancelTarget{BookingCode: code, Refund: refund})
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s cancelled (refund=%v): %s", code, refund, res.Status)
	return res, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ MyBookingsUseCase = (*Service)(nil)
