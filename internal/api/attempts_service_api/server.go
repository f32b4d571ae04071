package attempts_service_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flysmart/internal/service/attempt"
	"github.com/benbjohnson/clock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const DefaultPollInterval = time.Second

type Option func(*Server)

func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.poll = d
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(s *Server) {
		s.clock = clk
	}
}

// Server exposes attempts over gRPC.
type Server struct {
	attempts attempt.AttemptUseCase
	poll     time.Duration
	clock    clock.Clock
}

func NewServer(attempts attempt.AttemptUseCase, opts ...Option) *Server {
	s := &Server{attempts: attempts, poll: DefaultPollInterval, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) GetAttempt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := attemptID(req)
	if err != nil {
		return nil, err
	}
	view, err := s.attempts.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	out, _, err := toStruct(view)
	return out, err
}

// WatchAttempt sends the view whenever it changes, the countdown included, and ends once the attempt settles.
func (s *Server) WatchAttempt(req *structpb.Struct, stream grpc.ServerStream) error {
	id, err := attemptID(req)
	if err != nil {
		return err
	}

	ticker := s.clock.Ticker(s.poll)
	defer ticker.Stop()

	var last []byte
	for {
		view, err := s.attempts.Get(id)
		if err != nil {
			return toStatus(err)
		}
		out, raw, err := toStruct(view)
		if err != nil {
			return err
		}
		if !bytes.Equal(raw, last) {
			if err := stream.SendMsg(out); err != nil {
				return err
			}
			last = raw
		}
		if view.Status.Terminal() {
			return nil
		}

		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-ticker.C:
		}
	}
}

func attemptID(req *structpb.Struct) (string, error) {
	id := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "id is required")
	}
	return id, nil
}

func toStruct(view attempt.View) (*structpb.Struct, []byte, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, nil, status.Error(codes.Internal, fmt.Sprintf("encode attempt: %v", err))
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, status.Error(codes.Internal, fmt.Sprintf("encode attempt: %v", err))
	}
	out, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, nil, status.Error(codes.Internal, fmt.Sprintf("encode attempt: %v", err))
	}
	return out, raw, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, attempt.ErrAttemptNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, attempt.ErrAttemptBusy):
		return status.Error(codes.Aborted, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

var _ AttemptsServiceServer = (*Server)(nil)
