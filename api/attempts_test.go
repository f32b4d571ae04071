package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/service/attempt"
	"github.com/Domenick1991/flysmart/internal/service/hold"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAttemptUseCase struct {
	mock.Mock
}

func (m *MockAttemptUseCase) Start(ctx context.Context, sess session.Session, req domain.AttemptRequest) (attempt.View, error) {
	args := m.Called(ctx, sess, req)
	return args.Get(0).(attempt.View), args.Error(1)
}

func (m *MockAttemptUseCase) Get(id string) (attempt.View, error) {
	args := m.Called(id)
	return args.Get(0).(attempt.View), args.Error(1)
}

func (m *MockAttemptUseCase) Confirm(ctx context.Context, id string) (attempt.View, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(attempt.View), args.Error(1)
}

func (m *MockAttemptUseCase) Abandon(ctx context.Context, id string) (attempt.View, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(attempt.View), args.Error(1)
}

func attemptRequest() domain.AttemptRequest {
	return domain.AttemptRequest{
		OutboundOfferID: "12",
		Seats:           1,
		Passenger:       domain.PassengerDetails{Name: "Asha Rao", Email: "asha@example.com"},
	}
}

func TestAttemptHandler_start(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	handler := NewAttemptHandler(mockService)

	req := attemptRequest()
	c, w := newTestContext("POST", "/attempts", req)

	view := attempt.View{
		ID:          "a-1",
		Status:      domain.AttemptInProgress,
		Outbound:    hold.Snapshot{Leg: domain.LegOutbound, State: hold.StateActive, OfferID: "12", SecondsLeft: 300},
		SecondsLeft: 300,
	}
	mockService.On("Start", mock.Anything, mock.Anything, req).Return(view, nil)

	handler.start(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response attempt.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "a-1", response.ID)
	assert.Equal(t, hold.StateActive, response.Outbound.State)
	assert.Equal(t, 300, response.SecondsLeft)
	mockService.AssertExpectations(t)
}

func TestAttemptHandler_startFailureIsReportedInView(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	handler := NewAttemptHandler(mockService)

	req := attemptRequest()
	c, w := newTestContext("POST", "/attempts", req)

	failure := domain.NewFailure(domain.FailureReservationConflict, "not enough seats")
	view := attempt.View{ID: "a-2", Status: domain.AttemptFailed, Failure: failure}
	mockService.On("Start", mock.Anything, mock.Anything, req).Return(view, failure)

	handler.start(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response attempt.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Failure)
	assert.Equal(t, domain.FailureReservationConflict, response.Failure.Kind)
}

func TestAttemptHandler_startValidation(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	handler := NewAttemptHandler(mockService)

	req := attemptRequest()
	req.Passenger.Email = "nope"
	c, w := newTestContext("POST", "/attempts", req)
	mockService.On("Start", mock.Anything, mock.Anything, req).
		Return(attempt.View{}, domain.NewFailure(domain.FailureValidation, "email must be a valid email address"))

	handler.start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttemptHandler_startMalformedBody(t *testing.T) {
	handler := NewAttemptHandler(&MockAttemptUseCase{})

	c, w := newTestContext("POST", "/attempts", "not an object")

	handler.start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttemptHandler_get(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	handler := NewAttemptHandler(mockService)

	c, w := newTestContext("GET", "/attempts/a-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	mockService.On("Get", "a-1").Return(attempt.View{ID: "a-1", Status: domain.AttemptInProgress}, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAttemptHandler_getUnknown(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	handler := NewAttemptHandler(mockService)

	c, w := newTestContext("GET", "/attempts/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	mockService.On("Get", "nope").Return(attempt.View{}, attempt.ErrAttemptNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttemptHandler_confirm(t *testing.T) {
	tests := []struct {
		name   string
		view   attempt.View
		err    error
		status int
	}{
		{
			name:   "confirmed",
			view:   attempt.View{ID: "a-1", Status: domain.AttemptConfirmed, Codes: domain.BookingCodes{Outbound: "ABC123"}},
			status: http.StatusOK,
		},
		{
			name:   "failure settles the attempt",
			view:   attempt.View{ID: "a-1", Status: domain.AttemptFailed},
			err:    domain.NewFailure(domain.FailureConfirmation, "payment_failed"),
			status: http.StatusOK,
		},
		{
			name:   "request in flight",
			view:   attempt.View{ID: "a-1", Status: domain.AttemptInProgress},
			err:    attempt.ErrAttemptBusy,
			status: http.StatusConflict,
		},
		{
			name:   "unknown attempt",
			err:    attempt.ErrAttemptNotFound,
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAttemptUseCase{}
			handler := NewAttemptHandler(mockService)

			c, w := newTestContext("POST", "/attempts/a-1/confirm", nil)
			c.Params = gin.Params{{Key: "id", Value: "a-1"}}
			mockService.On("Confirm", mock.Anything, "a-1").Return(tt.view, tt.err)

			handler.confirm(c)

			assert.Equal(t, tt.status, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAttemptHandler_abandon(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	handler := NewAttemptHandler(mockService)

	c, w := newTestContext("DELETE", "/attempts/a-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	view := attempt.View{
		ID:           "a-1",
		Status:       domain.AttemptFailed,
		Failure:      domain.NewFailure(domain.FailureAbandoned, "attempt abandoned, holds released"),
		Compensation: &domain.Compensation{HoldID: "H1", Released: true},
	}
	mockService.On("Abandon", mock.Anything, "a-1").Return(view, nil)

	handler.abandon(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response attempt.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Compensation.Released)
}

func TestAttemptHandler_routes(t *testing.T) {
	mockService := &MockAttemptUseCase{}
	router := gin.New()
	NewAttemptHandler(mockService).Register(router.Group("/attempts"))

	mockService.On("Get", "a-9").Return(attempt.View{ID: "a-9"}, nil)

	c, w := newTestContext("GET", "/attempts/a-9", nil)
	router.ServeHTTP(w, c.Request)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
