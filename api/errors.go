package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/service/attempt"
	"github.com/Domenick1991/flysmart/internal/service/hold"
	"github.com/Domenick1991/flysmart/internal/service/mybookings"
	"github.com/Domenick1991/flysmart/internal/service/search"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/Domenick1991/flysmart/internal/upstream"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string             `json:"error"`
	Kind  domain.FailureKind `json:"kind,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrMalformedToken):
		return http.StatusUnauthorized
	case errors.Is(err, mybookings.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, attempt.ErrAttemptNotFound),
		errors.Is(err, upstream.ErrBookingNotFound),
		errors.Is(err, search.ErrScopeNotLoaded),
		errors.Is(err, search.ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrAttemptBusy), errors.Is(err, hold.ErrConfirmInFlight):
		return http.StatusConflict
	}

	var f *domain.Failure
	if !errors.As(err, &f) {
		return http.StatusInternalServerError
	}
	switch f.Kind {
	case domain.FailureValidation:
		return http.StatusBadRequest
	case domain.FailureReservationConflict:
		return http.StatusConflict
	case domain.FailureHoldExpired:
		return http.StatusGone
	case domain.FailureNetwork, domain.FailureConfirmation:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error()}
	var f *domain.Failure
	if errors.As(err, &f) {
		resp.Kind = f.Kind
		resp.Error = f.Detail
	}
	c.JSON(statusFor(err), resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: domain.FailureValidation})
}

// sessionFrom reads the caller's identity token. It writes the error response itself.
func sessionFrom(c *gin.Context) (session.Session, bool) {
	sess, err := session.FromAuthorization(c.GetHeader("Authorization"))
	if err != nil {
		writeError(c, err)
		return session.Session{}, false
	}
	return sess, true
}
