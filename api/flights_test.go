package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/projection"
	"github.com/Domenick1991/flysmart/internal/service/search"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchUseCase struct {
	mock.Mock
}

func (m *MockSearchUseCase) Search(ctx context.Context, sess session.Session, req domain.SearchRequest) (*search.Result, error) {
	args := m.Called(ctx, sess, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *MockSearchUseCase) Offers(scope domain.Scope, filter domain.FilterCriteria, sort domain.SortCriteria) (*search.Listing, error) {
	args := m.Called(scope, filter, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Listing), args.Error(1)
}

func (m *MockSearchUseCase) Facets(scopes ...domain.Scope) projection.Facets {
	args := m.Called(scopes)
	return args.Get(0).(projection.Facets)
}

func (m *MockSearchUseCase) Offer(id string) (*domain.FlightOffer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightOffer), args.Error(1)
}

func (m *MockSearchUseCase) Suggest(ctx context.Context, sess session.Session, query string) ([]domain.CitySuggestion, error) {
	args := m.Called(ctx, sess, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CitySuggestion), args.Error(1)
}

func newTestContext(method, target string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, w
}

func TestFlightHandler_search(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	req := domain.SearchRequest{Origin: "HYD", Destination: "BLR", Date: "2026-11-01"}
	c, w := newTestContext("POST", "/search", req)

	result := &search.Result{Outbound: search.Listing{
		Scope:  domain.NewScope("HYD", "BLR", "2026-11-01"),
		Offers: []domain.FlightOffer{{ID: "12", DynamicPrice: 4100}},
	}}
	mockService.On("Search", mock.Anything, mock.Anything, req).Return(result, nil)

	handler.search(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Outbound.Offers, 1)
	assert.Equal(t, "12", response.Outbound.Offers[0].ID)

	mockService.AssertExpectations(t)
}

func TestFlightHandler_searchValidationError(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	req := domain.SearchRequest{Origin: "HYD", Destination: "HYD"}
	c, w := newTestContext("POST", "/search", req)
	mockService.On("Search", mock.Anything, mock.Anything, req).
		Return(nil, domain.NewFailure(domain.FailureValidation, "destination must differ from origin"))

	handler.search(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, domain.FailureValidation, response.Kind)
	assert.Equal(t, "destination must differ from origin", response.Error)
}

func TestFlightHandler_searchUpstreamDown(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("POST", "/search", domain.SearchRequest{Origin: "HYD", Destination: "BLR"})
	mockService.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewFailure(domain.FailureNetwork, "pricing unreachable"))

	handler.search(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestFlightHandler_searchMalformedToken(t *testing.T) {
	handler := NewFlightHandler(&MockSearchUseCase{})

	c, w := newTestContext("POST", "/search", domain.SearchRequest{Origin: "HYD", Destination: "BLR"})
	c.Request.Header.Set("Authorization", "Basic abc")

	handler.search(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFlightHandler_offers(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/offers?origin=hyd&destination=blr&date=2026-11-01&min_price=1000&max_price=5000&carriers=IndiGo,Vistara&buckets=morning&buckets=evening&sort=duration-asc", nil)

	scope := domain.NewScope("HYD", "BLR", "2026-11-01")
	filter := domain.NewFilterCriteria(1000, 5000, []string{"IndiGo", "Vistara"}, []domain.TimeBucket{domain.BucketMorning, domain.BucketEvening})
	listing := &search.Listing{Scope: scope, Offers: []domain.FlightOffer{{ID: "3"}}}
	mockService.On("Offers", scope, filter, domain.SortCriteria{Key: domain.SortDurationAsc}).Return(listing, nil)

	handler.offers(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response search.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "3", response.Offers[0].ID)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_offersBadQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "missing route", target: "/offers?date=2026-11-01"},
		{name: "bad price", target: "/offers?origin=HYD&destination=BLR&min_price=cheap"},
		{name: "negative price", target: "/offers?origin=HYD&destination=BLR&max_price=-1"},
		{name: "bad bucket", target: "/offers?origin=HYD&destination=BLR&buckets=dawn"},
		{name: "bad sort", target: "/offers?origin=HYD&destination=BLR&sort=random"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSearchUseCase{}
			handler := NewFlightHandler(mockService)
			c, w := newTestContext("GET", tt.target, nil)

			handler.offers(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockService.AssertNotCalled(t, "Offers", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestFlightHandler_offersNotLoaded(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/offers?origin=HYD&destination=BLR&date=2026-11-01", nil)
	mockService.On("Offers", mock.Anything, mock.Anything, mock.Anything).Return(nil, search.ErrScopeNotLoaded)

	handler.offers(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightHandler_facets(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/offers/facets?origin=HYD&destination=BLR&date=2026-11-01&return_date=2026-11-05", nil)
	scopes := []domain.Scope{
		domain.NewScope("HYD", "BLR", "2026-11-01"),
		domain.NewScope("BLR", "HYD", "2026-11-05"),
	}
	mockService.On("Facets", scopes).Return(projection.Facets{Airlines: []string{"IndiGo"}, MinPrice: 1200, MaxPrice: 5400})

	handler.facets(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response projection.Facets
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []string{"IndiGo"}, response.Airlines)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_offer(t *testing.T) {
	mockService := &MockSearchUseCase{}
	router := gin.New()
	NewFlightHandler(mockService).Register(router.Group(""))

	mockService.On("Offer", "12").Return(&domain.FlightOffer{ID: "12", DynamicPrice: 4300, RecentlyChanged: true}, nil)
	mockService.On("Offer", "99").Return(nil, search.ErrOfferNotFound)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/offers/12", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.FlightOffer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.RecentlyChanged)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/offers/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightHandler_suggest(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/suggest?q=hy", nil)
	mockService.On("Suggest", mock.Anything, mock.Anything, "hy").Return(nil, nil)

	handler.suggest(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestFlightHandler_suggestError(t *testing.T) {
	mockService := &MockSearchUseCase{}
	handler := NewFlightHandler(mockService)

	c, w := newTestContext("GET", "/suggest?q=hyd", nil)
	mockService.On("Suggest", mock.Anything, mock.Anything, "hyd").Return(nil, errors.New("boom"))

	handler.suggest(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type stubFeed struct {
	status domain.FeedStatus
}

func (s stubFeed) Status() domain.FeedStatus { return s.status }

func TestFeedHandler_status(t *testing.T) {
	router := gin.New()
	NewFeedHandler(stubFeed{status: domain.FeedStatus{Connected: false, Stale: true, Source: "websocket"}}).Register(router.Group("/feed"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/feed/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.FeedStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Stale)
	assert.Equal(t, "websocket", response.Source)
}
