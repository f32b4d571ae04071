package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/service/search"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type FlightHandler struct {
	service search.SearchUseCase
}

func NewFlightHandler(service search.SearchUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/suggest", h.suggest)
	router.POST("/search", h.search)
	router.GET("/offers", h.offers)
	router.GET("/offers/facets", h.facets)
	router.GET("/offers/:id", h.offer)
}

func (h *FlightHandler) suggest(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	cities, err := h.service.Suggest(c.Request.Context(), sess, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	if cities == nil {
		cities = []domain.CitySuggestion{}
	}
	c.JSON(http.StatusOK, cities)
}

func (h *FlightHandler) search(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.service.Search(c.Request.Context(), sess, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) offers(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	key, err := domain.ParseSortKey(c.Query("sort"))
	if err != nil {
		badRequest(c, err)
		return
	}

	listing, err := h.service.Offers(scope, filter, domain.SortCriteria{Key: key})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *FlightHandler) facets(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	scopes := []domain.Scope{scope}
	if rd := c.Query("return_date"); rd != "" {
		scopes = append(scopes, scope.Reverse(rd))
	}
	c.JSON(http.StatusOK, h.service.Facets(scopes...))
}

func (h *FlightHandler) offer(c *gin.Context) {
	offer, err := h.service.Offer(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

func scopeFromQuery(c *gin.Context) (domain.Scope, error) {
	scope := domain.NewScope(c.Query("origin"), c.Query("destination"), c.Query("date"))
	if scope.Origin == "" || scope.Destination == "" {
		return domain.Scope{}, fmt.Errorf("origin and destination are required")
	}
	return scope, nil
}

func filterFromQuery(c *gin.Context) (domain.FilterCriteria, error) {
	var minPrice, maxPrice float64
	var err error
	if v := c.Query("min_price"); v != "" {
		if minPrice, err = cast.ToFloat64E(v); err != nil {
			return domain.FilterCriteria{}, fmt.Errorf("invalid min_price %q", v)
		}
	}
	if v := c.Query("max_price"); v != "" {
		if maxPrice, err = cast.ToFloat64E(v); err != nil {
			return domain.FilterCriteria{}, fmt.Errorf("invalid max_price %q", v)
		}
	}
	if minPrice < 0 || maxPrice < 0 {
		return domain.FilterCriteria{}, fmt.Errorf("prices must not be negative")
	}

	var buckets []domain.TimeBucket
	for _, v := range listQuery(c, "buckets") {
		b, err := domain.ParseBucket(v)
		if err != nil {
			return domain.FilterCriteria{}, err
		}
		buckets = append(buckets, b)
	}
	return domain.NewFilterCriteria(minPrice, maxPrice, listQuery(c, "carriers"), buckets), nil
}

// listQuery accepts both repeated parameters and comma separated values.
func listQuery(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
