package api

import (
	"net/http"

	"github.com/Domenick1991/flysmart/internal/service/mybookings"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service mybookings.MyBookingsUseCase
}

type cancelBookingRequest struct {
	Refund bool `json:"refund"`
}

func NewBookingHandler(service mybookings.MyBookingsUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:code", h.get)
	router.GET("/:code/receipt", h.receipt)
	router.POST("/:code/cancel", h.cancel)
}

func (h *BookingHandler) list(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	entries, err := h.service.List(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []mybookings.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *BookingHandler) get(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	details, err := h.service.Details(c.Request.Context(), sess, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *BookingHandler) receipt(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	receipt, err := h.service.Receipt(c.Request.Context(), sess, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	result, err := h.service.Cancel(c.Request.Context(), sess, c.Param("code"), req.Refund)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
