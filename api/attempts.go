package api

import (
	"net/http"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/service/attempt"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	service attempt.AttemptUseCase
}

func NewAttemptHandler(service attempt.AttemptUseCase) *AttemptHandler {
	return &AttemptHandler{service: service}
}

func (h *AttemptHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.start)
	router.GET("/:id", h.get)
	router.POST("/:id/confirm", h.confirm)
	router.DELETE("/:id", h.abandon)
}

// start answers 201 with the attempt view even when reserving failed; the view carries the failure.
func (h *AttemptHandler) start(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		return
	}
	var req domain.AttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.service.Start(c.Request.Context(), sess, req)
	if err != nil && view.ID == "" {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *AttemptHandler) get(c *gin.Context) {
	view, err := h.service.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) confirm(c *gin.Context) {
	h.respond(c, func() (attempt.View, error) {
		return h.service.Confirm(c.Request.Context(), c.Param("id"))
	})
}

func (h *AttemptHandler) abandon(c *gin.Context) {
	h.respond(c, func() (attempt.View, error) {
		return h.service.Abandon(c.Request.Context(), c.Param("id"))
	})
}

// respond renders the view for settled outcomes and an error only when the request itself was refused.
func (h *AttemptHandler) respond(c *gin.Context, call func() (attempt.View, error)) {
	view, err := call()
	if err != nil && (view.ID == "" || statusFor(err) == http.StatusConflict) {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
