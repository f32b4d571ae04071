package api

import (
	"net/http"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/gin-gonic/gin"
)

type FeedStatusProvider interface {
	Status() domain.FeedStatus
}

type FeedHandler struct {
	feed FeedStatusProvider
}

func NewFeedHandler(feed FeedStatusProvider) *FeedHandler {
	return &FeedHandler{feed: feed}
}

func (h *FeedHandler) Register(router *gin.RouterGroup) {
	router.GET("/status", h.status)
}

func (h *FeedHandler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.Status())
}
