package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ryowuandjanet/go-user-auth/pkg/response"
)

// Pinger is anything that can report store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	Store  Pinger
	Logger *logrus.Logger
}

func NewSystemHandler(store Pinger, logger *logrus.Logger) *SystemHandler {
	return &SystemHandler{Store: store, Logger: logger}
}

func (h *SystemHandler) Root(c *gin.Context) {
	response.Success[any](c, http.StatusOK, nil, "Welcome to the user auth API", nil)
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("health check: store unreachable")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "store unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"store": "ok"}, "healthy", nil)
}
