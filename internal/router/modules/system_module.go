package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/ryowuandjanet/go-user-auth/internal/interface/http"
	"github.com/ryowuandjanet/go-user-auth/internal/observability"
)

// SystemModule serves the root, health and metrics routes on the engine
// root rather than under /api.
type SystemModule struct {
	Handler *handlers.SystemHandler
	Metrics *observability.Metrics // nil disables /metrics
}

func NewSystemModule(h *handlers.SystemHandler, metrics *observability.Metrics) *SystemModule {
	return &SystemModule{Handler: h, Metrics: metrics}
}

func (m *SystemModule) RegisterRoot(r gin.IRoutes) {
	r.GET("/", m.Handler.Root)
	r.GET("/healthz", m.Handler.Health)
	if m.Metrics != nil {
		r.GET("/metrics", gin.WrapH(m.Metrics.Handler()))
	}
}
