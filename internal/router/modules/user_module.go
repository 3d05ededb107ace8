package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/ryowuandjanet/go-user-auth/internal/interface/http"
)

// UserModule mounts plain user record management under /users.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.POST("", m.Handler.Create)
	users.GET("", m.Handler.List)
	users.GET("/:id", m.Handler.Get)
}
