package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/ryowuandjanet/go-user-auth/internal/interface/http"
	"github.com/ryowuandjanet/go-user-auth/internal/interface/middleware"
)

// AuthModule mounts the credential endpoints under /auth.
// Public: register, token, login, forgot-password, reset-password
// Bearer header required: logout (shape only), me (verified)
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Verifier middleware.TokenVerifier
}

func NewAuthModule(h *handlers.AuthHandler, v middleware.TokenVerifier) *AuthModule {
	return &AuthModule{Handler: h, Verifier: v}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", m.Handler.Register)
	auth.POST("/token", m.Handler.Token)
	auth.POST("/login", m.Handler.Login)
	auth.POST("/forgot-password", m.Handler.ForgotPassword)
	auth.POST("/reset-password", m.Handler.ResetPassword)

	auth.POST("/logout", middleware.RequireBearer(), m.Handler.Logout)
	auth.GET("/me", middleware.Auth(m.Verifier), m.Handler.Me)
}
