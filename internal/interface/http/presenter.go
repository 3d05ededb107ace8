package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ryowuandjanet/go-user-auth/internal/application"
	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	"github.com/ryowuandjanet/go-user-auth/internal/interface/middleware"
	"github.com/ryowuandjanet/go-user-auth/pkg/response"
)

// userView is the public shape of a user; no password or reset state.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u *entity.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// writeError maps service errors to responses. Anything unrecognised is a
// store or infrastructure failure and is hidden behind a generic 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, application.ErrEmailAlreadyRegistered):
		response.Error[any](c, http.StatusBadRequest, "Email already registered", nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		middleware.Unauthorized(c, "Incorrect email or password")
	case errors.Is(err, application.ErrInvalidToken):
		middleware.Unauthorized(c, "Could not validate credentials")
	case errors.Is(err, application.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, application.ErrInvalidOrExpiredToken):
		response.Error[any](c, http.StatusBadRequest, "Invalid or expired reset token", nil)
	default:
		if logger != nil {
			logger.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey)).Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}
