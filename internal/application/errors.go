package application

import "errors"

// Domain errors returned by the services. Handlers map them to status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("incorrect email or password")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired reset token")
	ErrInvalidToken           = errors.New("could not validate credentials")
)
