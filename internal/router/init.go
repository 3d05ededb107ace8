package router

import (
	"github.com/ryowuandjanet/go-user-auth/internal/container"
	handlers "github.com/ryowuandjanet/go-user-auth/internal/interface/http"
	"github.com/ryowuandjanet/go-user-auth/internal/router/modules"
)

// InitModules builds the handlers from the container and registers every
// module with the registry. Call once during startup.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Auth, c.Logger)
	userHandler := handlers.NewUserHandler(c.Users, c.Logger)
	systemHandler := handlers.NewSystemHandler(c.Users, c.Logger)

	r.Add(modules.NewAuthModule(authHandler, c.JWT))
	r.Add(modules.NewUserModule(userHandler))
	r.AddRoot(modules.NewSystemModule(systemHandler, c.Metrics))
}
