package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userapp "github.com/sittichok/user-service/internal/application"
	"github.com/sittichok/user-service/internal/container"
	handlers "github.com/sittichok/user-service/internal/interface/http"
	"github.com/sittichok/user-service/internal/router/modules"
	"github.com/sittichok/user-service/pkg/response"
)

type UserModuleDeps struct {
	Service     *userapp.Service
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()

	var eb userapp.EventBroker
	if b := container.GetBroker(); b != nil {
		eb = b
	}

	service := userapp.NewService(
		container.GetUserRepo(),
		container.GetJWT(),
		eb,
		container.GetOutboxRepo(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
	)

	return UserModuleDeps{
		Service:     service,
		AuthHandler: handlers.NewAuthHandler(service, container.GetLogger()),
		UserHandler: handlers.NewUserHandler(service, container.GetLogger()),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildUserDeps()
	r.Add(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/health", func(c *gin.Context) {
			response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "healthy", nil)
		})
	}))
	r.Add(modules.NewUserModule(deps.AuthHandler, deps.UserHandler, container.GetJWT(), container.GetRedis()))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetRedis()))
	}
}
