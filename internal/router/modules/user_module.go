package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/sittichok/user-service/internal/interface/http"
	"github.com/sittichok/user-service/internal/interface/middleware"
	"github.com/sittichok/user-service/pkg/helpers"
)

// UserModule mounts everything under /v1/users:
// Public: GET /, POST /register, POST /login
// Protected: GET /profile, GET /search
type UserModule struct {
	Auth    *AuthModule
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
}

func NewUserModule(auth *handlers.AuthHandler, h *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client) *UserModule {
	return &UserModule{Auth: NewAuthModule(auth, rdb), Handler: h, JWT: jwt, RDB: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/v1/users")
	users.GET("/", m.Handler.Index)
	m.Auth.Register(users)

	auth := users.Group("")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/profile", m.Handler.GetProfile)
		// Search users via Elasticsearch
		auth.GET("/search", m.Handler.Search)
	}
}
