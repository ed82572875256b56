// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/A414347330/vip-cinema/internal/config"
	"github.com/A414347330/vip-cinema/internal/handler"
	"github.com/A414347330/vip-cinema/internal/middleware"
	"github.com/A414347330/vip-cinema/internal/vip"
)

// RegisterRoutes wires all endpoints. Login and activation sit behind the
// Redis token bucket; everything under /v1 requires a valid access token,
// and /v1/admin additionally requires the admin role claim (the account
// service re-checks the acting identifier on every admin call).
func RegisterRoutes(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	a *handler.AuthHandler, act *handler.ActivationHandler, adm *handler.AdminHandler) {

	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	pub := e.Group("/v1/auth")
	pub.POST("/login", a.Login, limiter)
	pub.POST("/refresh", a.Refresh)
	pub.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.RequireRole(vip.RoleUser, vip.RoleAdmin))
	auth.GET("/me", a.Me)
	auth.POST("/logout-all", a.LogoutAll)
	auth.POST("/activate", act.Activate, limiter)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(vip.RoleAdmin))
	admin.GET("/users", adm.ListUsers)
	admin.PATCH("/users/:id", adm.UpdateUser)
	admin.DELETE("/users/:id", adm.DeleteUser)
	admin.POST("/codes", adm.GenerateCodes)
	admin.GET("/codes", adm.ListCodes)
	admin.DELETE("/codes/:id", adm.DeleteCode)
	admin.GET("/email-codes", adm.ListEmailCodes)
}
