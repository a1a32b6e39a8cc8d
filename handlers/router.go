package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"portfolio/analytics/config"
	"portfolio/analytics/middleware"
	"portfolio/analytics/store"
)

// RouterDeps are the collaborators built once in main and shared by every request.
type RouterDeps struct {
	Config    *config.Config
	Events    EventLog
	Sink      store.EventSink               // nil: no mirror
	Operators OperatorRepository            // nil: no operator login
	Limiter   *middleware.IngestRateLimiter // nil: ingest is not rate limited
}

func NewRouter(d RouterDeps) *gin.Engine {
	cfg := d.Config

	r := gin.Default()
	// ClientIP keys the ingest limiter, so forwarded headers count only from listed proxies.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Printf("Invalid trusted proxies %v, trusting none: %v", cfg.TrustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.CORSMiddleware(cfg.Ingest.AllowOrigin))

	analyticsHandlers := NewAnalyticsHandlers(d.Events, d.Sink)

	r.GET("/health", analyticsHandlers.Health)

	api := r.Group("/api")
	{
		var ingest []gin.HandlerFunc
		if d.Limiter != nil {
			ingest = append(ingest, d.Limiter.Middleware())
		}
		ingest = append(ingest, middleware.BodyLimit(cfg.Ingest.MaxBodyBytes), analyticsHandlers.TrackEvent)
		api.POST("/analytics", ingest...)

		read := api.Group("/analytics", middleware.DashboardAuth(cfg.Auth))
		{
			read.GET("", analyticsHandlers.GetEvents)
			read.GET("/summary", analyticsHandlers.GetSummary)
			read.GET("/sessions", analyticsHandlers.GetSessions)
		}

		if d.Operators != nil && cfg.Auth.JWTSecret != "" {
			authHandlers := NewAuthHandlers(d.Operators, cfg.Auth.JWTSecret)

			auth := api.Group("/auth")
			{
				auth.POST("/login", authHandlers.Login)
				auth.POST("/logout", authHandlers.Logout)
				auth.POST("/operators", middleware.DashboardAuth(cfg.Auth), authHandlers.CreateOperator)
			}
		}
	}

	return r
}
