package handler

import (
	"liveshop/internal/app/issuer"
	"liveshop/internal/configs"
	"liveshop/internal/pkg/limiter"
)

// AppDeps carries the long-lived collaborators shared by all handlers.
type AppDeps struct {
	Config *configs.AppConfig
	Issuer *issuer.Issuer

	// TokenLimiter rate limits the token routes per client IP.
	TokenLimiter *limiter.IPRateLimiter
}
