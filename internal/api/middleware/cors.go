package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// PreflightMaxAge is how long browsers may cache a preflight answer.
const PreflightMaxAge = 24 * time.Hour

// AllowedMethods and AllowedHeaders are advertised on every preflight answer.
var (
	AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	AllowedHeaders = []string{"Content-Type", "Authorization"}
)

// CORS returns a middleware that allows every origin without credentials.
// Cross-origin preflights are answered with 200 before reaching any route.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = AllowedMethods
	cfg.AllowHeaders = AllowedHeaders
	cfg.ExposeHeaders = []string{RequestIDHeader}
	cfg.MaxAge = PreflightMaxAge
	cfg.OptionsResponseStatusCode = http.StatusOK
	return cors.New(cfg)
}

// Preflight answers OPTIONS requests that arrive without an Origin header,
// which CORS passes through. Its headers match what CORS sends for a cross-origin preflight.
func Preflight() gin.HandlerFunc {
	methods := strings.Join(AllowedMethods, ",")
	headers := strings.Join(AllowedHeaders, ",")
	maxAge := strconv.FormatInt(int64(PreflightMaxAge/time.Second), 10)

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Max-Age", maxAge)
		c.Status(http.StatusOK)
	}
}
