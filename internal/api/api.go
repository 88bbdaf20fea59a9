package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dipdup-io/token-transfers/internal/api/transfers"
	"github.com/dipdup-io/token-transfers/internal/storage"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// DefaultAllowedOrigins - origins of the wallet frontend
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://192.168.190.153:3000",
}

// headers a browser frontend may request in preflight, in addition to gorilla defaults
var allowedHeaders = []string{
	"Authorization",
	"Cache-Control",
	"Content-Type",
	"If-Modified-Since",
	"If-None-Match",
	"Pragma",
	"X-Requested-With",
}

type Options struct {
	AllowedOrigins     []string
	EnableReqLogger    bool
	SlowQueryThreshold time.Duration
	EnableMetrics      bool
}

// New return api router
func New(transfer storage.ITransfer, opts Options) http.Handler {
	router := mux.NewRouter()

	transfers.New(transfer).
		Mount(router, "/api/transfers")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	if opts.EnableReqLogger || opts.SlowQueryThreshold > 0 {
		handler = RequestLoggerMiddleware(opts.EnableReqLogger, opts.SlowQueryThreshold)(handler)
	}
	handler = handlers.CORS(
		handlers.AllowedOrigins(normalizeOrigins(opts.AllowedOrigins)),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
		handlers.AllowedHeaders(allowedHeaders),
	)(handler)

	return handler
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	result := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(o)), "/")
		if o != "" {
			result = append(result, o)
		}
	}
	return result
}
