package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/BradenHooton/gatekeeper/internal/i18n"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

// ThrottleConfig bounds raw request volume per client address. It sits in
// front of the per-form attempt limiter and never replaces it.
type ThrottleConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// ThrottleByIP creates a middleware that limits requests per client IP
func ThrottleByIP(config ThrottleConfig, catalog *i18n.Catalog) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			tr := catalog.Resolve(r.Header.Get("Accept-Language"))
			pkghttp.WriteTooManyRequests(w, tr.Get("general.too_many_attempts"))
		}),
	)
}
