package httpapi

import (
	"net/http"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const defaultMaxBodyBytes = 16 << 10

// Config controls the HTTP surface. Zero values fall back to the defaults
// noted on each field.
type Config struct {
	// APIVersion is the path segment after /api/. Default "v1".
	APIVersion string
	// CORSOrigin is the allowed browser origin. "*" allows any origin without
	// credentials. Empty disables CORS.
	CORSOrigin string
	// CookieSecure marks token cookies Secure. Disable only for plain-HTTP
	// development.
	CookieSecure bool
	// MaxBodyBytes caps JSON request bodies. Default 16 KiB.
	MaxBodyBytes int64
	Logger       zerolog.Logger
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
}

type server struct {
	engine *goAccount.Engine
	cfg    Config
}

// NewHandler wires every route and the logging, CORS and client IP
// middleware around them.
func NewHandler(engine *goAccount.Engine, cfg Config) http.Handler {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}
	cfg.APIVersion = strings.Trim(cfg.APIVersion, "/")
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &server{engine: engine, cfg: cfg}
	guard := middleware.Guard(engine)
	base := "/api/" + cfg.APIVersion + "/user"

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+base, s.register)
	mux.HandleFunc("POST "+base+"/login", s.login)
	mux.HandleFunc("POST "+base+"/refresh", s.refresh)
	mux.HandleFunc("POST "+base+"/verify", s.verify)
	mux.Handle("GET "+base, guard(http.HandlerFunc(s.showMe)))
	mux.Handle("PATCH "+base, guard(http.HandlerFunc(s.updateProfile)))
	mux.Handle("POST "+base+"/logout", guard(http.HandlerFunc(s.logout)))
	mux.Handle("POST "+base+"/verify/resend", guard(http.HandlerFunc(s.resendVerification)))
	mux.Handle("PUT "+base+"/password", guard(http.HandlerFunc(s.changePassword)))
	mux.HandleFunc("GET /healthz", s.health)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	mux.HandleFunc("/", s.notFound)

	var h http.Handler = mux
	h = middleware.ClientIP(h)
	h = cors(cfg.CORSOrigin)(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(cfg.Logger)(h)
	return h
}

// cors answers preflights and decorates responses for the configured origin.
// A named origin is echoed with credentials allowed. "*" is sent literally
// and never with credentials, so browsers keep cookies out of it.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if origin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			reqOrigin := r.Header.Get("Origin")
			switch {
			case reqOrigin == "":
			case origin == "*":
				h.Set("Access-Control-Allow-Origin", "*")
			case reqOrigin == origin:
				h.Set("Access-Control-Allow-Origin", reqOrigin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
