package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/paperscape-layout/internal/api/handlers"
	"github.com/onnwee/paperscape-layout/internal/cache"
	"github.com/onnwee/paperscape-layout/internal/middleware"
	"github.com/onnwee/paperscape-layout/internal/server"
)

// NewRouter wires the layout engine's HTTP projection (spec.md §6) onto
// one Engine instance, following the teacher's NewRouter(q) shape with
// the Engine taking the place of the *db.Queries handle. limiter (nilable)
// gates the iterate endpoint only, matching SPEC_FULL.md §2's domain-stack
// rate-limiting note: clients may not force out-of-band Iterate calls
// faster than the configured budget.
func NewRouter(engine *server.Engine, c cache.Cache, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Gzip)
	r.Use(middleware.ETag)
	r.Use(middleware.ValidateRequestBody)

	r.HandleFunc("/health", handlers.Health).Methods("GET")
	r.HandleFunc("/healthz", handlers.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	layout := handlers.NewLayoutHandler(engine, c)
	r.HandleFunc("/api/v1/layout/range", layout.SelectRange).Methods("POST")

	iterateHandler := http.Handler(http.HandlerFunc(layout.Iterate))
	if limiter != nil {
		iterateHandler = limiter.Limit(iterateHandler)
	}
	r.Handle("/api/v1/layout/iterate", iterateHandler).Methods("POST")

	r.HandleFunc("/api/v1/layout/snapshot", layout.Snapshot).Methods("GET")
	r.HandleFunc("/api/v1/layout/coarsen", layout.Coarsen).Methods("POST")
	r.HandleFunc("/api/v1/layout/refine", layout.Refine).Methods("POST")
	r.HandleFunc("/api/v1/layout/jolt", layout.Jolt).Methods("POST")
	r.HandleFunc("/api/v1/layout/rotate", layout.Rotate).Methods("POST")
	r.HandleFunc("/api/v1/layout/flip", layout.Flip).Methods("POST")

	r.HandleFunc("/api/v1/layout/toggle/close-repulsion", layout.ToggleCloseRepulsion).Methods("POST")
	r.HandleFunc("/api/v1/layout/toggle/use-ref-freq", layout.ToggleUseRefFreq).Methods("POST")
	r.HandleFunc("/api/v1/layout/toggle/tred", layout.ToggleTred).Methods("POST")
	r.HandleFunc("/api/v1/layout/adjust/anti-gravity", layout.AdjustAntiGravity).Methods("POST")
	r.HandleFunc("/api/v1/layout/adjust/link-strength", layout.AdjustLinkStrength).Methods("POST")
	r.HandleFunc("/api/v1/layout/adjust/close-repulsion", layout.AdjustCloseRepulsion).Methods("POST")
	r.HandleFunc("/api/v1/layout/adjust/close-repulsion2", layout.AdjustCloseRepulsion2).Methods("POST")

	stream := handlers.NewStreamHandler(engine)
	r.HandleFunc("/api/v1/layout/stream", stream.HandleStream).Methods("GET")

	cacheAdmin := handlers.NewCacheAdminHandler(c)
	r.HandleFunc("/api/admin/cache/invalidate", cacheAdmin.InvalidateCache).Methods("POST")
	r.HandleFunc("/api/admin/cache/stats", cacheAdmin.GetCacheStats).Methods("GET")

	registerPprof(r)

	return r
}

// registerPprof mounts the standard net/http/pprof handlers behind an
// audit log line, so operators can profile the running engine without
// the profiling surface going unmonitored.
func registerPprof(r *mux.Router) {
	wrap := func(name string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			handlers.LogPprofAccess(req.Context(), req.URL.Path, req.RemoteAddr)
			h(w, req)
		}
	}
	r.HandleFunc("/debug/pprof/", wrap("index", pprof.Index))
	r.HandleFunc("/debug/pprof/cmdline", wrap("cmdline", pprof.Cmdline))
	r.HandleFunc("/debug/pprof/profile", wrap("profile", pprof.Profile))
	r.HandleFunc("/debug/pprof/symbol", wrap("symbol", pprof.Symbol))
	r.HandleFunc("/debug/pprof/trace", wrap("trace", pprof.Trace))
	r.PathPrefix("/debug/pprof/").HandlerFunc(wrap("profile-named", pprof.Index))
}
