package http

import (
	"log/slog"
	"net/http"
	"time"
)

// NewRouter wires the form, API and health routes. Calculation routes go
// through the rate limiter; everything except /health gets a session. A
// limited form submit returns to the form with a notice, the API answers 429.
func NewRouter(
	forms *FormHandler,
	api *APIHandler,
	limiter *RateLimiter,
	sessionTTL time.Duration,
	logger *slog.Logger,
) http.Handler {
	limited := func(h http.HandlerFunc, onLimit http.Handler) http.Handler {
		return RateLimitMiddleware(limiter, logger, h, onLimit)
	}

	app := http.NewServeMux()
	app.HandleFunc("/{$}", forms.Index)
	app.HandleFunc("/rows/add", forms.AddRow)
	app.HandleFunc("/rows/remove", forms.RemoveRow)
	app.HandleFunc("/reset", forms.Reset)
	app.Handle("/calculate", limited(forms.Calculate, http.HandlerFunc(forms.RateLimited)))
	app.HandleFunc("/result.pdf", forms.ResultPDF)
	app.Handle("/api/calculate", limited(api.Calculate, nil))
	app.HandleFunc("/history", api.History)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)
	mux.Handle("/", SessionMiddleware(sessionTTL, app))
	return logRequests(logger, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
