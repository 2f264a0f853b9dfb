package httpapi

import (
	"expvar"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	// AccessLog receives one line per request. Defaults to the standard logger.
	AccessLog *log.Logger
}

// NewRouter constructs the member area HTTP router.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(opts.AccessLog))
	r.Use(middleware.Recoverer)

	// Infra endpoints are unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	// The live endpoint resolves its own token; sockjs owns everything below the prefix.
	r.Handle(livePrefix+"/*", s.LiveHandler())

	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware())

		r.Get("/member-login", s.GetMemberLogin)
		r.Get("/member-dashboard", s.GetMemberDashboard)
		r.Post("/auth/login", s.PostLogin)
		r.Post("/auth/signup", s.PostSignup)
		r.Post("/auth/logout", s.PostLogout)
	})
	return r
}
