package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/mapty/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Sync     *view.Sync
	Map      *MarkerLayer
	List     *RowList
	Gatherer prometheus.Gatherer
	APIKey   string
	Log      *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sync     *view.Sync
	markers  *MarkerLayer
	rows     *RowList
	gatherer prometheus.Gatherer
	whois    WhoIser
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		sync:     d.Sync,
		markers:  d.Map,
		rows:     d.List,
		gatherer: d.Gatherer,
		log:      d.Log,
		apiKey:   d.APIKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identify)

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read-only views (no auth; tsnet handles access)
		r.Get("/me", s.handleMe)
		r.Get("/state", s.handleState)
		r.Get("/map", s.handleMap)
		r.Get("/rows", s.handleRows)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)

		// Events that change state (API key or tailnet identity required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))

			r.Post("/map/click", s.handleMapClick)
			r.Post("/form/toggle", s.handleToggleType)
			r.Delete("/form", s.handleCancelCreate)

			r.Post("/workouts", s.handleCreateWorkout)
			r.Put("/workouts/{id}", s.handleSubmitEdit)
			r.Delete("/workouts/{id}", s.handleDeleteWorkout)
			r.Post("/workouts/{id}/edit", s.handleOpenEdit)
			r.Delete("/workouts/{id}/edit", s.handleCancelEdit)
			r.Post("/workouts/{id}/focus", s.handleFocus)

			r.Post("/prompts/delete-all", s.handleRequestDeleteAll)
			r.Post("/prompts/{token}/confirm", s.handleConfirmPrompt)
			r.Post("/prompts/{token}/cancel", s.handleCancelPrompt)
		})
	})
}

// MountMCP serves an MCP transport at /mcp behind API key auth.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.apiKey)).Handle("/mcp", h)
}
