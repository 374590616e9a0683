package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      *storage.DB
	metrics *metrics.Manager
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, m *metrics.Manager, log *slog.Logger) *Server {
	s := &Server{
		db:      db,
		metrics: m,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(Recover(s.log, s.metrics))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, http.StatusNotFound, "not_found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeCode(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/exercises", s.handleListExercises)
		r.Post("/exercises", s.handleCreateExercise)

		r.Get("/workouts", s.handleListWorkouts)
		r.Post("/workouts", s.handleCreateWorkout)
		r.Route("/workouts/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetWorkout)
			r.Put("/", s.handleUpdateWorkout)
			r.Delete("/", s.handleDeleteWorkout)

			r.Get("/exercises", s.handleListWorkoutExercises)
			r.Post("/exercises", s.handleAddWorkoutExercise)
			r.Delete("/exercises/{exerciseId}", s.handleRemoveWorkoutExercise)

			r.Post("/sets", s.handleAppendSet)
		})

		r.Patch("/sets/{setId}", s.handlePatchSet)
	})
}
