package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/notifier"
)

// NewServer routes the league API onto sessions. lifetime, push and n may be
// nil.
func NewServer(sessions *Sessions, metricsHandler http.Handler, lifetime metrics.MetricsStore, push PushReceiver, n notifier.Notifier, slackSigningSecret string) *Server {
	server := &Server{
		Sessions:           sessions,
		MetricsHandler:     metricsHandler,
		Lifetime:           lifetime,
		Push:               push,
		Notifier:           n,
		SlackSigningSecret: slackSigningSecret,
		Router:             chi.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	server.routes()
	server.handler = Chain(server.Router, paramsMiddleware)
	return server
}

func (s *Server) routes() {
	r := s.Router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", s.MetricsHandler)
	r.Get("/health", s.HealthCheckHandler())
	r.Get("/stats", s.StatsHandler())
	if s.Push != nil {
		r.Post("/pubsub/changes", s.PushChangesHandler())
	}
	if s.Notifier != nil && s.SlackSigningSecret != "" {
		r.Post("/slack/command/standings", s.StandingsCommandHandler())
	}

	// The websocket outlives any request timeout.
	r.Get("/leagues/{leagueID}/live", s.LiveHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/leagues", s.ListLeaguesHandler())
		r.Post("/leagues", s.CreateLeagueHandler())
		r.Post("/leagues/import", s.ImportLeagueHandler())

		r.Route("/leagues/{leagueID}", func(r chi.Router) {
			r.Get("/", s.GetLeagueHandler())
			r.Delete("/", s.DeleteLeagueHandler())
			r.Get("/export", s.ExportLeagueHandler())

			r.Get("/settings", s.GetSettingsHandler())
			r.Put("/settings", s.UpdateSettingsHandler())

			r.Get("/standings", s.StandingsHandler())
			r.Post("/standings/announce", s.AnnounceStandingsHandler())

			r.Get("/players", s.ListPlayersHandler())
			r.Post("/players", s.AddPlayerHandler())
			r.Delete("/players/{playerID}", s.RemovePlayerHandler())
			r.Put("/players/{playerID}/painting", s.PaintingPointsHandler())

			r.Get("/pairings", s.ListPairingsHandler())
			r.Post("/pairings", s.CreatePairingHandler())

			r.Get("/matches", s.ListMatchesHandler())
			r.Post("/matches", s.ReportMatchHandler())
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
