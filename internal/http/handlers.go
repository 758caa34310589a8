package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/session"
	"github.com/mauv0809/strategium/internal/store"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 4 << 20

var errBadRequest = errors.New("bad request")

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// StatsHandler reports the counters kept across restarts.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Lifetime == nil {
			http.NotFound(w, r)
			return
		}
		stats, err := s.Lifetime.GetAll()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) ListLeaguesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagues, err := s.Sessions.Leagues(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		public := make([]league.League, 0, len(leagues))
		for _, l := range leagues {
			public = append(public, withoutPassword(l))
		}
		writeJSON(w, http.StatusOK, public)
	}
}

func (s *Server) CreateLeagueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLeagueRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		l, err := s.Sessions.Create(r.Context(), req.Name, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		log.Info("League created", "league", l.ID, "name", l.Name)
		writeJSON(w, http.StatusCreated, withoutPassword(l))
	}
}

func (s *Server) ImportLeagueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importLeagueRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if len(req.Export) == 0 {
			writeError(w, fmt.Errorf("%w: export payload is required", store.ErrInvalidImport))
			return
		}
		l, err := s.Sessions.Import(r.Context(), req.Export, req.Name, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		log.Info("League imported", "league", l.ID, "name", l.Name)
		writeJSON(w, http.StatusCreated, withoutPassword(l))
	}
}

func (s *Server) GetLeagueHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		writeJSON(w, http.StatusOK, publicView(c.View()))
	})
}

func (s *Server) DeleteLeagueHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		var req deleteLeagueRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, err)
				return
			}
		}
		leagueID := chi.URLParam(r, "leagueID")
		err := c.DeleteLeague(r.Context(), req.Password)
		if c.View().State == session.NoLeagueSelected {
			s.Sessions.Forget(leagueID)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) ExportLeagueHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		payload, err := c.Export(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "league-"+chi.URLParam(r, "leagueID")+".json"))
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
	})
}

func (s *Server) GetSettingsHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		writeJSON(w, http.StatusOK, c.View().Settings)
	})
}

func (s *Server) UpdateSettingsHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		var settings league.Settings
		if err := decodeJSON(w, r, &settings); err != nil {
			writeError(w, err)
			return
		}
		if err := c.UpdateSettings(r.Context(), settings); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c.View().Settings)
	})
}

// standing is a ranked player; rank starts at 1.
type standing struct {
	Rank int `json:"rank"`
	league.Player
}

func (s *Server) StandingsHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		players := c.View().Players
		standings := make([]standing, 0, len(players))
		for i, p := range players {
			standings = append(standings, standing{Rank: i + 1, Player: p})
		}
		writeJSON(w, http.StatusOK, standings)
	})
}

// AnnounceStandingsHandler posts the standings through the notifier.
func (s *Server) AnnounceStandingsHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		if err := c.SendStandings(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		writeJSON(w, http.StatusOK, c.View().Players)
	})
}

func (s *Server) AddPlayerHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		var req addPlayerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		faction, err := league.ParseFaction(req.Faction)
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := c.AddPlayer(r.Context(), req.Name, faction)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})
}

func (s *Server) RemovePlayerHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		if err := c.RemovePlayer(r.Context(), chi.URLParam(r, "playerID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) PaintingPointsHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		var req paintingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := c.UpdatePaintingPoints(r.Context(), chi.URLParam(r, "playerID"), req.Points); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) ListPairingsHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		writeJSON(w, http.StatusOK, c.View().Pairings)
	})
}

func (s *Server) CreatePairingHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		var req createPairingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		p, err := c.CreatePairing(r.Context(), req.Player1ID, req.Player2ID, req.Mission)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	})
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		writeJSON(w, http.StatusOK, c.View().Matches)
	})
}

func (s *Server) ReportMatchHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		var report session.MatchReport
		if err := decodeJSON(w, r, &report); err != nil {
			writeError(w, err)
			return
		}
		m, err := c.ReportMatch(r.Context(), report)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	})
}

// withSession resolves the league in the URL to its coordinator.
func (s *Server) withSession(h func(http.ResponseWriter, *http.Request, *session.Coordinator)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "leagueID"))
		if err != nil {
			writeError(w, err)
			return
		}
		h(w, r, c)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err, "status", status)
	} else {
		log.Debug("Request rejected", "error", err, "status", status)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrWrongPassword):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidAction),
		errors.Is(err, league.ErrInvalidSettings),
		errors.Is(err, league.ErrUnknownFaction),
		errors.Is(err, store.ErrInvalidImport):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrLeagueNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func withoutPassword(l league.League) league.League {
	l.Password = ""
	return l
}

func publicView(v session.View) session.View {
	v.League = withoutPassword(v.League)
	return v
}
