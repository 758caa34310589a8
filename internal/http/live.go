package http

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mauv0809/strategium/internal/session"
)

const liveWriteTimeout = 10 * time.Second

// LiveHandler streams the league view over a websocket: the current view on
// connect and a new one after every change. Slow clients only get the latest.
// The stream ends once the session leaves the league, after the final view.
func (s *Server) LiveHandler() http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, c *session.Coordinator) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request.
			log.Error("Websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		leagueID := chi.URLParam(r, "leagueID")
		log.Info("Live client connected", "league", leagueID, "remote", r.RemoteAddr)

		updates := make(chan session.View, 1)
		cancel := c.OnChange(func(v session.View) {
			select {
			case updates <- v:
				return
			default:
			}
			// replace the stale pending view
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- v:
			default:
			}
		})
		defer cancel()

		// The reader only notices the client going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := writeView(conn, c.View()); err != nil {
			log.Debug("Live client write failed", "league", leagueID, "error", err)
			return
		}
		for {
			select {
			case v := <-updates:
				if err := writeView(conn, v); err != nil {
					log.Debug("Live client write failed", "league", leagueID, "error", err)
					return
				}
				if v.State == session.NoLeagueSelected {
					log.Info("Live session ended", "league", leagueID)
					closeLive(conn, "league closed")
					return
				}
			case <-closed:
				log.Info("Live client disconnected", "league", leagueID)
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}

func writeView(conn *websocket.Conn, v session.View) error {
	conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(liveMessage{Type: "view", Data: publicView(v)})
}

func closeLive(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(liveWriteTimeout)); err != nil {
		log.Debug("Failed to send close frame", "error", err)
	}
}
