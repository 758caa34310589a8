package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/mauv0809/strategium/internal/pubsub"
)

// PushReceiver takes messages forwarded by a Pub/Sub push subscription.
type PushReceiver interface {
	Deliver(eventType pubsub.EventType, data []byte)
}

type Server struct {
	Sessions       *Sessions
	MetricsHandler http.Handler
	// Lifetime is optional; /stats answers 404 without it.
	Lifetime metrics.MetricsStore
	// Push is optional; /pubsub/changes is only routed when set.
	Push PushReceiver

	// Notifier formats slash command responses. Commands are only routed
	// with a notifier and a signing secret.
	Notifier           notifier.Notifier
	SlackSigningSecret string

	Router   chi.Router
	handler  http.Handler
	upgrader websocket.Upgrader
}

type createLeagueRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type importLeagueRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	// Export is a payload produced by GET /leagues/{leagueID}/export.
	Export json.RawMessage `json:"export"`
}

type deleteLeagueRequest struct {
	Password string `json:"password"`
}

type addPlayerRequest struct {
	Name    string `json:"name"`
	Faction string `json:"faction"`
}

type paintingRequest struct {
	Points int `json:"points"`
}

type createPairingRequest struct {
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
	Mission   string `json:"mission"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// liveMessage is a frame written to websocket clients.
type liveMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
