package http

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/pubsub"
)

// pushEnvelope is the body Pub/Sub posts to push endpoints.
type pushEnvelope struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
}

// PushChangesHandler forwards change events from a push subscription to
// the change feed.
func (s *Server) PushChangesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		var envelope pushEnvelope
		if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		rawData, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}
		log.Debug("Received change event push", "subscription", envelope.Subscription, "message", envelope.Message.MessageID)

		// Undecodable events are dropped by the feed; acknowledging them
		// stops Pub/Sub from redelivering.
		s.Push.Deliver(pubsub.EventType(envelope.Message.Attributes[pubsub.AttributeEventType]), rawData)
		w.Write([]byte("OK"))
	}
}
