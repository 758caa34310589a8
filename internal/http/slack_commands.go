package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/slack-go/slack"
)

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func ephemeral(text string) slack.Message {
	return slack.Message{Msg: slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text}}
}

// verifySlackRequest checks the request signature against the signing secret.
func verifySlackRequest(header http.Header, body []byte, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// StandingsCommandHandler returns a handler for the /standings Slack command.
// The command text names the league by id or name and may be left empty
// while only one league exists.
func (s *Server) StandingsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		if err := verifySlackRequest(r.Header, body, s.SlackSigningSecret); err != nil {
			log.Warn("Rejected unsigned Slack command", "error", err)
			http.Error(w, "Invalid request signature", http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		log.Info("Received standings command", "user", cmd.UserName, "text", cmd.Text)

		l, found, err := s.findLeague(r.Context(), cmd.Text)
		if err != nil {
			http.Error(w, "Failed to list leagues", http.StatusInternalServerError)
			log.Error("Failed to list leagues", "error", err)
			return
		}
		if !found {
			respondWithSlackMsg(w, ephemeral("No such campaign in the archives. Name one with /standings <league>."))
			return
		}

		c, err := s.Sessions.Get(r.Context(), l.ID)
		if err != nil {
			http.Error(w, "Failed to load league", statusFor(err))
			log.Error("Failed to load league", "league", l.ID, "error", err)
			return
		}
		view := c.View()
		msg, err := s.Notifier.FormatStandingsResponse(view.League.Name, view.Players)
		if err != nil {
			http.Error(w, "Failed to format standings", http.StatusInternalServerError)
			log.Error("Failed to format standings", "error", err)
			return
		}
		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		slackMsg.ResponseType = slack.ResponseTypeInChannel
		respondWithSlackMsg(w, slackMsg)
	}
}

// findLeague matches query against league ids, then names ignoring case.
func (s *Server) findLeague(ctx context.Context, query string) (league.League, bool, error) {
	leagues, err := s.Sessions.Leagues(ctx)
	if err != nil {
		return league.League{}, false, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		if len(leagues) == 1 {
			return leagues[0], true, nil
		}
		return league.League{}, false, nil
	}
	for _, l := range leagues {
		if l.ID == query {
			return l, true, nil
		}
	}
	for _, l := range leagues {
		if strings.EqualFold(l.Name, query) {
			return l, true, nil
		}
	}
	return league.League{}, false, nil
}
