package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/metrics"
	slacknotifier "github.com/mauv0809/strategium/internal/notifier/slack"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createSlackCommandRequest creates an http.Request suitable for testing Slack slash commands,
// including the necessary signature and timestamp headers for verification.
func createSlackCommandRequest(t *testing.T, text, signingSecret string) *http.Request {
	t.Helper()

	form := url.Values{"command": {"/standings"}, "text": {text}, "user_name": {"valerius"}}
	body := []byte(form.Encode())
	req := httptest.NewRequest(http.MethodPost, "/slack/command/standings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	timestamp := time.Now().Unix()
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(timestamp, 10))

	h := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(h, "v0:%d:%s", timestamp, body)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(h.Sum(nil)))
	return req
}

func TestStandingsCommandHandler(t *testing.T) {
	n := slacknotifier.NewNotifierWithAPI(nil, "C123", metrics.NewMock())
	server, _ := setupTestServer(t, n)

	l := createLeague(t, server, "Armageddon", "")
	addPlayer(t, server, l.ID, "Warboss Gorksmash", league.FactionOrks)

	t.Run("by name", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, createSlackCommandRequest(t, "armageddon", testSlackSigningSecret))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var msg slack.Message
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
		assert.Equal(t, slack.ResponseTypeInChannel, msg.ResponseType)
		assert.NotEmpty(t, msg.Blocks.BlockSet)
		assert.Contains(t, rr.Body.String(), "Warboss Gorksmash")
	})

	t.Run("only league", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, createSlackCommandRequest(t, "", testSlackSigningSecret))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Warboss Gorksmash")
	})

	t.Run("unknown league", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, createSlackCommandRequest(t, "Vigilus", testSlackSigningSecret))

		require.Equal(t, http.StatusOK, rr.Code)
		var msg slack.Message
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
		assert.Equal(t, slack.ResponseTypeEphemeral, msg.ResponseType)
	})

	t.Run("bad signature", func(t *testing.T) {
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, createSlackCommandRequest(t, "Armageddon", "wrong-secret"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestFindLeague(t *testing.T) {
	server, _ := setupTestServer(t, slacknotifier.NewNotifierWithAPI(nil, "C123", metrics.NewMock()))
	ctx := t.Context()

	_, found, err := server.findLeague(ctx, "")
	require.NoError(t, err)
	assert.False(t, found, "no leagues yet")

	a := createLeague(t, server, "Octarius", "")
	b := createLeague(t, server, "Pariah Nexus", "")

	got, found, err := server.findLeague(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, b.ID, got.ID)

	got, found, err = server.findLeague(ctx, "  OCTARIUS ")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, a.ID, got.ID)

	_, found, err = server.findLeague(ctx, "")
	require.NoError(t, err)
	assert.False(t, found, "ambiguous without a name")
}
