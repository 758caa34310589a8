package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mauv0809/strategium/internal/database"
	"github.com/mauv0809/strategium/internal/kv"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/narrative"
	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/mauv0809/strategium/internal/pubsub"
	"github.com/mauv0809/strategium/internal/session"
	"github.com/mauv0809/strategium/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSlackSigningSecret = "test-signing-secret"

type pushRecorder struct {
	mu     sync.Mutex
	events []pubsub.EventType
	data   [][]byte
}

func (p *pushRecorder) Deliver(eventType pubsub.EventType, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
}

// setupTestServer serves a snapshot store on an in-memory database.
func setupTestServer(t *testing.T, n notifier.Notifier) (*Server, *pushRecorder) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	reg := prometheus.NewRegistry()
	lifetime := metrics.New(db)
	metricsSvc := metrics.NewService(reg).WithLifetime(lifetime)
	snapshot := store.NewSnapshot(kv.NewSQLite(db))

	sessions := NewSessions(func() *session.Coordinator {
		return session.NewSnapshot(snapshot,
			session.WithNotifier(n),
			session.WithNarrator(narrative.Template{}),
			session.WithMetrics(metricsSvc),
		)
	})
	t.Cleanup(sessions.Close)

	push := &pushRecorder{}
	return NewServer(sessions, metrics.NewMetricsHandler(reg), lifetime, push, n, testSlackSigningSecret), push
}

func do(t *testing.T, server *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createLeague(t *testing.T, server *Server, name, password string) league.League {
	t.Helper()
	rr := do(t, server, http.MethodPost, "/leagues", createLeagueRequest{Name: name, Password: password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[league.League](t, rr)
}

func addPlayer(t *testing.T, server *Server, leagueID, name string, faction league.Faction) league.Player {
	t.Helper()
	rr := do(t, server, http.MethodPost, "/leagues/"+leagueID+"/players", addPlayerRequest{Name: name, Faction: string(faction)})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[league.Player](t, rr)
}

func TestHealthCheckHandler(t *testing.T) {
	server, _ := setupTestServer(t, notifier.NewMock())

	rr := do(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "OK!", rr.Body.String(), "handler returned unexpected body")
}

func TestLeagueHandlers(t *testing.T) {
	server, _ := setupTestServer(t, notifier.NewMock())

	created := createLeague(t, server, "Armageddon Campaign", "purge")
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Password, "passwords are never returned")
	createLeague(t, server, "Vigilus Defiant", "")

	rr := do(t, server, http.MethodGet, "/leagues", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	leagues := decode[[]league.League](t, rr)
	require.Len(t, leagues, 2)
	assert.Equal(t, "Armageddon Campaign", leagues[0].Name)
	assert.Empty(t, leagues[0].Password)

	rr = do(t, server, http.MethodGet, "/leagues/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[session.View](t, rr)
	assert.Equal(t, session.LeagueActive, view.State)
	assert.Equal(t, created.ID, view.League.ID)
	assert.Empty(t, view.League.Password)

	t.Run("unknown league", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/leagues/missing", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("blank name", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/leagues", createLeagueRequest{Name: "  "})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/leagues", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := do(t, server, http.MethodDelete, "/leagues/"+created.ID, deleteLeagueRequest{Password: "wrong"})
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = do(t, server, http.MethodDelete, "/leagues/"+created.ID, deleteLeagueRequest{Password: "purge"})
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = do(t, server, http.MethodGet, "/leagues/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPlayerAndMatchHandlers(t *testing.T) {
	n := notifier.NewMock()
	server, _ := setupTestServer(t, n)

	l := createLeague(t, server, "Octarius", "")
	valerius := addPlayer(t, server, l.ID, "Inquisitor Valerius", league.FactionSpaceMarines)
	gorksmash := addPlayer(t, server, l.ID, "Warboss Gorksmash", league.FactionOrks)
	base := "/leagues/" + l.ID

	t.Run("unknown faction", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, base+"/players", addPlayerRequest{Name: "Ghazghkull", Faction: "Squats"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	rr := do(t, server, http.MethodPut, base+"/players/"+gorksmash.ID+"/painting", paintingRequest{Points: 30})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	rr = do(t, server, http.MethodPut, base+"/players/"+gorksmash.ID+"/painting", paintingRequest{Points: -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, server, http.MethodPost, base+"/pairings", createPairingRequest{Player1ID: valerius.ID, Player2ID: gorksmash.ID, Mission: "Take and Hold"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	pairing := decode[league.Pairing](t, rr)
	assert.Equal(t, 1, pairing.Week)

	rr = do(t, server, http.MethodPost, base+"/pairings", createPairingRequest{Player1ID: valerius.ID, Player2ID: valerius.ID})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "a player cannot face themselves")

	rr = do(t, server, http.MethodPost, base+"/matches?dry_run=true", session.MatchReport{
		PairingID:    pairing.ID,
		Player1ID:    valerius.ID,
		Player2ID:    gorksmash.ID,
		Player1Score: 85,
		Player2Score: 60,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	match := decode[league.Match](t, rr)
	assert.Equal(t, pairing.ID, match.ID)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, valerius.ID, *match.WinnerID)
	assert.Equal(t, "Take and Hold", match.Mission)
	assert.NotEmpty(t, match.Narrative)

	rr = do(t, server, http.MethodGet, base+"/pairings", nil)
	pairings := decode[[]league.Pairing](t, rr)
	require.Len(t, pairings, 1)
	assert.True(t, pairings[0].Completed)

	rr = do(t, server, http.MethodPost, base+"/matches", session.MatchReport{
		PairingID:    pairing.ID,
		Player1ID:    valerius.ID,
		Player2ID:    gorksmash.ID,
		Player2Score: 90,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "a completed pairing cannot be reported again")

	rr = do(t, server, http.MethodGet, base+"/matches", nil)
	matches := decode[[]league.Match](t, rr)
	require.Len(t, matches, 1)
	assert.Equal(t, 85, matches[0].Player1Score)

	rr = do(t, server, http.MethodGet, base+"/standings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	standings := decode[[]standing](t, rr)
	require.Len(t, standings, 2)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, gorksmash.ID, standings[0].ID, "painting points count towards the total")
	assert.Equal(t, 31, standings[0].TotalPoints)
	assert.Equal(t, 2, standings[1].Rank)
	assert.Equal(t, valerius.ID, standings[1].ID)
	assert.Equal(t, 3, standings[1].TotalPoints)

	rr = do(t, server, http.MethodDelete, base+"/players/"+gorksmash.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, server, http.MethodGet, base+"/players", nil)
	assert.Len(t, decode[[]league.Player](t, rr), 1)

	rr = do(t, server, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[map[string]int](t, rr)[metrics.KeyMatchesReported])
}

func TestReportMatch_DryRunReachesNotifier(t *testing.T) {
	n := notifier.NewMock()
	var dryRuns []bool
	var mu sync.Mutex
	n.SendMatchReportFunc = func(ctx context.Context, _ notifier.MatchReport) error {
		mu.Lock()
		defer mu.Unlock()
		dryRuns = append(dryRuns, notifier.IsDryRun(ctx))
		return nil
	}
	server, _ := setupTestServer(t, n)

	l := createLeague(t, server, "Pariah Nexus", "")
	a := addPlayer(t, server, l.ID, "Overlord Xanthek", league.FactionNecrons)
	b := addPlayer(t, server, l.ID, "Inquisitor Valerius", league.FactionSpaceMarines)
	report := session.MatchReport{Player1ID: a.ID, Player2ID: b.ID, Player1Score: 50, Player2Score: 50}

	require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/leagues/"+l.ID+"/matches?dry_run=true", report).Code)
	require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/leagues/"+l.ID+"/matches", report).Code)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, dryRuns)
}

func TestSettingsHandlers(t *testing.T) {
	server, _ := setupTestServer(t, notifier.NewMock())
	l := createLeague(t, server, "Nachmund", "")
	base := "/leagues/" + l.ID + "/settings"

	rr := do(t, server, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	settings := decode[league.Settings](t, rr)
	assert.Equal(t, 1, settings.CurrentWeek)

	rr = do(t, server, http.MethodPut, base, settings.AdvanceWeek())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, decode[league.Settings](t, rr).CurrentWeek)

	settings.CurrentWeek = 0
	rr = do(t, server, http.MethodPut, base, settings)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportImportHandlers(t *testing.T) {
	server, _ := setupTestServer(t, notifier.NewMock())
	l := createLeague(t, server, "Original", "")
	addPlayer(t, server, l.ID, "Warboss Gorksmash", league.FactionOrks)

	rr := do(t, server, http.MethodGet, "/leagues/"+l.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	payload := rr.Body.Bytes()

	rr = do(t, server, http.MethodPost, "/leagues/import", importLeagueRequest{Name: "Copy", Export: payload})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	imported := decode[league.League](t, rr)
	assert.NotEqual(t, l.ID, imported.ID)

	rr = do(t, server, http.MethodGet, "/leagues/"+imported.ID+"/players", nil)
	players := decode[[]league.Player](t, rr)
	require.Len(t, players, 1)
	assert.Equal(t, imported.ID, players[0].LeagueID)

	rr = do(t, server, http.MethodPost, "/leagues/import", importLeagueRequest{Name: "Broken", Export: json.RawMessage(`{"settings":null}`)})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, server, http.MethodPost, "/leagues/import", importLeagueRequest{Name: "Empty"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnnounceStandingsHandler(t *testing.T) {
	n := notifier.NewMock()
	server, _ := setupTestServer(t, n)
	l := createLeague(t, server, "Armageddon", "")
	addPlayer(t, server, l.ID, "Overlord Xanthek", league.FactionNecrons)

	rr := do(t, server, http.MethodPost, "/leagues/"+l.ID+"/standings/announce", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	require.Len(t, n.SendStandingsCalls, 1)
	assert.Equal(t, "Armageddon", n.SendStandingsCalls[0].LeagueName)
}

func TestPushChangesHandler(t *testing.T) {
	server, push := setupTestServer(t, notifier.NewMock())

	body := `{"subscription":"projects/p/subscriptions/s","message":{"data":"aGVsbG8=","attributes":{"event_type":"collection-changed"},"messageId":"1"}}`
	req := httptest.NewRequest(http.MethodPost, "/pubsub/changes", strings.NewReader(body))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, push.events, 1)
	assert.Equal(t, pubsub.EventCollectionChanged, push.events[0])
	assert.Equal(t, []byte("hello"), push.data[0])

	req = httptest.NewRequest(http.MethodPost, "/pubsub/changes", strings.NewReader(`{"message":{"data":"%%%"}}`))
	rr = httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, notifier.NewMock())
	l := createLeague(t, server, "Metrics", "")
	addPlayer(t, server, l.ID, "Overlord Xanthek", league.FactionNecrons)

	rr := do(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "strategium_standings_recalculations_total")
}

func TestLiveHandler(t *testing.T) {
	server, _ := setupTestServer(t, notifier.NewMock())
	l := createLeague(t, server, "Live", "")

	ts := httptest.NewServer(server)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/leagues/" + l.ID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() session.View {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg struct {
			Type string       `json:"type"`
			Data session.View `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "view", msg.Type)
		return msg.Data
	}

	initial := read()
	assert.Equal(t, l.ID, initial.League.ID)
	assert.Empty(t, initial.Players)

	addPlayer(t, server, l.ID, "Inquisitor Valerius", league.FactionSpaceMarines)

	// intermediate views may be coalesced
	for {
		v := read()
		if len(v.Players) == 1 {
			assert.Equal(t, "Inquisitor Valerius", v.Players[0].Name)
			break
		}
	}

	t.Run("unknown league", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/leagues/missing/live", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	// a closed session sends its final view and ends the stream
	server.Sessions.Forget(l.ID)
	for {
		if v := read(); v.State == session.NoLeagueSelected {
			break
		}
	}
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStatusFor(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"wrong password":   {session.ErrWrongPassword, http.StatusForbidden},
		"invalid action":   {session.ErrNoLeague, http.StatusBadRequest},
		"invalid settings": {league.ErrInvalidSettings, http.StatusBadRequest},
		"invalid import":   {store.ErrInvalidImport, http.StatusBadRequest},
		"league not found": {store.ErrLeagueNotFound, http.StatusNotFound},
		"not found":        {store.ErrNotFound, http.StatusNotFound},
		"duplicate":        {store.ErrDuplicate, http.StatusConflict},
		"not configured":   {store.ErrNotConfigured, http.StatusServiceUnavailable},
		"anything else":    {assert.AnError, http.StatusInternalServerError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
