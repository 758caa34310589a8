package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/notifier"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func report() notifier.MatchReport {
	p1 := league.Player{ID: "p1", Name: "Inquisitor Valerius", Faction: league.FactionSpaceMarines}
	p2 := league.Player{ID: "p2", Name: "Warboss Gorksmash", Faction: league.FactionOrks}
	return notifier.MatchReport{
		LeagueName: "Armageddon",
		Match: league.Match{
			Player1ID:    p1.ID,
			Player2ID:    p2.ID,
			Player1Score: 72,
			Player2Score: 65,
			WinnerID:     &p1.ID,
			Mission:      "Purge the Foe",
			PointsLimit:  1000,
			Week:         3,
			Narrative:    "The Inquisitor held the line.",
		},
		Player1: p1,
		Player2: p2,
	}
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	ctx := notifierDryRun()
	_, _, err := notifier.sendMessage(ctx, slackapi.NewBlockMessage())
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.NotificationsSent())
}

func notifierDryRun() context.Context {
	return notifier.WithDryRun(context.Background(), true)
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	n := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(plainSection("hello"))
	_, _, err := n.sendMessage(context.Background(), message)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.NotificationsSent())
	assert.Equal(t, 0, metrics.NotificationsFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	n := NewNotifierWithAPI(api, "C123", metrics)

	_, _, err := n.sendMessage(context.Background(), slackapi.NewBlockMessage())

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.NotificationsSent())
	assert.Equal(t, 1, metrics.NotificationsFailed())
}

func TestSendMatchReport_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}

	n := NewNotifierWithAPI(api, "C123", metrics.NewMock())
	require.NoError(t, n.SendMatchReport(context.Background(), report()))
	assert.True(t, postMessageCalled, "PostMessageContext should have been called via SendMatchReport")
}

func TestFormatMatchReport(t *testing.T) {
	n := &Notifier{channelID: "C123"}

	t.Run("win", func(t *testing.T) {
		msg := n.formatMatchReport(report())
		require.Len(t, msg.Blocks.BlockSet, 4, "header, details, result and narrative")

		header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
		require.True(t, ok)
		assert.Contains(t, header.Text.Text, "Armageddon")

		details, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "Purge the Foe\nWeek 3 | 1000 points", details.Text.Text)

		result, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, result.Text.Text, "Inquisitor Valerius won!")
		require.Len(t, result.Fields, 2)
		assert.Equal(t, "Warboss Gorksmash (Orks)\n65", result.Fields[1].Text)
	})

	t.Run("draw without narrative", func(t *testing.T) {
		r := report()
		r.Match.WinnerID = nil
		r.Match.Narrative = ""
		msg := n.formatMatchReport(r)
		require.Len(t, msg.Blocks.BlockSet, 3)

		result, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "Result: Draw", result.Text.Text)
	})
}

func TestFormatStandings(t *testing.T) {
	n := &Notifier{channelID: "C123"}

	t.Run("displays ranked players", func(t *testing.T) {
		ranked := []league.Player{
			{Name: "Gorksmash", Faction: league.FactionOrks, TotalPoints: 36, Wins: 2, PaintingPoints: 30},
			{Name: "Valerius", Faction: league.FactionSpaceMarines, TotalPoints: 16, Losses: 1, PaintingPoints: 15},
		}
		msg := n.formatStandings("Armageddon", ranked)
		require.Len(t, msg.Blocks.BlockSet, 3, "header + 2 players")

		first, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, first.Text.Text, "1. 🥇 Gorksmash (Orks)")
		assert.Contains(t, first.Text.Text, "> 36 pts | W/L/D: 2/0/0 | Painting: 30")
	})

	t.Run("displays message when no players are enlisted", func(t *testing.T) {
		msg := n.formatStandings("Armageddon", nil)
		require.Len(t, msg.Blocks.BlockSet, 2)

		message, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "No players enlisted yet. Muster your armies!", message.Text.Text)
	})

	resp, err := n.FormatStandingsResponse("Armageddon", nil)
	require.NoError(t, err)
	assert.IsType(t, slackapi.Message{}, resp)
}
