package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/league"
	"github.com/mauv0809/strategium/internal/metrics"
	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message) (string, string, error) {
	if notifier.IsDryRun(ctx) {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncNotificationsFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotificationsSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendMatchReport(ctx context.Context, report notifier.MatchReport) error {
	_, _, err := s.sendMessage(ctx, s.formatMatchReport(report))
	return err
}

func (s *Notifier) SendStandings(ctx context.Context, leagueName string, ranked []league.Player) error {
	_, _, err := s.sendMessage(ctx, s.formatStandings(leagueName, ranked))
	return err
}

// FormatStandingsResponse formats the standings message without posting it.
func (s *Notifier) FormatStandingsResponse(leagueName string, ranked []league.Player) (any, error) {
	return s.formatStandings(leagueName, ranked), nil
}

func plainSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil)
}

// formatMatchReport creates the Slack message for a reported match using Block Kit.
func (s *Notifier) formatMatchReport(report notifier.MatchReport) slack.Message {
	blocks := make([]slack.Block, 0)
	match := report.Match

	header := "⚔️ Battle reported! ⚔️"
	if report.LeagueName != "" {
		header = fmt.Sprintf("⚔️ %s: battle reported! ⚔️", report.LeagueName)
	}
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", header, true, false)))

	details := fmt.Sprintf("Week %d | %d points", match.Week, match.PointsLimit)
	if match.Mission != "" {
		details = fmt.Sprintf("%s\n%s", match.Mission, details)
	}
	blocks = append(blocks, plainSection(details))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("plain_text", fmt.Sprintf("%s (%s)\n%d", report.Player1.Name, report.Player1.Faction, match.Player1Score), true, false),
		slack.NewTextBlockObject("plain_text", fmt.Sprintf("%s (%s)\n%d", report.Player2.Name, report.Player2.Faction, match.Player2Score), true, false),
	}
	result := "Result: Draw"
	switch {
	case match.WinnerID == nil:
	case *match.WinnerID == report.Player1.ID:
		result = fmt.Sprintf("Result: %s won! 🏆", report.Player1.Name)
	case *match.WinnerID == report.Player2.ID:
		result = fmt.Sprintf("Result: %s won! 🏆", report.Player2.Name)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", result, true, false), fields, nil))

	if narrative := strings.TrimSpace(match.Narrative); narrative != "" {
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", narrative, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatStandings creates a Slack message to display the ranked players.
func (s *Notifier) formatStandings(leagueName string, ranked []league.Player) slack.Message {
	blocks := make([]slack.Block, 0)

	header := "🏆 Standings 🏆"
	if leagueName != "" {
		header = fmt.Sprintf("🏆 %s standings 🏆", leagueName)
	}
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", header, true, false)))

	if len(ranked) == 0 {
		blocks = append(blocks, plainSection("No players enlisted yet. Muster your armies!"))
		return slack.NewBlockMessage(blocks...)
	}

	for i, p := range ranked {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		playerText := fmt.Sprintf("%d. %s %s (%s)\n> %d pts | W/L/D: %d/%d/%d | Painting: %d",
			rank,
			medal,
			p.Name,
			p.Faction,
			p.TotalPoints,
			p.Wins,
			p.Losses,
			p.Draws,
			p.PaintingPoints,
		)
		blocks = append(blocks, plainSection(playerText))
	}

	return slack.NewBlockMessage(blocks...)
}
