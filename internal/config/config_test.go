package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookup(nil))
	require.NoError(t, err)
	assert.Equal(t, BackendSnapshot, cfg.Backend)
	assert.Equal(t, "strategium.db", cfg.DBName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.KV.Driver)
	assert.False(t, cfg.SlackEnabled())
}

func TestFromLookup_Live(t *testing.T) {
	cfg, err := FromLookup(lookup(map[string]string{
		"STORE_BACKEND":        "live",
		"DOCSTORE_DRIVER":      "postgres",
		"POSTGRES_DSN":         "postgres://localhost/strategium",
		"GCP_PROJECT":          "strategium",
		"PUBSUB_TOPIC":         "league-changes",
		"PUBSUB_SUBSCRIPTION":  "league-changes-node-1",
		"SLACK_BOT_TOKEN":      "xoxb-1",
		"SLACK_CHANNEL_ID":     "C1",
		"SLACK_SIGNING_SECRET": "shh",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendLive, cfg.Backend)
	assert.Equal(t, "league-changes", cfg.PubSub.Topic)
	assert.True(t, cfg.SlackEnabled())
	assert.Equal(t, "shh", cfg.Slack.SigningSecret)
}

func TestValidate(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown backend":       {"STORE_BACKEND": "paper"},
		"unknown kv driver":     {"KV_DRIVER": "redis"},
		"postgres without dsn":  {"STORE_BACKEND": "live", "DOCSTORE_DRIVER": "postgres"},
		"topic without project": {"STORE_BACKEND": "live", "PUBSUB_TOPIC": "t"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromLookup(lookup(env))
			assert.Error(t, err)
		})
	}
}
