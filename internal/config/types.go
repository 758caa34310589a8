package config

// Config holds all configuration for the application.
type Config struct {
	Backend   Backend
	DBName    string
	Port      string
	KV        KVConfig
	Docstore  DocstoreConfig
	Turso     TursoConfig
	Postgres  PostgresConfig
	PubSub    PubSubConfig
	Slack     SlackConfig
	ProjectID string
}

// Backend selects the league store.
type Backend string

const (
	BackendSnapshot Backend = "snapshot"
	BackendLive     Backend = "live"
)

type KVConfig struct {
	// Driver is "sqlite" (table in DBName) or "bolt" (file at BoltPath).
	Driver   string
	BoltPath string
}

type DocstoreConfig struct {
	// Driver is "libsql" (DBName or Turso) or "postgres".
	Driver string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type PostgresConfig struct {
	DSN string
}

// PubSubConfig names the topic change events are published on and this
// instance's own pull subscription to it. Without a topic, changes only
// reach sessions in the same process. Without a subscription, events are
// expected on the push endpoint.
type PubSubConfig struct {
	Topic        string
	Subscription string
}

type SlackConfig struct {
	Token     string
	ChannelID string

	// SigningSecret verifies slash command requests. Commands are not
	// routed without it.
	SigningSecret string
}

// SlackEnabled reports whether match reports should be posted to Slack.
func (c Config) SlackEnabled() bool {
	return c.Slack.Token != "" && c.Slack.ChannelID != ""
}
