package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	cfg, err := FromLookup(os.LookupEnv)
	if err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}
	return cfg
}

// FromLookup builds the configuration from lookup and checks that the
// selected backend has everything it needs.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	getEnv := func(key, fallback string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		Backend: Backend(getEnv("STORE_BACKEND", string(BackendSnapshot))),
		DBName:  getEnv("DB_NAME", "strategium.db"),
		Port:    getEnv("PORT", "8080"),
		KV: KVConfig{
			Driver:   getEnv("KV_DRIVER", "sqlite"),
			BoltPath: getEnv("BOLT_PATH", "strategium.bolt"),
		},
		Docstore: DocstoreConfig{
			Driver: getEnv("DOCSTORE_DRIVER", "libsql"),
		},
		Turso: TursoConfig{
			PrimaryURL: getEnv("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnv("TURSO_AUTH_TOKEN", ""),
		},
		Postgres: PostgresConfig{
			DSN: getEnv("POSTGRES_DSN", ""),
		},
		PubSub: PubSubConfig{
			Topic:        getEnv("PUBSUB_TOPIC", ""),
			Subscription: getEnv("PUBSUB_SUBSCRIPTION", ""),
		},
		Slack: SlackConfig{
			Token:         getEnv("SLACK_BOT_TOKEN", ""),
			ChannelID:     getEnv("SLACK_CHANNEL_ID", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		},
		ProjectID: getEnv("GCP_PROJECT", ""),
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings the selected backend depends on.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSnapshot:
		if c.KV.Driver != "sqlite" && c.KV.Driver != "bolt" {
			return fmt.Errorf("unknown KV_DRIVER %q", c.KV.Driver)
		}
	case BackendLive:
		switch c.Docstore.Driver {
		case "libsql":
		case "postgres":
			if c.Postgres.DSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required for the postgres docstore")
			}
		default:
			return fmt.Errorf("unknown DOCSTORE_DRIVER %q", c.Docstore.Driver)
		}
		if c.PubSub.Topic != "" && c.ProjectID == "" {
			return fmt.Errorf("PUBSUB_TOPIC needs GCP_PROJECT")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}
