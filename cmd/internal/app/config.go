package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by REGBOT_STORE.
const (
	StoreAuto     = "auto"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config contains all runtime configuration loaded from REGBOT_* environment variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	DiscordToken      string `env:"DISCORD_TOKEN,required"`
	RegisterChannelID string `env:"REGISTER_CHANNEL_ID"`
	WebhookChannelID  string `env:"WEBHOOK_CHANNEL_ID"`
	InviteChannelID   string `env:"INVITE_CHANNEL_ID,required"`

	HelperRoleID        string `env:"HELPER_ROLE_ID"`
	ParticipantRoleName string `env:"PARTICIPANT_ROLE_NAME" envDefault:"Participants 💻"`
	NicknameMarker      string `env:"NICKNAME_MARKER" envDefault:"[🧠]"`
	BucketsFile         string `env:"BUCKETS_FILE" envDefault:"config/buckets.yaml"`

	HandlerTimeout     time.Duration `env:"HANDLER_TIMEOUT" envDefault:"30s"`
	JanitorInterval    time.Duration `env:"JANITOR_INTERVAL" envDefault:"30s"`
	RegisterRateLimit  int           `env:"REGISTER_RATE_LIMIT" envDefault:"3"`
	RegisterRateWindow time.Duration `env:"REGISTER_RATE_WINDOW" envDefault:"1m"`

	Store       string `env:"STORE" envDefault:"auto"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA" envDefault:"regbot"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"team_invites.db"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`
	MailSubject  string `env:"MAIL_SUBJECT" envDefault:"Cyber Cypher 5.0 Invitation"`
	MailTemplate string `env:"MAIL_TEMPLATE"`
	MailWorkers  int    `env:"MAIL_WORKERS" envDefault:"4"`
	MailQueue    int    `env:"MAIL_QUEUE" envDefault:"256"`
}

// LoadConfig parses REGBOT_* environment variables into Config.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "REGBOT_"})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	if c.RegisterChannelID == "" && c.WebhookChannelID == "" {
		return fmt.Errorf("config: one of REGBOT_REGISTER_CHANNEL_ID or REGBOT_WEBHOOK_CHANNEL_ID is required")
	}
	if c.JanitorInterval < time.Second {
		return fmt.Errorf("config: REGBOT_JANITOR_INTERVAL must be at least 1s")
	}
	if c.MailWorkers <= 0 || c.MailQueue < 0 {
		return fmt.Errorf("config: mail workers must be positive")
	}
	switch c.StoreDriver() {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: REGBOT_STORE=postgres requires REGBOT_DATABASE_URL")
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("config: REGBOT_STORE=sqlite requires REGBOT_SQLITE_PATH")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown REGBOT_STORE %q", c.Store)
	}
	return nil
}

// StoreDriver resolves "auto": Postgres when a database URL is set, else SQLite.
func (c Config) StoreDriver() string {
	s := strings.ToLower(strings.TrimSpace(c.Store))
	if s == "" || s == StoreAuto {
		if c.DatabaseURL != "" {
			return StorePostgres
		}
		return StoreSQLite
	}
	return s
}
