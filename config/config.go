package config

import (
	"crypto/rsa"

	"github.com/caarlos0/env/v6"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string `env:"LISTEN_ADDR" envDefault:":3000"`
	Timeout        uint64 `env:"TIMEOUT" envDefault:"10"`
	ReadBufferSize int    `env:"READ_BUFFER_SIZE" envDefault:"4096"`
	BodyLimit      int    `env:"BODY_LIMIT" envDefault:"1048576"`
	AppName        string `env:"APP_NAME" envDefault:"Gatherly"`
	IsProduction   bool   `env:"PRODUCTION"`
	Dsn            string `env:"DSN"`
	RedisUrl       string `env:"REDIS_URL"`

	// PublicUrl is the externally reachable base used to build the
	// invitation accept and RSVP links sent out in notifications.
	PublicUrl string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`

	JwtPublicKey       string `env:"JWT_PUBLIC_KEY"`
	JwtParsedPublicKey *rsa.PublicKey

	EmailConfig   EmailConfig   `envPrefix:"EMAIL_"`
	BlueskyConfig BlueskyConfig `envPrefix:"BLUESKY_"`
	InviteConfig  InviteConfig  `envPrefix:"INVITE_"`
}

type EmailConfig struct {
	TemplateDir      string `env:"TEMPLATE_DIR" envDefault:"templates/email/"`
	SmtpHost         string `env:"SMTP_HOST"`
	SmtpPort         int    `env:"SMTP_PORT" envDefault:"587"`
	SmtpUser         string `env:"SMTP_USER"`
	SmtpPassword     string `env:"SMTP_PASSWORD"`
	SmtpSkipInsecure bool   `env:"SMTP_SKIP_INSECURE" envDefault:"false"`
}

type BlueskyConfig struct {
	ServiceUrl  string `env:"SERVICE_URL" envDefault:"https://public.api.bsky.app"`
	PdsUrl      string `env:"PDS_URL" envDefault:"https://bsky.social"`
	AccessToken string `env:"ACCESS_TOKEN"`
	// Timeout bounds each outbound call; follower lists are cached in
	// redis for CacheTtlMinutes.
	TimeoutSeconds  int `env:"TIMEOUT_SECONDS" envDefault:"30"`
	CacheTtlMinutes int `env:"CACHE_TTL_MINUTES" envDefault:"15"`
}

type InviteConfig struct {
	ExpiryDays int `env:"EXPIRY_DAYS" envDefault:"7"`
	// BatchLimit caps a single bulk follower-invite run.
	BatchLimit int `env:"BATCH_LIMIT" envDefault:"500"`
}

func Parse() (*Config, error) {
	cfg := Config{
		IsProduction: utils.ParseFlags(),
	}

	if err := env.Parse(&cfg); err != nil {
		log.Panic().Err(err).Msg("Failed to parse env config")
	}

	cfg.JwtParsedPublicKey = utils.ParsePublicKey(cfg.JwtPublicKey)

	return &cfg, nil
}

func (c *Config) GetPort() string {
	return c.Port
}

func (c *Config) GetTimeout() int {
	return int(c.Timeout)
}

func (c *Config) GetReadBufferSize() int {
	return c.ReadBufferSize
}

func (c *Config) GetAppName() string {
	return c.AppName
}

func (c *Config) GetIsProduction() bool {
	return c.IsProduction
}

func (c *Config) GetBodyLimit() int {
	return c.BodyLimit
}
