package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "BUZZER"

const (
	PackStoreMemory   = "memory"
	PackStoreRedis    = "redis"
	PackStorePostgres = "postgres"
)

type Config struct {
	Bind            string
	Port            int
	PublicURL       string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	RoomTTL       time.Duration
	SweepInterval time.Duration
	ClientBuffer  int
	Heartbeat     time.Duration
	StrictFinal   bool

	LogLevel string
	Dev      bool

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration

	PackStore     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.RoomTTL <= 0 {
		return errors.New("--room-ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("--sweep-interval must be positive")
	}
	if c.ClientBuffer < 1 {
		return fmt.Errorf("invalid client buffer (must be at least 1): %d", c.ClientBuffer)
	}
	if c.Heartbeat <= 0 {
		return errors.New("--heartbeat must be positive")
	}
	switch c.PackStore {
	case PackStoreMemory:
	case PackStoreRedis:
		if c.RedisAddr == "" {
			return errors.New("--redis-addr is required when --pack-store=redis")
		}
	case PackStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("--database-url is required when --pack-store=postgres")
		}
	default:
		return fmt.Errorf("unknown pack store %q (want memory, redis or postgres)", c.PackStore)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// LoadDotEnv loads env files that exist. Variables already set in the
// environment win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// NewCommand builds the root command. Every flag can also be set through
// BUZZER_<FLAG> with dashes as underscores; flags given on the command
// line win.
func NewCommand(cfg *Config, version string, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "buzzer",
		Short:         "Real-time trivia buzzer server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BUZZER_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BUZZER_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally reachable base URL used in join QR codes (env: BUZZER_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", []string{"*"}, "websocket origin patterns to accept (env: BUZZER_ALLOWED_ORIGINS)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for open requests on shutdown (env: BUZZER_SHUTDOWN_TIMEOUT)")

	fs.DurationVar(&cfg.RoomTTL, "room-ttl", 24*time.Hour, "rooms older than this are deleted by the sweep (env: BUZZER_ROOM_TTL)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Hour, "how often expired rooms are swept (env: BUZZER_SWEEP_INTERVAL)")
	fs.IntVar(&cfg.ClientBuffer, "client-buffer", 16, "messages buffered per connection before it is dropped (env: BUZZER_CLIENT_BUFFER)")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", 30*time.Second, "websocket ping interval (env: BUZZER_HEARTBEAT)")
	fs.BoolVar(&cfg.StrictFinal, "strict-final", false, "reject final round screens sent out of order (env: BUZZER_STRICT_FINAL)")

	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: BUZZER_LOG_LEVEL)")
	fs.BoolVar(&cfg.Dev, "dev", false, "human readable development logging (env: BUZZER_DEV)")

	fs.StringVar(&cfg.GeminiAPIKey, "gemini-api-key", "", "Gemini API key; content generation is off without it (env: BUZZER_GEMINI_API_KEY)")
	fs.StringVar(&cfg.GeminiModel, "gemini-model", "gemini-2.0-flash", "Gemini model name (env: BUZZER_GEMINI_MODEL)")
	fs.StringVar(&cfg.GeminiBaseURL, "gemini-base-url", "https://generativelanguage.googleapis.com/v1beta", "Gemini REST base URL (env: BUZZER_GEMINI_BASE_URL)")
	fs.DurationVar(&cfg.GeminiTimeout, "gemini-timeout", 90*time.Second, "content generation timeout (env: BUZZER_GEMINI_TIMEOUT)")

	fs.StringVar(&cfg.PackStore, "pack-store", PackStoreMemory, "saved pack storage: memory, redis or postgres (env: BUZZER_PACK_STORE)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address for --pack-store=redis (env: BUZZER_REDIS_ADDR)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: BUZZER_REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: BUZZER_REDIS_DB)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN for --pack-store=postgres (env: BUZZER_DATABASE_URL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("buzzer v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
