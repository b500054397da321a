package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/api"
	"github.com/BTreeMap/MicroTutor/internal/curriculum"
	"github.com/BTreeMap/MicroTutor/internal/genai"
	"github.com/BTreeMap/MicroTutor/internal/store"
	"github.com/BTreeMap/MicroTutor/internal/tutor"
	"github.com/BTreeMap/MicroTutor/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for MicroTutor state data
	DefaultStateDir = "/var/lib/microtutor"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "microtutor.db"
)

// Config holds the resolved configuration. Environment variables provide the
// defaults and command line flags override them.
type Config struct {
	StateDir       string
	DatabaseURL    string
	OpenAIKey      string
	OpenAIBaseURL  string
	Model          string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	Debug          bool
	APIAddr        string
	CurriculumFile string
	SessionIdleTTL time.Duration
	SweepCron      string
	LogLevel       string
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:       util.GetEnv("MICROTUTOR_STATE_DIR", DefaultStateDir),
		DatabaseURL:    util.GetEnv("DATABASE_URL", ""),
		OpenAIKey:      util.GetEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  util.GetEnv("OPENAI_BASE_URL", ""),
		Model:          util.GetEnv("GENAI_MODEL", string(genai.DefaultModel)),
		Temperature:    util.ParseFloatEnv("GENAI_TEMPERATURE", genai.DefaultTemperature),
		MaxTokens:      util.ParseIntEnv("GENAI_MAX_TOKENS", genai.DefaultMaxTokens),
		Timeout:        util.ParseDurationEnv("GENAI_TIMEOUT", genai.DefaultTimeout),
		Debug:          util.ParseBoolEnv("GENAI_DEBUG", false),
		APIAddr:        util.GetEnv("API_ADDR", api.DefaultAddr),
		CurriculumFile: util.GetEnv("CURRICULUM_FILE", ""),
		SessionIdleTTL: util.ParseDurationEnv("SESSION_IDLE_TTL", api.DefaultSessionIdleTTL),
		SweepCron:      util.GetEnv("SESSION_SWEEP_CRON", api.DefaultSweepCron),
		LogLevel:       util.GetEnv("LOG_LEVEL", "debug"),
	}

	slog.Debug("environment variables loaded",
		"MICROTUTOR_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"GENAI_MODEL", config.Model,
		"GENAI_TIMEOUT", config.Timeout,
		"API_ADDR", config.APIAddr,
		"CURRICULUM_FILE", config.CurriculumFile)
	return config
}

// bindFlags registers command line overrides for every setting.
func bindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVar(&c.StateDir, "state-dir", c.StateDir, "state directory for MicroTutor data (overrides $MICROTUTOR_STATE_DIR)")
	fs.StringVar(&c.DatabaseURL, "db-dsn", c.DatabaseURL, "receipt database DSN, SQLite path or Postgres URL (overrides $DATABASE_URL)")
	fs.StringVar(&c.OpenAIKey, "openai-api-key", c.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&c.OpenAIBaseURL, "openai-base-url", c.OpenAIBaseURL, "OpenAI-compatible endpoint (overrides $OPENAI_BASE_URL)")
	fs.StringVar(&c.Model, "model", c.Model, "chat model (overrides $GENAI_MODEL)")
	fs.Float64Var(&c.Temperature, "temperature", c.Temperature, "sampling temperature (overrides $GENAI_TEMPERATURE)")
	fs.IntVar(&c.MaxTokens, "max-tokens", c.MaxTokens, "completion token limit (overrides $GENAI_MAX_TOKENS)")
	fs.DurationVar(&c.Timeout, "genai-timeout", c.Timeout, "per-call timeout for the model (overrides $GENAI_TIMEOUT)")
	fs.BoolVar(&c.Debug, "genai-debug", c.Debug, "write model calls to <state-dir>/debug (overrides $GENAI_DEBUG)")
	fs.StringVar(&c.CurriculumFile, "curriculum", c.CurriculumFile, "YAML file with modules (overrides $CURRICULUM_FILE)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error (overrides $LOG_LEVEL)")
}

// receiptDSN picks the receipt database. persistent selects the SQLite file
// in the state directory when no DSN is configured.
func (c Config) receiptDSN(persistent bool) string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if persistent {
		return filepath.Join(c.StateDir, DefaultDBFileName)
	}
	return ""
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(c Config) []genai.Option {
	opts := []genai.Option{
		genai.WithModel(c.Model),
		genai.WithTemperature(c.Temperature),
		genai.WithMaxTokens(c.MaxTokens),
		genai.WithTimeout(c.Timeout),
		genai.WithDebugMode(c.Debug),
		genai.WithStateDir(c.StateDir),
	}
	if c.OpenAIKey != "" {
		opts = append(opts, genai.WithAPIKey(c.OpenAIKey))
	}
	if c.OpenAIBaseURL != "" {
		opts = append(opts, genai.WithBaseURL(c.OpenAIBaseURL))
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(c Config) []api.Option {
	var opts []api.Option
	if c.APIAddr != "" {
		opts = append(opts, api.WithAddr(c.APIAddr))
	}
	opts = append(opts, api.WithSessionIdleTTL(c.SessionIdleTTL), api.WithSweepCron(c.SweepCron))
	return opts
}

// services is everything a session needs, built from the configuration.
type services struct {
	catalog   *curriculum.Catalog
	receipts  store.ReceiptStore
	generator *tutor.Generator
}

func (s *services) Close() {
	if s.receipts != nil {
		if err := s.receipts.Close(); err != nil {
			slog.Error("failed to close receipt store", "error", err)
		}
	}
}

// buildServices loads the curriculum, opens the receipt store and creates the
// tutor generator.
func buildServices(c Config, persistentReceipts bool) (*services, error) {
	catalog, err := curriculum.Load(c.CurriculumFile)
	if err != nil {
		return nil, err
	}
	receipts, err := store.New(c.receiptDSN(persistentReceipts))
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt store: %w", err)
	}
	client, err := genai.NewClient(buildGenAIOptions(c)...)
	if err != nil {
		receipts.Close()
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	gen := tutor.NewGenerator(client, tutor.WithReceiptRecorder(receipts))
	return &services{catalog: catalog, receipts: receipts, generator: gen}, nil
}
