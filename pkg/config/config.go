package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Voting    VotingConfig
	Overlap   OverlapConfig
	Checkin   CheckinConfig
	Budget    BudgetConfig
	Export    ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the schedule generator and its proposal cache.
// ConflictThreshold is the overlap percentage separating hard from soft
// conflicts; it is the main behavioural lever for organizers.
type SchedulerConfig struct {
	Enabled           bool
	ProposalTTL       time.Duration
	ConflictThreshold float64
	MaxIterations     int
	TargetScore       float64
}

// VotingConfig governs quadratic voting.
type VotingConfig struct {
	Enabled      bool
	CreditBudget int
	TallyTTL     time.Duration
}

// OverlapConfig controls the async voter-overlap recompute job.
type OverlapConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// CheckinConfig gates the attendee check-in endpoints.
type CheckinConfig struct {
	Enabled bool
}

// BudgetConfig governs budget distribution across scheduled sessions.
type BudgetConfig struct {
	Enabled bool
}

// ExportConfig controls archived schedule exports and their signed links.
type ExportConfig struct {
	Dir       string
	URLSecret string
	URLTTL    time.Duration
	Retention time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:       parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
		ConflictThreshold: v.GetFloat64("SCHEDULER_CONFLICT_THRESHOLD"),
		MaxIterations:     v.GetInt("SCHEDULER_MAX_ITERATIONS"),
		TargetScore:       v.GetFloat64("SCHEDULER_TARGET_SCORE"),
	}

	cfg.Voting = VotingConfig{
		Enabled:      v.GetBool("ENABLE_VOTING"),
		CreditBudget: v.GetInt("VOTING_CREDIT_BUDGET"),
		TallyTTL:     parseDuration(v.GetString("VOTING_TALLY_TTL"), 5*time.Minute),
	}

	cfg.Overlap = OverlapConfig{
		Workers:    v.GetInt("OVERLAP_WORKERS"),
		MaxRetries: v.GetInt("OVERLAP_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("OVERLAP_RETRY_DELAY"), time.Second),
	}

	cfg.Checkin = CheckinConfig{Enabled: v.GetBool("ENABLE_CHECKIN")}
	cfg.Budget = BudgetConfig{Enabled: v.GetBool("ENABLE_BUDGET")}

	cfg.Export = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		URLSecret: v.GetString("EXPORT_URL_SECRET"),
		URLTTL:    parseDuration(v.GetString("EXPORT_URL_TTL"), 24*time.Hour),
		Retention: parseDuration(v.GetString("EXPORT_RETENTION"), 7*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "agora")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULER_CONFLICT_THRESHOLD", 50)
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 300)
	v.SetDefault("SCHEDULER_TARGET_SCORE", 95)

	v.SetDefault("ENABLE_VOTING", true)
	v.SetDefault("VOTING_CREDIT_BUDGET", 100)
	v.SetDefault("VOTING_TALLY_TTL", "5m")

	v.SetDefault("OVERLAP_WORKERS", 1)
	v.SetDefault("OVERLAP_MAX_RETRIES", 3)
	v.SetDefault("OVERLAP_RETRY_DELAY", "1s")

	v.SetDefault("ENABLE_CHECKIN", true)
	v.SetDefault("ENABLE_BUDGET", false)

	v.SetDefault("EXPORT_DIR", "data/exports")
	v.SetDefault("EXPORT_URL_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_URL_TTL", "24h")
	v.SetDefault("EXPORT_RETENTION", "168h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
