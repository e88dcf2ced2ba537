package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	VerdictSubject string

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	JudgeBaseURL   string
	JudgeAuthToken string
	JudgeMaxCalls  int
	JudgeWindow    time.Duration
	JudgeCallDelay time.Duration
	PollInterval   time.Duration
	DemoMock       bool

	EvalWorkers   int
	EvalQueueSize int

	ProblemCacheTTL time.Duration

	OpenAIAPIKey string
	AIModel      string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LEETAI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LeetAI API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("verdict.subject", "leetai.submissions.verdict")
	v.SetDefault("judge.base_url", "http://localhost:2358/submissions")
	v.SetDefault("judge.max_calls", 30)
	v.SetDefault("judge.window", "60s")
	v.SetDefault("judge.call_delay", "1500ms")
	v.SetDefault("judge.poll_interval", "1500ms")
	v.SetDefault("demo.mock", false)
	v.SetDefault("eval.workers", 4)
	v.SetDefault("eval.queue_size", 64)
	v.SetDefault("problem.cache_ttl", "5m")
	v.SetDefault("ai.model", "gpt-4o-mini")

	window, err := parseDuration(v, "judge.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	delay, err := parseDuration(v, "judge.call_delay", 1500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	pollInterval, err := parseDuration(v, "judge.poll_interval", 1500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "problem.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		VerdictSubject:  v.GetString("verdict.subject"),
		JWTSecret:       v.GetString("jwt.secret"),
		AdminUsername:   v.GetString("admin.username"),
		AdminPassword:   v.GetString("admin.password"),
		JudgeBaseURL:    v.GetString("judge.base_url"),
		JudgeAuthToken:  v.GetString("judge.auth_token"),
		JudgeMaxCalls:   v.GetInt("judge.max_calls"),
		JudgeWindow:     window,
		JudgeCallDelay:  delay,
		PollInterval:    pollInterval,
		DemoMock:        v.GetBool("demo.mock"),
		EvalWorkers:     v.GetInt("eval.workers"),
		EvalQueueSize:   v.GetInt("eval.queue_size"),
		ProblemCacheTTL: cacheTTL,
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		AIModel:         v.GetString("ai.model"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.JudgeMaxCalls <= 0 {
		cfg.JudgeMaxCalls = 30
	}

	if cfg.EvalWorkers <= 0 {
		cfg.EvalWorkers = 4
	}

	if cfg.EvalQueueSize <= 0 {
		cfg.EvalQueueSize = 64
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}
