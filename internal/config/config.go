package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
)

// Config stores runtime configuration for the bot process.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogLevel       logging.Level
	LogFormat      string

	TelegramToken       string
	TelegramBaseURL     string
	TelegramPollTimeout time.Duration
	TelegramWorkers     int

	GroqAPIKey                string
	GroqBaseURL               string
	GroqModel                 string
	GroqTimeout               time.Duration
	GroqCircuitEnabled        bool
	GroqCircuitFailureCount   int
	GroqCircuitOpenTimeout    time.Duration
	GroqCircuitHalfOpenMaxReq int

	MetricsEnabled             bool
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	telegramToken := strings.TrimSpace(getEnv("TELEGRAM_TOKEN", ""))
	if telegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	groqAPIKey := strings.TrimSpace(getEnv("GROQ_API_KEY", ""))
	if groqAPIKey == "" {
		return Config{}, fmt.Errorf("GROQ_API_KEY is required")
	}

	logFormat, err := parseLogFormat(getEnv("APP_LOG_FORMAT", LogFormatJSON))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	telegramPollTimeout, err := getEnvAsPositiveDuration("TELEGRAM_POLL_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}
	if telegramPollTimeout < time.Second {
		return Config{}, fmt.Errorf("TELEGRAM_POLL_TIMEOUT must be >= 1s")
	}
	telegramWorkers, err := getEnvAsInt("TELEGRAM_WORKERS", 16)
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_WORKERS: %w", err)
	}
	if telegramWorkers < 1 {
		return Config{}, fmt.Errorf("TELEGRAM_WORKERS must be >= 1")
	}

	groqTimeout, err := getEnvAsPositiveDuration("GROQ_TIMEOUT", "60s")
	if err != nil {
		return Config{}, err
	}
	groqCircuitEnabled, err := strconv.ParseBool(getEnv("GROQ_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GROQ_CIRCUIT_ENABLED: %w", err)
	}
	groqCircuitFailureCount, err := getEnvAsInt("GROQ_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse GROQ_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if groqCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("GROQ_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	groqCircuitOpenTimeout, err := getEnvAsPositiveDuration("GROQ_CIRCUIT_OPEN_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}
	groqCircuitHalfOpenMaxReq, err := getEnvAsInt("GROQ_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse GROQ_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if groqCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("GROQ_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsPositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "aiqyn-learn-bot"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "1.0"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8000"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		LogLevel:                   parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		LogFormat:                  logFormat,
		TelegramToken:              telegramToken,
		TelegramBaseURL:            strings.TrimSpace(getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org")),
		TelegramPollTimeout:        telegramPollTimeout,
		TelegramWorkers:            telegramWorkers,
		GroqAPIKey:                 groqAPIKey,
		GroqBaseURL:                strings.TrimSpace(getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1")),
		GroqModel:                  strings.TrimSpace(getEnv("GROQ_MODEL", "llama-3.3-70b-versatile")),
		GroqTimeout:                groqTimeout,
		GroqCircuitEnabled:         groqCircuitEnabled,
		GroqCircuitFailureCount:    groqCircuitFailureCount,
		GroqCircuitOpenTimeout:     groqCircuitOpenTimeout,
		GroqCircuitHalfOpenMaxReq:  groqCircuitHalfOpenMaxReq,
		MetricsEnabled:             metricsEnabled,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseLogFormat(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case LogFormatJSON, LogFormatConsole:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_LOG_FORMAT %q: valid values are %s, %s", v, LogFormatJSON, LogFormatConsole)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
