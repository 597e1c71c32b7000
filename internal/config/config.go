package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/scout-scoring/internal/platform/logging"
)

// Config stores runtime configuration for the pipeline.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	BaseDir                    string
	ScoutsDir                  string
	WeightsFile                string
	PositionsFile              string
	OutputDir                  string
	ExportFormat               string
	Workers                    int
	CheckpointCompress         bool
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	LogLevel                   logging.Level
}

// RunConfig is the immutable per-run view of Config. Every path is absolute.
type RunConfig struct {
	RunID         string `validate:"required"`
	ScoutsDir     string `validate:"required"`
	WeightsFile   string `validate:"required"`
	PositionsFile string `validate:"required"`
	OutputDir     string `validate:"required"`
	ExportFormat  string `validate:"required,oneof=csv xlsx"`
	Workers       int    `validate:"gte=1"`
	Compress      bool
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

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
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	workers, err := getEnvAsInt("PIPELINE_WORKERS", runtime.NumCPU())
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_WORKERS: %w", err)
	}
	if workers < 1 {
		return Config{}, fmt.Errorf("PIPELINE_WORKERS must be >= 1")
	}

	compress, err := strconv.ParseBool(getEnv("PIPELINE_CHECKPOINT_COMPRESS", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_CHECKPOINT_COMPRESS: %w", err)
	}

	exportFormat, err := parseExportFormat(getEnv("PIPELINE_EXPORT_FORMAT", "csv"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "scout-scoring"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		BaseDir:                    strings.TrimSpace(getEnv("PIPELINE_BASE_DIR", ".")),
		ScoutsDir:                  strings.TrimSpace(getEnv("PIPELINE_SCOUTS_DIR", filepath.Join("bases", "inputs", "scouts_base"))),
		WeightsFile:                strings.TrimSpace(getEnv("PIPELINE_WEIGHTS_FILE", filepath.Join("bases", "inputs", "business", "base_peso.xlsx"))),
		PositionsFile:              strings.TrimSpace(getEnv("PIPELINE_POSITIONS_FILE", filepath.Join("config", "positions.yaml"))),
		OutputDir:                  strings.TrimSpace(getEnv("PIPELINE_OUTPUT_DIR", filepath.Join("bases", "outputs"))),
		ExportFormat:               exportFormat,
		Workers:                    workers,
		CheckpointCompress:         compress,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		LogLevel:                   parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

var runValidator = validator.New()

// RunConfig resolves every directory against BaseDir and validates the result.
func (c Config) RunConfig(runID string) (RunConfig, error) {
	base, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return RunConfig{}, fmt.Errorf("resolve PIPELINE_BASE_DIR: %w", err)
	}

	rc := RunConfig{
		RunID:         strings.TrimSpace(runID),
		ScoutsDir:     resolve(base, c.ScoutsDir),
		WeightsFile:   resolve(base, c.WeightsFile),
		PositionsFile: resolve(base, c.PositionsFile),
		OutputDir:     resolve(base, c.OutputDir),
		ExportFormat:  c.ExportFormat,
		Workers:       c.Workers,
		Compress:      c.CheckpointCompress,
	}
	if err := runValidator.Struct(rc); err != nil {
		return RunConfig{}, fmt.Errorf("invalid run config: %w", err)
	}
	return rc, nil
}

func resolve(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func parseExportFormat(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case "csv", "xlsx":
		return value, nil
	default:
		return "", fmt.Errorf("invalid PIPELINE_EXPORT_FORMAT %q: valid values are csv, xlsx", v)
	}
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

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
