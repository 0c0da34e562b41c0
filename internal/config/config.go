package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"

	BaselineLastFetched = "last-fetched"
	BaselineLastAlerted = "last-alerted"
)

var knownProviders = []string{"openweather", "openweathermap", "weatherapi", "openmeteo"}

type MQTTConfig struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
}

// Enabled reports whether a broker was configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type AppConfig struct {
	OpenWeatherAPIKey     string
	WeatherAPIKey         string
	GoogleGeocodingAPIKey string

	// WeatherProviders are tried in order; the first reading wins.
	WeatherProviders []string
	HTTPTimeout      time.Duration
	UpstreamRPS      float64

	// RefreshInterval controls how often tracked slots are re-observed.
	RefreshInterval time.Duration

	DefaultCountry       string
	EmergencyNumbersFile string

	HistoryLimit      int
	ProximityRadiusKm float64
	BaselinePolicy    string

	StoreDriver   string
	SQLitePath    string
	DynamoDBTable string

	MQTT MQTTConfig

	Port     string
	AppEnv   string
	LogLevel slog.Level
}

// Load reads configuration from the environment (and .env, when present)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "reason", err)
	}
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		OpenWeatherAPIKey:     os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:         os.Getenv("WEATHERAPI_API_KEY"),
		GoogleGeocodingAPIKey: os.Getenv("GOOGLE_GEOCODING_API_KEY"),
		EmergencyNumbersFile:  os.Getenv("EMERGENCY_NUMBERS_FILE"),
		DefaultCountry:        strings.ToUpper(getenvDefault("DEFAULT_COUNTRY", "IN")),
		SQLitePath:            getenvDefault("SQLITE_PATH", "safety-companion.db"),
		DynamoDBTable:         getenvDefault("DYNAMODB_TABLE", "safety-companion-users"),
		Port:                  getenvDefault("PORT", "8080"),
	}

	var err error

	cfg.WeatherProviders = splitList(getenvDefault("WEATHER_PROVIDERS", "openweather"))
	for _, p := range cfg.WeatherProviders {
		if !slices.Contains(knownProviders, p) {
			return nil, fmt.Errorf("invalid WEATHER_PROVIDERS entry %q (allowed: openweather, weatherapi, openmeteo)", p)
		}
	}
	if len(cfg.WeatherProviders) == 0 {
		return nil, fmt.Errorf("WEATHER_PROVIDERS must name at least one provider")
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UpstreamRPS, err = getenvFloat("UPSTREAM_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.ProximityRadiusKm, err = getenvFloat("PROXIMITY_RADIUS_KM", 30); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getenvInt("HISTORY_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("invalid HISTORY_LIMIT %d: must be positive", cfg.HistoryLimit)
	}

	if cfg.BaselinePolicy, err = getenvEnum("BASELINE_POLICY", BaselineLastFetched, BaselineLastFetched, BaselineLastAlerted); err != nil {
		return nil, err
	}
	if cfg.StoreDriver, err = getenvEnum("STORE_DRIVER", StoreMemory, StoreMemory, StoreSQLite, StoreDynamoDB); err != nil {
		return nil, err
	}
	if cfg.AppEnv, err = getenvEnum("APP_ENV", EnvDev, EnvDev, EnvProd); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	cfg.MQTT = MQTTConfig{
		Broker:   os.Getenv("MQTT_BROKER"),
		Topic:    getenvDefault("MQTT_TOPIC", "safety-companion/alerts"),
		ClientID: getenvDefault("MQTT_CLIENT_ID", "safety-companion"),
	}
	if cfg.MQTT.Port, err = getenvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func getenvEnum(key, def string, allowed ...string) (string, error) {
	v := strings.ToLower(getenvDefault(key, def))
	if !slices.Contains(allowed, v) {
		return "", fmt.Errorf("invalid %s %q (allowed: %s)", key, v, strings.Join(allowed, ", "))
	}
	return v, nil
}
