package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"OPENWEATHER_API_KEY", "WEATHERAPI_API_KEY", "GOOGLE_GEOCODING_API_KEY",
	"WEATHER_PROVIDERS", "HTTP_TIMEOUT", "UPSTREAM_RPS", "REFRESH_INTERVAL",
	"DEFAULT_COUNTRY", "EMERGENCY_NUMBERS_FILE", "HISTORY_LIMIT",
	"PROXIMITY_RADIUS_KM", "BASELINE_POLICY", "STORE_DRIVER", "SQLITE_PATH",
	"DYNAMODB_TABLE", "MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
	"PORT", "APP_ENV", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cfg.WeatherProviders, []string{"openweather"}) {
		t.Errorf("providers = %v", cfg.WeatherProviders)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.RefreshInterval != 10*time.Minute {
		t.Errorf("unexpected durations %v %v", cfg.HTTPTimeout, cfg.RefreshInterval)
	}
	if cfg.HistoryLimit != 5 || cfg.ProximityRadiusKm != 30 || cfg.UpstreamRPS != 1 {
		t.Errorf("unexpected numbers %d %v %v", cfg.HistoryLimit, cfg.ProximityRadiusKm, cfg.UpstreamRPS)
	}
	if cfg.DefaultCountry != "IN" || cfg.BaselinePolicy != BaselineLastFetched || cfg.StoreDriver != StoreMemory {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.AppEnv != EnvDev || cfg.LogLevel != slog.LevelInfo || cfg.Port != "8080" {
		t.Errorf("unexpected runtime defaults %s %v %s", cfg.AppEnv, cfg.LogLevel, cfg.Port)
	}
	if cfg.MQTT.Enabled() || cfg.MQTT.Port != 1883 {
		t.Errorf("unexpected mqtt defaults %+v", cfg.MQTT)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_PROVIDERS", " OpenMeteo, weatherapi ,")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("DEFAULT_COUNTRY", "gb")
	t.Setenv("BASELINE_POLICY", "Last-Alerted")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("MQTT_BROKER", "localhost")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cfg.WeatherProviders, []string{"openmeteo", "weatherapi"}) {
		t.Errorf("providers = %v", cfg.WeatherProviders)
	}
	if cfg.RefreshInterval != 90*time.Second {
		t.Errorf("refresh = %v", cfg.RefreshInterval)
	}
	if cfg.DefaultCountry != "GB" || cfg.BaselinePolicy != BaselineLastAlerted || cfg.StoreDriver != StoreSQLite {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if !cfg.MQTT.Enabled() || cfg.MQTT.Port != 8883 {
		t.Errorf("unexpected mqtt %+v", cfg.MQTT)
	}
	if cfg.AppEnv != EnvProd || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected env %s %v", cfg.AppEnv, cfg.LogLevel)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"HTTP_TIMEOUT":      "soon",
		"REFRESH_INTERVAL":  "-1m",
		"UPSTREAM_RPS":      "fast",
		"HISTORY_LIMIT":     "0",
		"BASELINE_POLICY":   "sometimes",
		"STORE_DRIVER":      "postgres",
		"APP_ENV":           "staging",
		"LOG_LEVEL":         "trace",
		"MQTT_PORT":         "mqtt",
		"WEATHER_PROVIDERS": "openweather,accuweather",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := fromEnv()
			if err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error should name %s: %v", key, err)
			}
		})
	}
}
