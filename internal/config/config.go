package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        int
	TLSCertFile string
	TLSKeyFile  string
	CORSOrigins []string

	JWTSecret   string
	JWTUser     string
	JWTPassword string

	LogLevel  string
	LogFormat string

	RequestTimeout     time.Duration
	MaxFlightResults   int
	VoiceFlightResults int
	DefaultCurrency    string
	TokenSafetyMargin  time.Duration
	TokenCacheTime     time.Duration

	AmadeusURL          string
	AmadeusClientID     string
	AmadeusClientSecret string
}

// AmadeusConfigured reports whether client credentials are present.
func (c *Config) AmadeusConfigured() bool {
	return c.AmadeusClientID != "" && c.AmadeusClientSecret != ""
}

// AuthEnabled reports whether inbound API calls require a bearer JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("port", 8000)
	v.SetDefault("auth_user", "demo")
	v.SetDefault("auth_pass", "demo123")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("cors_origins", "*")

	v.SetDefault("request_timeout", "30s")
	v.SetDefault("max_flight_results", 10)
	v.SetDefault("voice_flight_results", 3)
	v.SetDefault("default_currency", "USD")
	v.SetDefault("token_safety_margin", "60s")
	v.SetDefault("token_cache_time", "1800s")

	v.SetDefault("amadeus_url", "https://test.api.amadeus.com")
	return v
}

// Load reads defaults, an optional config file, a .env file and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	// a missing .env is the normal case outside local dev
	_ = godotenv.Load()

	v := newViper()

	if path := os.Getenv("FLIGHTS_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/flights")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if os.Getenv("FLIGHTS_CONFIG") != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	timeout, err := duration(v, "request_timeout")
	if err != nil {
		return nil, err
	}
	margin, err := duration(v, "token_safety_margin")
	if err != nil {
		return nil, err
	}
	cacheTime, err := duration(v, "token_cache_time")
	if err != nil {
		return nil, err
	}

	maxResults := v.GetInt("max_flight_results")
	if maxResults <= 0 {
		return nil, fmt.Errorf("bad max_flight_results: %q", v.GetString("max_flight_results"))
	}
	voiceResults := v.GetInt("voice_flight_results")
	if voiceResults <= 0 {
		return nil, fmt.Errorf("bad voice_flight_results: %q", v.GetString("voice_flight_results"))
	}

	return &Config{
		Port:        v.GetInt("port"),
		TLSCertFile: os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:  os.Getenv("TLS_KEY_FILE"),
		CORSOrigins: splitList(v.GetString("cors_origins")),

		JWTSecret:   v.GetString("jwt_secret"),
		JWTUser:     v.GetString("auth_user"),
		JWTPassword: v.GetString("auth_pass"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		RequestTimeout:     timeout,
		MaxFlightResults:   maxResults,
		VoiceFlightResults: voiceResults,
		DefaultCurrency:    strings.ToUpper(v.GetString("default_currency")),
		TokenSafetyMargin:  margin,
		TokenCacheTime:     cacheTime,

		AmadeusURL:          strings.TrimRight(v.GetString("amadeus_url"), "/"),
		AmadeusClientID:     v.GetString("amadeus_clientid"),
		AmadeusClientSecret: v.GetString("amadeus_clientsecret"),
	}, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("bad %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("bad %s: negative duration %s", key, d)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
