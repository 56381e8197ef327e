package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoder providers.
const (
	ProviderNominatim  = "nominatim"
	ProviderZippopotam = "zippopotam"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Reference data and lane inputs.
	ZipBasePath     string
	ZipExtraPath    string
	ZipFetchTimeout time.Duration // whole-dataset fetch over HTTP
	LanesRawDir     string
	LanesCSVPath    string

	// Online fallback for ZIPs missing from the reference data.
	OnlineFallback    bool
	GeocoderProvider  string
	NominatimURL      string
	ZippopotamURL     string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	ZipCacheBackend string
	ZipCachePath    string
	ZipCacheSize    int
	ZipCacheTTL     time.Duration

	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaLanesTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	zipFetchTimeout, err := parsePositiveDuration("ZIP_FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "4.5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("ZIP_CACHE_TTL", "720h")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("ZIP_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	onlineFallback, err := parseBool("ZIP_ONLINE_FALLBACK", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", len(brokers) > 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ZipBasePath:     sharedcfg.EnvOrDefault("ZIP_BASE_PATH", "assets/us-zips.json"),
		ZipExtraPath:    sharedcfg.EnvOrDefault("ZIP_EXTRA_PATH", "assets/us-zips-extra.json"),
		ZipFetchTimeout: zipFetchTimeout,
		LanesRawDir:     sharedcfg.EnvOrDefault("LANES_RAW_DIR", "raw"),
		LanesCSVPath:    os.Getenv("LANES_CSV_PATH"),

		OnlineFallback:    onlineFallback,
		GeocoderProvider:  strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		NominatimURL:      sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		ZippopotamURL:     sharedcfg.EnvOrDefault("ZIPPOPOTAM_URL", "https://api.zippopotam.us"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "lane-heatmap-service/1.0"),
		GeocoderTimeout:   geocoderTimeout,

		ZipCacheBackend: strings.ToLower(sharedcfg.EnvOrDefault("ZIP_CACHE_BACKEND", CacheMemory)),
		ZipCachePath:    sharedcfg.EnvOrDefault("ZIP_CACHE_PATH", "zipcache.db"),
		ZipCacheSize:    cacheSize,
		ZipCacheTTL:     cacheTTL,

		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    brokers,
		KafkaLanesTopic: sharedcfg.EnvOrDefault("KAFKA_LANES_TOPIC", "shipping-lanes"),
	}

	if cfg.ZipBasePath == "" {
		return nil, errors.New("ZIP_BASE_PATH is required")
	}
	switch cfg.GeocoderProvider {
	case ProviderNominatim, ProviderZippopotam:
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q", cfg.GeocoderProvider)
	}
	switch cfg.ZipCacheBackend {
	case CacheMemory, CacheSQLite:
	default:
		return nil, fmt.Errorf("invalid ZIP_CACHE_BACKEND %q", cfg.ZipCacheBackend)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaLanesTopic == "" {
		return nil, errors.New("KAFKA_LANES_TOPIC is required")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
