// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	HTTP        HTTPConfig              `mapstructure:"http"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Cache       CacheConfig             `mapstructure:"cache"`
	Proximity   ProximityConfig         `mapstructure:"proximity"`
	Geolocation GeolocationConfig       `mapstructure:"geolocation"`
	Auth        AuthConfig              `mapstructure:"auth"`
	AWS         AWSConfig               `mapstructure:"aws"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	Logging     LoggingConfig           `mapstructure:"logging"`
	Tracing     TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	ItemIndex string   `mapstructure:"item_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

// --- Domain Configuration ---

// ProximityConfig tunes the nearby filter.
type ProximityConfig struct {
	RadiusKm       float64 `mapstructure:"radius_km"`
	Formula        string  `mapstructure:"formula"` // legacy | haversine
	SortByDistance bool    `mapstructure:"sort_by_distance"`
	MapZoom        int     `mapstructure:"map_zoom"`
}

type GeolocationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the auth-token verification settings.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	CookieName string `mapstructure:"cookie_name"`
	LoginPath  string `mapstructure:"login_path"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SNS    struct {
		ListingTopicARN string `mapstructure:"listing_topic_arn"`
	} `mapstructure:"sns"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // complete-job resends
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig enables span export. An empty JaegerEndpoint keeps spans in-process.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
