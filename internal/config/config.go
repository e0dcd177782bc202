package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Mongo     MongoConfig     `json:"mongo"`
	Database  DatabaseConfig  `json:"database"`
	Emissions EmissionsConfig `json:"emissions"`
	Snapshots SnapshotsConfig `json:"snapshots"`
	AWS       AWSConfig       `json:"aws"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoConfig points at the database the entry forms write to
type MongoConfig struct {
	URI            string            `json:"uri"`
	Database       string            `json:"database"`
	ConnectTimeout time.Duration     `json:"connect_timeout"`
	Collections    map[string]string `json:"collections"`
}

// DatabaseConfig represents the postgres snapshot store
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// EmissionsConfig tunes normalization and reporting
type EmissionsConfig struct {
	MethaneUnit string        `json:"methane_unit"`
	Timezone    string        `json:"timezone"`
	CacheTTL    time.Duration `json:"cache_ttl"`
}

// SnapshotJob is one scheduled balance snapshot
type SnapshotJob struct {
	Name           string `json:"name"`
	CronExpression string `json:"cron_expression"`
	Range          string `json:"range"`
}

// SnapshotsConfig configures the snapshot worker
type SnapshotsConfig struct {
	Jobs           []SnapshotJob `json:"jobs"`
	AlertThreshold float64       `json:"alert_threshold"` // tonnes CO2e deficit
	ArchivePrefix  string        `json:"archive_prefix"`
}

// AWSConfig configures report archiving and alerting
type AWSConfig struct {
	Region        string `json:"region"`
	ArchiveBucket string `json:"archive_bucket"`
	AlertTopicARN string `json:"alert_topic_arn"`
	Endpoint      string `json:"endpoint"`
	PathStyle     bool   `json:"path_style"`

	// Static credentials; when empty the default credential chain is used.
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "greenmines",
			ConnectTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "greenmines_reports",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Emissions: EmissionsConfig{
			MethaneUnit: "tonnes",
			Timezone:    "UTC",
			CacheTTL:    5 * time.Minute,
		},
		Snapshots: SnapshotsConfig{
			Jobs: []SnapshotJob{
				{Name: "daily", CronExpression: "0 55 23 * * *", Range: "day"},
				{Name: "weekly", CronExpression: "0 15 0 * * MON", Range: "previousWeek"},
			},
			AlertThreshold: 0,
			ArchivePrefix:  "reports",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: true,
		},
	}
}

// LoadConfig loads configuration from file, a .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// Load from file if exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// .env is optional; real environment variables take precedence over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	overrideWithEnv(config)

	if _, err := time.LoadLocation(config.Emissions.Timezone); err != nil {
		return nil, fmt.Errorf("invalid emissions timezone %q: %w", config.Emissions.Timezone, err)
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		config.Mongo.Database = db
	}

	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}

	if unit := os.Getenv("METHANE_UNIT"); unit != "" {
		config.Emissions.MethaneUnit = unit
	}
	if tz := os.Getenv("EMISSIONS_TIMEZONE"); tz != "" {
		config.Emissions.Timezone = tz
	}
	if ttl := os.Getenv("SUMMARY_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Emissions.CacheTTL = d
		}
	}

	if threshold := os.Getenv("ALERT_THRESHOLD_TONNES"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Snapshots.AlertThreshold = f
		}
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if bucket := os.Getenv("REPORT_ARCHIVE_BUCKET"); bucket != "" {
		config.AWS.ArchiveBucket = bucket
	}
	if topic := os.Getenv("ALERT_TOPIC_ARN"); topic != "" {
		config.AWS.AlertTopicARN = topic
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		config.AWS.Endpoint = endpoint
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if dev := os.Getenv("LOG_DEVELOPMENT"); dev != "" {
		if b, err := strconv.ParseBool(dev); err == nil {
			config.Logging.Development = b
		}
	}
}

// Location returns the reporting timezone
func (c *EmissionsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewLogger builds the zap logger the binaries share
func (c *LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if c.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = level
	return zapConfig.Build()
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
