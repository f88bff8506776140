package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Config holds the settings of the security server and its integrations.
type Config struct {
	// ServerAddress is the gRPC address of the security service.
	ServerAddress string `yaml:"server_addr"`
	// MetricsAddress is where Prometheus metrics are served. Empty disables it.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level,omitempty"`
	// Store selects where state is persisted: file, redis or memory.
	Store string `yaml:"store,omitempty"`
	// StateFile is the path to the JSON file storing security state.
	StateFile string `yaml:"state_file,omitempty"`
	// RedisURL is used when Store is redis.
	RedisURL string `yaml:"redis_url,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// ClassifierSeed seeds the stand-in image classifier.
	ClassifierSeed uint64 `yaml:"classifier_seed,omitempty"`
	// Sensors are registered on first start when no state exists yet.
	Sensors []SensorConfig `yaml:"sensors,omitempty"`
	// MQTT configures the sensor bridge and status publisher.
	MQTT MQTTConfig `yaml:"mqtt,omitempty"`
	// History configures the Postgres transition log.
	History HistoryConfig `yaml:"history,omitempty"`
	// Archive configures S3 storage of images that contained a cat.
	Archive ArchiveConfig `yaml:"archive,omitempty"`
}

// SensorConfig describes an initial sensor.
type SensorConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// MQTTConfig holds broker settings. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker    string `yaml:"broker,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	BaseTopic string `yaml:"base_topic,omitempty"`
}

// HistoryConfig holds Postgres settings. An empty URL disables history.
type HistoryConfig struct {
	PostgresURL string `yaml:"postgres_url,omitempty"`
	// Buffer is the number of events queued before new ones are dropped.
	Buffer int `yaml:"buffer,omitempty"`
}

// ArchiveConfig holds S3 settings. An empty Bucket disables the archive.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
}

// Supported values of Config.Store.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename for security state JSON.
	DefaultStateFilename = "catpoint-state.json"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultBaseTopic prefixes every MQTT topic.
	DefaultBaseTopic = "catpoint"

	// DefaultHistoryBuffer is the default history queue length.
	DefaultHistoryBuffer = 256

	// DefaultArchivePrefix prefixes archived image keys.
	DefaultArchivePrefix = "cats"

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownStore is returned for unsupported store names.
	errUnknownStore = errors.New("unknown store")
	// errRedisURLRequired is returned when the redis store has no URL.
	errRedisURLRequired = errors.New("redis_url must be provided for the redis store")
	// errDuplicateSensor is returned when two initial sensors share a name.
	errDuplicateSensor = errors.New("duplicate sensor name")
	// errArchiveRegion is returned when the archive has a bucket but no region.
	errArchiveRegion = errors.New("archive region must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Settings may carry credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
//
//nolint:cyclop // A flat list of checks reads better than helpers here.
func Validate(settings *Config) error {
	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics socket: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Store == "" {
		settings.Store = StoreFile
	}

	switch settings.Store {
	case StoreFile:
		if settings.StateFile == "" {
			settings.StateFile = DefaultStateFilename
		}
	case StoreRedis:
		if settings.RedisURL == "" {
			return errRedisURLRequired
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %q", errUnknownStore, settings.Store)
	}

	if err := validateSensors(settings.Sensors); err != nil {
		return err
	}

	if settings.MQTT.Broker != "" {
		if _, err := url.Parse(settings.MQTT.Broker); err != nil {
			return fmt.Errorf("invalid mqtt broker: %w", err)
		}

		if settings.MQTT.BaseTopic == "" {
			settings.MQTT.BaseTopic = DefaultBaseTopic
		}
	}

	if settings.History.PostgresURL != "" && settings.History.Buffer <= 0 {
		settings.History.Buffer = DefaultHistoryBuffer
	}

	if settings.Archive.Bucket != "" {
		if settings.Archive.Region == "" {
			return errArchiveRegion
		}

		if settings.Archive.Prefix == "" {
			settings.Archive.Prefix = DefaultArchivePrefix
		}
	}

	return nil
}

// InitialSensors converts the configured sensors to domain sensors.
// The configuration must have passed Validate.
func (c *Config) InitialSensors() []*domain.Sensor {
	sensors := make([]*domain.Sensor, 0, len(c.Sensors))

	for _, s := range c.Sensors {
		sensorType, err := domain.ParseSensorType(s.Type)
		if err != nil {
			continue
		}

		sensors = append(sensors, domain.NewSensor(s.Name, sensorType))
	}

	return sensors
}

func validateSensors(sensors []SensorConfig) error {
	seen := make(map[string]struct{}, len(sensors))

	for _, s := range sensors {
		if s.Name == "" {
			return fmt.Errorf("sensor of type %q has no name", s.Type)
		}

		if _, err := domain.ParseSensorType(s.Type); err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}

		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("%w: %q", errDuplicateSensor, s.Name)
		}

		seen[s.Name] = struct{}{}
	}

	return nil
}
