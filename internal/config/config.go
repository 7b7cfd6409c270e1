package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Settings SettingsConfig `mapstructure:"settings"`
	Boards   BoardsConfig   `mapstructure:"boards"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Backend is the external JoyCore device process reached over WebSocket.
type BackendConfig struct {
	URL                 string        `mapstructure:"url"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	ReconnectMinBackoff time.Duration `mapstructure:"reconnect_min_backoff"`
	ReconnectMaxBackoff time.Duration `mapstructure:"reconnect_max_backoff"`
	EventBuffer         int           `mapstructure:"event_buffer"`
}

type MonitorConfig struct {
	AutoStart bool `mapstructure:"auto_start"`

	// InputMapFile overrides the backend-delivered input map with a local
	// document, for bench setups without a live backend ("" = disabled).
	InputMapFile  string   `mapstructure:"input_map_file"`
	InputMapPaths []string `mapstructure:"input_map_paths"`
}

type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

type BoardsConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
	ActiveBoard string   `mapstructure:"active_board"`
}

// Auth Configuration
type AuthConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	AccessKeyHash string        `mapstructure:"access_key_hash"`
	JWTSecretEnv  string        `mapstructure:"jwt_secret_env"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

type RecorderConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	Database      DatabaseConfig `mapstructure:"database"`
	BatchSize     int            `mapstructure:"batch_size"`
	FlushInterval time.Duration  `mapstructure:"flush_interval"`
	QueueSize     int            `mapstructure:"queue_size"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            int           `mapstructure:"qos"`
	BufferSize     int           `mapstructure:"buffer_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	// Defaults setzen
	viper.SetDefault("server.http_port", 8411)
	viper.SetDefault("server.shutdown_timeout", "30s")

	viper.SetDefault("backend.url", "ws://127.0.0.1:7412/rpc")
	viper.SetDefault("backend.request_timeout", "5s")
	viper.SetDefault("backend.reconnect_min_backoff", "500ms")
	viper.SetDefault("backend.reconnect_max_backoff", "15s")
	viper.SetDefault("backend.event_buffer", 256)

	viper.SetDefault("monitor.auto_start", true)
	viper.SetDefault("monitor.input_map_file", "")
	viper.SetDefault("monitor.input_map_paths", []string{"configs/inputmaps"})

	viper.SetDefault("settings.path", "data/settings.json")

	viper.SetDefault("boards.search_paths", []string{"board-descriptors/vendors"})
	viper.SetDefault("boards.active_board", "")

	// Auth Defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	viper.SetDefault("auth.session_ttl", "12h")

	viper.SetDefault("recorder.enabled", false)
	viper.SetDefault("recorder.batch_size", 64)
	viper.SetDefault("recorder.flush_interval", "1s")
	viper.SetDefault("recorder.queue_size", 1024)
	viper.SetDefault("recorder.database.host", "localhost")
	viper.SetDefault("recorder.database.port", 5432)
	viper.SetDefault("recorder.database.database", "joycore")
	viper.SetDefault("recorder.database.user", "joycore")
	viper.SetDefault("recorder.database.max_connections", 4)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker_url", "tcp://127.0.0.1:1883")
	viper.SetDefault("mqtt.client_id", "joycore-link")
	viper.SetDefault("mqtt.topic_prefix", "joycore")
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.buffer_size", 512)
	viper.SetDefault("mqtt.connect_timeout", "5s")
	viper.SetDefault("mqtt.publish_timeout", "2s")

	viper.SetDefault("debug.enabled", false)

	// Environment Variables automatisch binden (Viper Feature)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("JOYLINK") // Environment Variables mit Prefix JOYLINK_

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// JWT Secret aus Environment Variable laden
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET" // Fallback
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		// Development Fallback (MIT WARNING!)
		return "dev-secret-change-in-production-min-32-chars"
	}
	return secret
}

// Helper um zu prüfen ob Production-Ready
func (a *AuthConfig) IsProductionReady() bool {
	secret := a.GetJWTSecret()
	return secret != "dev-secret-change-in-production-min-32-chars" && len(secret) >= 32
}
