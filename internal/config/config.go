package config

import "time"

// Config is the root configuration for the courier tracking server. The
// housekeeper binary loads the same file and reads the subset it needs.
type Config struct {
	Instance     InstanceConfig     `yaml:"instance"`
	Server       ServerConfig       `yaml:"server"`
	Database     DBConfig           `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Realtime     RealtimeConfig     `yaml:"realtime"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Log          LogConfig          `yaml:"log"`
}

// InstanceConfig identifies this server instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig holds the PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the courier presence store settings.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
}

// RealtimeConfig holds WebSocket broadcaster settings.
type RealtimeConfig struct {
	SendBuffer     int           `yaml:"send_buffer"`      // per-connection outbound frames
	EventBuffer    int           `yaml:"event_buffer"`     // router FIFO initial capacity
	PingInterval   time.Duration `yaml:"ping_interval"`    // server ping cadence
	PongTimeout    time.Duration `yaml:"pong_timeout"`     // read deadline extension per pong
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // per-frame write deadline
	MaxMessageSize int64         `yaml:"max_message_size"` // inbound frame cap in bytes
}

// DispatchConfig holds stale-package sweeper settings.
type DispatchConfig struct {
	Interval    time.Duration `yaml:"interval"`
	StaleAfter  time.Duration `yaml:"stale_after"`
	Concurrency int           `yaml:"concurrency"`
}

// HousekeepingConfig holds offline maintenance settings.
type HousekeepingConfig struct {
	// NotificationRetention is how long read notifications are kept.
	NotificationRetention time.Duration `yaml:"notification_retention"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
