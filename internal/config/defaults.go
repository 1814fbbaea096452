package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultReadTimeout           = 15 * time.Second
	DefaultWriteTimeout          = 15 * time.Second
	DefaultShutdownTimeout       = 10 * time.Second
	DefaultDBPort                = 5432
	DefaultDBSSLMode             = "prefer"
	DefaultMaxConns              = 10
	DefaultMinConns              = 2
	DefaultRedisAddr             = "localhost:6379"
	DefaultPresenceTTL           = 90 * time.Second
	DefaultAccessTokenTTL        = 30 * time.Minute
	DefaultRefreshTokenTTL       = 7 * 24 * time.Hour
	DefaultBcryptCost            = 10
	DefaultSendBuffer            = 256
	DefaultEventBuffer           = 1024
	DefaultPingInterval          = 54 * time.Second
	DefaultPongTimeout           = 60 * time.Second
	DefaultWSWriteTimeout        = 10 * time.Second
	DefaultMaxMessageSize        = 4096
	DefaultDispatchInterval      = 5 * time.Minute
	DefaultStaleAfter            = 15 * time.Minute
	DefaultDispatchConcurrency   = 8
	DefaultNotificationRetention = 30 * 24 * time.Hour
	DefaultLogLevel              = "info"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.PresenceTTL == 0 {
		c.Redis.PresenceTTL = DefaultPresenceTTL
	}

	// Auth defaults
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = DefaultBcryptCost
	}

	// Realtime defaults
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = DefaultSendBuffer
	}
	if c.Realtime.EventBuffer == 0 {
		c.Realtime.EventBuffer = DefaultEventBuffer
	}
	if c.Realtime.PingInterval == 0 {
		c.Realtime.PingInterval = DefaultPingInterval
	}
	if c.Realtime.PongTimeout == 0 {
		c.Realtime.PongTimeout = DefaultPongTimeout
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWSWriteTimeout
	}
	if c.Realtime.MaxMessageSize == 0 {
		c.Realtime.MaxMessageSize = DefaultMaxMessageSize
	}

	// Dispatch defaults
	if c.Dispatch.Interval == 0 {
		c.Dispatch.Interval = DefaultDispatchInterval
	}
	if c.Dispatch.StaleAfter == 0 {
		c.Dispatch.StaleAfter = DefaultStaleAfter
	}
	if c.Dispatch.Concurrency == 0 {
		c.Dispatch.Concurrency = DefaultDispatchConcurrency
	}

	// Housekeeping defaults
	if c.Housekeeping.NotificationRetention == 0 {
		c.Housekeeping.NotificationRetention = DefaultNotificationRetention
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
