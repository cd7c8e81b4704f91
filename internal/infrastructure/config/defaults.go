package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPollInterval    = time.Minute
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultReadHeaderLimit = 5 * time.Second
	DefaultWSWriteTimeout  = 5 * time.Second
	DefaultWSPingInterval  = 30 * time.Second
)
