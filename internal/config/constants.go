package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. Pairing requests hold the connection while the QR
// poll runs, so the request timeout must exceed QR_MAX_ATTEMPTS * interval.
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Lifecycle reconciliation runs outside any request; each write gets its own deadline.
const ReconcileTimeout = 10 * time.Second

// Bridge dial and teardown deadlines
const (
	BridgeDialTimeout     = 10 * time.Second
	BridgeTeardownTimeout = 10 * time.Second
)

// Background job settings
const (
	CleanupJobInterval     = 5 * time.Minute
	DisconnectedSessionTTL = 2 * time.Minute
	PairingSessionTTL      = 10 * time.Minute
	PendingAccountTTL      = 24 * time.Hour
	PairRateLimitWindow    = time.Minute
	LoginRateLimitPerMin   = 10
	LoginRateLimitWindow   = time.Minute
)
