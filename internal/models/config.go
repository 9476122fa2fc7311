package models

import "time"

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	Reconcile   ReconcileConfig
	Arbitration ArbitrationConfig
	Queue       QueueConfig
	Server      ServerConfig
	ChainsFile  string
}

// DatabaseConfig holds connection settings shared by the source and legacy ledgers
type DatabaseConfig struct {
	Driver          string
	SourceURL       string
	LegacyURL       string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	InitSchema      bool
}

// RedisConfig holds the dedup marker store connection
type RedisConfig struct {
	Host        string
	Port        int
	MaxIdle     int
	DialTimeout time.Duration
}

// ReconcileConfig holds sync, pairing and sweep cadences
type ReconcileConfig struct {
	SyncInterval       time.Duration
	BatchSize          int
	MinAge             time.Duration
	MaxAge             time.Duration
	ShortSweepInterval time.Duration
	ShortSweepLookback time.Duration
	LongSweepInterval  time.Duration
	LongSweepLookback  time.Duration
	SweepLimit         int
	CleanupInterval    time.Duration
	WorkingRecordTTL   time.Duration
}

// ArbitrationConfig holds challenge wallet and scheduling settings
type ArbitrationConfig struct {
	Enabled        bool
	PrivateKey     string
	RPCURL         string
	MakerOwner     string
	ScanInterval   time.Duration
	ScanLookback   time.Duration
	ScanLimit      int
	RPCTimeout     time.Duration
	ConfirmTimeout time.Duration
	QueueSize      int
}

// QueueConfig holds message broker consumption settings
type QueueConfig struct {
	URL               string
	Prefetch          int
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// ServerConfig holds the operational HTTP listener
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}
