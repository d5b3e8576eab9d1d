package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig        `json:"server"`
	Upload   UploadConfig        `json:"upload"`
	Compress CompressConfig      `json:"compress"`
	Database Database            `json:"database"`
	Redis    RedisConfig         `json:"redis"`
	Storage  StorageConfig       `json:"storage"`
	Archive  ArchiveWorkerConfig `json:"archive_worker"`
	Sentry   SentryConfig        `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type UploadConfig struct {
	MaxRequestBodyMB     int64 `json:"max_request_body"`
	MaxMultipartMemoryMB int64 `json:"max_multipart_memory"`
}

// CompressConfig carries the batch-engine defaults. Uploads may override the
// target and tolerance per request; the floors and ceilings are server policy.
type CompressConfig struct {
	DefaultTargetKB     int64   `json:"default_target_kb"`
	DefaultTolerancePct int64   `json:"default_tolerance_pct"`
	MinQuality          int     `json:"min_quality"`
	MinScale            float64 `json:"min_scale"`
	MaxItems            int     `json:"max_items"`
	Workers             int     `json:"workers"` // 0 means NumCPU
}

type Database struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PoolSize            int           `json:"pool_size"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

// StorageConfig points at an S3-compatible object store. The museum runs
// against Cloudflare R2; MinIO works for local development.
type StorageConfig struct {
	BucketName  string `json:"bucket_name"`
	Region      string `json:"region"` // "auto" for R2
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_key"`
	Endpoint    string `json:"endpoint"`
}

type ArchiveWorkerConfig struct {
	Stream       string        `json:"stream"`        // redis stream name
	Group        string        `json:"group"`         // consumer group name
	Workers      int           `json:"workers"`       // number of concurrent goroutines
	MaxAttempts  int           `json:"max_attempts"`  // max retries before giving up
	MaxLen       int64         `json:"max_len"`       // stream max length before trim
	BackoffBase  time.Duration `json:"backoff_base"`  // base retry delay
	BlockTimeout time.Duration `json:"block_timeout"` // XREADGROUP block timeout
	Consumer     string        `json:"consumer"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
