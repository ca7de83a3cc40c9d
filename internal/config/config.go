package config

import (
	"time"
)

const DefaultEndpoint = "http://127.0.0.1:8000/file_upload/upload/"

type Config struct {
	Upload  UploadConfig
	Watcher WatcherConfig
	Redis   RedisConfig
	Minio   MinioConfig
	Server  ServerConfig
	Log     LogConfig
}

// UploadConfig drives the upload client and the queue workers. ShutdownGrace is how long in-flight uploads may run after SIGTERM.
type UploadConfig struct {
	Endpoint      string        `envconfig:"UPLOAD_ENDPOINT" default:"http://127.0.0.1:8000/file_upload/upload/"`
	Timeout       time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"10m"`
	NumWorkers    uint16        `envconfig:"NUM_WORKERS" default:"1"`
	StagingDir    string        `envconfig:"STAGING_DIR"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"30s"`
}

// WatcherConfig drives the intake watcher. StreamTimeout is how long a file must stay unchanged before it is picked up.
type WatcherConfig struct {
	Path          string        `envconfig:"DEFAULT_INPUT_PATH"`
	StreamTimeout time.Duration `envconfig:"STREAM_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// MinioConfig is only used when ArchiveBucket is set.
type MinioConfig struct {
	Endpoint      string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey     string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey     string `envconfig:"MINIO_SECRET_KEY"`
	UseSSL        bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	ArchiveBucket string `envconfig:"ARCHIVE_BUCKET"`
	Region        string `envconfig:"MINIO_REGION" default:"eu-west-1"`
}

type ServerConfig struct {
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":2112"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

func (m MinioConfig) ArchiveEnabled() bool {
	return m.ArchiveBucket != ""
}
