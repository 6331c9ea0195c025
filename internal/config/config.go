package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Storage  *storageConfig
	Queue    *queueConfig
	Import   *importConfig
	Export   *exportConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"catalog"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string   `envconfig:"CATALOG_BULK_ADDRESS" default:":8080"`
	MetricsAddress  string   `envconfig:"CATALOG_BULK_METRICS_ADDRESS" default:":8081"`
	BaseUrl         string   `envconfig:"CATALOG_BULK_BASE_URL" default:"http://localhost:8080"`
	LogLevel        string   `envconfig:"CATALOG_BULK_LOG_LEVEL" default:"info"`
	LogFormat       string   `envconfig:"CATALOG_BULK_LOG_FORMAT" default:"console"`
	MigrationFolder string   `envconfig:"CATALOG_BULK_MIGRATIONS_FOLDER" default:""`
	AllowedOrigins  []string `envconfig:"CATALOG_BULK_ALLOWED_ORIGINS" default:"*"`
	MaxUploadSize   int64    `envconfig:"CATALOG_BULK_MAX_UPLOAD_SIZE" default:"104857600"`
	Auth            Auth
}

type Auth struct {
	// AuthenticationType is "none" or "header". With "header" an upstream proxy vouches
	// for the user through UserHeader.
	AuthenticationType string `envconfig:"CATALOG_BULK_AUTH" default:"none"`
	UserHeader         string `envconfig:"CATALOG_BULK_AUTH_USER_HEADER" default:"X-Forwarded-User"`
}

type storageConfig struct {
	// Type is either "local" or "minio".
	Type            string `envconfig:"STORAGE_TYPE" default:"local"`
	LocalPath       string `envconfig:"STORAGE_LOCAL_PATH" default:"/tmp/catalog-bulk"`
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	Bucket          string `envconfig:"STORAGE_BUCKET" default:"catalog-bulk"`
	AccessKey       string `envconfig:"STORAGE_ACCESS_KEY" default:""`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:""`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

type queueConfig struct {
	// Type is either "river" (postgres only) or "memory".
	Type        string        `envconfig:"QUEUE_TYPE" default:"river"`
	Workers     int           `envconfig:"QUEUE_WORKERS" default:"4"`
	MaxAttempts int           `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
	JobTimeout  time.Duration `envconfig:"QUEUE_JOB_TIMEOUT" default:"1h"`
}

type importConfig struct {
	BatchSize     int `envconfig:"IMPORT_BATCH_SIZE" default:"50"`
	ProgressEvery int `envconfig:"IMPORT_PROGRESS_EVERY" default:"10"`
	MaxErrors     int `envconfig:"IMPORT_MAX_ERRORS" default:"100"`
	PreviewRows   int `envconfig:"IMPORT_PREVIEW_ROWS" default:"10"`
}

type exportConfig struct {
	PageSize      int           `envconfig:"EXPORT_PAGE_SIZE" default:"200"`
	ExpiryWindow  time.Duration `envconfig:"EXPORT_EXPIRY_WINDOW" default:"168h"`
	PurgeInterval time.Duration `envconfig:"EXPORT_PURGE_INTERVAL" default:"1h"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns the built-in defaults without reading the environment.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type:     "pgsql",
			Hostname: "localhost",
			Port:     "5432",
			Name:     "catalog",
			User:     "admin",
			Password: "adminpass",
		},
		Service: &svcConfig{
			Address:        ":8080",
			MetricsAddress: ":8081",
			BaseUrl:        "http://localhost:8080",
			LogLevel:       "info",
			LogFormat:      "console",
			AllowedOrigins: []string{"*"},
			MaxUploadSize:  100 << 20,
			Auth: Auth{
				AuthenticationType: "none",
				UserHeader:         "X-Forwarded-User",
			},
		},
		Storage: &storageConfig{
			Type:      "local",
			LocalPath: "/tmp/catalog-bulk",
			Endpoint:  "localhost:9000",
			Bucket:    "catalog-bulk",
		},
		Queue: &queueConfig{
			Type:        "river",
			Workers:     4,
			MaxAttempts: 3,
			JobTimeout:  time.Hour,
		},
		Import: &importConfig{
			BatchSize:     50,
			ProgressEvery: 10,
			MaxErrors:     100,
			PreviewRows:   10,
		},
		Export: &exportConfig{
			PageSize:      200,
			ExpiryWindow:  7 * 24 * time.Hour,
			PurgeInterval: time.Hour,
		},
	}
}

// Redacted is a copy of c with credentials masked, suitable for printing.
func (c *Config) Redacted() Config {
	out := *c
	if c.Database != nil {
		db := *c.Database
		db.Password = mask(db.Password)
		out.Database = &db
	}
	if c.Storage != nil {
		st := *c.Storage
		st.AccessKey = mask(st.AccessKey)
		st.SecretAccessKey = mask(st.SecretAccessKey)
		out.Storage = &st
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "*****"
}
