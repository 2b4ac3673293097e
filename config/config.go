package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres    Postgres
	Redis       Redis
	HTTP        HTTP
	API         API
	Cache       Cache
	Jobs        Jobs
	GoogleDrive GoogleDrive
	Telegram    Telegram
	Ledger      Ledger
	Import      Import
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
	SSLMode         string `env:"PG_SSL_MODE" envDefault:"disable"`
	ConnectAttempts int    `env:"PG_CONNECT_ATTEMPTS" envDefault:"10"`
}

type Redis struct {
	Host     string        `env:"REDIS_HOST"`
	Port     int           `env:"REDIS_PORT"`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT" envDefault:"3s"`
}

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type API struct {
	Debug           bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout         time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	ExchangeRateApi ExchangeRateApi
}

type ExchangeRateApi struct {
	Url    string `env:"EXCHANGE_RATE_API_URL"`
	Path   string `env:"EXCHANGE_RATE_API_PATH" envDefault:"/v1/dolares/bolsa"`
	Source string `env:"EXCHANGE_RATE_SOURCE" envDefault:"mep"`
}

type Cache struct {
	ExchangeRateExpiration time.Duration `env:"CACHE_EXCHANGE_RATE_EXPIRATION" envDefault:"1h"`
}

type Jobs struct {
	FillExchangeRateCacheInterval time.Duration `env:"FILL_EXCHANGE_RATE_CACHE_JOB_INTERVAL" envDefault:"30m"`
	FundSnapshotsCrontab          string        `env:"FUND_SNAPSHOTS_JOB_CRONTAB" envDefault:"0 0 3 1 * *"`
	DeleteOldReportsCrontab       string        `env:"DELETE_OLD_REPORTS_JOB_CRONTAB" envDefault:"0 30 4 * * *"`
}

// GoogleDrive upload is disabled when CredentialsFile is empty.
type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FolderID        string        `env:"GOOGLE_DRIVE_FOLDER_ID" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"168h"`
}

// Telegram notifications are disabled when Token is empty.
type Telegram struct {
	Token  string `env:"TELEGRAM_TOKEN" envDefault:""`
	ChatID int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
	ApiURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
}

type Ledger struct {
	SessionExpiration time.Duration `env:"LEDGER_SESSION_EXPIRATION" envDefault:"24h"`
}

type Import struct {
	MaxUploadBytes  int64    `env:"IMPORT_MAX_UPLOAD_BYTES" envDefault:"5242880"`
	DomesticTickers []string `env:"IMPORT_DOMESTIC_TICKERS" envDefault:"YPFD" envSeparator:","`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
