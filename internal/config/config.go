package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DBDriver    string // postgres / mysql
	DatabaseURL string // あれば POSTGRES_* より優先

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	MySQLDSN string // DB_DRIVER=mysql のとき必須

	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret string // JWT署名シークレット（発行は外部の認証サービス）

	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	RedisAddr      string // 空なら冪等キーの同時実行ガードは無効
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	ReceiptPrefix      string // レシート番号の先頭（DRIP）
	ReceiptMaxAttempts int    // 重複時の再生成回数の上限
	TxTimeout          time.Duration

	OtelEndpoint   string // 空ならトレースは出さない
	OtelAuthHeader string
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod"
}

// Loadは環境変数から読む（.envの読み込みはmainで行う）
func Load() (Config, error) {
	var err error
	cfg := Config{
		Port:        getenv("PORT", "8080"),
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getenv("POSTGRES_DB", "pos"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		MySQLDSN: os.Getenv("MYSQL_DSN"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ReceiptPrefix: getenv("RECEIPT_PREFIX", "DRIP"),

		OtelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
	}

	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxOpenConns, err = atoiDefault("DB_MAX_OPEN_CONNS", 20); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxIdleConns, err = atoiDefault("DB_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = atoiDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.ReceiptMaxAttempts, err = atoiDefault("RECEIPT_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.TxTimeout, err = durationDefault("TX_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationDefault("IDEMPOTENCY_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}

	//必須チェック
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" && cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_PASSWORD is required")
		}
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return Config{}, fmt.Errorf("MYSQL_DSN is required when DB_DRIVER=mysql")
		}
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or mysql: %q", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ReceiptMaxAttempts < 1 {
		return Config{}, fmt.Errorf("RECEIPT_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.TxTimeout <= 0 {
		return Config{}, fmt.Errorf("TX_TIMEOUT must be positive")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 5s): %w", key, err)
	}
	return d, nil
}
