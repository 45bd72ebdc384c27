package utils

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Hold     HoldConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SnapshotTTL time.Duration
}

type QueueConfig struct {
	URL string
}

type HoldConfig struct {
	// DefaultDuration is applied when a reservation does not ask for a
	// specific hold length; MaxDuration caps what it may ask for. The hold
	// must comfortably outlive the payment charge timeout.
	DefaultDuration time.Duration
	MaxDuration     time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int
}

type PaymentConfig struct {
	Currency      string
	ChargeTimeout time.Duration

	// RecoveryInterval is how often pending bookings are re-checked against
	// the gateway. Bookings parked on an unknown charge outcome depend on it.
	RecoveryInterval time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SNAPSHOT_TTL_SECONDS", 5)
	viper.SetDefault("HOLD_DURATION_MINUTES", 5)
	viper.SetDefault("HOLD_MAX_DURATION_MINUTES", 15)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 5)
	viper.SetDefault("SWEEP_BATCH_SIZE", 100)
	viper.SetDefault("PAYMENT_CURRENCY", "USD")
	viper.SetDefault("CHARGE_TIMEOUT_SECONDS", 30)
	viper.SetDefault("RECOVERY_INTERVAL_SECONDS", 30)

	// A missing .env is fine: defaults plus the process environment apply.
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:        viper.GetString("REDIS_ADDR"),
			Password:    viper.GetString("REDIS_PASSWORD"),
			DB:          viper.GetInt("REDIS_DB"),
			SnapshotTTL: time.Duration(viper.GetInt("SNAPSHOT_TTL_SECONDS")) * time.Second,
		},
		Queue: QueueConfig{
			URL: viper.GetString("RABBITMQ_URL"),
		},
		Hold: HoldConfig{
			DefaultDuration: time.Duration(viper.GetInt("HOLD_DURATION_MINUTES")) * time.Minute,
			MaxDuration:     time.Duration(viper.GetInt("HOLD_MAX_DURATION_MINUTES")) * time.Minute,
			SweepInterval:   time.Duration(viper.GetInt("SWEEP_INTERVAL_SECONDS")) * time.Second,
			SweepBatchSize:  viper.GetInt("SWEEP_BATCH_SIZE"),
		},
		Payment: PaymentConfig{
			Currency:         viper.GetString("PAYMENT_CURRENCY"),
			ChargeTimeout:    time.Duration(viper.GetInt("CHARGE_TIMEOUT_SECONDS")) * time.Second,
			RecoveryInterval: time.Duration(viper.GetInt("RECOVERY_INTERVAL_SECONDS")) * time.Second,
		},
	}

	return config, nil
}
