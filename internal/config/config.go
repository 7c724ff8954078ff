package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const DotEnvFile = ".env"

type StripeConfig struct {
	SecretKey      string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	PublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	Currency       string `env:"STRIPE_CURRENCY"        envDefault:"pkr"`
}

type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	DataDir       string `env:"DATA_DIR"`
	JWTUserSecret string `env:"JWT_USER_SECRET"`
	LogLevel      string `env:"LOG_LEVEL"`

	SuperuserEmails           []string `env:"SUPERUSER_EMAIL"              envSeparator:","`
	PaymentNumber             string   `env:"PAYMENT_NUMBER"               envDefault:"03448007154"`
	OrderExpiryMinutes        int      `env:"ORDER_EXPIRY_MINUTES"         envDefault:"15"`
	ReferralRequiredPaidUsers int      `env:"REFERRAL_REQUIRED_PAID_USERS" envDefault:"10"`
	ReferralFreePaperLimit    int      `env:"REFERRAL_FREE_PAPER_LIMIT"    envDefault:"15"`

	// DBTxAttempts сколько раз повторять транзакцию postgres, прерванную deadlock или конфликтом сериализации.
	DBTxAttempts int `env:"DB_TX_ATTEMPTS" envDefault:"3"`

	Stripe StripeConfig
	S3     S3Config
}

// OrderTTL срок жизни заказа ручной оплаты.
func (c *Config) OrderTTL() time.Duration {
	return time.Duration(c.OrderExpiryMinutes) * time.Minute
}

// UsesDocumentStore true, если база данных не настроена и записи хранятся в JSON файлах DataDir.
func (c *Config) UsesDocumentStore() bool {
	return c.DatabaseDSN == ""
}

// LoadConfig собирает конфигурацию из .env (если файл есть), переменных окружения и флагов args.
// Переменные окружения важнее флагов.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if err := loadFlags(&flagsConfig, args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return config
}

func (c *Config) validate() error {
	if c.JWTUserSecret == "" {
		return errors.New("jwt user secret is not set")
	}
	if c.OrderExpiryMinutes <= 0 {
		return errors.New("order expiry minutes must be positive")
	}
	if c.ReferralRequiredPaidUsers <= 0 {
		return errors.New("referral required paid users must be positive")
	}
	if c.ReferralFreePaperLimit <= 0 {
		return errors.New("referral free paper limit must be positive")
	}
	if c.DBTxAttempts <= 0 {
		return errors.New("db tx attempts must be positive")
	}
	return nil
}

func loadFlags(flagConfig *Config, args []string) error {
	flags := flag.NewFlagSet("paperify", flag.ContinueOnError)
	flags.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flags.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN, empty to use JSON files in data dir")
	flags.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flags.StringVar(&flagConfig.DataDir, "data", "data", "Directory for JSON records and uploaded screenshots")
	flags.StringVar(&flagConfig.JWTUserSecret, "j", "", "Secret for user session tokens")
	flags.StringVar(&flagConfig.LogLevel, "l", "", "Log level, overrides the GIN_MODE default")

	return flags.Parse(args) //nolint:wrapcheck
}

// mergeConfig строковые параметры, у которых есть флаги, берутся из окружения, а при их отсутствии из флагов.
// Остальное задается только окружением.
func mergeConfig(envConfig, flagsConfig *Config) *Config {
	conf := *envConfig
	conf.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	conf.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	conf.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	conf.DataDir = defaultIfBlank(envConfig.DataDir, flagsConfig.DataDir)
	conf.JWTUserSecret = defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret)
	conf.LogLevel = defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel)
	return &conf
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
