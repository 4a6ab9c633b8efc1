package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env      string
	DB       db
	Server   server
	Logger   logger
	Remote   remote
	Import   importConfig
	Conflict conflict
	Pending  pending
}

type db struct {
	Driver      string
	SQLitePath  string
	DatabaseURI string
}

type server struct {
	RunAddress string
	// APIToken токен операторского API; пустой токен отключает проверку
	APIToken string
}

type logger struct {
	LogLevel string
}

type remote struct {
	PDSHost     string
	PLCURL      string
	AccessToken string
}

type importConfig struct {
	Collections []string
	PageSize    int
	PageDelay   time.Duration
}

type conflict struct {
	Strategy string
}

type pending struct {
	MaxAttempts int
	TTL         time.Duration
}

var keys = []string{
	"app_env", "log_level", "run_address", "api_token", "storage_driver", "sqlite_path", "database_uri",
	"pds_host", "plc_url", "access_token", "collections", "import_page_size", "import_page_delay",
	"conflict_strategy", "pending_max_attempts", "pending_ttl",
}

// Load читает .env, переменные окружения и, если задан, файл конфигурации.
// Переменные окружения имеют приоритет над файлом.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)

	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Env: v.GetString("app_env"),
		DB: db{
			Driver:      strings.ToLower(v.GetString("storage_driver")),
			SQLitePath:  v.GetString("sqlite_path"),
			DatabaseURI: v.GetString("database_uri"),
		},
		Server: server{
			RunAddress: v.GetString("run_address"),
			APIToken:   v.GetString("api_token"),
		},
		Logger: logger{LogLevel: v.GetString("log_level")},
		Remote: remote{
			PDSHost:     v.GetString("pds_host"),
			PLCURL:      v.GetString("plc_url"),
			AccessToken: v.GetString("access_token"),
		},
		Import: importConfig{
			Collections: stringList(v, "collections"),
			PageSize:    v.GetInt("import_page_size"),
			PageDelay:   v.GetDuration("import_page_delay"),
		},
		Conflict: conflict{Strategy: v.GetString("conflict_strategy")},
		Pending: pending{
			MaxAttempts: v.GetInt("pending_max_attempts"),
			TTL:         v.GetDuration("pending_ttl"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(configFile string) *Config {
	cfg, err := Load(configFile)
	if err != nil {
		log.Fatalln(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.DB.DatabaseURI == "" {
			return fmt.Errorf("%w: database_uri is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.DB.Driver)
	}
	if c.DB.SQLitePath == "" {
		return fmt.Errorf("%w: sqlite_path is required", ErrInvalidConfig)
	}
	if c.Import.PageSize <= 0 {
		return fmt.Errorf("%w: import_page_size must be positive", ErrInvalidConfig)
	}
	if c.Pending.MaxAttempts <= 0 {
		return fmt.Errorf("%w: pending_max_attempts must be positive", ErrInvalidConfig)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("log_level", "info")
	v.SetDefault("run_address", "localhost:8080")
	v.SetDefault("storage_driver", "sqlite")
	v.SetDefault("sqlite_path", "reposync.db")
	v.SetDefault("plc_url", "https://plc.directory")
	v.SetDefault("import_page_size", 100)
	v.SetDefault("import_page_delay", time.Duration(0))
	v.SetDefault("conflict_strategy", "remote_wins")
	v.SetDefault("pending_max_attempts", 5)
	v.SetDefault("pending_ttl", 7*24*time.Hour)
}

// stringList принимает как список из файла, так и строку через запятую из окружения
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
