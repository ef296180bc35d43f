package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the kiosk process
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Kiosk      KioskConfig
	Operator   OperatorConfig
	DataDir    string
	RosterPath string
	AssetsDir  string
	Assets     []string
	LogVerbose bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// StoreConfig selects the draw history backend
type StoreConfig struct {
	Driver        string // sqlite, postgres, mysql or mongo
	DSN           string
	MongoURI      string
	MongoDatabase string
}

// KioskConfig holds draw presentation settings
type KioskConfig struct {
	ReducedMotion bool
	AutoComplete  bool
	MaxPerRound   int
}

// OperatorConfig guards the admin routes. An empty PINHash disables the guard.
type OperatorConfig struct {
	PINHash   string
	JWTSecret string
	TokenTTL  time.Duration
}

// Load reads .env, config.yaml and environment variables, in increasing priority.
// configFile overrides the search path when not empty.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal on the kiosk machine.
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("LOTTERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Kiosk.MaxPerRound <= 0 {
		cfg.Kiosk.MaxPerRound = 10
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("Store.Driver", "sqlite")
	v.SetDefault("Store.DSN", "data/lottery.db")
	v.SetDefault("Store.MongoURI", "mongodb://localhost:27017")
	v.SetDefault("Store.MongoDatabase", "lottery")
	v.SetDefault("Kiosk.ReducedMotion", false)
	v.SetDefault("Kiosk.AutoComplete", true)
	v.SetDefault("Kiosk.MaxPerRound", 10)
	v.SetDefault("Operator.PINHash", "")
	v.SetDefault("Operator.JWTSecret", "")
	v.SetDefault("Operator.TokenTTL", 12*time.Hour)
	v.SetDefault("DataDir", "data")
	v.SetDefault("RosterPath", "data/participants.json")
	v.SetDefault("AssetsDir", "assets")
	v.SetDefault("Assets", []string{})
	v.SetDefault("LogVerbose", true)
}
