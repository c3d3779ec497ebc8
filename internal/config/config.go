package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Version is reported to the engine as the application version.
const Version = "0.3.0"

// DefaultChatListLimit bounds the bulk chat list request sent after login.
const DefaultChatListLimit = 100000

var ErrMissingCredentials = errors.New("api id and api hash are required")

type RelayConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Config is fixed for the lifetime of one engine instance. Changing flags or
// the database directory means building a new engine.
type Config struct {
	APIID   int32  `yaml:"api_id"`
	APIHash string `yaml:"api_hash"`

	UseFileDatabase        bool `yaml:"use_file_database"`
	UseChatInfoDatabase    bool `yaml:"use_chat_info_database"`
	UseMessageDatabase     bool `yaml:"use_message_database"`
	UseSecretChats         bool `yaml:"use_secret_chats"`
	UseTestDC              bool `yaml:"use_test_dc"`
	EnableStorageOptimizer bool `yaml:"enable_storage_optimizer"`

	PollTimeout time.Duration `yaml:"poll_timeout"`
	Verbosity   int           `yaml:"verbosity"`

	SystemLanguage     string `yaml:"system_language"`
	DeviceModel        string `yaml:"device_model"`
	ApplicationVersion string `yaml:"application_version"`
	DatabaseDirectory  string `yaml:"database_directory"`

	ChatListLimit       int32 `yaml:"chat_list_limit"`
	RepromptOnAuthError bool  `yaml:"reprompt_on_auth_error"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Relay RelayConfig `yaml:"relay"`
}

func Default() Config {
	return Config{
		EnableStorageOptimizer: true,
		PollTimeout:            time.Second,
		Verbosity:              1,
		SystemLanguage:         "en",
		DeviceModel:            "tdclient",
		ApplicationVersion:     Version,
		DatabaseDirectory:      "tdlib",
		ChatListLimit:          DefaultChatListLimit,
		LogLevel:               "info",
		LogFormat:              "console",
	}
}

// Load reads an optional .env file and overlays the environment on the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: .env not found, using process environment")
	}
	cfg := Default()
	cfg.applyEnv()
	return &cfg, nil
}

// LoadFile reads a YAML config file, then overlays the environment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	_ = godotenv.Load()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.APIID <= 0 || strings.TrimSpace(c.APIHash) == "" {
		return ErrMissingCredentials
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", c.PollTimeout)
	}
	if c.ChatListLimit <= 0 {
		return fmt.Errorf("chat list limit must be positive, got %d", c.ChatListLimit)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIID = getEnvAsInt32("API_ID", c.APIID)
	c.APIHash = getEnv("API_HASH", c.APIHash)

	c.UseFileDatabase = getEnvAsBool("TD_USE_FILE_DATABASE", c.UseFileDatabase)
	c.UseChatInfoDatabase = getEnvAsBool("TD_USE_CHAT_INFO_DATABASE", c.UseChatInfoDatabase)
	c.UseMessageDatabase = getEnvAsBool("TD_USE_MESSAGE_DATABASE", c.UseMessageDatabase)
	c.UseSecretChats = getEnvAsBool("TD_USE_SECRET_CHATS", c.UseSecretChats)
	c.UseTestDC = getEnvAsBool("TD_USE_TEST_DC", c.UseTestDC)
	c.EnableStorageOptimizer = getEnvAsBool("TD_ENABLE_STORAGE_OPTIMIZER", c.EnableStorageOptimizer)

	c.PollTimeout = getEnvAsSeconds("TD_WAIT_TIMEOUT", c.PollTimeout)
	c.Verbosity = getEnvAsInt("TD_VERBOSITY", c.Verbosity)

	c.SystemLanguage = getEnv("TD_LANGUAGE", c.SystemLanguage)
	c.DeviceModel = getEnv("TD_DEVICE_MODEL", c.DeviceModel)
	c.DatabaseDirectory = getEnv("TD_DATABASE_DIRECTORY", c.DatabaseDirectory)
	c.ChatListLimit = getEnvAsInt32("TD_CHAT_LIMIT", c.ChatListLimit)
	c.RepromptOnAuthError = getEnvAsBool("TD_REPROMPT_ON_AUTH_ERROR", c.RepromptOnAuthError)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.Relay.BotToken = getEnv("RELAY_BOT_TOKEN", c.Relay.BotToken)
	c.Relay.ChatID = getEnvAsInt64("RELAY_CHAT_ID", c.Relay.ChatID)
}

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("config: %s must be int, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

// getEnvAsInt32 rejects values that do not fit rather than wrapping them.
func getEnvAsInt32(key string, defaultVal int32) int32 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseInt(valStr, 10, 32)
	if err != nil {
		log.Printf("config: %s must be a 32-bit int, using default %d", key, defaultVal)
		return defaultVal
	}
	return int32(val)
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		log.Printf("config: %s must be int, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("config: %s must be bool, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}

// getEnvAsSeconds accepts fractional seconds ("0.5") like the engine's own timeout.
func getEnvAsSeconds(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	secs, err := strconv.ParseFloat(valStr, 64)
	if err != nil || secs <= 0 {
		log.Printf("config: %s must be positive seconds, using default %s", key, defaultVal)
		return defaultVal
	}
	return time.Duration(secs * float64(time.Second))
}
