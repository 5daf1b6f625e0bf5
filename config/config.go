package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	Environment        string
	CohereAPIKey       string
	CohereBaseURL      string
	ChatModel          string
	VisionModel        string
	DBPath             string
	ExportDir          string
	StaticDir          string
	LogFilePath        string
	CorsAllowedOrigins []string
	MaxUploadMB        int64
	HTTPTimeout        time.Duration
	MinRequestInterval time.Duration
	SQLServer          SQLServerConfig
}

type SQLServerConfig struct {
	Server   string
	Port     string
	Database string
	UserID   string
	Password string
	Encrypt  bool
}

// Enabled reports whether enough settings are present to open a connection.
func (c SQLServerConfig) Enabled() bool {
	return c.Server != "" && c.Database != ""
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads .env (if any), then an optional YAML file, then the environment.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("port", "9090")
	v.SetDefault("go_env", "development")
	v.SetDefault("cohere_api_key", "")
	v.SetDefault("cohere_base_url", "https://api.cohere.com")
	v.SetDefault("chat_model", "command-a-03-2025")
	v.SetDefault("vision_model", "c4ai-aya-vision-32b")
	v.SetDefault("db_path", "./data/badger")
	v.SetDefault("export_dir", "./exports")
	v.SetDefault("static_dir", "./frontend/build")
	v.SetDefault("log_file_path", "./logs/datachat.log")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("max_upload_mb", 20)
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("min_request_interval_ms", 500)
	v.SetDefault("sql_server", "")
	v.SetDefault("sql_port", "1433")
	v.SetDefault("sql_database", "")
	v.SetDefault("sql_user", "")
	v.SetDefault("sql_password", "")
	v.SetDefault("sql_encrypt", true)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	cfg := Config{
		Port:               v.GetString("port"),
		Environment:        v.GetString("go_env"),
		CohereAPIKey:       v.GetString("cohere_api_key"),
		CohereBaseURL:      strings.TrimRight(v.GetString("cohere_base_url"), "/"),
		ChatModel:          v.GetString("chat_model"),
		VisionModel:        v.GetString("vision_model"),
		DBPath:             v.GetString("db_path"),
		ExportDir:          v.GetString("export_dir"),
		StaticDir:          v.GetString("static_dir"),
		LogFilePath:        v.GetString("log_file_path"),
		CorsAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		MaxUploadMB:        v.GetInt64("max_upload_mb"),
		HTTPTimeout:        time.Duration(v.GetInt("http_timeout_sec")) * time.Second,
		MinRequestInterval: time.Duration(v.GetInt("min_request_interval_ms")) * time.Millisecond,
		SQLServer: SQLServerConfig{
			Server:   v.GetString("sql_server"),
			Port:     v.GetString("sql_port"),
			Database: v.GetString("sql_database"),
			UserID:   v.GetString("sql_user"),
			Password: v.GetString("sql_password"),
			Encrypt:  v.GetBool("sql_encrypt"),
		},
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
