package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	BackendDrive    = "drive"
	BackendPostgres = "postgres"
)

type Config struct {
	Port                    int              `json:"port"`
	AppURL                  string           `json:"app_url"`
	JWTSecret               string           `json:"jwt_secret"`
	JWTTTLHours             int              `json:"jwt_ttl_hours"`
	LogConfig               logger.LogConfig `json:"log_config"`
	Backend                 BackendConfig    `json:"backend"`
	Cache                   CacheConfig      `json:"cache"`
	FileStore               FileStoreConfig  `json:"file_store"`
	OAuth                   OAuthConfig      `json:"oauth"`
	Session                 SessionConfig    `json:"session"`
	ResyncSpec              string           `json:"resync_spec"`
	CommentRateLimitSeconds int              `json:"comment_rate_limit_seconds"`
	CORSOrigins             []string         `json:"cors_origins"`
}

type BackendConfig struct {
	Type     string         `json:"type"`
	Drive    DriveConfig    `json:"drive"`
	Database DatabaseConfig `json:"database"`
}

type DriveConfig struct {
	APIBase          string `json:"api_base"`
	RootFolderName   string `json:"root_folder_name"`
	MetadataFileName string `json:"metadata_file_name"`
	MaxMembers       int    `json:"max_members"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type CacheConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type OAuthConfig struct {
	Google OAuthProviderConfig `json:"google"`
	Github OAuthProviderConfig `json:"github"`
}

type OAuthProviderConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

func (c OAuthProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type SessionConfig struct {
	TTLMinutes  int `json:"ttl_minutes"`
	MaxSessions int `json:"max_sessions"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"JUSTNOTES_JWT_SECRET", &cfg.JWTSecret},
		{"GOOGLE_CLIENT_ID", &cfg.OAuth.Google.ClientID},
		{"GOOGLE_CLIENT_SECRET", &cfg.OAuth.Google.ClientSecret},
		{"GITHUB_CLIENT_ID", &cfg.OAuth.Github.ClientID},
		{"GITHUB_CLIENT_SECRET", &cfg.OAuth.Github.ClientSecret},
		{"DATABASE_DSN", &cfg.Backend.Database.DSN},
	}
	for _, item := range overrides {
		if v := strings.TrimSpace(os.Getenv(item.key)); v != "" {
			*item.dst = v
		}
	}
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Backend.Type == "" {
		cfg.Backend.Type = BackendDrive
	}
	switch cfg.Backend.Type {
	case BackendDrive:
		drive := &cfg.Backend.Drive
		if drive.RootFolderName == "" {
			drive.RootFolderName = "NotesData"
		}
		if drive.MetadataFileName == "" {
			drive.MetadataFileName = ".app_metadata.json"
		}
		if drive.MaxMembers == 0 {
			drive.MaxMembers = 2
		}
		if drive.MaxMembers < 1 {
			return fmt.Errorf("backend.drive.max_members must be positive")
		}
	case BackendPostgres:
		db := cfg.Backend.Database
		if db.DSN == "" && db.Host == "" {
			return fmt.Errorf("backend.database dsn or host is required for postgres backend")
		}
		if db.DSN == "" && db.Port == 0 {
			cfg.Backend.Database.Port = 5432
		}
	default:
		return fmt.Errorf("backend.type must be drive or postgres")
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "sqlite"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type == "local" && cfg.FileStore.Data == nil {
		cfg.FileStore.Data = map[string]interface{}{"dir": "data/exports"}
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = cfg.JWTTTLHours * 60
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = 1024
	}
	if cfg.CommentRateLimitSeconds == 0 {
		cfg.CommentRateLimitSeconds = 2
	}
	if !cfg.OAuth.Google.Enabled() && !cfg.OAuth.Github.Enabled() {
		return fmt.Errorf("at least one oauth provider must be configured")
	}
	return nil
}
