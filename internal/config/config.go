package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Guild      GuildConfig      `mapstructure:"guild"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Rotation   RotationConfig   `mapstructure:"rotation"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// community identifiers and permission wiring
type GuildConfig struct {
	ID              string `mapstructure:"id"`
	LogChannelID    string `mapstructure:"log_channel_id"`
	LogForumID      string `mapstructure:"log_forum_id"`
	LogPostID       string `mapstructure:"log_post_id"`
	PollForumID     string `mapstructure:"poll_forum_id"`
	FeaturedTagName string `mapstructure:"featured_tag_name"`

	// RoleChannelPermissions maps a role ID to the forum channels its holders
	// may moderate.
	RoleChannelPermissions map[string][]string `mapstructure:"role_channel_permissions"`

	// AllowedChannels is the allow-list of forums whose threads are moderated.
	AllowedChannels []string `mapstructure:"allowed_channels"`

	// FeaturedForums lists the forums eligible for featured-post rotation.
	FeaturedForums []string `mapstructure:"featured_forums"`
}

// event ingress server configuration
type GatewayConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	EventPath   string `mapstructure:"event_path"`
	DebugPath   string `mapstructure:"debug_path"`
	SecretToken string `mapstructure:"secret_token"`
	CertFile    string `mapstructure:"cert_file"`
	KeyFile     string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// on-disk collection files
type StorageConfig struct {
	DataDir           string `mapstructure:"data_dir"`
	BannedUsersFile   string `mapstructure:"banned_users_file"`
	PermissionsFile   string `mapstructure:"permissions_file"`
	PostStatsFile     string `mapstructure:"post_stats_file"`
	FeaturedPostsFile string `mapstructure:"featured_posts_file"`
}

// moderation behavior settings
type ModerationConfig struct {
	BanCacheTTL time.Duration `mapstructure:"ban_cache_ttl"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// featured-post rotation seeds; the controller adjusts both at runtime
type RotationConfig struct {
	MessageCountThreshold int           `mapstructure:"message_count_threshold"`
	Interval              time.Duration `mapstructure:"interval"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.listen_addr", "0.0.0.0:8443")
	v.SetDefault("gateway.event_path", "/events")
	v.SetDefault("gateway.debug_path", "/debug")
	v.SetDefault("gateway.cert_file", "")
	v.SetDefault("gateway.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.banned_users_file", "banned_users.json")
	v.SetDefault("storage.permissions_file", "thread_permissions.json")
	v.SetDefault("storage.post_stats_file", "post_stats.json")
	v.SetDefault("storage.featured_posts_file", "featured_posts.json")

	v.SetDefault("moderation.ban_cache_ttl", 5*time.Minute)
	v.SetDefault("moderation.lock_timeout", 5*time.Second)

	v.SetDefault("rotation.message_count_threshold", 200)
	v.SetDefault("rotation.interval", 24*time.Hour)

	v.SetDefault("guild.featured_tag_name", "精華")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.charset", "utf8mb4")
}
