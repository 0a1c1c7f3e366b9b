package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/viewertech/RMAM-automation/internal/domain"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Oracle      OracleConfig      `mapstructure:"oracle"`
	Backup      BackupConfig      `mapstructure:"backup"`
	Replication ReplicationConfig `mapstructure:"replication"`
	DR          DRConfig          `mapstructure:"dr"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Schedules   SchedulesConfig   `mapstructure:"schedules"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	LockDir  string `mapstructure:"lock_dir"`
}

type OracleConfig struct {
	SID        string `mapstructure:"sid"`
	RMANBinary string `mapstructure:"rman_binary"`
	Target     string `mapstructure:"target"`
}

type BackupConfig struct {
	Directory        string        `mapstructure:"directory"`
	ControlFileName  string        `mapstructure:"control_file_name"`
	FullLevel        int           `mapstructure:"full_level"`
	IncrementalLevel int           `mapstructure:"incremental_level"`
	CompressAfter    time.Duration `mapstructure:"compress_after"`
	RetentionDays    int           `mapstructure:"retention_days"`
	StageTimeout     time.Duration `mapstructure:"stage_timeout"`
}

type ReplicationConfig struct {
	Type          string `mapstructure:"type"`
	RetryAttempts int    `mapstructure:"retry_attempts"`

	// rsync
	Destination string `mapstructure:"destination"`
	RsyncBinary string `mapstructure:"rsync_binary"`

	// local mirror
	MirrorPath string `mapstructure:"mirror_path"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type DRConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	KeyFile        string `mapstructure:"key_file"`
	KnownHosts     string `mapstructure:"known_hosts"`
	RestoreCommand string `mapstructure:"restore_command"`
}

type NotifyConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BotToken      string `mapstructure:"bot_token"`
	ChatID        string `mapstructure:"chat_id"`
	NotifySuccess bool   `mapstructure:"notify_success"`
}

// SchedulesConfig holds one cron spec per pipeline kind, used by
// daemon mode. An empty spec disables the kind.
type SchedulesConfig struct {
	Full        string `mapstructure:"full"`
	Incremental string `mapstructure:"incremental"`
	ArchiveLog  string `mapstructure:"archivelog"`
	DRTrigger   string `mapstructure:"dr_trigger"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "rmanpipe")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.lock_dir", "/var/run/rmanpipe")
	v.SetDefault("oracle.rman_binary", "rman")
	v.SetDefault("backup.control_file_name", "controlfile.ctl")
	v.SetDefault("backup.full_level", 0)
	v.SetDefault("backup.incremental_level", 1)
	v.SetDefault("backup.compress_after", "72h")
	v.SetDefault("backup.retention_days", 3)
	v.SetDefault("backup.stage_timeout", "2h")
	v.SetDefault("replication.type", "rsync")
	v.SetDefault("replication.rsync_binary", "rsync")
	v.SetDefault("replication.retry_attempts", 3)
	v.SetDefault("dr.port", 22)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Oracle.Target == "" {
		return fmt.Errorf("oracle.target is required")
	}
	if c.Backup.Directory == "" {
		return fmt.Errorf("backup.directory is required")
	}
	if c.Backup.RetentionDays <= 0 {
		return fmt.Errorf("backup.retention_days must be positive")
	}
	if c.Backup.StageTimeout <= 0 {
		return fmt.Errorf("backup.stage_timeout must be positive")
	}

	switch c.Replication.Type {
	case "rsync":
		if c.Replication.Destination == "" {
			return fmt.Errorf("replication.destination is required for rsync")
		}
	case "mirror":
		if c.Replication.MirrorPath == "" {
			return fmt.Errorf("replication.mirror_path is required for mirror")
		}
	case "s3":
		if c.Replication.Bucket == "" {
			return fmt.Errorf("replication.bucket is required for s3")
		}
	case "gdrive":
		if c.Replication.CredentialsFile == "" {
			return fmt.Errorf("replication.credentials_file is required for gdrive")
		}
	case "":
		return fmt.Errorf("replication.type is required")
	default:
		return fmt.Errorf("unsupported replication type: %s", c.Replication.Type)
	}

	if c.DR.RestoreCommand != "" {
		if c.DR.Host == "" {
			return fmt.Errorf("dr.host is required when dr.restore_command is set")
		}
		if c.DR.User == "" {
			return fmt.Errorf("dr.user is required when dr.restore_command is set")
		}
		if c.DR.KeyFile == "" {
			return fmt.Errorf("dr.key_file is required when dr.restore_command is set")
		}
	}

	return nil
}

// RemoteSite builds the DR endpoint descriptor from configuration.
func (c *Config) RemoteSite() domain.RemoteSite {
	return domain.RemoteSite{
		Host:    c.DR.Host,
		Port:    c.DR.Port,
		User:    c.DR.User,
		KeyFile: c.DR.KeyFile,
	}
}

// ScheduleFor returns the cron spec configured for a pipeline kind.
func (c *Config) ScheduleFor(kind domain.Kind) string {
	switch kind {
	case domain.KindFull:
		return c.Schedules.Full
	case domain.KindIncremental:
		return c.Schedules.Incremental
	case domain.KindArchiveLog:
		return c.Schedules.ArchiveLog
	case domain.KindDRTrigger:
		return c.Schedules.DRTrigger
	}
	return ""
}
