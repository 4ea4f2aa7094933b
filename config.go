package drvault

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/troian/toml"
)

const minBackupIntervalHours = 1.0

var (
	DefaultCfgPath    string
	defaultLogPath    string
	defaultBackupPath string
)

type Config struct {
	PidFile  string   `toml:"pid" comment:"path to pid file"`
	LogFile  string   `toml:"log" comment:"path to the operation log file"`
	LogLevel LogLevel `toml:"log_level" comment:"\"debug\", \"info\" or \"error\""`

	BackupPath string `toml:"backup_path" comment:"root folder where driver packages are stored"`

	Interval float64 `toml:"interval" comment:"hours between scheduled full backups in service mode"`

	CreateRestorePoint bool `toml:"create_restore_point" comment:"create a system restore point before restoring drivers"`
	RequireAdmin       bool `toml:"require_admin" comment:"refuse driver-mutating operations without administrator rights"`

	PnputilPath    string `toml:"pnputil_path" comment:"override path to pnputil.exe"`
	PowerShellPath string `toml:"powershell_path" comment:"override path to powershell.exe"`
}

func NewConfig() *Config {
	return &Config{
		LogFile:            defaultLogPath,
		LogLevel:           LogLevelInfo,
		BackupPath:         defaultBackupPath,
		Interval:           24,
		CreateRestorePoint: true,
		RequireAdmin:       true,
	}
}

func (cfg *Config) Validate() error {
	if !cfg.LogLevel.IsValid() {
		return fmt.Errorf("invalid log_level: \"%s\"", cfg.LogLevel)
	}

	if cfg.BackupPath == "" {
		return fmt.Errorf("backup_path is not set")
	}

	if cfg.Interval < minBackupIntervalHours {
		return fmt.Errorf("interval must be at least %.0f hour(s)", minBackupIntervalHours)
	}

	return nil
}

func (cfg *Config) BackupInterval() time.Duration {
	return time.Duration(float64(time.Hour) * cfg.Interval)
}

func (cfg *Config) DumpToml() string {
	buff := &bytes.Buffer{}

	err := toml.NewEncoder(buff).Encode(cfg)
	if err != nil {
		log.WithError(err).Error("Failed to encode config to TOML")
		return ""
	}

	return buff.String()
}

func TryUpdateConfigFromFile(cfg *Config, configFilePath string) error {
	_, err := os.Stat(configFilePath)
	if err != nil {
		return err
	}

	_, err = toml.DecodeFile(configFilePath, cfg)
	return err
}

func GenerateDefaultConfigFile(cfg *Config, configFilePath string) error {
	var err error

	if _, err = os.Stat(configFilePath); os.IsExist(err) {
		return fmt.Errorf("config file already exists at path: %s", configFilePath)
	}

	configPathDir := filepath.Dir(configFilePath)
	if _, err := os.Stat(configPathDir); os.IsNotExist(err) {
		err := os.MkdirAll(configPathDir, 0755)
		if err != nil {
			return errors.Wrapf(err, "failed to create the config file directory '%s'", configPathDir)
		}
	}

	f, err := os.OpenFile(configFilePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to create the default config file '%s'", configFilePath)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// HandleAllConfigSetup prepares the config for the application run: reads
// the file when it exists, generates a default one otherwise.
func HandleAllConfigSetup(configFilePath string) (*Config, error) {
	cfg := NewConfig()

	err := TryUpdateConfigFromFile(cfg, configFilePath)
	if os.IsNotExist(err) {
		err = GenerateDefaultConfigFile(cfg, configFilePath)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
