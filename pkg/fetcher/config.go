package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// YtDlpConfig contains primary-provider configuration
type YtDlpConfig struct {
	AudioFormat string `yaml:"audio_format" toml:"audio_format" env:"FETCHER_YTDLP_FORMAT"`
	CookiesFile string `yaml:"cookies_file" toml:"cookies_file" env:"FETCHER_YTDLP_COOKIES"`
}

// CobaltConfig contains accelerator API configuration. HostAlias replaces
// loopback hosts when the bot runs containerized and the accelerator lives
// on the host machine.
type CobaltConfig struct {
	APIURL         string `yaml:"api_url" toml:"api_url" env:"COBALT_API_URL"`
	APIKey         string `yaml:"api_key" toml:"api_key" env:"COBALT_API_KEY"`
	HostAlias      string `yaml:"host_alias" toml:"host_alias" env:"COBALT_HOST_ALIAS"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" env:"COBALT_TIMEOUT"`
	AudioBitrate   string `yaml:"audio_bitrate" toml:"audio_bitrate" env:"COBALT_AUDIO_BITRATE"`
}

// DownloadConfig contains scratch-directory and buffering configuration
type DownloadConfig struct {
	Directory string `yaml:"directory" toml:"directory" env:"DOWNLOAD_DIR"`
	MaxBuffer int    `yaml:"max_buffer" toml:"max_buffer" env:"MAX_BUFFER"`
}

// FetcherConfig represents the complete configuration structure for YAML/TOML files
type FetcherConfig struct {
	YtDlp    YtDlpConfig    `yaml:"ytdlp" toml:"ytdlp"`
	Cobalt   CobaltConfig   `yaml:"cobalt" toml:"cobalt"`
	Download DownloadConfig `yaml:"download" toml:"download"`
}

// ConfigManager implements the ConfigProvider interface
type ConfigManager struct {
	ytdlp    *YtDlpConfig
	cobalt   *CobaltConfig
	download *DownloadConfig
}

// NewConfigManager loads fetcher configuration in order of preference:
// YAML file (config/fetcher.yaml), TOML file (config/fetcher.toml),
// environment variables (.env file), then built-in defaults.
func NewConfigManager() (ConfigProvider, error) {
	manager := &ConfigManager{}

	config := &FetcherConfig{}

	if err := manager.loadYAMLConfig(config); err != nil {
		if err := manager.loadTOMLConfig(config); err != nil {
			if err := manager.loadEnvConfig(config); err != nil {
				manager.setDefaults(config)
			}
		}
	}

	manager.ytdlp = &config.YtDlp
	manager.cobalt = &config.Cobalt
	manager.download = &config.Download

	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return manager, nil
}

func (cm *ConfigManager) loadYAMLConfig(config *FetcherConfig) error {
	yamlPath := filepath.Join("config", "fetcher.yaml")
	if _, err := os.Stat(yamlPath); os.IsNotExist(err) {
		return fmt.Errorf("YAML config file not found: %s", yamlPath)
	}

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return fmt.Errorf("failed to read YAML config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	cm.fillMissing(config)
	return nil
}

func (cm *ConfigManager) loadTOMLConfig(config *FetcherConfig) error {
	tomlPath := filepath.Join("config", "fetcher.toml")
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		return fmt.Errorf("TOML config file not found: %s", tomlPath)
	}

	if _, err := toml.DecodeFile(tomlPath, config); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cm.fillMissing(config)
	return nil
}

func (cm *ConfigManager) loadEnvConfig(config *FetcherConfig) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	config.YtDlp = YtDlpConfig{
		AudioFormat: getEnvString("FETCHER_YTDLP_FORMAT", "mp3"),
		CookiesFile: getEnvString("FETCHER_YTDLP_COOKIES", ""),
	}

	config.Cobalt = CobaltConfig{
		APIURL:         getEnvString("COBALT_API_URL", ""),
		APIKey:         getEnvString("COBALT_API_KEY", ""),
		HostAlias:      getEnvString("COBALT_HOST_ALIAS", "host.docker.internal"),
		TimeoutSeconds: getEnvInt("COBALT_TIMEOUT", 30),
		AudioBitrate:   getEnvString("COBALT_AUDIO_BITRATE", "320"),
	}

	config.Download = DownloadConfig{
		Directory: getEnvString("DOWNLOAD_DIR", "downloads"),
		MaxBuffer: getEnvInt("MAX_BUFFER", 10),
	}

	return nil
}

// fillMissing backfills zero-valued fields from environment or defaults so a
// partial config file still yields a usable configuration.
func (cm *ConfigManager) fillMissing(config *FetcherConfig) {
	if config.YtDlp.AudioFormat == "" {
		config.YtDlp.AudioFormat = getEnvString("FETCHER_YTDLP_FORMAT", "mp3")
	}
	if config.Cobalt.APIURL == "" {
		config.Cobalt.APIURL = os.Getenv("COBALT_API_URL")
	}
	if config.Cobalt.APIKey == "" {
		config.Cobalt.APIKey = os.Getenv("COBALT_API_KEY")
	}
	if config.Cobalt.HostAlias == "" {
		config.Cobalt.HostAlias = getEnvString("COBALT_HOST_ALIAS", "host.docker.internal")
	}
	if config.Cobalt.TimeoutSeconds == 0 {
		config.Cobalt.TimeoutSeconds = getEnvInt("COBALT_TIMEOUT", 30)
	}
	if config.Cobalt.AudioBitrate == "" {
		config.Cobalt.AudioBitrate = getEnvString("COBALT_AUDIO_BITRATE", "320")
	}
	if config.Download.Directory == "" {
		config.Download.Directory = getEnvString("DOWNLOAD_DIR", "downloads")
	}
	if config.Download.MaxBuffer == 0 {
		config.Download.MaxBuffer = getEnvInt("MAX_BUFFER", 10)
	}
}

func (cm *ConfigManager) setDefaults(config *FetcherConfig) {
	config.YtDlp = YtDlpConfig{
		AudioFormat: "mp3",
	}

	config.Cobalt = CobaltConfig{
		HostAlias:      "host.docker.internal",
		TimeoutSeconds: 30,
		AudioBitrate:   "320",
	}

	config.Download = DownloadConfig{
		Directory: "downloads",
		MaxBuffer: 10,
	}
}

// GetYtDlpConfig returns the primary-provider configuration
func (cm *ConfigManager) GetYtDlpConfig() *YtDlpConfig {
	return cm.ytdlp
}

// GetCobaltConfig returns the accelerator configuration
func (cm *ConfigManager) GetCobaltConfig() *CobaltConfig {
	return cm.cobalt
}

// GetDownloadConfig returns the scratch-directory configuration
func (cm *ConfigManager) GetDownloadConfig() *DownloadConfig {
	return cm.download
}

// Validate validates the configuration values
func (cm *ConfigManager) Validate() error {
	if cm.ytdlp.AudioFormat == "" {
		return fmt.Errorf("ytdlp audio_format cannot be empty")
	}
	if cm.cobalt.TimeoutSeconds <= 0 {
		return fmt.Errorf("cobalt timeout_seconds must be positive, got %d", cm.cobalt.TimeoutSeconds)
	}
	if cm.cobalt.APIURL != "" && !strings.HasPrefix(cm.cobalt.APIURL, "http") {
		return fmt.Errorf("cobalt api_url must be an http(s) URL, got %s", cm.cobalt.APIURL)
	}
	if cm.download.Directory == "" {
		return fmt.Errorf("download directory cannot be empty")
	}
	if cm.download.MaxBuffer <= 0 {
		return fmt.Errorf("download max_buffer must be positive, got %d", cm.download.MaxBuffer)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
