// Package config provides a reusable loader for section-routing node
// configuration files and environment variables, layering a YAML file,
// an optional environment-specific override file, and environment
// variables on top of built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"sectionrouting/pkg/utils"
)

// Config is the unified configuration for a section-routing node.
type Config struct {
	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
	} `mapstructure:"network" json:"network"`

	Section struct {
		ElderSize       int `mapstructure:"elder_size" json:"elder_size"`
		SafeSectionSize int `mapstructure:"safe_section_size" json:"safe_section_size"`
	} `mapstructure:"section" json:"section"`

	Timeouts struct {
		Bootstrap time.Duration `mapstructure:"bootstrap" json:"bootstrap"`
		Join      time.Duration `mapstructure:"join" json:"join"`
	} `mapstructure:"timeouts" json:"timeouts"`

	Filter struct {
		IncomingTTL time.Duration `mapstructure:"incoming_ttl" json:"incoming_ttl"`
		OutgoingTTL time.Duration `mapstructure:"outgoing_ttl" json:"outgoing_ttl"`
	} `mapstructure:"filter" json:"filter"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Default returns the built-in defaults used when no config file section
// overrides a field; Load seeds viper with these before reading files so
// a partial config.yaml still produces a usable Config.
func Default() Config {
	var c Config
	c.Network.ListenAddr = "/ip4/0.0.0.0/tcp/0"
	c.Network.DiscoveryTag = "sectionrouting"
	c.Section.ElderSize = 7
	c.Section.SafeSectionSize = 8
	c.Timeouts.Bootstrap = 20 * time.Second
	c.Timeouts.Join = 60 * time.Second
	c.Filter.IncomingTTL = 20 * time.Minute
	c.Filter.OutgoingTTL = 10 * time.Minute
	c.Logging.Level = "info"
	return c
}

// Load reads config/default.yaml and merges any environment-specific
// override file named by env (config/<env>.yaml), then layers in
// environment variables via viper.AutomaticEnv. The resulting
// configuration is stored in AppConfig and returned.
func Load(env string) (*Config, error) {
	def := Default()
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	viper.SetDefault("network.listen_addr", def.Network.ListenAddr)
	viper.SetDefault("network.discovery_tag", def.Network.DiscoveryTag)
	viper.SetDefault("section.elder_size", def.Section.ElderSize)
	viper.SetDefault("section.safe_section_size", def.Section.SafeSectionSize)
	viper.SetDefault("timeouts.bootstrap", def.Timeouts.Bootstrap)
	viper.SetDefault("timeouts.join", def.Timeouts.Join)
	viper.SetDefault("filter.incoming_ttl", def.Filter.IncomingTTL)
	viper.SetDefault("filter.outgoing_ttl", def.Filter.OutgoingTTL)
	viper.SetDefault("logging.level", def.Logging.Level)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SECTROUTE_ENV environment
// variable to select the override file, falling back to defaults alone
// when it is unset.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SECTROUTE_ENV", ""))
}
