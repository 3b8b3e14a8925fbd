package config

// Package config provides a reusable loader for honeygraph configuration
// files and environment variables. It is versioned so that applications
// can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/disregardfiat/honeygraph/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a honeygraph process.
// Load fills it from optional YAML files under cmd/config or config;
// the repository ships no such files.
type Config struct {
	Graph struct {
		Endpoint string `mapstructure:"endpoint" json:"endpoint"`
		DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
		SchemaPath string `mapstructure:"schema_path" json:"schema_path"`
	} `mapstructure:"graph" json:"graph"`

	Queue struct {
		Endpoint string `mapstructure:"endpoint" json:"endpoint"`
		BlockJobConc int `mapstructure:"block_job_concurrency" json:"block_job_concurrency"`
		OperationJobConc int `mapstructure:"operation_job_concurrency" json:"operation_job_concurrency"`
		RetryAttempts int `mapstructure:"retry_attempts" json:"retry_attempts"`
		CompletedCap int `mapstructure:"completed_cap" json:"completed_cap"`
		FailedCap int `mapstructure:"failed_cap" json:"failed_cap"`
	} `mapstructure:"queue" json:"queue"`

	Snapshot struct {
		PoolPrefix string `mapstructure:"pool_prefix" json:"pool_prefix"`
		Dataset string `mapstructure:"dataset" json:"dataset"`
		MaxSnapshots int `mapstructure:"max_snapshots" json:"max_snapshots"`
		AutoSnapshotInterval uint64 `mapstructure:"auto_snapshot_interval_blocks" json:"auto_snapshot_interval_blocks"`
		Enabled bool `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"snapshot" json:"snapshot"`

	Fork struct {
		RetentionBlocks uint64 `mapstructure:"retention_blocks" json:"retention_blocks"`
		GossipEnabled bool `mapstructure:"gossip_enabled" json:"gossip_enabled"`
	} `mapstructure:"fork" json:"fork"`

	Network struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"network" json:"network"`

	Ingest struct {
		AuthMode string `mapstructure:"auth_mode" json:"auth_mode"` // "required" | "accepted"
		AcceptedAccounts []string `mapstructure:"accepted_accounts" json:"accepted_accounts"`
		TimestampWindow time.Duration `mapstructure:"timestamp_window" json:"timestamp_window"`
		HMACSecret string `mapstructure:"hmac_secret" json:"-"` // stand-in for the chain's native signature scheme, see internal/auth
		RESTAddr string `mapstructure:"rest_addr" json:"rest_addr"`
		WSAddr string `mapstructure:"ws_addr" json:"ws_addr"`
	} `mapstructure:"ingest" json:"ingest"`

	Dedup struct {
		ProcessedOpWindow time.Duration `mapstructure:"processed_op_window" json:"processed_op_window"`
	} `mapstructure:"dedup" json:"dedup"`

	Registry struct {
		DataPath string `mapstructure:"data_path" json:"data_path"`
	} `mapstructure:"registry" json:"registry"`

	Storage struct {
		BaseDataPath string `mapstructure:"base_data_path" json:"base_data_path"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Metrics struct {
		Addr string `mapstructure:"addr" json:"addr"`
		Enabled bool `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"metrics" json:"metrics"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Default populates AppConfig with the process defaults (30s I/O
// deadline, 4/16 job concurrency, 3 retry attempts, 100/1000
// completed/failed caps, 2h dedup window, 1000-block fork retention,
// 100 max snapshots, 5m auth timestamp window).
func Default() Config {
	var c Config
	c.Graph.Endpoint = "http://127.0.0.1:8080"
	c.Graph.DialTimeout = 30 * time.Second
	c.Queue.BlockJobConc = 4
	c.Queue.OperationJobConc = 16
	c.Queue.RetryAttempts = 3
	c.Queue.CompletedCap = 100
	c.Queue.FailedCap = 1000
	c.Snapshot.MaxSnapshots = 100
	c.Fork.RetentionBlocks = 1000
	c.Network.ListenAddr = "/ip4/0.0.0.0/tcp/4001"
	c.Ingest.AuthMode = "required"
	c.Ingest.TimestampWindow = 5 * time.Minute
	c.Ingest.RESTAddr = ":8500"
	c.Ingest.WSAddr = ":8501"
	c.Dedup.ProcessedOpWindow = 2 * time.Hour
	c.Registry.DataPath = "data/registry.json"
	c.Storage.BaseDataPath = "data"
	c.Logging.Level = "info"
	c.Metrics.Addr = ":9500"
	c.Metrics.Enabled = true
	return c
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	AppConfig = Default()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
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

	viper.AutomaticEnv() // picks up overrides already loaded into the process environment

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the HONEYGRAPH_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("HONEYGRAPH_ENV", ""))
}
