// Package config loads the server's runtime configuration: the CLI flags
// named in spec.md §6 bound into viper the way the teacher binds its own
// server/websocket/metrics/logging sections.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the server.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Replicaof ReplicaofConfig `mapstructure:"replicaof"`
}

// ServerConfig contains the listener and snapshot-location settings named in
// spec.md §6.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Dir        string `mapstructure:"dir"`
	DBFilename string `mapstructure:"dbfilename"`
	NumDBs     int    `mapstructure:"numdbs"`
}

// ReplicaofConfig names a master to replicate from; Host is empty when this
// process starts as a master.
type ReplicaofConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MetricsConfig controls the Prometheus side-channel HTTP mux, which serves
// only the metrics endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// LoggingConfig controls zap logger level/encoding.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load parses CLI flags and environment variables into a Config, following
// the teacher's viper-defaults-then-pflag-override pattern.
func Load(args []string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 6379)
	v.SetDefault("server.dir", ".")
	v.SetDefault("server.dbfilename", "dump.rdb")
	v.SetDefault("server.numdbs", 16)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9121")
	v.SetDefault("metrics.endpoint", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	fs := pflag.NewFlagSet("redix-server", pflag.ContinueOnError)
	fs.Int("port", 6379, "TCP port to listen on")
	replicaof := fs.String("replicaof", "", `"<host> <port>" of a master to replicate from`)
	fs.String("dir", ".", "directory containing an optional initial snapshot")
	fs.String("dbfilename", "dump.rdb", "snapshot filename within --dir")
	fs.String("log-level", "info", "zap log level")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	_ = v.BindPFlag("server.port", fs.Lookup("port"))
	_ = v.BindPFlag("server.dir", fs.Lookup("dir"))
	_ = v.BindPFlag("server.dbfilename", fs.Lookup("dbfilename"))
	_ = v.BindPFlag("logging.level", fs.Lookup("log-level"))

	v.SetEnvPrefix("REDIX")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config unmarshal: %w", err)
	}

	if *replicaof != "" {
		host, p, err := parseReplicaof(*replicaof)
		if err != nil {
			return Config{}, err
		}
		cfg.Replicaof = ReplicaofConfig{Host: host, Port: p}
	}

	return cfg, nil
}

// parseReplicaof parses the "<host> <port>" form spec.md §6 mandates for
// --replicaof.
func parseReplicaof(s string) (host string, port int, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf("--replicaof: expected \"<host> <port>\", got %q", s)
	}
	p, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("--replicaof: invalid port %q", fields[1])
	}
	return fields[0], p, nil
}

// IsReplica reports whether this config selects replica role (spec.md §6).
func (c Config) IsReplica() bool { return c.Replicaof.Host != "" }
