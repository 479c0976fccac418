// Package config loads the server's key=value configuration file and
// layers environment variable overrides on top.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port          int
	LogLevel      string
	WorkerThreads int
	AdminPort     int
	EventsRedisAddr string
}

var validLogLevels = map[string]bool{
	"DEBUG":   true,
	"INFO":    true,
	"WARNING": true,
	"ERROR":   true,
	"NOLOG":   true,
}

// Load reads path as a line-oriented PORT=/LOG_LEVEL=/WORKER_THREADS= file,
// then overlays CANSRV_* environment variables via viper. Port is the only
// mandatory key; the rest fall back to defaults matching original_source's
// own behavior (LOG_LEVEL defaults to ERROR, WORKER_THREADS defaults to 1).
func Load(path string) (*Config, error) {
	cfg := &Config{
		LogLevel:      "ERROR",
		WorkerThreads: 1,
		AdminPort:     0,
	}

	var portSeen bool

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "PORT="):
			portStr := strings.TrimSpace(line[len("PORT="):])
			p, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid port number in configuration file: %w", err)
			}
			cfg.Port = p
			portSeen = true
		case strings.HasPrefix(line, "LOG_LEVEL="):
			lvl := strings.TrimSpace(line[len("LOG_LEVEL="):])
			if !validLogLevels[lvl] {
				lvl = "ERROR"
			}
			cfg.LogLevel = lvl
		case strings.HasPrefix(line, "WORKER_THREADS="):
			wtStr := strings.TrimSpace(line[len("WORKER_THREADS="):])
			if wt, err := strconv.Atoi(wtStr); err == nil && wt >= 1 {
				cfg.WorkerThreads = wt
			}
		case strings.HasPrefix(line, "ADMIN_PORT="):
			apStr := strings.TrimSpace(line[len("ADMIN_PORT="):])
			if ap, err := strconv.Atoi(apStr); err == nil && ap >= 0 {
				cfg.AdminPort = ap
			}
		case strings.HasPrefix(line, "EVENTS_REDIS_ADDR="):
			cfg.EventsRedisAddr = strings.TrimSpace(line[len("EVENTS_REDIS_ADDR="):])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	if !portSeen {
		return nil, fmt.Errorf("port number not found in configuration file")
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides layers CANSRV_PORT / CANSRV_LOG_LEVEL / CANSRV_WORKER_THREADS
// / CANSRV_ADMIN_PORT / CANSRV_EVENTS_REDIS_ADDR on top of the file-parsed values.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("CANSRV")
	v.AutomaticEnv()

	if v.IsSet("PORT") {
		cfg.Port = v.GetInt("PORT")
	}
	if v.IsSet("LOG_LEVEL") {
		lvl := v.GetString("LOG_LEVEL")
		if validLogLevels[lvl] {
			cfg.LogLevel = lvl
		}
	}
	if v.IsSet("WORKER_THREADS") {
		if wt := v.GetInt("WORKER_THREADS"); wt >= 1 {
			cfg.WorkerThreads = wt
		}
	}
	if v.IsSet("ADMIN_PORT") {
		cfg.AdminPort = v.GetInt("ADMIN_PORT")
	}
	if v.IsSet("EVENTS_REDIS_ADDR") {
		cfg.EventsRedisAddr = v.GetString("EVENTS_REDIS_ADDR")
	}
}
