package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// Duration accepts either a Go duration string such as "15m" or an integer
// number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// fileConfig is the JSON shape of the config file. Absent keys leave the
// current value untouched.
type fileConfig struct {
	Addr          *string   `json:"addr"`
	DatabaseDSN   *string   `json:"database_dsn"`
	Secret        *string   `json:"secret"`
	BasePath      *string   `json:"base_path"`
	TokenTTL      *Duration `json:"token_ttl"`
	ResetTTL      *Duration `json:"reset_ttl"`
	RefreshGrace  *Duration `json:"refresh_grace"`
	PurgeInterval *Duration `json:"purge_interval"`
	LogLevel      *string   `json:"log_level"`
	SeedDemo      *bool     `json:"seed_demo"`
	Migrate       *bool     `json:"migrate"`
}

// jsonConfigPath extracts the -c / -config value from args, ignoring every
// other flag.
func jsonConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(filterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}

// parseJSON overlays values from the config file named on the command line.
// Without -c nothing is loaded.
func parseJSON(cfg *Config, args []string) error {
	path := jsonConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Addr, fc.Addr)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.Secret, fc.Secret)
	setString(&cfg.BasePath, fc.BasePath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setDuration(&cfg.TokenTTL, fc.TokenTTL)
	setDuration(&cfg.ResetTTL, fc.ResetTTL)
	setDuration(&cfg.RefreshGrace, fc.RefreshGrace)
	setDuration(&cfg.PurgeInterval, fc.PurgeInterval)
	if fc.SeedDemo != nil {
		cfg.SeedDemo = *fc.SeedDemo
	}
	if fc.Migrate != nil {
		cfg.Migrate = *fc.Migrate
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
