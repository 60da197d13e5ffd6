package config

import (
	"flag"
	"io"
	"strings"
)

// parseFlags overrides Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-d string     PostgreSQL DSN, empty for in-memory storage
//	-s string     token signing secret
//	-b string     auth route base path
//	-t duration   session token lifetime
//	-r duration   reset ticket lifetime
//	-g duration   refresh grace after expiry
//	-p duration   expired ticket purge interval
//	-l string     log level (debug, info, warn, error)
//	-seed         register the demo accounts
//	-migrate      apply migrations at startup
//	-c string     JSON config file, consumed by parseJSON
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("medauth-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.Secret, "s", cfg.Secret, "token signing secret")
	fs.StringVar(&cfg.BasePath, "b", cfg.BasePath, "auth route base path")
	fs.DurationVar(&cfg.TokenTTL, "t", cfg.TokenTTL, "session token lifetime")
	fs.DurationVar(&cfg.ResetTTL, "r", cfg.ResetTTL, "reset ticket lifetime")
	fs.DurationVar(&cfg.RefreshGrace, "g", cfg.RefreshGrace, "refresh grace after expiry")
	fs.DurationVar(&cfg.PurgeInterval, "p", cfg.PurgeInterval, "expired ticket purge interval")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.SeedDemo, "seed", cfg.SeedDemo, "register the demo accounts")
	fs.BoolVar(&cfg.Migrate, "migrate", cfg.Migrate, "apply migrations at startup")

	var ignored string
	fs.StringVar(&ignored, "c", "", "JSON config file")
	fs.StringVar(&ignored, "config", "", "JSON config file")

	return fs.Parse(args)
}

// filterArgs keeps only the allowed flags and their values. Both "-f value"
// and "-f=value" forms are recognized.
func filterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}
