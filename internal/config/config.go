// Package config resolves dotverify settings from the environment and flags.
package config

import (
	"flag"
	"time"

	"github.com/MJE43/dot-verify-go/internal/report"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

// Config holds dotverify command configuration.
type Config struct {
	Scenario      string        `env:"DOTVERIFY_SCENARIO"       envDefault:"prebuff"`
	Check         string        `env:"DOTVERIFY_CHECK"          envDefault:"all"`
	Samples       string        `env:"DOTVERIFY_SAMPLES"`
	ScenarioFile  string        `env:"DOTVERIFY_SCENARIO_FILE"`
	DBPath        string        `env:"DOTVERIFY_DB_PATH"`
	Format        string        `env:"DOTVERIFY_FORMAT"         envDefault:"text"`
	Addr          string        `env:"DOTVERIFY_ADDR"           envDefault:"localhost:8080"`
	ScriptTimeout time.Duration `env:"DOTVERIFY_SCRIPT_TIMEOUT" envDefault:"1s"`
	Verbose       bool          `env:"DOTVERIFY_VERBOSE"`
	Serve         bool
}

// ParseConfigFromArgs reads environment defaults, then lets flags override them.
func ParseConfigFromArgs(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "scenario id to verify")
	fs.StringVar(&cfg.Check, "check", cfg.Check, "check to run: range, holes or all")
	fs.StringVar(&cfg.Samples, "samples", cfg.Samples, "path to observed tick values (overrides the scenario's)")
	fs.StringVar(&cfg.ScenarioFile, "config", cfg.ScenarioFile, "YAML file with extra scenarios")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path for run history (empty disables)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "report format: text or json")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for -serve")
	fs.DurationVar(&cfg.ScriptTimeout, "script-timeout", cfg.ScriptTimeout, "per-call timeout for scripted buffs")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log verification progress to stderr")
	fs.BoolVar(&cfg.Serve, "serve", cfg.Serve, "serve the HTTP API instead of running once")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would fail before any check runs.
func (c Config) Validate() error {
	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.Serve {
		return nil
	}
	if _, err := verify.ParseCheck(c.Check); err != nil {
		return err
	}
	return nil
}
