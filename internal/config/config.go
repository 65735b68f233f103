// Package config provides Viper-based configuration loading for the combat automation engine.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// AutomationConfig holds the per-table automation switches.
type AutomationConfig struct {
	UntrainedPenalty bool `mapstructure:"untrained_penalty"`
	RangeChecks      bool `mapstructure:"range_checks"`
	AbilityModifiers bool `mapstructure:"ability_modifiers"`
	FiringIntoMelee  bool `mapstructure:"firing_into_melee"`
	// LuckyWeapon is one of none, manual, standard, plus1, positive.
	LuckyWeapon     string `mapstructure:"lucky_weapon"`
	MonsterCritLuck bool   `mapstructure:"monster_crit_luck"`
	FumbleLuck      bool   `mapstructure:"fumble_luck"`
	DeedDie         bool   `mapstructure:"deed_die"`
	FriendlyFire    bool   `mapstructure:"friendly_fire"`
}

// Settings converts the switches into the engine's plain settings value.
// The grid is left zero; the resolver substitutes combat.DefaultGrid.
func (a AutomationConfig) Settings() combat.Settings {
	return combat.Settings{
		UntrainedPenalty: a.UntrainedPenalty,
		RangeChecks:      a.RangeChecks,
		AbilityModifiers: a.AbilityModifiers,
		FiringIntoMelee:  a.FiringIntoMelee,
		LuckyWeapon:      combat.LuckyWeaponMode(a.LuckyWeapon),
		MonsterCritLuck:  a.MonsterCritLuck,
		FumbleLuck:       a.FumbleLuck,
		DeedDie:          a.DeedDie,
		FriendlyFire:     a.FriendlyFire,
	}
}

// GridConfig describes the scene grid.
type GridConfig struct {
	// UnitSize is the size of one grid square in scene units.
	UnitSize float64 `mapstructure:"unit_size"`
	// UnitDistance is the world distance (feet) covered by one grid square.
	UnitDistance float64 `mapstructure:"unit_distance"`
}

// Grid returns the engine grid.
func (g GridConfig) Grid() combat.Grid {
	return combat.Grid{UnitSize: g.UnitSize, UnitDistance: g.UnitDistance}
}

// RulesetConfig points at ruleset content.
type RulesetConfig struct {
	// Dir is a ruleset directory; empty selects the built-in DCC defaults.
	Dir string `mapstructure:"dir"`
}

// DiceConfig selects the random source.
type DiceConfig struct {
	// Seed makes rolls reproducible when non-zero; zero uses crypto/rand.
	Seed int64 `mapstructure:"seed"`
}

// JournalConfig selects where resolved attacks are recorded.
type JournalConfig struct {
	// Backend is one of "memory", "postgres", "redis".
	Backend string `mapstructure:"backend"`
	// TTL bounds how long a key blocks re-resolution. The postgres backend keeps
	// entries until removed.
	TTL time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ScriptingConfig holds Lua situational-modifier settings.
type ScriptingConfig struct {
	// Dir holds *.lua files defining pre_attack hooks; empty disables scripting.
	Dir string `mapstructure:"dir"`
	// InstructionLimit caps VM instructions per hook call; 0 means unlimited.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Automation AutomationConfig `mapstructure:"automation"`
	Grid       GridConfig       `mapstructure:"grid"`
	Ruleset    RulesetConfig    `mapstructure:"ruleset"`
	Dice       DiceConfig       `mapstructure:"dice"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
}

// EngineSettings returns the automation settings with the configured grid.
func (c Config) EngineSettings() combat.Settings {
	s := c.Automation.Settings()
	s.Grid = c.Grid.Grid()
	return s
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAutomation(c.Automation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGrid(c.Grid); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateJournal(c.Journal); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Journal.Backend {
	case "postgres":
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	case "redis":
		if err := validateRedis(c.Redis); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateAutomation(a AutomationConfig) error {
	if !combat.LuckyWeaponMode(a.LuckyWeapon).Valid() {
		return fmt.Errorf("automation.lucky_weapon must be one of [none, manual, standard, plus1, positive], got %q", a.LuckyWeapon)
	}
	return nil
}

func validateGrid(g GridConfig) error {
	var errs []string
	if g.UnitSize <= 0 {
		errs = append(errs, fmt.Sprintf("grid.unit_size must be > 0, got %v", g.UnitSize))
	}
	if g.UnitDistance <= 0 {
		errs = append(errs, fmt.Sprintf("grid.unit_distance must be > 0, got %v", g.UnitDistance))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateJournal(j JournalConfig) error {
	validBackends := map[string]bool{"memory": true, "postgres": true, "redis": true}
	if !validBackends[j.Backend] {
		return fmt.Errorf("journal.backend must be one of [memory, postgres, redis], got %q", j.Backend)
	}
	if j.TTL < 0 {
		return errors.New("journal.ttl must not be negative")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty")
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with DCCQOL_ prefix
	v.SetEnvPrefix("DCCQOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("automation.untrained_penalty", true)
	v.SetDefault("automation.range_checks", true)
	v.SetDefault("automation.ability_modifiers", true)
	v.SetDefault("automation.firing_into_melee", true)
	v.SetDefault("automation.lucky_weapon", "standard")
	v.SetDefault("automation.monster_crit_luck", true)
	v.SetDefault("automation.fumble_luck", true)
	v.SetDefault("automation.deed_die", true)
	v.SetDefault("automation.friendly_fire", true)

	v.SetDefault("grid.unit_size", 100)
	v.SetDefault("grid.unit_distance", 5)

	v.SetDefault("ruleset.dir", "")
	v.SetDefault("dice.seed", 0)

	v.SetDefault("journal.backend", "memory")
	v.SetDefault("journal.ttl", "24h")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dccqol")
	v.SetDefault("database.password", "dccqol")
	v.SetDefault("database.name", "dccqol")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "dccqol:")

	v.SetDefault("scripting.dir", "")
	v.SetDefault("scripting.instruction_limit", 100000)
}
