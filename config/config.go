// Package config loads luckydraw settings from file, environment and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/lixenwraith/luckydraw/audio"
	"github.com/lixenwraith/luckydraw/charge"
	"github.com/lixenwraith/luckydraw/constants"
	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/reveal"
	"github.com/lixenwraith/luckydraw/server"
)

const (
	fileName  = "luckydraw"
	envPrefix = "LUCKYDRAW"
)

// Store drivers
const (
	StoreNone     = "none"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the full application configuration
type Config struct {
	Draw         DrawConfig         `mapstructure:"draw"`
	Timing       TimingConfig       `mapstructure:"timing"`
	Audio        AudioConfig        `mapstructure:"audio"`
	Server       ServerConfig       `mapstructure:"server"`
	Store        StoreConfig        `mapstructure:"store"`
	Log          LogConfig          `mapstructure:"log"`
	Presentation PresentationConfig `mapstructure:"presentation"`

	// Source is the file that was read, empty when only defaults and env applied
	Source string `mapstructure:"-"`
}

// DrawConfig is the session loaded at startup
type DrawConfig struct {
	Tickets         string `mapstructure:"tickets"`
	TicketsFile     string `mapstructure:"tickets_file"` // One ticket per line; replaces Tickets when set
	NumPrizes       int    `mapstructure:"num_prizes"`
	WinnersPerPrize int    `mapstructure:"winners_per_prize"`
	Order           string `mapstructure:"order"`
	Seed            uint64 `mapstructure:"seed"` // Zero seeds from the OS
}

// TimingConfig holds reveal and charge pacing
type TimingConfig struct {
	Step           time.Duration `mapstructure:"step"`
	LockBase       time.Duration `mapstructure:"lock_base"`
	LockStagger    time.Duration `mapstructure:"lock_stagger"`
	SlowMo         time.Duration `mapstructure:"slow_mo"`
	FinalSlowMo    time.Duration `mapstructure:"final_slow_mo"`
	SlowMoFloor    time.Duration `mapstructure:"slow_mo_floor"`
	SlowMoSpan     time.Duration `mapstructure:"slow_mo_span"`
	NearMissLead   time.Duration `mapstructure:"near_miss_lead"`
	NearMissHold   time.Duration `mapstructure:"near_miss_hold"`
	Celebration    time.Duration `mapstructure:"celebration"`
	ChargeInterval time.Duration `mapstructure:"charge_interval"`
	ChargeStep     int           `mapstructure:"charge_step"`
	HoldTimeout    time.Duration `mapstructure:"hold_timeout"`
}

type AudioConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Master     float64 `mapstructure:"master"`
	SFX        float64 `mapstructure:"sfx"`
	Music      float64 `mapstructure:"music"`
	SampleRate int     `mapstructure:"sample_rate"`
}

type ServerConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Addr    string  `mapstructure:"addr"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

// StoreConfig selects where sessions are saved
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	Dir         string        `mapstructure:"dir"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	RedisTTL    time.Duration `mapstructure:"redis_ttl"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	Name        string        `mapstructure:"name"`
	Autosave    bool          `mapstructure:"autosave"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // Empty disables logging
}

type PresentationConfig struct {
	Title    string `mapstructure:"title"`
	Subtitle string `mapstructure:"subtitle"`
	Theme    string `mapstructure:"theme"`
}

// Options locate the inputs to Load
type Options struct {
	File    string // Explicit config file, skips the search path
	EnvFile string // Defaults to .env
}

// Load reads .env, then the config file, then LUCKYDRAW_* environment variables
// A missing config file or .env is not an error
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "luckydraw"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	if f := cfg.Draw.TicketsFile; f != "" && cfg.Source != "" && !filepath.IsAbs(f) {
		cfg.Draw.TicketsFile = filepath.Join(filepath.Dir(cfg.Source), f)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	rt := reveal.DefaultTiming()
	ct := charge.DefaultTiming()
	ac := audio.DefaultConfig()
	sc := server.DefaultConfig()

	v.SetDefault("draw.tickets", constants.DefaultTicketSpec)
	v.SetDefault("draw.tickets_file", "")
	v.SetDefault("draw.num_prizes", constants.DefaultNumPrizes)
	v.SetDefault("draw.winners_per_prize", constants.DefaultWinnersPerPrize)
	v.SetDefault("draw.order", constants.DefaultDrawOrder)
	v.SetDefault("draw.seed", 0)

	v.SetDefault("timing.step", rt.Step)
	v.SetDefault("timing.lock_base", rt.LockBase)
	v.SetDefault("timing.lock_stagger", rt.LockStagger)
	v.SetDefault("timing.slow_mo", rt.SlowMo)
	v.SetDefault("timing.final_slow_mo", rt.FinalSlowMo)
	v.SetDefault("timing.slow_mo_floor", rt.SlowMoFloor)
	v.SetDefault("timing.slow_mo_span", rt.SlowMoSpan)
	v.SetDefault("timing.near_miss_lead", rt.NearMissLead)
	v.SetDefault("timing.near_miss_hold", rt.NearMissHold)
	v.SetDefault("timing.celebration", rt.Celebration)
	v.SetDefault("timing.charge_interval", ct.Interval)
	v.SetDefault("timing.charge_step", ct.Step)
	v.SetDefault("timing.hold_timeout", constants.HoldTimeout)

	v.SetDefault("audio.enabled", ac.Enabled)
	v.SetDefault("audio.master", ac.Volumes.Master)
	v.SetDefault("audio.sfx", ac.Volumes.SFX)
	v.SetDefault("audio.music", ac.Volumes.Music)
	v.SetDefault("audio.sample_rate", ac.SampleRate)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.addr", sc.Addr)
	v.SetDefault("server.rate", sc.Rate)
	v.SetDefault("server.burst", sc.Burst)

	v.SetDefault("store.driver", StoreFile)
	v.SetDefault("store.dir", "sessions")
	v.SetDefault("store.redis_addr", "127.0.0.1:6379")
	v.SetDefault("store.redis_prefix", "luckydraw")
	v.SetDefault("store.redis_ttl", 30*24*time.Hour)
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.name", "lucky-draw-session")
	v.SetDefault("store.autosave", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("presentation.title", constants.DefaultTitle)
	v.SetDefault("presentation.subtitle", constants.DefaultSubtitle)
	v.SetDefault("presentation.theme", "dark")
}

// Validate rejects non-positive durations and counts and unknown enum values
func (c *Config) Validate() error {
	if _, err := c.EngineDrawConfig(); err != nil {
		return err
	}
	if err := c.RevealTiming().Validate(); err != nil {
		return err
	}
	if c.Timing.ChargeInterval <= 0 || c.Timing.ChargeStep <= 0 {
		return fmt.Errorf("timing charge_interval and charge_step must be positive")
	}
	if c.Timing.HoldTimeout <= 0 {
		return fmt.Errorf("timing hold_timeout must be positive")
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	for name, vol := range map[string]float64{"master": c.Audio.Master, "sfx": c.Audio.SFX, "music": c.Audio.Music} {
		if vol < 0 || vol > 1 {
			return fmt.Errorf("audio %s volume must be within 0..1, got %g", name, vol)
		}
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server addr is required when the server is enabled")
	}
	if c.Server.Rate < 0 || c.Server.Burst <= 0 {
		return fmt.Errorf("server rate cannot be negative and burst must be positive")
	}

	switch c.Store.Driver {
	case StoreNone:
	case StoreFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store dir is required for the file driver")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store redis_addr is required for the redis driver")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver != StoreNone && c.Store.Name == "" {
		return fmt.Errorf("store name is required")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// EngineDrawConfig converts the draw section
func (c *Config) EngineDrawConfig() (engine.DrawConfig, error) {
	order, err := prize.ParseOrder(c.Draw.Order)
	if err != nil {
		return engine.DrawConfig{}, &engine.ConfigError{Field: "order", Message: err.Error()}
	}
	dc := engine.DrawConfig{NumPrizes: c.Draw.NumPrizes, WinnersPerPrize: c.Draw.WinnersPerPrize, Order: order}
	return dc, dc.Validate()
}

func (c *Config) RevealTiming() reveal.Timing {
	t := c.Timing
	return reveal.Timing{
		Step:         t.Step,
		LockBase:     t.LockBase,
		LockStagger:  t.LockStagger,
		SlowMo:       t.SlowMo,
		FinalSlowMo:  t.FinalSlowMo,
		SlowMoFloor:  t.SlowMoFloor,
		SlowMoSpan:   t.SlowMoSpan,
		NearMissLead: t.NearMissLead,
		NearMissHold: t.NearMissHold,
		Celebration:  t.Celebration,
	}
}

// EngineTiming combines reveal and charge pacing
func (c *Config) EngineTiming() engine.Timing {
	return engine.Timing{
		Reveal: c.RevealTiming(),
		Charge: charge.Timing{
			Interval: c.Timing.ChargeInterval,
			Step:     c.Timing.ChargeStep,
			Full:     constants.ChargeFull,
		},
	}
}

func (c *Config) AudioConfig() audio.Config {
	return audio.Config{
		Enabled:    c.Audio.Enabled,
		SampleRate: c.Audio.SampleRate,
		Volumes:    audio.Volumes{Master: c.Audio.Master, SFX: c.Audio.SFX, Music: c.Audio.Music},
	}
}

func (c *Config) ServerConfig() server.Config {
	return server.Config{Addr: c.Server.Addr, Rate: c.Server.Rate, Burst: c.Server.Burst}
}

// PresentationMap is the presentation section as stored in snapshots
func (c *Config) PresentationMap() map[string]any {
	return map[string]any{
		"title":    c.Presentation.Title,
		"subtitle": c.Presentation.Subtitle,
		"theme":    c.Presentation.Theme,
	}
}
