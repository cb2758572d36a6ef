// Package config loads the plugin's configuration surface (spec.md §6)
// plus the ambient process settings a standalone host needs to boot.
//
// Grounded on VictorNM-elsa-coding-challenges/internal/config/config.go:
// the same merge-defaults-then-unmarshal shape using viper +
// mapstructure, generalized from that repo's generic Load(file, any) to
// a chat-room-specific Config type.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"dragonfox-chatroom/chatroomerr"
)

// MathQuiz holds the cooldown bounds for the quiz engine.
type MathQuiz struct {
	MinCoolDown float64 `mapstructure:"minCoolDown" validate:"gte=0"`
	MaxCoolDown float64 `mapstructure:"maxCoolDown" validate:"gte=0"`
}

// Config is the plugin's configuration surface, per spec.md §6, plus the
// ambient fields a standalone process entry point needs (ListenAddr,
// LogLevel) that the core itself does not consume.
type Config struct {
	// Space is the URI whose path fixes the served resource subspace
	// (spec.md §4.9, §6). Required.
	Space string `mapstructure:"space" validate:"required,url"`
	// NickNames is the initial claimable pool. Omitted or empty means
	// every nickname claim fails.
	NickNames []string `mapstructure:"nicknames"`
	// InitialPoints maps a nickname to its starting score.
	InitialPoints map[string]int `mapstructure:"initialPoints"`
	// TellTimeout is the per-session cool-down, in seconds.
	TellTimeout float64 `mapstructure:"tellTimeout" validate:"gte=0"`
	// MathQuiz holds the question cooldown bounds.
	MathQuiz MathQuiz `mapstructure:"mathQuiz"`

	// ListenAddr is the ambient host's HTTP listen address. Not part of
	// the core's configuration surface (spec.md explicitly excludes
	// "process launch" from THE CORE) but needed to boot cmd/chatroomd.
	ListenAddr string `mapstructure:"listenAddr" validate:"required"`
	// LogLevel is the ambient host's slog level name (debug/info/warn/error).
	LogLevel string `mapstructure:"logLevel"`
}

// Defaults returns a Config with spec.md §6's documented defaults
// applied (tellTimeout=1.0, cooldowns 10.0/30.0).
func Defaults() Config {
	return Config{
		TellTimeout: 1.0,
		MathQuiz:    MathQuiz{MinCoolDown: 10.0, MaxCoolDown: 30.0},
		ListenAddr:  ":8080",
		LogLevel:    "info",
	}
}

// SpacePath returns the resource subspace path to register, derived from
// Space by parsing it as a URI and stripping the leading slash, per
// spec.md §4.9.
func (c Config) SpacePath() (string, error) {
	if c.Space == "" {
		return "", chatroomerr.New(chatroomerr.CodeInvalidConfig,
			chatroomerr.WithMessagef("no 'space' URI in configuration"))
	}
	u, err := url.Parse(c.Space)
	if err != nil {
		return "", chatroomerr.New(chatroomerr.CodeInvalidConfig,
			chatroomerr.WithMessagef("unable to parse 'space' URI in configuration"),
			chatroomerr.WithCause(err))
	}
	return strings.TrimPrefix(u.Path, "/"), nil
}

var validate = validator.New()

// Load reads configuration from file (if non-empty) and environment
// variables prefixed CHATROOM_, merged over Defaults(), then validates
// the result.
func Load(file string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	defaultsMap := make(map[string]any)
	if err := mapstructure.Decode(cfg, &defaultsMap); err != nil {
		return Config{}, chatroomerr.New(chatroomerr.CodeInvalidConfig,
			chatroomerr.WithMessagef("encode defaults"), chatroomerr.WithCause(err))
	}
	if err := v.MergeConfigMap(defaultsMap); err != nil {
		return Config{}, chatroomerr.New(chatroomerr.CodeInvalidConfig,
			chatroomerr.WithMessagef("merge default config"), chatroomerr.WithCause(err))
	}

	v.SetEnvPrefix("CHATROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, chatroomerr.New(chatroomerr.CodeInvalidConfig,
				chatroomerr.WithMessagef("read config file %s", file), chatroomerr.WithCause(err))
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, chatroomerr.New(chatroomerr.CodeInvalidConfig,
			chatroomerr.WithMessagef("unmarshal config"), chatroomerr.WithCause(err))
	}

	// viper folds map keys to lower case; restore each configured
	// nickname's own spelling so InitialPoints can be looked up by it.
	for _, name := range cfg.NickNames {
		if points, ok := cfg.InitialPoints[strings.ToLower(name)]; ok {
			cfg.InitialPoints[name] = points
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, chatroomerr.New(chatroomerr.CodeInvalidConfig,
			chatroomerr.WithMessagef("validate config"), chatroomerr.WithCause(err))
	}

	if cfg.MathQuiz.MinCoolDown > cfg.MathQuiz.MaxCoolDown {
		cfg.MathQuiz.MinCoolDown, cfg.MathQuiz.MaxCoolDown = cfg.MathQuiz.MaxCoolDown, cfg.MathQuiz.MinCoolDown
	}

	return cfg, nil
}

// String implements fmt.Stringer for convenient diagnostics.
func (c Config) String() string {
	return fmt.Sprintf("space=%s nicknames=%d tellTimeout=%.1f cooldown=[%.1f,%.1f]",
		c.Space, len(c.NickNames), c.TellTimeout, c.MathQuiz.MinCoolDown, c.MathQuiz.MaxCoolDown)
}
