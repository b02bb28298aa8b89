package reform

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

// Config holds the engine settings shared by every form of one construction.
type Config struct {
	MaxDepth          int           `koanf:"max_depth" mapstructure:"max_depth"`
	Attributes        AttributeMode `koanf:"attributes" mapstructure:"attributes"`
	Unknown           UnknownPolicy `koanf:"unknown" mapstructure:"unknown"`
	StrictCollections bool          `koanf:"strict_collections" mapstructure:"strict_collections"`
	LoggerName        string        `koanf:"logger_name" mapstructure:"logger_name"`
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		MaxDepth:   DefaultMaxDepth,
		Attributes: AttributesLenient,
		Unknown:    UnknownIgnore,
		LoggerName: "reform",
	}
}

// Validate rejects out-of-range depths, unknown modes and an empty logger name.
func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return invalidConfig("max_depth must be positive")
	}
	switch c.Attributes {
	case AttributesLenient, AttributesStrict:
	default:
		return invalidConfig(fmt.Sprintf("attributes must be %q or %q, got %q", AttributesLenient, AttributesStrict, c.Attributes))
	}
	switch c.Unknown {
	case UnknownIgnore, UnknownStrict:
	default:
		return invalidConfig(fmt.Sprintf("unknown must be %q or %q, got %q", UnknownIgnore, UnknownStrict, c.Unknown))
	}
	if strings.TrimSpace(c.LoggerName) == "" {
		return invalidConfig("logger_name is required")
	}
	return nil
}

// LoadConfig decodes a raw settings map (as read from a config file) on top
// of DefaultConfig.
func LoadConfig(raw map[string]any) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(DefaultConfig()),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, wrapConfigError(err)
	}
	return cfg, nil
}

// ResolveConfig layers defaults < loaded < runtime. Zero values in the loaded
// and runtime layers do not override lower layers.
func ResolveConfig(defaults, loaded, runtime Config) (Config, error) {
	return ResolveConfigOverrides(defaults, loaded, configToLayerMap(runtime, false))
}

// ResolveConfigOverrides layers defaults < loaded < overrides. overrides is
// keyed like the config file ("strict_collections", "max_depth", ...) and
// holds only the settings that were set explicitly, so zero values such as
// strict_collections=false still win over the loaded layer.
func ResolveConfigOverrides(defaults, loaded Config, overrides map[string]any) (Config, error) {
	if overrides == nil {
		overrides = map[string]any{}
	}
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			overrides,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, wrapConfigError(fmt.Errorf("options stack build failed: %w", err))
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, wrapConfigError(fmt.Errorf("options merge failed: %w", err))
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, wrapConfigError(err)
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.MaxDepth > 0 {
		layer["max_depth"] = cfg.MaxDepth
	}
	if includeZero || cfg.Attributes != "" {
		layer["attributes"] = string(cfg.Attributes)
	}
	if includeZero || cfg.Unknown != "" {
		layer["unknown"] = string(cfg.Unknown)
	}
	if includeZero || cfg.StrictCollections {
		layer["strict_collections"] = cfg.StrictCollections
	}
	if includeZero || strings.TrimSpace(cfg.LoggerName) != "" {
		layer["logger_name"] = cfg.LoggerName
	}
	return layer
}

func invalidConfig(reason string) error {
	return newError("reform: "+reason, goerrors.CategoryValidation, TextCodeInvalidConfig, nil)
}

func wrapConfigError(err error) error {
	if TextCode(err) != "" {
		return err
	}
	return wrapError(err, goerrors.CategoryValidation, "reform: invalid config", TextCodeInvalidConfig, nil)
}
