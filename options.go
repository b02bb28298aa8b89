package reform

import (
	glog "github.com/goliatone/go-logger/glog"
)

// Option configures form construction.
type Option func(*formBuilder)

type formBuilder struct {
	config         Config
	overrides      []func(*Config)
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(b *formBuilder) {
		b.config = cfg
	}
}

// WithMaxDepth bounds the depth of the field tree.
func WithMaxDepth(n int) Option {
	return func(b *formBuilder) {
		b.overrides = append(b.overrides, func(c *Config) { c.MaxDepth = n })
	}
}

// WithAttributeMode selects lenient or strict attribute reads.
func WithAttributeMode(mode AttributeMode) Option {
	return func(b *formBuilder) {
		b.overrides = append(b.overrides, func(c *Config) { c.Attributes = mode })
	}
}

// WithUnknownPolicy selects how candidate keys without a property are handled.
func WithUnknownPolicy(policy UnknownPolicy) Option {
	return func(b *formBuilder) {
		b.overrides = append(b.overrides, func(c *Config) { c.Unknown = policy })
	}
}

// WithStrictCollections records a size_mismatch issue when a candidate
// collection is longer than the existing one.
func WithStrictCollections(strict bool) Option {
	return func(b *formBuilder) {
		b.overrides = append(b.overrides, func(c *Config) { c.StrictCollections = strict })
	}
}

// WithLogger sets the logger used by the form tree. It takes precedence over
// a provider.
func WithLogger(logger glog.Logger) Option {
	return func(b *formBuilder) {
		b.logger = logger
	}
}

// WithLoggerProvider resolves the form logger by Config.LoggerName.
func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(b *formBuilder) {
		b.loggerProvider = provider
	}
}

// runtime is shared read-only by every form of one tree.
type runtime struct {
	cfg    Config
	logger glog.Logger
}

func newRuntime(options []Option) (*runtime, error) {
	b := formBuilder{config: DefaultConfig()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&b)
	}
	for _, o := range b.overrides {
		o(&b.config)
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	provider, logger := glog.Resolve(b.config.LoggerName, b.loggerProvider, b.logger)
	logger = glog.Ensure(logger)
	if provider != nil && b.logger == nil {
		if named := provider.GetLogger(b.config.LoggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}
	return &runtime{cfg: b.config, logger: logger}, nil
}
