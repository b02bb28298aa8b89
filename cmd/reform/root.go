package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TylerRick/reform"
	"github.com/TylerRick/reform/rules"
	"github.com/TylerRick/reform/schemafile"
	"github.com/TylerRick/reform/source"
)

// errInvalid is returned by commands whose input failed validation; main maps
// it to exit status 1 without printing it again.
var errInvalid = errors.New("input is invalid")

type app struct {
	v       *viper.Viper
	out     io.Writer
	errOut  io.Writer
	cfgFile string
	verbose bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "reform",
		Short: "Render, validate and save documents through form schemas",
		Long: `reform materializes a form over a model document using a schema from a
YAML catalog, then renders it, validates candidate input against it or saves
accepted input back into the model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./reform.yaml when present)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log engine activity to stderr")
	pf.StringP("schema", "s", "", "schema catalog (YAML)")
	pf.StringP("name", "n", "", "schema name inside the catalog")
	pf.StringP("model", "m", "", "model document (JSON or YAML)")
	pf.StringP("input", "i", "", "candidate document (JSON or YAML)")
	pf.String("attributes", "", "attribute mode: lenient or strict")
	pf.String("unknown", "", "unknown key policy: ignore or strict")
	pf.Bool("strict-collections", false, "reject candidate collections longer than the model's")
	pf.Int("max-depth", 0, "maximum form nesting depth")
	for _, key := range []string{"schema", "name", "model", "input"} {
		_ = a.v.BindPFlag(key, pf.Lookup(key))
	}

	root.AddCommand(
		a.renderCmd(),
		a.validateCmd(),
		a.saveCmd(),
		a.inspectCmd(),
		a.jsonschemaCmd(),
	)
	return root
}

func (a *app) initConfig() error {
	a.v.SetEnvPrefix("REFORM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("reform")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// formConfig layers the config file's "form" section under the flags given
// on the command line.
func (a *app) formConfig(cmd *cobra.Command) (reform.Config, error) {
	loaded, err := reform.LoadConfig(a.v.GetStringMap("form"))
	if err != nil {
		return reform.Config{}, err
	}
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("attributes") {
		overrides["attributes"], _ = flags.GetString("attributes")
	}
	if flags.Changed("unknown") {
		overrides["unknown"], _ = flags.GetString("unknown")
	}
	if flags.Changed("strict-collections") {
		overrides["strict_collections"], _ = flags.GetBool("strict-collections")
	}
	if flags.Changed("max-depth") {
		overrides["max_depth"], _ = flags.GetInt("max-depth")
	}
	return reform.ResolveConfigOverrides(reform.DefaultConfig(), loaded, overrides)
}

func (a *app) logger() glog.Logger {
	if !a.verbose {
		return glog.Nop()
	}
	h := slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slogLogger{l: slog.New(h)}
}

// session is what every command works on: the schema, the model document and
// the form built over it.
type session struct {
	schema *reform.Schema
	model  reform.Hash
	form   *reform.Form
}

func (a *app) open(cmd *cobra.Command) (*session, error) {
	catalogPath := a.v.GetString("schema")
	name := a.v.GetString("name")
	if catalogPath == "" || name == "" {
		return nil, errors.New("--schema and --name are required")
	}
	catalog, err := schemafile.Load(catalogPath, rules.DefaultRegistry())
	if err != nil {
		return nil, err
	}
	schema, err := catalog.Schema(name)
	if err != nil {
		return nil, err
	}
	s := &session{schema: schema}
	if cmd.Name() == "jsonschema" {
		return s, nil
	}
	modelPath := a.v.GetString("model")
	if modelPath == "" {
		return nil, errors.New("--model is required")
	}
	s.model, err = source.ReadHashFile(modelPath)
	if err != nil {
		return nil, err
	}
	cfg, err := a.formConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := []reform.Option{reform.WithConfig(cfg), reform.WithLogger(a.logger())}
	if schema.Mode() == reform.ModeComposed {
		sources := make(map[string]any, len(schema.Targets()))
		for _, t := range schema.Targets() {
			if sub := s.model.Hash(t); sub != nil {
				sources[t] = sub
			}
		}
		s.form, err = reform.NewComposed(schema, sources, opts...)
	} else {
		s.form, err = reform.New(schema, s.model, opts...)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) candidate() (reform.Hash, error) {
	path := a.v.GetString("input")
	if path == "" {
		return nil, errors.New("--input is required")
	}
	return source.ReadHashFile(path)
}

// slogLogger adapts log/slog to glog.Logger for --verbose output.
type slogLogger struct {
	l   *slog.Logger
	ctx context.Context
}

func (s slogLogger) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s slogLogger) Trace(msg string, args ...any) { s.l.DebugContext(s.context(), msg, args...) }
func (s slogLogger) Debug(msg string, args ...any) { s.l.DebugContext(s.context(), msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.InfoContext(s.context(), msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.WarnContext(s.context(), msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.ErrorContext(s.context(), msg, args...) }
func (s slogLogger) Fatal(msg string, args ...any) { s.l.ErrorContext(s.context(), msg, args...) }

func (s slogLogger) WithContext(ctx context.Context) glog.Logger {
	return slogLogger{l: s.l, ctx: ctx}
}
