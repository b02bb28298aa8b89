// Package source decodes candidate input and domain documents from JSON and
// YAML into the generic values reform works with: reform.Hash for mappings,
// []any for sequences and plain scalars.
//
// Decoding enforces a byte limit, a nesting limit and a duplicate key policy
// before any value reaches a form.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TylerRick/reform"
	goerrors "github.com/goliatone/go-errors"
)

// Text codes of the errors returned by this package.
const (
	TextCodeDecode        = "REFORM_DECODE"
	TextCodeInputTooLarge = "REFORM_INPUT_TOO_LARGE"
	TextCodeDuplicateKey  = "REFORM_DUPLICATE_KEY"
	TextCodeNotAnObject   = "REFORM_NOT_AN_OBJECT"
	TextCodeUnknownFormat = "REFORM_UNKNOWN_FORMAT"
)

const (
	DefaultMaxBytes int64 = 8 << 20
	DefaultMaxDepth       = 64
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", goerrors.New(fmt.Sprintf("source: cannot infer format of %q", path), goerrors.CategoryBadInput).
		WithTextCode(TextCodeUnknownFormat).
		WithMetadata(map[string]any{"path": path})
}

// DuplicatePolicy selects what happens when a mapping repeats a key.
type DuplicatePolicy int

const (
	DuplicateError    DuplicatePolicy = iota // Fail decoding.
	DuplicateLastWins                        // Keep the last value.
)

// NumberMode selects how JSON numbers are represented.
type NumberMode int

const (
	NumberNative     NumberMode = iota // int64 when integral and in range, else float64.
	NumberFloat64                      // Always float64.
	NumberJSONNumber                   // json.Number text.
)

// Options bound decoding.
type Options struct {
	MaxBytes   int64
	MaxDepth   int
	Duplicates DuplicatePolicy
	Numbers    NumberMode
}

// Option mutates Options.
type Option func(*Options)

// WithMaxBytes caps the input size. Non-positive values restore the default.
func WithMaxBytes(n int64) Option { return func(o *Options) { o.MaxBytes = n } }

// WithMaxDepth caps container nesting.
func WithMaxDepth(n int) Option { return func(o *Options) { o.MaxDepth = n } }

// WithDuplicates selects how repeated mapping keys are handled.
func WithDuplicates(p DuplicatePolicy) Option { return func(o *Options) { o.Duplicates = p } }

// WithNumbers selects the Go type JSON numbers decode into.
func WithNumbers(m NumberMode) Option { return func(o *Options) { o.Numbers = m } }

func resolve(opts []Option) Options {
	o := Options{MaxBytes: DefaultMaxBytes, MaxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// Decode decodes one document of the given format.
func Decode(data []byte, format Format, opts ...Option) (any, error) {
	o := resolve(opts)
	if int64(len(data)) > o.MaxBytes {
		return nil, tooLarge(o.MaxBytes)
	}
	switch format {
	case FormatJSON:
		return decodeJSON(data, o)
	case FormatYAML:
		return decodeYAML(data, o)
	}
	return nil, goerrors.New(fmt.Sprintf("source: unknown format %q", format), goerrors.CategoryBadInput).
		WithTextCode(TextCodeUnknownFormat)
}

// DecodeHash is Decode for documents whose top level must be a mapping.
func DecodeHash(data []byte, format Format, opts ...Option) (reform.Hash, error) {
	v, err := Decode(data, format, opts...)
	if err != nil {
		return nil, err
	}
	return asHash(v)
}

func asHash(v any) (reform.Hash, error) {
	h, ok := v.(reform.Hash)
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("source: top level is %s, want a mapping", describe(v)), goerrors.CategoryValidation).
			WithTextCode(TextCodeNotAnObject)
	}
	return h, nil
}

// Read decodes a document from r, reading at most the byte limit.
func Read(r io.Reader, format Format, opts ...Option) (any, error) {
	o := resolve(opts)
	data, err := io.ReadAll(io.LimitReader(r, o.MaxBytes+1))
	if err != nil {
		return nil, decodeError(err, "read failed")
	}
	if int64(len(data)) > o.MaxBytes {
		return nil, tooLarge(o.MaxBytes)
	}
	return Decode(data, format, opts...)
}

// ReadFile decodes the file at path; the format follows its extension.
func ReadFile(path string, opts ...Option) (any, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "source: open failed").
			WithTextCode(TextCodeDecode).
			WithMetadata(map[string]any{"path": path})
	}
	defer f.Close()
	return Read(f, format, opts...)
}

// ReadHashFile is ReadFile for documents whose top level must be a mapping.
func ReadHashFile(path string, opts ...Option) (reform.Hash, error) {
	v, err := ReadFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return asHash(v)
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "a sequence"
	case reform.Hash:
		return "a mapping"
	}
	return fmt.Sprintf("a scalar (%T)", v)
}

func tooLarge(limit int64) error {
	return goerrors.New(fmt.Sprintf("source: input exceeds %d bytes", limit), goerrors.CategoryBadInput).
		WithTextCode(TextCodeInputTooLarge).
		WithMetadata(map[string]any{"max_bytes": limit})
}

func tooDeep(at reform.Path, limit int) error {
	return goerrors.New(fmt.Sprintf("source: nesting at %q exceeds max depth %d", at.String(), limit), goerrors.CategoryBadInput).
		WithTextCode(reform.TextCodeDepthExceeded).
		WithMetadata(map[string]any{"path": at.String(), "max_depth": limit})
}

func duplicateKey(at reform.Path) error {
	return goerrors.New(fmt.Sprintf("source: duplicate key %q", at.String()), goerrors.CategoryValidation).
		WithTextCode(TextCodeDuplicateKey).
		WithMetadata(map[string]any{"path": at.String()})
}

func decodeError(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "source: "+msg).
		WithTextCode(TextCodeDecode)
}
