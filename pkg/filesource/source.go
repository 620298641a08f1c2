package filesource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// Format of a definitions file.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Source reads flag definitions from a local file in the local-evaluation shape:
// top-level flags, cohorts and group_type_mapping keys.
type Source struct {
	path   string
	format Format
	logger *slog.Logger
}

var _ flagstore.Fetcher = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithFormat forces the file format instead of detecting it from the extension.
func WithFormat(f Format) Option {
	return func(s *Source) {
		s.format = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Source for path.
func New(path string, opts ...Option) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	s := &Source{path: abs, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.format == FormatAuto {
		s.format = detectFormat(abs)
	}
	if s.format != FormatJSON && s.format != FormatYAML {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s.format)
	}

	return s, nil
}

// Path returns the absolute path of the definitions file.
func (s *Source) Path() string {
	return s.path
}

// Fetch implements flagstore.Fetcher. The ETag is the SHA-256 of the file content, so
// an unchanged file reports NotModified.
func (s *Source) Fetch(ctx context.Context, etag string) (flagstore.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return flagstore.FetchResult{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return flagstore.FetchResult{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	sum := sha256.Sum256(data)
	tag := hex.EncodeToString(sum[:])
	if etag != "" && tag == etag {
		return flagstore.FetchResult{ETag: tag, NotModified: true}, nil
	}

	snap, err := Decode(data, s.format)
	if err != nil {
		return flagstore.FetchResult{}, err
	}

	return flagstore.FetchResult{Snapshot: snap, ETag: tag}, nil
}

// Decode parses definitions in the given format.
func Decode(data []byte, format Format) (*flags.Snapshot, error) {
	switch format {
	case FormatJSON:
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}
		data = converted
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	snap, err := flags.DecodeSnapshot(data)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}
	return snap, nil
}

// yamlToJSON re-encodes YAML as JSON so the flags package decoders apply unchanged.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML turns map[any]any nodes, which yaml produces for non-string keys
// such as group type indexes, into map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

func detectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	}
}

func (s *Source) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	attrs = append(attrs, logger.Component("filesource"), logger.Source(s.path))
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}
