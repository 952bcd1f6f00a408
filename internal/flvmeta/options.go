package flvmeta

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/autobrr/go-flvmeta/internal/amf"
)

// Policy decides what happens to a final tag whose body is cut short.
type Policy int

const (
	// PolicyStrict aborts with ErrEndOfStream.
	PolicyStrict Policy = iota
	// PolicyFix drops the truncated tag.
	PolicyFix
	// PolicyIgnore copies whatever is left of the tag and stops.
	PolicyIgnore
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyFix:
		return "fix"
	case PolicyIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return PolicyStrict, nil
	case "fix":
		return PolicyFix, nil
	case "ignore":
		return PolicyIgnore, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown truncation policy %q (want strict, fix or ignore)", s)
	}
}

type Field struct {
	Name  string
	Value amf.Value
}

// ParseField turns name=value into a metadata field. Values that parse as
// numbers become numbers, true/false become booleans, anything else a string.
func ParseField(spec string) (Field, error) {
	name, value, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return Field{}, fmt.Errorf("invalid field %q (want name=value)", spec)
	}
	return Field{Name: name, Value: inferValue(value)}, nil
}

func inferValue(s string) amf.Value {
	switch s {
	case "true":
		return amf.Boolean(true)
	case "false":
		return amf.Boolean(false)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return amf.Number(n)
	}
	return amf.String(s)
}

type Options struct {
	ResetTimestamps  bool
	AllKeyframes     bool
	PreserveMetadata bool
	NoLastSecond     bool
	Fields           []Field
	Policy           Policy
	Creator          string
	// Now stamps metadatadate; its location supplies the timezone offset.
	Now    time.Time
	Logger *slog.Logger
}

func normalizeOptions(opts Options) Options {
	if opts.Creator == "" {
		opts.Creator = DefaultCreator()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return opts
}
