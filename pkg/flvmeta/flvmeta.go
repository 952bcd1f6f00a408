package flvmeta

import (
	"io"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flvmeta"
)

// Types
type Options = flvmeta.Options
type Policy = flvmeta.Policy
type Field = flvmeta.Field
type Result = flvmeta.Result
type Format = flvmeta.Format
type WatchOptions = flvmeta.WatchOptions
type Watcher = flvmeta.Watcher
type Value = amf.Value

// Constants
const (
	PolicyStrict = flvmeta.PolicyStrict
	PolicyFix    = flvmeta.PolicyFix
	PolicyIgnore = flvmeta.PolicyIgnore

	FormatText = flvmeta.FormatText
	FormatJSON = flvmeta.FormatJSON
	FormatYAML = flvmeta.FormatYAML
)

// Errors
var (
	ErrSameFile   = flvmeta.ErrSameFile
	ErrNoMetadata = flvmeta.ErrNoMetadata
)

// Functions
func Update(in io.ReadSeeker, out io.Writer, opts Options) (Result, error) {
	return flvmeta.Update(in, out, opts)
}

func UpdateFile(inPath, outPath string, opts Options) (Result, error) {
	return flvmeta.UpdateFile(inPath, outPath, opts)
}

func Scan(in io.ReadSeeker, opts Options) (Result, error) {
	return flvmeta.Scan(in, opts)
}

func ReadMetadata(src io.Reader) (Value, error) {
	return flvmeta.ReadMetadata(src)
}

func NewWatcher(dir string, opts WatchOptions) (*Watcher, error) {
	return flvmeta.NewWatcher(dir, opts)
}

func ParsePolicy(s string) (Policy, error) {
	return flvmeta.ParsePolicy(s)
}

func ParseField(spec string) (Field, error) {
	return flvmeta.ParseField(spec)
}

// Rendering
func Dump(src io.Reader, w io.Writer, format Format) error {
	return flvmeta.Dump(src, w, format)
}

func Render(w io.Writer, name string, value Value, format Format) error {
	return flvmeta.Render(w, name, value, format)
}

func FormatVersion(version string) string {
	return flvmeta.FormatVersion(version)
}

func SetAppVersion(version string) {
	flvmeta.SetAppVersion(version)
}

func RenderSummary(path string, res Result) string {
	return flvmeta.RenderSummary(path, res)
}
