package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/config"
	"github.com/autobrr/go-flvmeta/internal/flv"
	"github.com/autobrr/go-flvmeta/internal/flvmeta"
)

const (
	exitOK        = 0
	exitError     = 1
	exitNotFLV    = 2
	exitEOS       = 3
	exitMalformed = 4
	exitBadTag    = 5
	exitWrite     = 6
	exitSameFile  = 7
)

// ExitCode maps an engine error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flvmeta.ErrSameFile):
		return exitSameFile
	case errors.Is(err, flv.ErrNotFLV):
		return exitNotFLV
	case errors.Is(err, flv.ErrEndOfStream):
		return exitEOS
	case errors.Is(err, amf.ErrMalformedValue), errors.Is(err, amf.ErrStringTooLong):
		return exitMalformed
	case errors.Is(err, flv.ErrInvalidTag):
		return exitBadTag
	case errors.Is(err, flv.ErrWrite), errors.Is(err, amf.ErrShortWrite):
		return exitWrite
	default:
		return exitError
	}
}

// Options holds the flags shared by update and watch. Flag values override
// the config file only when given on the command line.
type Options struct {
	ConfigPath      string
	ResetTimestamps bool
	AllKeyframes    bool
	Preserve        bool
	NoLastSecond    bool
	Fields          []string
	Policy          string
	Verbose         bool

	flags *pflag.FlagSet
}

func (o *Options) Bind(fs *pflag.FlagSet) {
	o.flags = fs
	fs.StringVarP(&o.ConfigPath, "config", "c", "", "config file (TOML or YAML)")
	fs.BoolVarP(&o.ResetTimestamps, "reset-timestamps", "r", false, "shift timestamps so the first audio/video tag starts at zero")
	fs.BoolVarP(&o.AllKeyframes, "all-keyframes", "k", false, "index every keyframe, including ones sharing a timestamp")
	fs.BoolVarP(&o.Preserve, "preserve", "p", false, "keep fields of the existing onMetaData that are not recomputed")
	fs.BoolVar(&o.NoLastSecond, "no-last-second", false, "do not insert the onLastSecond event")
	fs.StringArrayVarP(&o.Fields, "add", "a", nil, "add a metadata field as name=value (repeatable)")
	fs.StringVar(&o.Policy, "policy", "", "truncated final tag handling: strict, fix or ignore")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "log debug output")
}

func (o *Options) changed(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}

// resolve merges the config file and the command line into engine options.
func (o *Options) resolve(stderr io.Writer) (*config.Config, flvmeta.Options, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, flvmeta.Options{}, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, flvmeta.Options{}, err
	}
	opts.ResetTimestamps = opts.ResetTimestamps || o.ResetTimestamps
	opts.AllKeyframes = opts.AllKeyframes || o.AllKeyframes
	opts.PreserveMetadata = opts.PreserveMetadata || o.Preserve
	opts.NoLastSecond = opts.NoLastSecond || o.NoLastSecond
	if o.changed("policy") || o.Policy != "" {
		if opts.Policy, err = flvmeta.ParsePolicy(o.Policy); err != nil {
			return nil, flvmeta.Options{}, err
		}
	}
	for _, spec := range o.Fields {
		f, err := flvmeta.ParseField(spec)
		if err != nil {
			return nil, flvmeta.Options{}, err
		}
		opts.Fields = append(opts.Fields, f)
	}
	opts.Logger = newLogger(stderr, cfg, o.Verbose)
	return cfg, opts, nil
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Update rewrites args[0] into args[1], or in place when no output is given.
func Update(o *Options, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || len(args) > 2 {
		HelpNothing(programName(os.Args[0]), stderr)
		return exitError
	}
	_, opts, err := o.resolve(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}

	in, out := args[0], ""
	if len(args) == 2 {
		out = args[1]
	}
	res, err := flvmeta.UpdateFile(in, out, opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", in, err)
		return ExitCode(err)
	}
	if o.Verbose {
		fmt.Fprint(stdout, flvmeta.RenderSummary(firstNonEmpty(out, in), res))
	}
	return exitOK
}

// Dump prints the onMetaData of each file. With computed set it shows what
// update would write instead of what the file holds.
func Dump(o *Options, format string, computed bool, files []string, stdout, stderr io.Writer) int {
	f, err := flvmeta.ParseFormat(format)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}
	var opts flvmeta.Options
	if computed {
		if _, opts, err = o.resolve(stderr); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return exitError
		}
	}

	code := exitOK
	for _, path := range files {
		if err := dumpFile(path, f, computed, opts, stdout); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			code = ExitCode(err)
		}
	}
	return code
}

func dumpFile(path string, format flvmeta.Format, computed bool, opts flvmeta.Options, stdout io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if !computed {
		return flvmeta.Dump(file, stdout, format)
	}
	res, err := flvmeta.Scan(file, opts)
	if err != nil {
		return err
	}
	return flvmeta.Render(stdout, "onMetaData", res.Metadata, format)
}

// Watch runs until ctx is done.
func Watch(ctx context.Context, o *Options, dir string, stderr io.Writer) int {
	cfg, opts, err := o.resolve(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}
	w, err := flvmeta.NewWatcher(dir, flvmeta.WatchOptions{Quiet: cfg.QuietPeriod(), Options: opts})
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}
	if err := w.Run(ctx); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}
	return exitOK
}

func programName(arg0 string) string {
	name := filepath.Base(arg0)
	if runtime.GOOS == "windows" {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
