package flvmeta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flv"
)

var ErrSameFile = errors.New("input and output are the same file")

const writeBufferSize = 64 * 1024

// Result summarizes one rewrite.
type Result struct {
	Metadata   *amf.ECMAArray
	InputSize  int64
	OutputSize int64
	Duration   time.Duration
	Keyframes  int
	// Replaced counts the onMetaData tags found in the input.
	Replaced  int
	EndMarker bool
	Truncated bool
}

func newResult(p *plan) Result {
	return Result{
		Metadata:  p.meta,
		InputSize: p.info.fileSize,
		Duration:  time.Duration(p.duration * float64(time.Second)),
		Keyframes: len(p.info.keyframes),
		Replaced:  len(p.info.dropped),
		EndMarker: p.marker,
		Truncated: p.info.truncated != nil,
	}
}

// Scan runs the analysis pass and returns the metadata Update would write,
// without producing any output.
func Scan(in io.ReadSeeker, opts Options) (Result, error) {
	opts = normalizeOptions(opts)
	p, err := analyze(in, opts)
	if err != nil {
		return Result{}, err
	}
	res := newResult(p)
	res.OutputSize = p.fileSize
	return res, nil
}

func analyze(in io.ReadSeeker, opts Options) (*plan, error) {
	size, err := in.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure input: %w", err)
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind input: %w", err)
	}
	info, err := scan(in, size, opts)
	if err != nil {
		return nil, err
	}
	p := newPlan(info, opts)
	opts.Logger.Debug("scan complete",
		"size", size,
		"duration", p.duration,
		"keyframes", len(info.keyframes),
		"replaced", len(info.dropped),
		"end_marker", p.marker,
	)
	return p, nil
}

// Update reads in twice: once to compute metadata and once to write the
// rewritten stream to out.
func Update(in io.ReadSeeker, out io.Writer, opts Options) (Result, error) {
	opts = normalizeOptions(opts)
	p, err := analyze(in, opts)
	if err != nil {
		return Result{}, err
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("rewind input: %w", err)
	}

	bw := bufio.NewWriterSize(out, writeBufferSize)
	written, err := rewrite(in, bw, p)
	if err != nil {
		return Result{}, err
	}
	if err := bw.Flush(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", flv.ErrWrite, err)
	}
	if written != p.fileSize {
		opts.Logger.Warn("output size differs from computed filesize", "written", written, "filesize", p.fileSize)
	}

	res := newResult(p)
	res.OutputSize = written
	return res, nil
}

func rewrite(in io.Reader, out io.Writer, p *plan) (int64, error) {
	info := p.info
	r := flv.NewReader(in)
	if _, err := r.ReadHeader(); err != nil {
		return 0, err
	}

	w := flv.NewWriter(out)
	if err := w.WriteHeader(flv.NewHeader(info.audio.present, info.video.present)); err != nil {
		return w.Offset(), err
	}
	if err := w.WritePrevTagSize(0); err != nil {
		return w.Offset(), err
	}
	if _, err := w.WriteScriptTag(0, eventMetaData, p.meta); err != nil {
		return w.Offset(), err
	}

	buf := make([]byte, info.biggestBody)
	inserted := !p.marker
	writeMarker := func() error {
		inserted = true
		_, err := w.WriteScriptTag(p.markerTS, eventLastSecond, amf.NewECMAArray())
		return err
	}

	var fixer timestampFixer
	for {
		tag, err := r.ReadTag()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, flv.ErrEndOfStream) && info.truncated != nil {
				break
			}
			return w.Offset(), err
		}
		if !tag.Type.Valid() {
			return w.Offset(), fmt.Errorf("%w: type %d at offset %d", flv.ErrInvalidTag, byte(tag.Type), tag.Offset)
		}

		if t := info.truncated; t != nil && tag.Offset >= t.offset {
			if t.partial > 0 {
				if !inserted && tag.Offset >= p.insertAt {
					if err := writeMarker(); err != nil {
						return w.Offset(), err
					}
				}
				if err := copyPartial(r, w, tag, fixer.fix(tag.Type, tag.Timestamp), p, buf); err != nil {
					return w.Offset(), err
				}
			}
			break
		}

		ts := fixer.fix(tag.Type, tag.Timestamp)
		if tag.Type == flv.TagScript && info.isDropped(tag.Offset) {
			continue
		}
		if !inserted && tag.Offset >= p.insertAt {
			if err := writeMarker(); err != nil {
				return w.Offset(), err
			}
		}

		outTag := flv.Tag{Type: tag.Type, BodyLength: tag.BodyLength, Timestamp: p.tl.out(ts)}
		if err := w.WriteTag(outTag); err != nil {
			return w.Offset(), err
		}
		if err := copyBody(r, w, buf); err != nil {
			return w.Offset(), err
		}
		if err := w.WritePrevTagSize(flv.TagHeaderSize + tag.BodyLength); err != nil {
			return w.Offset(), err
		}
	}

	if !inserted {
		if err := writeMarker(); err != nil {
			return w.Offset(), err
		}
	}
	return w.Offset(), nil
}

func copyBody(r *flv.Reader, w *flv.Writer, buf []byte) error {
	for r.Remaining() > 0 {
		n, err := r.ReadTagBody(buf)
		if err != nil {
			return err
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// copyPartial writes a cut final tag as far as the input goes.
func copyPartial(r *flv.Reader, w *flv.Writer, tag flv.Tag, ts uint32, p *plan, buf []byte) error {
	outTag := flv.Tag{Type: tag.Type, BodyLength: tag.BodyLength, Timestamp: p.tl.out(ts)}
	if err := w.WriteTag(outTag); err != nil {
		return err
	}
	if len(buf) == 0 {
		buf = make([]byte, writeBufferSize)
	}
	for r.Remaining() > 0 {
		n, err := r.ReadTagBody(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return nil
		}
	}
	return nil
}

// UpdateFile rewrites inPath into outPath. An empty outPath updates the
// input in place through a temporary file in the same directory.
func UpdateFile(inPath, outPath string, opts Options) (Result, error) {
	opts = normalizeOptions(opts)
	in, err := os.Open(inPath)
	if err != nil {
		return Result{}, err
	}
	defer in.Close()

	inStat, err := in.Stat()
	if err != nil {
		return Result{}, err
	}

	inPlace := outPath == ""
	target := outPath
	if inPlace {
		target = filepath.Join(filepath.Dir(inPath), ".flvmeta-"+uuid.NewString()+".tmp")
	} else if outStat, err := os.Stat(outPath); err == nil && os.SameFile(inStat, outStat) {
		return Result{}, fmt.Errorf("%w: %s", ErrSameFile, outPath)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, inStat.Mode().Perm())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", flv.ErrWrite, err)
	}

	res, err := Update(in, out, opts)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %w", flv.ErrWrite, cerr)
	}
	if err != nil {
		os.Remove(target)
		return Result{}, err
	}

	if inPlace {
		in.Close()
		if err := os.Rename(target, inPath); err != nil {
			os.Remove(target)
			return Result{}, fmt.Errorf("%w: replace %s: %w", flv.ErrWrite, inPath, err)
		}
	}
	opts.Logger.Debug("metadata updated", "input", inPath, "output", firstNonEmpty(outPath, inPath), "size", res.OutputSize)
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
