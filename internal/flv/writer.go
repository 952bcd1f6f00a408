package flv

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/autobrr/go-flvmeta/internal/amf"
)

// Writer emits FLV structures in whatever order the caller asks for; it
// keeps no state besides the output offset.
type Writer struct {
	w      io.Writer
	offset int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Offset() int64 { return w.offset }

func (w *Writer) WriteHeader(h Header) error {
	var buf [HeaderSize]byte
	copy(buf[:3], h.Signature[:])
	buf[3] = h.Version
	buf[4] = h.Flags
	binary.BigEndian.PutUint32(buf[5:], HeaderSize)
	_, err := w.Write(buf[:])
	return err
}

// WriteTag writes the 11-byte tag header. The stream id is always zero.
func (w *Writer) WriteTag(t Tag) error {
	var buf [TagHeaderSize]byte
	buf[0] = byte(t.Type)
	putUint24(buf[1:4], t.BodyLength)
	low, ext := splitTimestamp(t.Timestamp)
	putUint24(buf[4:7], low)
	buf[7] = ext
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WritePrevTagSize(size uint32) error {
	var buf [PrevTagSizeSize]byte
	binary.BigEndian.PutUint32(buf[:], size)
	_, err := w.Write(buf[:])
	return err
}

// Write copies raw body bytes.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.offset += int64(n)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if n != len(p) {
		return n, fmt.Errorf("%w: wrote %d of %d bytes", ErrWrite, n, len(p))
	}
	return n, nil
}

// WriteScriptTag writes a complete script-data tag (header, name, value and
// trailer) and returns its footprint.
func (w *Writer) WriteScriptTag(timestamp uint32, name string, value amf.Value) (int64, error) {
	body, err := amf.Append(nil, amf.String(name))
	if err != nil {
		return 0, err
	}
	if body, err = amf.Append(body, value); err != nil {
		return 0, err
	}
	if len(body) > MaxBodyLength {
		return 0, fmt.Errorf("script tag body of %d bytes exceeds %d", len(body), MaxBodyLength)
	}
	tag := Tag{Type: TagScript, BodyLength: uint32(len(body)), Timestamp: timestamp}
	if err := w.WriteTag(tag); err != nil {
		return 0, err
	}
	if _, err := w.Write(body); err != nil {
		return 0, err
	}
	if err := w.WritePrevTagSize(TagHeaderSize + tag.BodyLength); err != nil {
		return 0, err
	}
	return tag.Size(), nil
}

// ScriptTagSize is the footprint WriteScriptTag would produce.
func ScriptTagSize(name string, value amf.Value) int64 {
	return TagOverhead + int64(amf.Size(amf.String(name))+amf.Size(value))
}
