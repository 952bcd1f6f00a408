package flv

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/autobrr/go-flvmeta/internal/amf"
)

// State says which read is legal next.
type State int

const (
	StateHeader State = iota
	StatePrevTagSize
	StateTagHeader
	StateTagBody
)

func (s State) String() string {
	switch s {
	case StateHeader:
		return "header"
	case StatePrevTagSize:
		return "previous tag size"
	case StateTagHeader:
		return "tag header"
	case StateTagBody:
		return "tag body"
	default:
		return "unknown"
	}
}

// Reader is a forward-only cursor over an FLV stream. Skipping whatever is
// left of the current tag body happens implicitly before the next header or
// trailer read.
type Reader struct {
	r         *bufio.Reader
	state     State
	remaining uint32
	offset    int64
	tag       Tag
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (r *Reader) State() State { return r.state }

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// Tag returns the most recently read tag header.
func (r *Reader) Tag() Tag { return r.tag }

// Remaining is the unread part of the current tag body.
func (r *Reader) Remaining() uint32 {
	if r.state != StateTagBody {
		return 0
	}
	return r.remaining
}

func (r *Reader) ReadHeader() (Header, error) {
	if r.state != StateHeader {
		return Header{}, r.stateError("header")
	}
	var buf [HeaderSize]byte
	if n, err := r.read(buf[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return Header{}, fmt.Errorf("%w: empty input", ErrNotFLV)
		}
		return Header{}, ErrEndOfStream
	}
	var h Header
	copy(h.Signature[:], buf[:3])
	if h.Signature != signature {
		return Header{}, fmt.Errorf("%w: bad signature %q", ErrNotFLV, buf[:3])
	}
	h.Version = buf[3]
	h.Flags = buf[4]
	h.DataOffset = binary.BigEndian.Uint32(buf[5:9])
	if h.DataOffset < HeaderSize {
		return Header{}, fmt.Errorf("%w: data offset %d", ErrNotFLV, h.DataOffset)
	}
	if extra := int(h.DataOffset) - HeaderSize; extra > 0 {
		if err := r.skip(extra); err != nil {
			return Header{}, err
		}
	}
	r.state = StatePrevTagSize
	return h, nil
}

// ReadPrevTagSize returns io.EOF when the input ends cleanly where the
// trailer would start.
func (r *Reader) ReadPrevTagSize() (uint32, error) {
	if r.state == StateTagBody {
		if err := r.skipBody(); err != nil {
			return 0, err
		}
	}
	if r.state != StatePrevTagSize {
		return 0, r.stateError("previous tag size")
	}
	var buf [PrevTagSizeSize]byte
	if n, err := r.read(buf[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, ErrEndOfStream
	}
	r.state = StateTagHeader
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadTag returns io.EOF when no bytes are left at a tag boundary and
// ErrEndOfStream when the header itself is cut short.
func (r *Reader) ReadTag() (Tag, error) {
	if r.state == StateTagBody || r.state == StatePrevTagSize {
		if _, err := r.ReadPrevTagSize(); err != nil {
			return Tag{}, err
		}
	}
	if r.state != StateTagHeader {
		return Tag{}, r.stateError("tag")
	}
	start := r.offset
	var buf [TagHeaderSize]byte
	if n, err := r.read(buf[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return Tag{}, io.EOF
		}
		return Tag{}, ErrEndOfStream
	}
	tag := Tag{
		Type:       TagType(buf[0]),
		BodyLength: uint24(buf[1:4]),
		Timestamp:  joinTimestamp(uint24(buf[4:7]), buf[7]),
		StreamID:   uint24(buf[8:11]),
		Offset:     start,
	}
	r.tag = tag
	r.remaining = tag.BodyLength
	if tag.BodyLength == 0 {
		r.state = StatePrevTagSize
	} else {
		r.state = StateTagBody
	}
	return tag, nil
}

func (r *Reader) ReadAudioFlags() (AudioFlags, error) {
	var b [1]byte
	if err := r.readBody(b[:]); err != nil {
		return 0, err
	}
	return AudioFlags(b[0]), nil
}

func (r *Reader) ReadVideoFlags() (VideoFlags, error) {
	var b [1]byte
	if err := r.readBody(b[:]); err != nil {
		return 0, err
	}
	return VideoFlags(b[0]), nil
}

// ReadMetadata decodes the event name and payload of a script-data tag.
// Decoding is bounded by the tag body: a payload that runs past a complete
// body is reported as amf.ErrMalformedValue, while ErrEndOfStream means the
// input itself ended.
func (r *Reader) ReadMetadata() (name, value amf.Value, err error) {
	if r.state != StateTagBody {
		return nil, nil, r.stateError("metadata")
	}
	body := bodyReader{r}
	if name, err = amf.Decode(body); err != nil {
		return nil, nil, r.metadataError(err)
	}
	if value, err = amf.Decode(body); err != nil {
		return nil, nil, r.metadataError(err)
	}
	return name, value, nil
}

func (r *Reader) metadataError(err error) error {
	if errors.Is(err, ErrEndOfStream) && r.state != StateTagBody {
		return fmt.Errorf("%w: script data overruns the %d byte body of the tag at offset %d",
			amf.ErrMalformedValue, r.tag.BodyLength, r.tag.Offset)
	}
	return err
}

// ReadTagBody copies up to len(buf) bytes of the current body.
func (r *Reader) ReadTagBody(buf []byte) (int, error) {
	if r.state != StateTagBody {
		return 0, r.stateError("tag body")
	}
	want := min(uint32(len(buf)), r.remaining)
	n, err := r.read(buf[:want])
	r.consumed(n)
	if err != nil {
		return n, ErrEndOfStream
	}
	return n, nil
}

func (r *Reader) readBody(buf []byte) error {
	if r.state != StateTagBody || uint32(len(buf)) > r.remaining {
		return r.stateError("tag body")
	}
	n, err := r.read(buf)
	r.consumed(n)
	if err != nil {
		return ErrEndOfStream
	}
	return nil
}

func (r *Reader) consumed(n int) {
	r.remaining -= uint32(n)
	if r.remaining == 0 {
		r.state = StatePrevTagSize
	}
}

func (r *Reader) skipBody() error {
	n, err := r.r.Discard(int(r.remaining))
	r.offset += int64(n)
	r.consumed(n)
	if err != nil {
		return ErrEndOfStream
	}
	return nil
}

func (r *Reader) skip(n int) error {
	discarded, err := r.r.Discard(n)
	r.offset += int64(discarded)
	if err != nil {
		return ErrEndOfStream
	}
	return nil
}

func (r *Reader) read(buf []byte) (int, error) {
	n, err := io.ReadFull(r.r, buf)
	r.offset += int64(n)
	return n, err
}

func (r *Reader) stateError(op string) error {
	return fmt.Errorf("%w: cannot read %s in state %s", ErrEndOfStream, op, r.state)
}

type bodyReader struct {
	r *Reader
}

func (b bodyReader) Read(p []byte) (int, error) {
	if b.r.state != StateTagBody {
		return 0, io.EOF
	}
	if uint32(len(p)) > b.r.remaining {
		p = p[:b.r.remaining]
	}
	n, err := b.r.r.Read(p)
	b.r.offset += int64(n)
	b.r.consumed(n)
	return n, err
}
