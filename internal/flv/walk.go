package flv

import (
	"errors"
	"fmt"
	"io"

	"github.com/autobrr/go-flvmeta/internal/amf"
)

// Handler holds the callbacks for Walk. Nil callbacks are skipped. A
// type-specific callback is not invoked for a tag with an empty body.
//
// OnBadMetadata receives script tags whose body is complete but does not
// decode. Returning nil continues the walk after the tag; without the
// callback the decode error ends the walk.
type Handler struct {
	OnHeader      func(r *Reader, h Header) error
	OnTag         func(r *Reader, t Tag) error
	OnAudioTag    func(r *Reader, t Tag, flags AudioFlags) error
	OnVideoTag    func(r *Reader, t Tag, flags VideoFlags) error
	OnMetadataTag func(r *Reader, t Tag, name, value amf.Value) error
	OnBadMetadata func(r *Reader, t Tag, err error) error
	OnPrevTagSize func(r *Reader, size uint32) error
	OnEnd         func(r *Reader) error
}

// Walk performs one forward pass over src. The first error returned by a
// callback stops the walk and is returned unchanged.
func Walk(src io.Reader, h Handler) error {
	r := NewReader(src)
	header, err := r.ReadHeader()
	if err != nil {
		return err
	}
	if h.OnHeader != nil {
		if err := h.OnHeader(r, header); err != nil {
			return err
		}
	}

	if err := walkPrevTagSize(r, h); err != nil {
		if errors.Is(err, io.EOF) {
			return walkEnd(r, h)
		}
		return err
	}

	for {
		tag, err := r.ReadTag()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if !tag.Type.Valid() {
			return fmt.Errorf("%w: type %d at offset %d", ErrInvalidTag, byte(tag.Type), tag.Offset)
		}
		if h.OnTag != nil {
			if err := h.OnTag(r, tag); err != nil {
				return err
			}
		}
		if err := walkBody(r, h, tag); err != nil {
			return err
		}
		if err := walkPrevTagSize(r, h); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}
	return walkEnd(r, h)
}

func walkBody(r *Reader, h Handler, tag Tag) error {
	if tag.BodyLength == 0 || r.State() != StateTagBody {
		return nil
	}
	switch tag.Type {
	case TagAudio:
		if h.OnAudioTag == nil {
			return nil
		}
		flags, err := r.ReadAudioFlags()
		if err != nil {
			return err
		}
		return h.OnAudioTag(r, tag, flags)
	case TagVideo:
		if h.OnVideoTag == nil {
			return nil
		}
		flags, err := r.ReadVideoFlags()
		if err != nil {
			return err
		}
		return h.OnVideoTag(r, tag, flags)
	case TagScript:
		if h.OnMetadataTag == nil {
			return nil
		}
		name, value, err := r.ReadMetadata()
		if err != nil {
			if h.OnBadMetadata != nil && errors.Is(err, amf.ErrMalformedValue) {
				return h.OnBadMetadata(r, tag, err)
			}
			return err
		}
		return h.OnMetadataTag(r, tag, name, value)
	}
	return nil
}

func walkPrevTagSize(r *Reader, h Handler) error {
	size, err := r.ReadPrevTagSize()
	if err != nil {
		return err
	}
	if h.OnPrevTagSize != nil {
		return h.OnPrevTagSize(r, size)
	}
	return nil
}

func walkEnd(r *Reader, h Handler) error {
	if h.OnEnd != nil {
		return h.OnEnd(r)
	}
	return nil
}
