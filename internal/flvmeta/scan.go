package flvmeta

import (
	"errors"
	"fmt"
	"io"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/codec"
	"github.com/autobrr/go-flvmeta/internal/flv"
)

const (
	eventMetaData   = "onMetaData"
	eventLastSecond = "onLastSecond"
)

var errScanStop = errors.New("scan stopped")

type keyframe struct {
	timestamp uint32
	offset    int64
}

// tagMark records a kept tag whose timestamp exceeds every earlier one.
type tagMark struct {
	offset    int64
	timestamp uint32
}

type droppedTag struct {
	offset int64
	size   int64
}

// truncation describes where the input stops being usable.
type truncation struct {
	offset int64
	// partial is the number of bytes copied under PolicyIgnore.
	partial int64
}

type streamStats struct {
	present       bool
	tagBytes      int64
	dataBytes     int64
	frames        int
	first         uint32
	last          uint32
	frameDuration uint32
}

func (s *streamStats) add(ts uint32) {
	if !s.present {
		s.present = true
		s.first = ts
	} else if ts > s.last {
		s.frameDuration = ts - s.last
	}
	s.last = ts
	s.frames++
}

// scanInfo is everything the first pass learns about the input.
type scanInfo struct {
	fileSize  int64
	dataStart int64

	video, audio streamStats
	videoCodec   byte
	audioFormat  byte
	audioRate    byte
	audioSize    byte
	audioStereo  bool
	resolution   codec.Size
	hasSize      bool
	probed       bool

	hasAV         bool
	firstAV       uint32
	lastTimestamp uint32

	keyframes      []keyframe
	lastKeyframe   uint32
	canSeekToEnd   bool
	scriptTagBytes int64
	keptTagBytes   int64
	biggestBody    uint32
	marks          []tagMark
	dropped        []droppedTag
	original       amf.Value
	hasLastSecond  bool
	truncated      *truncation
	tags           int
}

type scanner struct {
	info  *scanInfo
	opts  Options
	fixer timestampFixer
	ts    uint32
	r     *flv.Reader

	streamIDWarned bool
}

// scan is the first pass. size is the total input length, used to spot a
// truncated final tag before its body is read.
func scan(src io.Reader, size int64, opts Options) (*scanInfo, error) {
	s := &scanner{info: &scanInfo{fileSize: size}, opts: opts}
	err := flv.Walk(src, flv.Handler{
		OnHeader: func(r *flv.Reader, h flv.Header) error {
			s.r = r
			s.info.dataStart = r.Offset() + flv.PrevTagSizeSize
			return nil
		},
		OnTag:         s.onTag,
		OnAudioTag:    s.onAudioTag,
		OnVideoTag:    s.onVideoTag,
		OnMetadataTag: s.onMetadataTag,
		OnBadMetadata: s.onBadMetadata,
	})
	switch {
	case err == nil, errors.Is(err, errScanStop):
	case errors.Is(err, flv.ErrEndOfStream) && opts.Policy != PolicyStrict && s.atEnd():
		// A cut tag header or trailer. Every tag seen so far is whole and
		// the rewrite supplies its own trailers.
		opts.Logger.Warn("ignoring incomplete data at end of input", "tags", s.info.tags)
		s.info.truncated = &truncation{offset: size}
	default:
		return nil, err
	}
	return s.info, nil
}

func (s *scanner) onTag(r *flv.Reader, tag flv.Tag) error {
	info := s.info
	if end := tag.Offset + flv.TagHeaderSize + int64(tag.BodyLength); end > info.fileSize {
		switch s.opts.Policy {
		case PolicyFix:
			s.opts.Logger.Warn("dropping truncated tag", "offset", tag.Offset, "type", tag.Type)
			info.truncated = &truncation{offset: tag.Offset}
			return errScanStop
		case PolicyIgnore:
			partial := info.fileSize - tag.Offset
			s.opts.Logger.Warn("copying truncated tag as is", "offset", tag.Offset, "type", tag.Type, "bytes", partial)
			info.truncated = &truncation{offset: tag.Offset, partial: partial}
			info.keptTagBytes += partial
			return errScanStop
		default:
			return fmt.Errorf("%w: %s tag at offset %d declares %d body bytes, input ends at %d",
				flv.ErrEndOfStream, tag.Type, tag.Offset, tag.BodyLength, info.fileSize)
		}
	}

	if tag.StreamID != 0 && !s.streamIDWarned {
		s.streamIDWarned = true
		s.opts.Logger.Warn("tag has a non-zero stream id, writing zero", "offset", tag.Offset, "stream_id", tag.StreamID)
	}

	info.tags++
	s.ts = s.fixer.fix(tag.Type, tag.Timestamp)
	info.biggestBody = max(info.biggestBody, tag.BodyLength)

	switch tag.Type {
	case flv.TagAudio:
		info.audio.tagBytes += tag.Size()
		s.markAV()
		s.keep(tag)
	case flv.TagVideo:
		info.video.tagBytes += tag.Size()
		s.markAV()
		s.keep(tag)
	case flv.TagScript:
		if tag.BodyLength == 0 {
			info.scriptTagBytes += tag.Size()
			s.keep(tag)
		}
	}
	return nil
}

func (s *scanner) markAV() {
	info := s.info
	if !info.hasAV {
		info.hasAV = true
		info.firstAV = s.ts
		info.lastTimestamp = s.ts
	}
	info.lastTimestamp = max(info.lastTimestamp, s.ts)
}

func (s *scanner) keep(tag flv.Tag) {
	info := s.info
	info.keptTagBytes += tag.Size()
	if n := len(info.marks); n == 0 || s.ts > info.marks[n-1].timestamp {
		info.marks = append(info.marks, tagMark{offset: tag.Offset, timestamp: s.ts})
	}
}

func (s *scanner) onAudioTag(r *flv.Reader, tag flv.Tag, flags flv.AudioFlags) error {
	info := s.info
	if !info.audio.present {
		info.audioFormat = flags.Format()
		info.audioRate = flags.Rate()
		info.audioSize = flags.Size()
		info.audioStereo = flags.Stereo()
	}
	info.audio.add(s.ts)
	info.audio.dataBytes += int64(tag.BodyLength) - 1
	return nil
}

func (s *scanner) onVideoTag(r *flv.Reader, tag flv.Tag, flags flv.VideoFlags) error {
	info := s.info
	if !info.video.present {
		info.videoCodec = flags.CodecID()
	}
	info.video.add(s.ts)
	info.video.dataBytes += int64(tag.BodyLength) - 1

	if !info.probed {
		info.probed = true
		if codec.Supported(flags.CodecID()) {
			payload := make([]byte, r.Remaining())
			n, err := r.ReadTagBody(payload)
			if err != nil {
				return err
			}
			if size, ok := codec.Resolution(flags.CodecID(), payload[:n]); ok {
				info.resolution = size
				info.hasSize = true
			} else {
				s.opts.Logger.Debug("could not determine video resolution", "codec", flv.VideoCodecName(flags.CodecID()))
			}
		}
	}

	if flags.Keyframe() {
		if s.opts.AllKeyframes || len(info.keyframes) == 0 || s.ts != info.lastKeyframe {
			info.keyframes = append(info.keyframes, keyframe{timestamp: s.ts, offset: tag.Offset})
			info.lastKeyframe = s.ts
		}
		info.canSeekToEnd = true
	} else {
		info.canSeekToEnd = false
	}
	return nil
}

func (s *scanner) onMetadataTag(r *flv.Reader, tag flv.Tag, name, value amf.Value) error {
	info := s.info
	event, _ := amf.AsString(name)
	if event == eventMetaData {
		info.dropped = append(info.dropped, droppedTag{offset: tag.Offset, size: tag.Size()})
		if info.original == nil {
			info.original = value
		}
		return nil
	}
	if event == eventLastSecond {
		info.hasLastSecond = true
	}
	info.scriptTagBytes += tag.Size()
	s.keep(tag)
	return nil
}

// onBadMetadata handles a script tag whose payload does not decode. Strict
// fails; otherwise the tag is copied through as opaque bytes.
func (s *scanner) onBadMetadata(r *flv.Reader, tag flv.Tag, err error) error {
	if s.opts.Policy == PolicyStrict {
		return err
	}
	s.opts.Logger.Warn("keeping undecodable script tag", "offset", tag.Offset, "error", err)
	s.info.scriptTagBytes += tag.Size()
	s.keep(tag)
	return nil
}

// atEnd reports whether the reader consumed the whole input, which is the
// only place a cut header or trailer can be.
func (s *scanner) atEnd() bool {
	return s.r != nil && s.r.Offset() >= s.info.fileSize
}

// isDropped reports whether the tag at offset is an onMetaData tag the
// rewrite replaces.
func (info *scanInfo) isDropped(offset int64) bool {
	for _, d := range info.dropped {
		if d.offset == offset {
			return true
		}
	}
	return false
}

// droppedBefore sums the footprint of dropped tags ahead of offset.
func (info *scanInfo) droppedBefore(offset int64) int64 {
	var total int64
	for _, d := range info.dropped {
		if d.offset >= offset {
			break
		}
		total += d.size
	}
	return total
}
