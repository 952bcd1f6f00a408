// Package flv reads and writes the FLV tag stream: a 9-byte header followed
// by tags, each trailed by a 32-bit previous-tag-size field.
package flv

import (
	"errors"
	"fmt"

	"github.com/autobrr/go-flvmeta/internal/amf"
)

const (
	HeaderSize      = 9
	TagHeaderSize   = 11
	PrevTagSizeSize = 4
	MaxBodyLength   = 0xFFFFFF

	// TagOverhead is what a tag costs beyond its body, trailer included.
	TagOverhead = TagHeaderSize + PrevTagSizeSize
)

var (
	ErrEndOfStream = amf.ErrEndOfStream
	ErrNotFLV      = errors.New("not an FLV file")
	ErrInvalidTag  = errors.New("invalid tag type")
	ErrWrite       = errors.New("write failed")
)

var signature = [3]byte{'F', 'L', 'V'}

const (
	FlagVideo byte = 0x01
	FlagAudio byte = 0x04
)

type Header struct {
	Signature  [3]byte
	Version    byte
	Flags      byte
	DataOffset uint32
}

func NewHeader(hasAudio, hasVideo bool) Header {
	h := Header{Signature: signature, Version: 1, DataOffset: HeaderSize}
	if hasAudio {
		h.Flags |= FlagAudio
	}
	if hasVideo {
		h.Flags |= FlagVideo
	}
	return h
}

func (h Header) HasAudio() bool { return h.Flags&FlagAudio != 0 }
func (h Header) HasVideo() bool { return h.Flags&FlagVideo != 0 }

type TagType byte

const (
	TagAudio  TagType = 8
	TagVideo  TagType = 9
	TagScript TagType = 18
)

func (t TagType) String() string {
	switch t {
	case TagAudio:
		return "audio"
	case TagVideo:
		return "video"
	case TagScript:
		return "script"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

func (t TagType) Valid() bool {
	return t == TagAudio || t == TagVideo || t == TagScript
}

type Tag struct {
	Type       TagType
	BodyLength uint32
	Timestamp  uint32
	StreamID   uint32
	// Offset is the file position of the tag header.
	Offset int64
}

// Size is the full on-disk footprint including header and trailer.
func (t Tag) Size() int64 {
	return int64(t.BodyLength) + TagOverhead
}

// AudioFlags is the first byte of an audio tag body.
type AudioFlags byte

func (f AudioFlags) Format() byte   { return byte(f) >> 4 }
func (f AudioFlags) Rate() byte     { return (byte(f) >> 2) & 0x03 }
func (f AudioFlags) Size() byte     { return (byte(f) >> 1) & 0x01 }
func (f AudioFlags) Channels() byte { return byte(f) & 0x01 }
func (f AudioFlags) Stereo() bool   { return f.Channels() == 1 }

const (
	AudioPCM            byte = 0
	AudioADPCM          byte = 1
	AudioMP3            byte = 2
	AudioPCMLE          byte = 3
	AudioNelly16k       byte = 4
	AudioNelly8k        byte = 5
	AudioNellymoser     byte = 6
	AudioG711A          byte = 7
	AudioG711U          byte = 8
	AudioAAC            byte = 10
	AudioSpeex          byte = 11
	AudioMP38k          byte = 14
	AudioDeviceSpecific byte = 15
)

// VideoFlags is the first byte of a video tag body.
type VideoFlags byte

func (f VideoFlags) FrameType() byte { return byte(f) >> 4 }
func (f VideoFlags) CodecID() byte   { return byte(f) & 0x0F }
func (f VideoFlags) Keyframe() bool  { return f.FrameType() == FrameKey }

const (
	FrameKey        byte = 1
	FrameInter      byte = 2
	FrameDisposable byte = 3
	FrameGenerated  byte = 4
	FrameInfo       byte = 5
)

const (
	CodecJPEG     byte = 1
	CodecH263     byte = 2
	CodecScreen   byte = 3
	CodecVP6      byte = 4
	CodecVP6Alpha byte = 5
	CodecScreenV2 byte = 6
	CodecAVC      byte = 7
	CodecHEVC     byte = 12
)

func AudioFormatName(format byte) string {
	switch format {
	case AudioPCM:
		return "Linear PCM, platform endian"
	case AudioADPCM:
		return "ADPCM"
	case AudioMP3:
		return "MP3"
	case AudioPCMLE:
		return "Linear PCM, little endian"
	case AudioNelly16k:
		return "Nellymoser 16kHz mono"
	case AudioNelly8k:
		return "Nellymoser 8kHz mono"
	case AudioNellymoser:
		return "Nellymoser"
	case AudioG711A:
		return "G.711 A-law"
	case AudioG711U:
		return "G.711 mu-law"
	case AudioAAC:
		return "AAC"
	case AudioSpeex:
		return "Speex"
	case AudioMP38k:
		return "MP3 8kHz"
	case AudioDeviceSpecific:
		return "Device-specific sound"
	default:
		return "Unknown"
	}
}

func VideoCodecName(codec byte) string {
	switch codec {
	case CodecJPEG:
		return "JPEG"
	case CodecH263:
		return "Sorenson H.263"
	case CodecScreen:
		return "Screen video"
	case CodecVP6:
		return "On2 VP6"
	case CodecVP6Alpha:
		return "On2 VP6 with alpha"
	case CodecScreenV2:
		return "Screen video v2"
	case CodecAVC:
		return "AVC"
	case CodecHEVC:
		return "HEVC"
	default:
		return "Unknown"
	}
}

func FrameTypeName(frameType byte) string {
	switch frameType {
	case FrameKey:
		return "keyframe"
	case FrameInter:
		return "inter frame"
	case FrameDisposable:
		return "disposable inter frame"
	case FrameGenerated:
		return "generated keyframe"
	case FrameInfo:
		return "video info/command frame"
	default:
		return "unknown"
	}
}
