package flvmeta

import "github.com/autobrr/go-flvmeta/internal/flv"

// extensionJump is how far a timestamp has to fall back within one stream
// before we assume the writer dropped the extension byte.
const extensionJump = 0xF00000

// timestampFixer rebuilds 32-bit timestamps for writers that only fill the
// low 24 bits. Both passes feed it the same tag sequence.
type timestampFixer struct {
	last [3]uint32
	seen [3]bool
	ext  [3]uint32
}

func streamIndex(t flv.TagType) int {
	switch t {
	case flv.TagAudio:
		return 0
	case flv.TagVideo:
		return 1
	default:
		return 2
	}
}

func (f *timestampFixer) fix(t flv.TagType, ts uint32) uint32 {
	i := streamIndex(t)
	if f.seen[i] && ts < f.last[i] && f.last[i]-ts > extensionJump {
		f.ext[i]++
	}
	f.last[i] = ts
	f.seen[i] = true
	return ts + f.ext[i]<<24
}

// timeline maps corrected input timestamps to output timestamps.
type timeline struct {
	base uint32
}

func (tl timeline) out(ts uint32) uint32 {
	if ts < tl.base {
		return 0
	}
	return ts - tl.base
}
