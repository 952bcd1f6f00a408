package flvmeta

import (
	"math"
	"sort"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flv"
)

// outputPrefix is the rewritten header plus the initial previous tag size.
const outputPrefix = flv.HeaderSize + flv.PrevTagSizeSize

// appendAtEnd marks an end marker that goes after the last tag.
const appendAtEnd = math.MaxInt64

var audioRates = [4]float64{5500, 11000, 22050, 44100}

// plan is the output layout computed between the two passes.
type plan struct {
	info *scanInfo
	tl   timeline

	meta     *amf.ECMAArray
	metaSize int64

	marker     bool
	markerTS   uint32
	markerSize int64
	// insertAt is the input offset of the tag the end marker precedes.
	insertAt int64

	fileSize int64
	duration float64
}

func newPlan(info *scanInfo, opts Options) *plan {
	p := &plan{info: info, insertAt: appendAtEnd}
	if opts.ResetTimestamps && info.hasAV {
		p.tl.base = info.firstAV
	}
	durationMs := p.durationMs()
	p.duration = float64(durationMs) / 1000

	if info.hasAV && !opts.NoLastSecond && !info.hasLastSecond {
		p.marker = true
		if durationMs > 1000 {
			p.markerTS = durationMs - 1000
		}
		p.markerSize = flv.ScriptTagSize(eventLastSecond, amf.NewECMAArray())
		i := sort.Search(len(info.marks), func(i int) bool {
			return p.tl.out(info.marks[i].timestamp) >= p.markerTS
		})
		switch {
		case i < len(info.marks):
			p.insertAt = info.marks[i].offset
		case info.truncated != nil && info.truncated.partial > 0:
			// Never follow a partially copied tag.
			p.insertAt = info.truncated.offset
		}
	}

	positions := p.buildMetadata(opts)
	p.metaSize = flv.ScriptTagSize(eventMetaData, p.meta)

	var markerSize int64
	if p.marker {
		markerSize = p.markerSize
	}
	p.fileSize = outputPrefix + p.metaSize + info.keptTagBytes + markerSize
	p.meta.Set("filesize", amf.Number(p.fileSize))
	p.meta.Set("datasize", amf.Number(p.fileSize-outputPrefix))

	if positions != nil {
		for i, kf := range info.keyframes {
			positions.Set(i, amf.Number(p.outputOffset(kf.offset)))
		}
	}
	return p
}

// durationMs is the output time of the last audio or video tag plus the
// duration of that stream's final frame.
func (p *plan) durationMs() uint32 {
	info := p.info
	if !info.hasAV {
		return 0
	}
	last := p.tl.out(info.lastTimestamp)
	var tail uint32
	switch {
	case info.video.present && info.video.last == info.lastTimestamp:
		tail = info.video.frameDuration
	case info.audio.present:
		tail = info.audio.frameDuration
	}
	return last + tail
}

// outputOffset maps the input offset of a kept tag to its position in the
// rewritten file.
func (p *plan) outputOffset(offset int64) int64 {
	out := offset - p.info.dataStart + outputPrefix + p.metaSize - p.info.droppedBefore(offset)
	if p.marker && offset >= p.insertAt {
		out += p.markerSize
	}
	return out
}

func (p *plan) rate(bytes int64) float64 {
	if p.duration <= 0 {
		return 0
	}
	return float64(bytes) / 1024 * 8 / p.duration
}

func (p *plan) seconds(ts uint32) amf.Number {
	return amf.Number(float64(p.tl.out(ts)) / 1000)
}

// buildMetadata assembles the onMetaData tree with placeholder sizes and
// returns the keyframe position array still to be filled in.
func (p *plan) buildMetadata(opts Options) *amf.StrictArray {
	info := p.info
	hasVideo, hasAudio := info.video.present, info.audio.present
	m := amf.NewECMAArray()
	p.meta = m

	m.Add("hasMetadata", amf.Boolean(true))
	m.Add("hasVideo", amf.Boolean(hasVideo))
	m.Add("hasAudio", amf.Boolean(hasAudio))
	m.Add("duration", amf.Number(p.duration))
	m.Add("lasttimestamp", p.seconds(info.lastTimestamp))
	if hasVideo && len(info.keyframes) > 0 {
		m.Add("lastkeyframetimestamp", p.seconds(info.lastKeyframe))
	}
	if hasVideo {
		if info.hasSize {
			m.Add("width", amf.Number(info.resolution.Width))
			m.Add("height", amf.Number(info.resolution.Height))
		}
		m.Add("videodatarate", amf.Number(p.rate(info.video.dataBytes)))
		var fps float64
		if p.duration > 0 {
			fps = float64(info.video.frames) / p.duration
		}
		m.Add("framerate", amf.Number(fps))
		m.Add("videocodecid", amf.Number(info.videoCodec))
	}
	if hasAudio {
		m.Add("audiosamplerate", amf.Number(audioSampleRate(info.audioFormat, info.audioRate)))
		sampleSize := 8
		if info.audioSize == 1 {
			sampleSize = 16
		}
		m.Add("audiosamplesize", amf.Number(sampleSize))
		m.Add("stereo", amf.Boolean(info.audioStereo))
		m.Add("audiocodecid", amf.Number(info.audioFormat))
		m.Add("audiodatarate", amf.Number(p.rate(info.audio.dataBytes)))
	}
	m.Add("filesize", amf.Number(0))
	if hasVideo {
		m.Add("videosize", amf.Number(info.video.tagBytes))
	}
	if hasAudio {
		m.Add("audiosize", amf.Number(info.audio.tagBytes))
	}
	m.Add("datasize", amf.Number(0))
	m.Add("metadatacreator", amf.String(opts.Creator))
	_, zone := opts.Now.Zone()
	m.Add("metadatadate", amf.Date{Millis: float64(opts.Now.UnixMilli()), TZOffset: int16(zone / 60)})
	if hasVideo && hasAudio {
		var delay float64
		if v, a := p.tl.out(info.video.first), p.tl.out(info.audio.first); a > v {
			delay = float64(a-v) / 1000
		}
		m.Add("audiodelay", amf.Number(delay))
	}
	m.Add("canSeekToEnd", amf.Boolean(hasVideo && info.canSeekToEnd))
	m.Add("hasCuePoints", amf.Boolean(false))
	m.Add("cuePoints", amf.NewStrictArray())
	m.Add("hasKeyframes", amf.Boolean(len(info.keyframes) > 0))

	var positions *amf.StrictArray
	if hasVideo {
		times := amf.NewStrictArray()
		positions = amf.NewStrictArray()
		for _, kf := range info.keyframes {
			times.Push(p.seconds(kf.timestamp))
			positions.Push(amf.Number(0))
		}
		m.Add("keyframes", amf.NewObject(
			amf.Property{Name: "times", Value: times},
			amf.Property{Name: "filepositions", Value: positions},
		))
	}

	for _, f := range opts.Fields {
		m.Set(f.Name, f.Value)
	}
	if opts.PreserveMetadata {
		for _, prop := range originalProperties(info.original) {
			if _, ok := m.Get(prop.Name); !ok {
				m.Add(prop.Name, prop.Value)
			}
		}
	}
	// The size fields are always computed; reset them so the footprint
	// below is measured with fixed-width numbers.
	m.Set("filesize", amf.Number(0))
	m.Set("datasize", amf.Number(0))
	return positions
}

func originalProperties(v amf.Value) []amf.Property {
	switch t := v.(type) {
	case *amf.ECMAArray:
		return t.Properties()
	case *amf.Object:
		return t.Properties()
	}
	return nil
}

func audioSampleRate(format, rate byte) float64 {
	switch format {
	case flv.AudioAAC:
		return 44100
	case flv.AudioNelly8k, flv.AudioMP38k:
		return 8000
	case flv.AudioNelly16k, flv.AudioSpeex:
		return 16000
	}
	return audioRates[rate&0x03]
}
