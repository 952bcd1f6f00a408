// Package codec extracts frame dimensions from the first bytes of FLV video
// payloads. Every probe degrades to "unknown" on malformed input.
package codec

import "encoding/binary"

type Size struct {
	Width  uint32
	Height uint32
}

// FLV video codec ids.
const (
	H263     byte = 2
	Screen   byte = 3
	VP6      byte = 4
	VP6Alpha byte = 5
	ScreenV2 byte = 6
	AVC      byte = 7
	HEVC     byte = 12
)

// Resolution probes a video tag body with the leading flags byte removed.
func Resolution(codecID byte, data []byte) (Size, bool) {
	var size Size
	var ok bool
	switch codecID {
	case H263:
		size, ok = h263Resolution(data)
	case Screen, ScreenV2:
		size, ok = screenResolution(data)
	case VP6:
		size, ok = vp6Resolution(data)
	case VP6Alpha:
		size, ok = vp6AlphaResolution(data)
	case AVC:
		size, ok = avcResolution(data)
	case HEVC:
		size, ok = hevcResolution(data)
	}
	if !ok || size.Width == 0 || size.Height == 0 {
		return Size{}, false
	}
	return size, true
}

// Supported reports whether Resolution knows the codec.
func Supported(codecID byte) bool {
	switch codecID {
	case H263, Screen, ScreenV2, VP6, VP6Alpha, AVC, HEVC:
		return true
	default:
		return false
	}
}

var h263Sizes = [8]Size{
	2: {352, 288},
	3: {176, 144},
	4: {128, 96},
	5: {320, 240},
	6: {160, 120},
}

func h263Resolution(data []byte) (Size, bool) {
	br := newBitReader(data)
	startCode, ok := br.readBits(17)
	if !ok || startCode != 1 {
		return Size{}, false
	}
	// version, temporal reference
	if !br.skipBits(5 + 8) {
		return Size{}, false
	}
	class, ok := br.readBits(3)
	if !ok {
		return Size{}, false
	}
	switch class {
	case 0, 1:
		bits := 8
		if class == 1 {
			bits = 16
		}
		w, okW := br.readBits(bits)
		h, okH := br.readBits(bits)
		if !okW || !okH {
			return Size{}, false
		}
		return Size{Width: w, Height: h}, true
	default:
		size := h263Sizes[class]
		return size, size.Width != 0
	}
}

func screenResolution(data []byte) (Size, bool) {
	if len(data) < 4 {
		return Size{}, false
	}
	w := binary.BigEndian.Uint16(data[0:2]) & 0x0FFF
	h := binary.BigEndian.Uint16(data[2:4]) & 0x0FFF
	return Size{Width: uint32(w), Height: uint32(h)}, true
}

func vp6Resolution(data []byte) (Size, bool) {
	if len(data) < 5 {
		return Size{}, false
	}
	return vp6Size(data[0], data[3], data[4])
}

func vp6AlphaResolution(data []byte) (Size, bool) {
	if len(data) < 8 {
		return Size{}, false
	}
	return vp6Size(data[0], data[6], data[7])
}

// vp6Size applies the FLV crop adjustment nibbles to the macroblock counts.
func vp6Size(adjust, rows, cols byte) (Size, bool) {
	w := int(cols)<<4 - int(adjust>>4)
	h := int(rows)<<4 - int(adjust&0x0F)
	if w <= 0 || h <= 0 {
		return Size{}, false
	}
	return Size{Width: uint32(w), Height: uint32(h)}, true
}
