package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SPS from an x264 High profile 1280x720 encode.
var avcSPS720p = []byte{
	0x67, 0x64, 0x00, 0x1f, 0xac, 0xd9, 0x40, 0x50, 0x05, 0xbb,
	0x01, 0x10, 0x00, 0x00, 0x03, 0x00, 0x10, 0x00, 0x00, 0x03,
	0x03, 0x20, 0xf1, 0x83, 0x19, 0x60,
}

// Main profile 1920x1080 SPS; contains emulation prevention bytes.
var hevcSPS1080p = []byte{
	0x42, 0x01, 0x01, 0x01, 0x60, 0x00, 0x00, 0x03, 0x00, 0x90,
	0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x00, 0x78, 0xa0, 0x03,
	0xc0, 0x80, 0x10, 0xe5, 0x96,
}

func writeBits(dst []byte, bitPos *int, value uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		b := (value >> uint(i)) & 1
		bytePos := *bitPos / 8
		shift := 7 - (*bitPos % 8)
		if b != 0 {
			dst[bytePos] |= 1 << uint(shift)
		}
		*bitPos++
	}
}

func avcSequenceHeaderPacket(sps []byte) []byte {
	pkt := []byte{0x00, 0x00, 0x00, 0x00}
	pkt = append(pkt, 0x01, sps[1], sps[2], sps[3], 0xFF, 0xE1, byte(len(sps)>>8), byte(len(sps)))
	pkt = append(pkt, sps...)
	return append(pkt, 0x01, 0x00, 0x04, 0x68, 0xeb, 0xe3, 0xcb)
}

func hevcSequenceHeaderPacket(sps []byte) []byte {
	pkt := []byte{0x00, 0x00, 0x00, 0x00}
	record := make([]byte, hevcConfigFixedSize)
	record[0] = 0x01
	record = append(record, 0x02)
	vps := []byte{0x40, 0x01, 0x0c, 0x01}
	record = append(record, 0x20, 0x00, 0x01, 0x00, byte(len(vps)))
	record = append(record, vps...)
	record = append(record, 0x21, 0x00, 0x01, byte(len(sps)>>8), byte(len(sps)))
	record = append(record, sps...)
	return append(pkt, record...)
}

func TestBitReaderBounds(t *testing.T) {
	br := newBitReader([]byte{0b10110000})
	v, ok := br.readBits(4)
	require.True(t, ok)
	assert.Equal(t, uint32(0b1011), v)

	_, ok = br.readBits(5)
	assert.False(t, ok, "only 4 bits left")

	assert.True(t, br.skipBits(3))
	bit, ok := br.readBit()
	require.True(t, ok)
	assert.Equal(t, uint32(0), bit)

	_, ok = br.readBit()
	assert.False(t, ok)
	assert.False(t, br.skipBits(1))

	_, ok = newBitReader(make([]byte, 8)).readBits(33)
	assert.False(t, ok)

	v, ok = newBitReader([]byte{0xDE, 0xAD, 0xBE, 0xEF}).readBits(32)
	require.True(t, ok)
	assert.Equal(t, uint32(0xDEADBEEF), v)
}

func TestExpGolombUnsigned(t *testing.T) {
	cases := []struct {
		bits  uint32
		n     int
		value uint32
	}{
		{0b1, 1, 0},
		{0b010, 3, 1},
		{0b011, 3, 2},
		{0b00100, 5, 3},
		{0b00111, 5, 6},
		{0b0001000, 7, 7},
	}
	for _, tc := range cases {
		buf := make([]byte, 4)
		pos := 0
		writeBits(buf, &pos, tc.bits, tc.n)
		got, ok := newBitReader(buf).readUE()
		require.True(t, ok)
		assert.Equal(t, tc.value, got, "code %0*b", tc.n, tc.bits)
	}
}

func TestExpGolombSigned(t *testing.T) {
	buf := make([]byte, 4)
	pos := 0
	for _, code := range []struct {
		bits uint32
		n    int
	}{{0b1, 1}, {0b010, 3}, {0b011, 3}, {0b00100, 5}, {0b00101, 5}} {
		writeBits(buf, &pos, code.bits, code.n)
	}
	br := newBitReader(buf)
	var got []int32
	for i := 0; i < 5; i++ {
		v, ok := br.readSE()
		require.True(t, ok)
		got = append(got, v)
	}
	assert.Equal(t, []int32{0, 1, -1, 2, -2}, got)
}

func TestExpGolombTruncated(t *testing.T) {
	_, ok := newBitReader([]byte{0x00}).readUE()
	assert.False(t, ok)
	_, ok = newBitReader([]byte{0x01}).readUE()
	assert.False(t, ok, "prefix of 7 zeros needs 7 more bits")
	_, ok = newBitReader(nil).readSE()
	assert.False(t, ok)
}

func TestUnescapeRBSP(t *testing.T) {
	in := []byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00, 0x03}
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x03}, unescapeRBSP(in))
}

func TestAVCSPSResolution(t *testing.T) {
	size, ok := parseAVCSPS(avcSPS720p)
	require.True(t, ok)
	assert.Equal(t, Size{Width: 1280, Height: 720}, size)

	size, ok = Resolution(AVC, avcSequenceHeaderPacket(avcSPS720p))
	require.True(t, ok)
	assert.Equal(t, Size{Width: 1280, Height: 720}, size)
}

func writeUE(dst []byte, bitPos *int, value uint32) {
	code := uint64(value) + 1
	n := 0
	for v := code; v > 0; v >>= 1 {
		n++
	}
	*bitPos += n - 1
	writeBits(dst, bitPos, uint32(code), n)
}

// baselineSPS builds a profile 66 SPS NAL unit with the given macroblock
// counts and frame_mbs_only_flag set.
func baselineSPS(widthInMbs, heightInMapUnits uint32) []byte {
	rbsp := make([]byte, 24)
	pos := 0
	writeBits(rbsp, &pos, 66, 8)
	writeBits(rbsp, &pos, 0x001f, 16)
	writeUE(rbsp, &pos, 0) // seq_parameter_set_id
	writeUE(rbsp, &pos, 0) // log2_max_frame_num_minus4
	writeUE(rbsp, &pos, 2) // pic_order_cnt_type
	writeUE(rbsp, &pos, 1) // max_num_ref_frames
	writeBits(rbsp, &pos, 0, 1)
	writeUE(rbsp, &pos, widthInMbs)
	writeUE(rbsp, &pos, heightInMapUnits)
	writeBits(rbsp, &pos, 1, 1)
	return append([]byte{0x67}, rbsp[:(pos+7)/8+1]...)
}

func TestAVCRejectsOversizedPicture(t *testing.T) {
	size, ok := parseAVCSPS(baselineSPS(79, 44))
	require.True(t, ok)
	assert.Equal(t, Size{Width: 1280, Height: 720}, size)

	// (2^28 + 1) * 16 wraps to 16 in 32 bits.
	_, ok = parseAVCSPS(baselineSPS(1<<28, 44))
	assert.False(t, ok)
	_, ok = parseAVCSPS(baselineSPS(79, 1<<28))
	assert.False(t, ok)
	_, ok = Resolution(AVC, avcSequenceHeaderPacket(baselineSPS(maxPictureUnits, 1)))
	assert.False(t, ok)
}

func TestAVCRejectsNALUPackets(t *testing.T) {
	pkt := avcSequenceHeaderPacket(avcSPS720p)
	pkt[0] = 0x01
	_, ok := Resolution(AVC, pkt)
	assert.False(t, ok)
}

func TestTruncatedSPS(t *testing.T) {
	// The picture size fields end inside the first 10 bytes.
	for i := 4; i < 10; i++ {
		_, ok := Resolution(AVC, avcSequenceHeaderPacket(avcSPS720p[:i]))
		assert.False(t, ok, "avc prefix %d", i)
	}
	_, ok := Resolution(AVC, avcSequenceHeaderPacket(avcSPS720p[:10]))
	assert.True(t, ok)

	for i := 0; i < 24; i++ {
		_, ok := parseHEVCSPS(hevcSPS1080p[:i])
		assert.False(t, ok, "hevc prefix %d", i)
	}
}

func TestHEVCSPSResolution(t *testing.T) {
	size, ok := parseHEVCSPS(hevcSPS1080p)
	require.True(t, ok)
	assert.Equal(t, Size{Width: 1920, Height: 1080}, size)

	size, ok = Resolution(HEVC, hevcSequenceHeaderPacket(hevcSPS1080p))
	require.True(t, ok)
	assert.Equal(t, Size{Width: 1920, Height: 1080}, size)
}

func TestHEVCMissingSPS(t *testing.T) {
	pkt := hevcSequenceHeaderPacket(hevcSPS1080p)
	// Retag the SPS array as a PPS array.
	idx := len(pkt) - len(hevcSPS1080p) - 5
	require.Equal(t, byte(0x21), pkt[idx])
	pkt[idx] = 0x22
	_, ok := Resolution(HEVC, pkt)
	assert.False(t, ok)
}

func TestH263Resolution(t *testing.T) {
	custom := func(class uint32, bits int, w, h uint32) []byte {
		buf := make([]byte, 16)
		pos := 0
		writeBits(buf, &pos, 1, 17)
		writeBits(buf, &pos, 0, 5)
		writeBits(buf, &pos, 0, 8)
		writeBits(buf, &pos, class, 3)
		if bits > 0 {
			writeBits(buf, &pos, w, bits)
			writeBits(buf, &pos, h, bits)
		}
		return buf
	}

	size, ok := Resolution(H263, custom(0, 8, 200, 150))
	require.True(t, ok)
	assert.Equal(t, Size{200, 150}, size)

	size, ok = Resolution(H263, custom(1, 16, 640, 480))
	require.True(t, ok)
	assert.Equal(t, Size{640, 480}, size)

	expected := map[uint32]Size{2: {352, 288}, 3: {176, 144}, 4: {128, 96}, 5: {320, 240}, 6: {160, 120}}
	for class, want := range expected {
		size, ok = Resolution(H263, custom(class, 0, 0, 0))
		require.True(t, ok, "class %d", class)
		assert.Equal(t, want, size)
	}

	_, ok = Resolution(H263, custom(7, 0, 0, 0))
	assert.False(t, ok)

	bad := custom(2, 0, 0, 0)
	bad[0] = 0xFF
	_, ok = Resolution(H263, bad)
	assert.False(t, ok, "bad start code")
}

func TestScreenVideoResolution(t *testing.T) {
	size, ok := Resolution(Screen, []byte{0x34, 0x00, 0x32, 0x58})
	require.True(t, ok)
	assert.Equal(t, Size{1024, 600}, size)

	_, ok = Resolution(ScreenV2, []byte{0x34})
	assert.False(t, ok)
}

func TestVP6Resolution(t *testing.T) {
	// 40x30 macroblocks, 0 horizontal and 8 vertical crop.
	size, ok := Resolution(VP6, []byte{0x08, 0x00, 0x00, 0x1E, 0x28})
	require.True(t, ok)
	assert.Equal(t, Size{640, 472}, size)

	size, ok = Resolution(VP6Alpha, []byte{0x48, 0x00, 0x00, 0x10, 0x00, 0x00, 0x14, 0x0A})
	require.True(t, ok)
	assert.Equal(t, Size{156, 312}, size)

	_, ok = Resolution(VP6, []byte{0x00, 0x00, 0x00, 0x00})
	assert.False(t, ok)
	_, ok = Resolution(VP6, []byte{0xF0, 0x00, 0x00, 0x01, 0x00})
	assert.False(t, ok, "zero width after crop")
}

func TestUnsupportedCodec(t *testing.T) {
	assert.False(t, Supported(1))
	_, ok := Resolution(1, []byte{0xFF, 0xD8})
	assert.False(t, ok)
	assert.True(t, Supported(AVC))
}

func FuzzResolution(f *testing.F) {
	f.Add(AVC, avcSequenceHeaderPacket(avcSPS720p))
	f.Add(HEVC, hevcSequenceHeaderPacket(hevcSPS1080p))
	f.Add(H263, []byte{0x00, 0x00, 0x84, 0x00, 0x40})
	f.Add(VP6Alpha, []byte{})

	f.Fuzz(func(t *testing.T, codecID byte, data []byte) {
		size, ok := Resolution(codecID, data)
		if ok && (size.Width == 0 || size.Height == 0) {
			t.Fatalf("ok with empty size %+v", size)
		}
	})
}
