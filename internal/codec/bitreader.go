package codec

// bitReader reads MSB-first bits from a byte slice. Every read reports
// ok=false instead of running past the end of data.
type bitReader struct {
	data []byte
	pos  int
	bit  uint8
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (br *bitReader) readBit() (uint32, bool) {
	if br.pos >= len(br.data) {
		return 0, false
	}
	bit := (br.data[br.pos] >> (7 - br.bit)) & 1
	br.bit++
	if br.bit == 8 {
		br.bit = 0
		br.pos++
	}
	return uint32(bit), true
}

func (br *bitReader) readBits(n int) (uint32, bool) {
	if n < 0 || n > 32 || n > br.bitsLeft() {
		return 0, false
	}
	var value uint32
	for i := 0; i < n; i++ {
		bit, _ := br.readBit()
		value = value<<1 | bit
	}
	return value, true
}

func (br *bitReader) skipBits(n int) bool {
	if n < 0 || n > br.bitsLeft() {
		return false
	}
	total := br.pos*8 + int(br.bit) + n
	br.pos = total / 8
	br.bit = uint8(total % 8)
	return true
}

func (br *bitReader) bitsLeft() int {
	return (len(br.data)-br.pos)*8 - int(br.bit)
}

// readUE decodes an unsigned exp-Golomb code.
func (br *bitReader) readUE() (uint32, bool) {
	zeros := 0
	for {
		bit, ok := br.readBit()
		if !ok {
			return 0, false
		}
		if bit == 1 {
			break
		}
		zeros++
		if zeros > 31 {
			return 0, false
		}
	}
	rest, ok := br.readBits(zeros)
	if !ok {
		return 0, false
	}
	return uint32((uint64(1)<<zeros)+uint64(rest)) - 1, true
}

// readSE decodes a signed exp-Golomb code.
func (br *bitReader) readSE() (int32, bool) {
	v, ok := br.readUE()
	if !ok {
		return 0, false
	}
	if v%2 == 0 {
		return -int32(v / 2), true
	}
	return int32((v + 1) / 2), true
}

// unescapeRBSP drops the emulation prevention byte from every 00 00 03.
func unescapeRBSP(nal []byte) []byte {
	rbsp := make([]byte, 0, len(nal))
	zeroCount := 0
	for _, b := range nal {
		if zeroCount == 2 && b == 0x03 {
			zeroCount = 0
			continue
		}
		rbsp = append(rbsp, b)
		if b == 0x00 {
			zeroCount++
		} else {
			zeroCount = 0
		}
	}
	return rbsp
}
