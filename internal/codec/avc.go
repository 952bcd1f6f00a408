package codec

const avcSequenceHeader = 0

// maxPictureUnits bounds the macroblock counts so the pixel size cannot
// overflow.
const maxPictureUnits = 1 << 16

// avcResolution expects an AVC video packet: packet type, 24-bit composition
// time, then the decoder configuration record for sequence headers.
func avcResolution(data []byte) (Size, bool) {
	if len(data) < 4 || data[0] != avcSequenceHeader {
		return Size{}, false
	}
	sps, ok := firstAVCSPS(data[4:])
	if !ok {
		return Size{}, false
	}
	return parseAVCSPS(sps)
}

func firstAVCSPS(record []byte) ([]byte, bool) {
	if len(record) < 8 {
		return nil, false
	}
	spsCount := int(record[5] & 0x1F)
	if spsCount == 0 {
		return nil, false
	}
	spsLen := int(record[6])<<8 | int(record[7])
	if spsLen < 2 || 8+spsLen > len(record) {
		return nil, false
	}
	return record[8 : 8+spsLen], true
}

func isHighProfile(profileID uint32) bool {
	switch profileID {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	default:
		return false
	}
}

// parseAVCSPS walks a sequence parameter set NAL unit (header byte
// included) up to the picture size fields. Frame cropping is not applied.
func parseAVCSPS(nal []byte) (Size, bool) {
	if len(nal) < 2 {
		return Size{}, false
	}
	br := newBitReader(unescapeRBSP(nal[1:]))
	profileID, ok := br.readBits(8)
	if !ok {
		return Size{}, false
	}
	// constraint flags, level
	if !br.skipBits(16) {
		return Size{}, false
	}
	if _, ok := br.readUE(); !ok {
		return Size{}, false
	}

	if isHighProfile(profileID) {
		chromaFormat, ok := br.readUE()
		if !ok {
			return Size{}, false
		}
		if chromaFormat == 3 && !br.skipBits(1) {
			return Size{}, false
		}
		// bit depth luma, bit depth chroma
		for i := 0; i < 2; i++ {
			if _, ok := br.readUE(); !ok {
				return Size{}, false
			}
		}
		// qpprime_y_zero_transform_bypass_flag
		if !br.skipBits(1) {
			return Size{}, false
		}
		scalingPresent, ok := br.readBit()
		if !ok {
			return Size{}, false
		}
		if scalingPresent == 1 {
			lists := 8
			if chromaFormat == 3 {
				lists = 12
			}
			for i := 0; i < lists; i++ {
				present, ok := br.readBit()
				if !ok {
					return Size{}, false
				}
				if present == 0 {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if !skipScalingList(br, size) {
					return Size{}, false
				}
			}
		}
	}

	// log2_max_frame_num_minus4
	if _, ok := br.readUE(); !ok {
		return Size{}, false
	}
	pocType, ok := br.readUE()
	if !ok {
		return Size{}, false
	}
	switch pocType {
	case 0:
		if _, ok := br.readUE(); !ok {
			return Size{}, false
		}
	case 1:
		if !br.skipBits(1) {
			return Size{}, false
		}
		for i := 0; i < 2; i++ {
			if _, ok := br.readSE(); !ok {
				return Size{}, false
			}
		}
		cycle, ok := br.readUE()
		if !ok || cycle > 255 {
			return Size{}, false
		}
		for i := uint32(0); i < cycle; i++ {
			if _, ok := br.readSE(); !ok {
				return Size{}, false
			}
		}
	}

	// max_num_ref_frames, gaps_in_frame_num_value_allowed_flag
	if _, ok := br.readUE(); !ok {
		return Size{}, false
	}
	if !br.skipBits(1) {
		return Size{}, false
	}
	widthInMbs, ok := br.readUE()
	if !ok {
		return Size{}, false
	}
	heightInMapUnits, ok := br.readUE()
	if !ok {
		return Size{}, false
	}
	if widthInMbs >= maxPictureUnits || heightInMapUnits >= maxPictureUnits {
		return Size{}, false
	}
	frameMbsOnly, ok := br.readBit()
	if !ok {
		return Size{}, false
	}
	return Size{
		Width:  (widthInMbs + 1) * 16,
		Height: (2 - frameMbsOnly) * (heightInMapUnits + 1) * 16,
	}, true
}

func skipScalingList(br *bitReader, size int) bool {
	last := int32(8)
	next := int32(8)
	for i := 0; i < size; i++ {
		if next != 0 {
			delta, ok := br.readSE()
			if !ok {
				return false
			}
			next = (last + delta + 256) % 256
		}
		if next != 0 {
			last = next
		}
	}
	return true
}
