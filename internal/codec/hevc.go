package codec

const (
	hevcNALSPS          = 33
	hevcConfigFixedSize = 22
)

// hevcResolution expects the same packet framing as AVC, carrying an
// HEVCDecoderConfigurationRecord.
func hevcResolution(data []byte) (Size, bool) {
	if len(data) < 4 || data[0] != avcSequenceHeader {
		return Size{}, false
	}
	sps, ok := findHEVCSPS(data[4:])
	if !ok {
		return Size{}, false
	}
	return parseHEVCSPS(sps)
}

// findHEVCSPS walks the record's arrays of NAL units and returns the first
// SPS.
func findHEVCSPS(record []byte) ([]byte, bool) {
	if len(record) < hevcConfigFixedSize+1 {
		return nil, false
	}
	arrays := int(record[hevcConfigFixedSize])
	offset := hevcConfigFixedSize + 1
	for i := 0; i < arrays; i++ {
		if offset+3 > len(record) {
			return nil, false
		}
		nalType := record[offset] & 0x3F
		count := int(record[offset+1])<<8 | int(record[offset+2])
		offset += 3
		for j := 0; j < count; j++ {
			if offset+2 > len(record) {
				return nil, false
			}
			size := int(record[offset])<<8 | int(record[offset+1])
			offset += 2
			if offset+size > len(record) {
				return nil, false
			}
			if nalType == hevcNALSPS {
				return record[offset : offset+size], true
			}
			offset += size
		}
	}
	return nil, false
}

// parseHEVCSPS reads pic_width_in_luma_samples and
// pic_height_in_luma_samples from an SPS NAL unit with its 2-byte header.
func parseHEVCSPS(nal []byte) (Size, bool) {
	if len(nal) < 3 {
		return Size{}, false
	}
	br := newBitReader(unescapeRBSP(nal[2:]))
	// sps_video_parameter_set_id
	if !br.skipBits(4) {
		return Size{}, false
	}
	maxSubLayersMinus1, ok := br.readBits(3)
	if !ok {
		return Size{}, false
	}
	// temporal_id_nesting, then general profile/tier/level (96 bits)
	if !br.skipBits(1 + 96) {
		return Size{}, false
	}
	var profilePresent, levelPresent [8]uint32
	for i := uint32(0); i < maxSubLayersMinus1; i++ {
		profilePresent[i], ok = br.readBit()
		if !ok {
			return Size{}, false
		}
		levelPresent[i], ok = br.readBit()
		if !ok {
			return Size{}, false
		}
	}
	if maxSubLayersMinus1 > 0 && !br.skipBits(int(8-maxSubLayersMinus1)*2) {
		return Size{}, false
	}
	for i := uint32(0); i < maxSubLayersMinus1; i++ {
		if profilePresent[i] == 1 && !br.skipBits(88) {
			return Size{}, false
		}
		if levelPresent[i] == 1 && !br.skipBits(8) {
			return Size{}, false
		}
	}

	// sps_seq_parameter_set_id
	if _, ok := br.readUE(); !ok {
		return Size{}, false
	}
	chromaFormat, ok := br.readUE()
	if !ok {
		return Size{}, false
	}
	if chromaFormat == 3 && !br.skipBits(1) {
		return Size{}, false
	}
	width, ok := br.readUE()
	if !ok {
		return Size{}, false
	}
	height, ok := br.readUE()
	if !ok {
		return Size{}, false
	}
	return Size{Width: width, Height: height}, true
}
