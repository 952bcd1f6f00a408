package flv

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// splitTimestamp returns the 24 low bits and the extension byte.
func splitTimestamp(ts uint32) (low uint32, ext byte) {
	return ts & 0xFFFFFF, byte(ts >> 24)
}

func joinTimestamp(low uint32, ext byte) uint32 {
	return uint32(ext)<<24 | low&0xFFFFFF
}
