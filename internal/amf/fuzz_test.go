package amf

import (
	"bytes"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x02, 0x00, 0x0a, 'o', 'n', 'M', 'e', 't', 'a', 'D', 'a', 't', 'a'})
	f.Add([]byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x09})
	f.Add([]byte{0x0a, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		v, err := Decode(bytes.NewReader(data))
		if err != nil {
			return
		}
		var buf bytes.Buffer
		n, err := Encode(&buf, v)
		if err != nil {
			return
		}
		if n != Size(v) {
			t.Fatalf("size=%d encoded=%d", Size(v), n)
		}
	})
}
