package flvmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flv"
)

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyStrict, "strict": PolicyStrict, "Fix": PolicyFix, " ignore ": PolicyIgnore} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("lenient")
	assert.Error(t, err)
	assert.Equal(t, "fix", PolicyFix.String())
}

func TestParseField(t *testing.T) {
	cases := []struct {
		in   string
		want Field
	}{
		{"title=Hello world", Field{Name: "title", Value: amf.String("Hello world")}},
		{"rating=4.5", Field{Name: "rating", Value: amf.Number(4.5)}},
		{"live=true", Field{Name: "live", Value: amf.Boolean(true)}},
		{"empty=", Field{Name: "empty", Value: amf.String("")}},
		{"eq=a=b", Field{Name: "eq", Value: amf.String("a=b")}},
	}
	for _, tc := range cases {
		got, err := ParseField(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"novalue", "=value"} {
		_, err := ParseField(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", FormatVersion(""))
	assert.Equal(t, "v1.2.3", FormatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", FormatVersion("v1.2.3"))
}

func TestTimestampFixerPerStream(t *testing.T) {
	var f timestampFixer
	assert.Equal(t, uint32(0xFFFFF0), f.fix(flv.TagVideo, 0xFFFFF0))
	// A small step back is jitter, not a wrap.
	assert.Equal(t, uint32(0xFFFF00), f.fix(flv.TagVideo, 0xFFFF00))
	// Audio keeps its own history.
	assert.Equal(t, uint32(0x10), f.fix(flv.TagAudio, 0x10))
	assert.Equal(t, uint32(0x1000020), f.fix(flv.TagVideo, 0x20))

	tl := timeline{base: 100}
	assert.Equal(t, uint32(0), tl.out(50))
	assert.Equal(t, uint32(20), tl.out(120))
}
