package flvmeta

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flv"
)

type summaryField struct {
	Name  string
	Value string
}

// RenderSummary is the human-readable report printed after an update.
func RenderSummary(path string, res Result) string {
	var buf bytes.Buffer
	meta := res.Metadata
	if meta == nil {
		meta = amf.NewECMAArray()
	}

	general := []summaryField{
		{"Complete name", path},
		{"Format", "Flash Video"},
		{"File size", formatBytes(res.OutputSize)},
		{"Duration", formatDuration(res.Duration.Seconds())},
		{"Keyframes", formatThousands(int64(res.Keyframes))},
		{"Replaced metadata tags", formatThousands(int64(res.Replaced))},
		{"End marker", yesNo(res.EndMarker)},
	}
	if res.Truncated {
		general = append(general, summaryField{"Truncated", "Yes"})
	}
	if creator, ok := meta.Get("metadatacreator"); ok {
		if s, ok := amf.AsString(creator); ok {
			general = append(general, summaryField{"Writing application", s})
		}
	}
	writeSection(&buf, "General", general)

	if has, _ := metaBool(meta, "hasVideo"); has {
		var fields []summaryField
		if id, ok := metaNumber(meta, "videocodecid"); ok {
			fields = append(fields, summaryField{"Format", flv.VideoCodecName(byte(id))})
		}
		if w, ok := metaNumber(meta, "width"); ok {
			fields = append(fields, summaryField{"Width", formatThousands(int64(w)) + " pixels"})
		}
		if h, ok := metaNumber(meta, "height"); ok {
			fields = append(fields, summaryField{"Height", formatThousands(int64(h)) + " pixels"})
		}
		if fps, ok := metaNumber(meta, "framerate"); ok {
			fields = append(fields, summaryField{"Frame rate", formatFrameRate(fps)})
		}
		if rate, ok := metaNumber(meta, "videodatarate"); ok {
			fields = append(fields, summaryField{"Bit rate", formatBitrate(rate * 1024)})
		}
		buf.WriteString("\n")
		writeSection(&buf, "Video", fields)
	}

	if has, _ := metaBool(meta, "hasAudio"); has {
		var fields []summaryField
		if id, ok := metaNumber(meta, "audiocodecid"); ok {
			fields = append(fields, summaryField{"Format", flv.AudioFormatName(byte(id))})
		}
		if stereo, ok := metaBool(meta, "stereo"); ok {
			channels := "1 channel"
			if stereo {
				channels = "2 channels"
			}
			fields = append(fields, summaryField{"Channel(s)", channels})
		}
		if rate, ok := metaNumber(meta, "audiosamplerate"); ok {
			fields = append(fields, summaryField{"Sampling rate", formatSampleRate(rate)})
		}
		if size, ok := metaNumber(meta, "audiosamplesize"); ok {
			fields = append(fields, summaryField{"Bit depth", fmt.Sprintf("%.0f bits", size)})
		}
		if rate, ok := metaNumber(meta, "audiodatarate"); ok {
			fields = append(fields, summaryField{"Bit rate", formatBitrate(rate * 1024)})
		}
		buf.WriteString("\n")
		writeSection(&buf, "Audio", fields)
	}

	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("ReportBy : %s - %s\n", AppName, FormatVersion(AppVersion)))
	return buf.String()
}

func writeSection(buf *bytes.Buffer, title string, fields []summaryField) {
	buf.WriteString(title)
	buf.WriteString("\n")
	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		buf.WriteString(padRight(field.Name, 41))
		buf.WriteString(": ")
		buf.WriteString(field.Value)
		buf.WriteString("\n")
	}
}

func metaNumber(m *amf.ECMAArray, key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return amf.AsNumber(v)
}

func metaBool(m *amf.ECMAArray, key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok {
		return false, false
	}
	return amf.AsBool(v)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func padRight(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(value))
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div := float64(size)
	exp := 0
	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	for div >= unit && exp < len(units)-1 {
		div /= unit
		exp++
	}
	return fmt.Sprintf("%.2f %s", div, units[exp])
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}

	totalMs := int64(math.Round(seconds * 1000))
	if totalMs < 1000 {
		return fmt.Sprintf("%d ms", totalMs)
	}

	totalSec := totalMs / 1000
	remMs := totalMs % 1000
	if totalSec < 60 {
		return fmt.Sprintf("%d s %d ms", totalSec, remMs)
	}

	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	secondsOnly := totalSec % 60
	if hours > 0 {
		return fmt.Sprintf("%d h %d min %d s", hours, minutes, secondsOnly)
	}
	return fmt.Sprintf("%d min %d s", minutes, secondsOnly)
}

func formatBitrate(bitsPerSecond float64) string {
	if bitsPerSecond <= 0 {
		return ""
	}
	if bitsPerSecond >= 10_000_000 {
		return fmt.Sprintf("%.1f Mb/s", bitsPerSecond/1_000_000)
	}
	kbps := int64(math.Round(bitsPerSecond / 1000))
	return fmt.Sprintf("%s kb/s", formatThousands(kbps))
}

func formatFrameRate(rate float64) string {
	if rate <= 0 {
		return ""
	}
	if math.Abs(rate-math.Round(rate)) < 0.0005 {
		return fmt.Sprintf("%.0f FPS", rate)
	}
	return fmt.Sprintf("%.3f FPS", rate)
}

func formatSampleRate(hz float64) string {
	if hz <= 0 {
		return ""
	}
	if hz >= 1000 {
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", hz/1000), "0"), ".") + " kHz"
	}
	return fmt.Sprintf("%.0f Hz", hz)
}

func formatThousands(value int64) string {
	if value < 1000 {
		return fmt.Sprintf("%d", value)
	}

	parts := []string{}
	for value > 0 {
		chunk := value % 1000
		value /= 1000
		if value > 0 {
			parts = append(parts, fmt.Sprintf("%03d", chunk))
		} else {
			parts = append(parts, fmt.Sprintf("%d", chunk))
		}
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}
