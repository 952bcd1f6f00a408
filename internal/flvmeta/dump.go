package flvmeta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/autobrr/go-flvmeta/internal/amf"
	"github.com/autobrr/go-flvmeta/internal/flv"
)

var ErrNoMetadata = errors.New("no onMetaData tag found")

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

var errFound = errors.New("metadata found")

// ReadMetadata returns the payload of the first onMetaData tag in src.
func ReadMetadata(src io.Reader) (amf.Value, error) {
	var found amf.Value
	err := flv.Walk(src, flv.Handler{
		OnMetadataTag: func(r *flv.Reader, tag flv.Tag, name, value amf.Value) error {
			if event, _ := amf.AsString(name); event == eventMetaData {
				found = value
				return errFound
			}
			return nil
		},
	})
	if err != nil && !errors.Is(err, errFound) {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoMetadata
	}
	return found, nil
}

// Dump renders the first onMetaData tag of src.
func Dump(src io.Reader, w io.Writer, format Format) error {
	value, err := ReadMetadata(src)
	if err != nil {
		return err
	}
	return Render(w, eventMetaData, value, format)
}

// Render writes a named value tree in the given format.
func Render(w io.Writer, name string, value amf.Value, format Format) error {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		key, _ := json.Marshal(name)
		buf.WriteByte('{')
		buf.Write(key)
		buf.WriteByte(':')
		writeJSON(&buf, value)
		buf.WriteByte('}')
		var out bytes.Buffer
		if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
			return err
		}
		out.WriteByte('\n')
		_, err := out.WriteTo(w)
		return err
	case FormatYAML:
		doc := &yaml.Node{Kind: yaml.MappingNode}
		doc.Content = append(doc.Content, yamlScalar("!!str", name), yamlNode(value))
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		var b strings.Builder
		b.WriteString(name)
		b.WriteString(":")
		writeText(&b, value, 1)
		_, err := io.WriteString(w, b.String())
		return err
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func formatDate(d amf.Date) string {
	zone := time.FixedZone("", int(d.TZOffset)*60)
	return time.UnixMilli(int64(d.Millis)).In(zone).Format(time.RFC3339Nano)
}

func properties(v amf.Value) ([]amf.Property, bool) {
	switch t := v.(type) {
	case *amf.Object:
		return t.Properties(), true
	case *amf.ECMAArray:
		return t.Properties(), true
	}
	return nil, false
}

func writeJSON(buf *bytes.Buffer, v amf.Value) {
	if props, ok := properties(v); ok {
		buf.WriteByte('{')
		for i, p := range props {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(p.Name)
			buf.Write(key)
			buf.WriteByte(':')
			writeJSON(buf, p.Value)
		}
		buf.WriteByte('}')
		return
	}
	switch t := v.(type) {
	case *amf.StrictArray:
		buf.WriteByte('[')
		for i, item := range t.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, item)
		}
		buf.WriteByte(']')
	case amf.Number:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			buf.WriteString("null")
			return
		}
		buf.WriteString(formatNumber(float64(t)))
	case amf.Boolean:
		buf.WriteString(strconv.FormatBool(bool(t)))
	case amf.String, amf.LongString:
		s, _ := amf.AsString(t)
		quoted, _ := json.Marshal(s)
		buf.Write(quoted)
	case amf.Date:
		quoted, _ := json.Marshal(formatDate(t))
		buf.Write(quoted)
	default:
		buf.WriteString("null")
	}
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlNode(v amf.Value) *yaml.Node {
	if props, ok := properties(v); ok {
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range props {
			n.Content = append(n.Content, yamlScalar("!!str", p.Name), yamlNode(p.Value))
		}
		return n
	}
	switch t := v.(type) {
	case *amf.StrictArray:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t.Items {
			n.Content = append(n.Content, yamlNode(item))
		}
		return n
	case amf.Number:
		f := float64(t)
		switch {
		case math.IsNaN(f):
			return yamlScalar("!!float", ".nan")
		case math.IsInf(f, 1):
			return yamlScalar("!!float", ".inf")
		case math.IsInf(f, -1):
			return yamlScalar("!!float", "-.inf")
		}
		return yamlScalar("!!float", formatNumber(f))
	case amf.Boolean:
		return yamlScalar("!!bool", strconv.FormatBool(bool(t)))
	case amf.String, amf.LongString:
		s, _ := amf.AsString(t)
		return yamlScalar("!!str", s)
	case amf.Date:
		return yamlScalar("!!timestamp", formatDate(t))
	default:
		return yamlScalar("!!null", "null")
	}
}

func writeText(b *strings.Builder, v amf.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	if props, ok := properties(v); ok {
		b.WriteByte('\n')
		for _, p := range props {
			b.WriteString(indent)
			b.WriteString(p.Name)
			b.WriteByte(':')
			writeText(b, p.Value, depth+1)
		}
		return
	}
	switch t := v.(type) {
	case *amf.StrictArray:
		if len(t.Items) == 0 {
			b.WriteString(" []\n")
			return
		}
		b.WriteByte('\n')
		for _, item := range t.Items {
			b.WriteString(indent)
			b.WriteString("-")
			writeText(b, item, depth+1)
		}
	case amf.Number:
		b.WriteString(" " + formatNumber(float64(t)) + "\n")
	case amf.Boolean:
		b.WriteString(" " + strconv.FormatBool(bool(t)) + "\n")
	case amf.String, amf.LongString:
		s, _ := amf.AsString(t)
		b.WriteString(" " + strconv.Quote(s) + "\n")
	case amf.Date:
		b.WriteString(" " + formatDate(t) + "\n")
	case amf.Undefined:
		b.WriteString(" undefined\n")
	default:
		b.WriteString(" null\n")
	}
}
