package amf

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildTree folds the generated scalars into a nested value so every
// composite variant is exercised.
func buildTree(names []string, numbers []float64, texts []string, flag bool) Value {
	seq := NewStrictArray()
	for _, n := range numbers {
		seq.Push(Number(n))
	}
	obj := NewObject()
	for i, name := range names {
		if name == "" {
			name = "k"
		}
		switch i % 4 {
		case 0:
			if i < len(texts) {
				obj.Add(name, String(texts[i]))
			} else {
				obj.Add(name, Null{})
			}
		case 1:
			obj.Add(name, Boolean(flag))
		case 2:
			obj.Add(name, Date{Millis: float64(i) * 1000, TZOffset: int16(-i)})
		default:
			obj.Add(name, Undefined{})
		}
	}
	root := NewECMAArray()
	root.Add("seq", seq)
	root.Add("obj", obj)
	for _, s := range texts {
		root.Add("text", String(s))
	}
	return root
}

func TestCodecProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(v)) == v", prop.ForAll(
		func(names []string, numbers []float64, texts []string, flag bool) bool {
			v := buildTree(names, numbers, texts, flag)
			var buf bytes.Buffer
			if _, err := Encode(&buf, v); err != nil {
				return false
			}
			got, err := Decode(&buf)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(v, got)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Float64Range(-1e15, 1e15)),
		gen.SliceOf(gen.AnyString()),
		gen.Bool(),
	))

	properties.Property("size(v) == len(encode(v))", prop.ForAll(
		func(names []string, numbers []float64, texts []string, flag bool) bool {
			v := buildTree(names, numbers, texts, flag)
			var buf bytes.Buffer
			n, err := Encode(&buf, v)
			return err == nil && n == Size(v) && buf.Len() == Size(v)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Float64Range(-1e15, 1e15)),
		gen.SliceOf(gen.AnyString()),
		gen.Bool(),
	))

	properties.Property("scalar strings keep their bytes", prop.ForAll(
		func(s string) bool {
			var buf bytes.Buffer
			if _, err := Encode(&buf, String(s)); err != nil {
				return false
			}
			got, err := Decode(&buf)
			return err == nil && got == String(s)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
