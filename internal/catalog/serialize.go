package catalog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// encodeVector packs a float32 embedding into a tightly packed little-endian
// byte buffer, matching store.EmbeddingRow's documented wire format.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding buffer length %d not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

func marshalStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var v []string
	_ = json.Unmarshal([]byte(s), &v)
	return v
}

func marshalRelated(v []store.RelatedMemory) string {
	if v == nil {
		v = []store.RelatedMemory{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalRelated(s string) []store.RelatedMemory {
	if s == "" {
		return nil
	}
	var v []store.RelatedMemory
	_ = json.Unmarshal([]byte(s), &v)
	return v
}

func marshalMetadata(m map[string]string) string {
	if m == nil {
		m = map[string]string{}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func unmarshalMetadata(s string) map[string]string {
	m := map[string]string{}
	if s == "" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}
