// Package jsonpool wraps goccy/go-json with a pooled decoder wrapper, the
// pooling shape pkg/formats/jsonfmt uses for every convert_json call. Each
// GetDecoder call still builds a new gojson.Decoder, and PutDecoder
// allocates a new wrapper to return to the pool, so neither allocation is
// avoided per call.
package jsonpool

import (
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// pooledDecoder wraps a JSON decoder so the wrapper struct itself, not just
// the gojson.Decoder inside it, is what sync.Pool recycles.
type pooledDecoder struct {
	decoder *gojson.Decoder
}

var decoderPool = sync.Pool{
	New: func() interface{} {
		return &pooledDecoder{}
	},
}

// GetDecoder returns a pooled decoder reading from r, configured with
// UseNumber so integer-valued fields survive round trip through convert
// without losing precision to float64 (spec §4.7: JSON numbers classify by
// inspecting the decoded token, not a fixed numeric type).
func GetDecoder(r io.Reader) *gojson.Decoder {
	pd := decoderPool.Get().(*pooledDecoder)
	pd.decoder = gojson.NewDecoder(r)
	pd.decoder.UseNumber()
	return pd.decoder
}

// PutDecoder returns dec's wrapper to the pool. The gojson.Decoder itself
// is rebound to a new reader on the next GetDecoder rather than reused
// as-is, since gojson.NewDecoder has no way to swap the underlying reader
// of an existing decoder.
func PutDecoder(dec *gojson.Decoder) {
	decoderPool.Put(&pooledDecoder{decoder: dec})
}
