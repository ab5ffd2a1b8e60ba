// Package json wraps sonic for the JSON hot paths of the service: provider
// payloads, image endpoint responses and HTTP envelopes. Architectures sonic
// does not support fall back to encoding/json.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

// Backend names the codec selected at init.
type Backend string

const (
	BackendSonic  Backend = "sonic"
	BackendStdlib Backend = "encoding/json"
)

// Encoder writes one JSON value per call.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads one JSON value per call.
type Decoder interface {
	Decode(v any) error
}

// RawMessage is a raw encoded JSON value, decoded lazily by callers that
// accept more than one response shape.
type RawMessage = stdjson.RawMessage

var (
	Marshal    func(v any) ([]byte, error)
	Unmarshal  func(data []byte, v any) error
	NewEncoder func(w io.Writer) Encoder
	NewDecoder func(r io.Reader) Decoder

	backend Backend
)

func init() {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		// ConfigStd keeps map key order and HTML escaping identical to encoding/json.
		api := sonic.ConfigStd
		Marshal, Unmarshal = api.Marshal, api.Unmarshal
		NewEncoder = func(w io.Writer) Encoder { return api.NewEncoder(w) }
		NewDecoder = func(r io.Reader) Decoder { return api.NewDecoder(r) }
		backend = BackendSonic
	default:
		Marshal, Unmarshal = stdjson.Marshal, stdjson.Unmarshal
		NewEncoder = func(w io.Writer) Encoder { return stdjson.NewEncoder(w) }
		NewDecoder = func(r io.Reader) Decoder { return stdjson.NewDecoder(r) }
		backend = BackendStdlib
	}
}

// CurrentBackend reports which codec is in use.
func CurrentBackend() Backend {
	return backend
}
