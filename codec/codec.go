package codec

import (
	"bytes"
	"encoding/json"
)

// Codec turns envelopes into wire bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec is the only codec JSON-RPC 2.0 allows on the wire. Unlike json.Marshal it
// leaves <, > and & unescaped so string params reach the server byte for byte.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
