// Package encoding implements the Confluent wire format that prefixes a
// registry-resolved schema id onto a raw Avro payload.
package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedWireFormat is returned when a payload is present but does not
// carry a complete wire format header.
var ErrMalformedWireFormat = errors.New("malformed wire format")

// headerLen is the magic byte plus the big-endian uint32 schema id.
const headerLen = 5

const magicByte = 0x00

// WireFormatParser extracts the schema id and Avro body from a wire format
// payload: [0x00][schema_id (4 bytes, big-endian)][avro body].
type WireFormatParser interface {
	Parse(data []byte) (schemaID int, body []byte, err error)
}

// WireFormatBuilder produces a wire format payload from a schema id and an
// Avro body.
type WireFormatBuilder interface {
	Build(schemaID int, body []byte) []byte
}

type confluentWireFormat struct{}

// NewConfluentWireFormat returns the parser and builder for the Confluent
// wire format. Both are stateless and safe for concurrent use.
func NewConfluentWireFormat() (WireFormatParser, WireFormatBuilder) {
	f := &confluentWireFormat{}
	return f, f
}

func (f *confluentWireFormat) Parse(data []byte) (int, []byte, error) {
	if len(data) < headerLen {
		return 0, nil, fmt.Errorf("%w: expected at least %d bytes, got %d", ErrMalformedWireFormat, headerLen, len(data))
	}
	if data[0] != magicByte {
		return 0, nil, fmt.Errorf("%w: invalid magic byte 0x%02x", ErrMalformedWireFormat, data[0])
	}
	schemaID := int(binary.BigEndian.Uint32(data[1:headerLen]))
	return schemaID, data[headerLen:], nil
}

func (f *confluentWireFormat) Build(schemaID int, body []byte) []byte {
	out := make([]byte, headerLen+len(body))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:headerLen], uint32(schemaID))
	copy(out[headerLen:], body)
	return out
}
