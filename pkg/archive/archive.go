// Package archive turns a stream of schema-registry encoded Kafka messages
// into an append-only on-disk archive split into schema-homogeneous
// segments, and reconstructs messages and their schemas from such an
// archive.
//
// An archive is a directory holding one segment subdirectory per
// consecutive (key schema, value schema) pair plus a single record stream
// file. Each segment carries the two raw schema documents, so every record
// is recoverable from its segment alone.
package archive

import (
	"errors"

	"github.com/hamba/avro/v2"
)

// NoSchemaID marks an absent channel: a missing key, or a tombstoned value.
const NoSchemaID = -1

const (
	recordsFileName     = "records"
	keySchemaFileName   = "key_schema.avsc"
	valueSchemaFileName = "value_schema.avsc"
)

// ErrSegmentMissing is returned when a record references a segment directory
// that no longer exists. It indicates archive corruption and terminates the
// read sequence.
var ErrSegmentMissing = errors.New("archive segment missing")

// RawMessage is one polled Kafka message. A nil slice means the channel is
// absent (no key, or a tombstone value).
type RawMessage struct {
	Key   []byte
	Value []byte
}

// Message is a reconstructed archive record: the decoded key and value
// together with the parsed schemas they were written under.
type Message struct {
	Key         any
	Value       any
	KeySchema   avro.Schema
	ValueSchema avro.Schema
}

// record is the persisted unit, one per input message, framed as a JSON
// document in the record stream. The framing is self-delimiting so the end
// of the stream is detectable without an index.
type record struct {
	Key     any    `json:"key"`
	Value   any    `json:"value"`
	Segment string `json:"segment"`
}

// Writer appends Kafka messages to an archive. Not safe for concurrent use;
// a writer belongs to exactly one processing loop.
type Writer interface {
	// Write decodes one raw message and appends exactly one record. A
	// failure aborts only this call; previously written segments and
	// records stay intact.
	Write(msg RawMessage) error

	// Close flushes and releases the record stream. The archive stays valid
	// as written.
	Close() error
}

// Reader replays an archive as a lazy, forward-only, non-restartable
// sequence. ReadNext returns (nil, nil) at end of stream.
type Reader interface {
	ReadNext() (*Message, error)
	Close() error
}
