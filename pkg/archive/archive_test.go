package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/i-emek/esque/pkg/kafka/avro/encoding"
	"github.com/i-emek/esque/pkg/kafka/avro/schemaregistry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Schema ids and documents used across the archive tests. The key channel
// uses a primitive string schema, the value channel a record schema with a
// newer version adding a field.
const (
	keySchemaID    = 1
	valueSchemaID  = 10
	valueSchemaID2 = 11
	orderSchemaID  = 12
)

var testSchemas = map[int]string{
	keySchemaID:    `"string"`,
	valueSchemaID:  `{"type":"record","name":"Product","fields":[{"name":"name","type":"string"}]}`,
	valueSchemaID2: `{"type":"record","name":"Product","fields":[{"name":"name","type":"string"},{"name":"vendor","type":"string"}]}`,
	orderSchemaID:  `{"type":"record","name":"Order","fields":[{"name":"qty","type":"long"},{"name":"note","type":["null","string"]},{"name":"tags","type":{"type":"array","items":"string"}}]}`,
}

// fakeResolver serves the test schemas without a registry.
type fakeResolver struct {
	schemas map[int]string
	calls   []int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{schemas: testSchemas}
}

func (f *fakeResolver) Resolve(schemaID int) (schemaregistry.ResolvedSchema, error) {
	f.calls = append(f.calls, schemaID)
	text, ok := f.schemas[schemaID]
	if !ok {
		return schemaregistry.ResolvedSchema{}, fmt.Errorf("%w: id %d", schemaregistry.ErrSchemaNotFound, schemaID)
	}
	return schemaregistry.ResolvedSchema{RawText: text, Parsed: avro.MustParse(text)}, nil
}

// encodeWire builds a wire format payload carrying v encoded with the given
// schema.
func encodeWire(t *testing.T, schemaID int, v any) []byte {
	t.Helper()
	schema := avro.MustParse(testSchemas[schemaID])
	body, err := avro.Marshal(schema, v)
	require.NoError(t, err)
	_, builder := encoding.NewConfluentWireFormat()
	return builder.Build(schemaID, body)
}

func keyedMessage(t *testing.T, key string, valueID int, value map[string]any) RawMessage {
	t.Helper()
	return RawMessage{
		Key:   encodeWire(t, keySchemaID, key),
		Value: encodeWire(t, valueID, value),
	}
}

func tombstone(t *testing.T, key string) RawMessage {
	t.Helper()
	return RawMessage{Key: encodeWire(t, keySchemaID, key)}
}

func newTestWriter(t *testing.T) (Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewAvroWriter(dir, newFakeResolver(), zap.NewNop())
	require.NoError(t, err)
	return w, dir
}

// segmentDirs lists segment directory names in lexical order.
func segmentDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func schemaDocument(t *testing.T, dir, segmentName, fileName string) string {
	t.Helper()
	text, err := os.ReadFile(filepath.Join(dir, segmentName, fileName))
	require.NoError(t, err)
	return string(text)
}

// readAll drains a fresh reader over the archive.
func readAll(t *testing.T, dir string) []*Message {
	t.Helper()
	r, err := NewAvroReader(dir)
	require.NoError(t, err)
	defer r.Close()

	var messages []*Message
	for {
		msg, err := r.ReadNext()
		require.NoError(t, err)
		if msg == nil {
			return messages
		}
		messages = append(messages, msg)
	}
}
