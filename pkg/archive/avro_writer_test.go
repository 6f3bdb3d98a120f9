package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/i-emek/esque/pkg/kafka/avro/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvroWriter_SingleSchemaPair_OneSegment(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	// Act
	for i := 0; i < 3; i++ {
		err := w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"}))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	// Assert
	assert.Equal(t, []string{"0001_1_10"}, segmentDirs(t, dir))

	messages := readAll(t, dir)
	require.Len(t, messages, 3)
}

func TestAvroWriter_SegmentHoldsRegistrySchemaDocuments(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	// Act
	err := w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"}))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Assert
	assert.Equal(t, testSchemas[keySchemaID], schemaDocument(t, dir, "0001_1_10", "key_schema.avsc"))
	assert.Equal(t, testSchemas[valueSchemaID], schemaDocument(t, dir, "0001_1_10", "value_schema.avsc"))
}

// Mirrors the canonical segmentation scenario: three messages under the
// first value schema, two under the second, a tombstone, then one more
// under the second. The tombstone must not fork a segment and the final
// message stays in the second segment.
func TestAvroWriter_ValueSchemaChangeAndTombstone(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	write := func(msg RawMessage) {
		require.NoError(t, w.Write(msg))
	}

	// Act
	for i := 0; i < 3; i++ {
		write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"}))
	}
	for i := 0; i < 2; i++ {
		write(keyedMessage(t, "k", valueSchemaID2, map[string]any{"name": "a", "vendor": "b"}))
	}
	write(tombstone(t, "k"))
	write(keyedMessage(t, "k", valueSchemaID2, map[string]any{"name": "c", "vendor": "d"}))
	require.NoError(t, w.Close())

	// Assert
	assert.Equal(t, []string{"0001_1_10", "0002_1_11"}, segmentDirs(t, dir))

	messages := readAll(t, dir)
	require.Len(t, messages, 7)
	assert.Nil(t, messages[5].Value, "tombstone value must stay absent")
}

func TestAvroWriter_AbsentKeyAlwaysForks(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	// Act: a message without a key right after one with a real key schema.
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))
	require.NoError(t, w.Write(RawMessage{Value: encodeWire(t, valueSchemaID, map[string]any{"name": "b"})}))
	require.NoError(t, w.Close())

	// Assert: no tombstone exception on the key channel.
	assert.Equal(t, []string{"0001_1_10", "0002_-1_10"}, segmentDirs(t, dir))
}

func TestAvroWriter_ReencounteredPairOpensNewSegment(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	// Act
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID2, map[string]any{"name": "a", "vendor": "b"})))
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))
	require.NoError(t, w.Close())

	// Assert: the old pair gets a fresh directory, names stay monotonic.
	assert.Equal(t, []string{"0001_1_10", "0002_1_11", "0003_1_10"}, segmentDirs(t, dir))
}

func TestAvroWriter_MalformedPayloadLeavesArchiveUntouched(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	// Act: value payload shorter than the wire header.
	err := w.Write(RawMessage{
		Key:   encodeWire(t, keySchemaID, "k"),
		Value: []byte{0x00, 0x00, 0x01},
	})

	// Assert
	require.ErrorIs(t, err, encoding.ErrMalformedWireFormat)
	assert.Empty(t, segmentDirs(t, dir))
	assert.Empty(t, readAll(t, dir))

	// A following valid write still opens segment 0001.
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"0001_1_10"}, segmentDirs(t, dir))
}

func TestAvroWriter_UnknownSchemaAbortsOnlyCurrentWrite(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))

	// Act: schema id 99 is not known to the resolver.
	_, builder := encoding.NewConfluentWireFormat()
	err := w.Write(RawMessage{
		Key:   encodeWire(t, keySchemaID, "k"),
		Value: builder.Build(99, []byte{0x02}),
	})

	// Assert
	require.Error(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"0001_1_10"}, segmentDirs(t, dir))
	assert.Len(t, readAll(t, dir), 1)
}

func TestAvroWriter_FlushPerRecordAllowsTailing(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)
	defer w.Close()

	// Act: read the archive while the writer is still open.
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))

	// Assert
	messages := readAll(t, dir)
	require.Len(t, messages, 1)
	assert.Equal(t, "k", messages[0].Key)
}

func TestAvroWriter_RecordStreamIsPlainJSONLines(t *testing.T) {
	// Arrange
	w, dir := newTestWriter(t)

	// Act
	require.NoError(t, w.Write(keyedMessage(t, "k", valueSchemaID, map[string]any{"name": "a"})))
	require.NoError(t, w.Close())

	// Assert: the stream stays inspectable without any tooling.
	raw, err := os.ReadFile(filepath.Join(dir, "records"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k","value":{"name":"a"},"segment":"0001_1_10"}`, string(raw))
}
