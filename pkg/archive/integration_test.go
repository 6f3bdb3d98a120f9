package archive

import (
	"context"
	"os"
	"testing"

	confluent "github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/hamba/avro/v2"
	"github.com/i-emek/esque/pkg/kafka/avro/encoding"
	"github.com/i-emek/esque/pkg/kafka/avro/schemaregistry"
	"github.com/i-emek/esque/pkg/testutil/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestArchive_AgainstRealSchemaRegistry round-trips an archive using a real
// Confluent-compatible registry. Needs docker; enable with
// ESQUE_INTEGRATION=1.
func TestArchive_AgainstRealSchemaRegistry(t *testing.T) {
	if os.Getenv("ESQUE_INTEGRATION") == "" {
		t.Skip("set ESQUE_INTEGRATION=1 to run integration tests")
	}

	ctx := context.Background()
	redpanda, err := container.StartRedpanda(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = redpanda.Terminate(ctx)
	})

	client, err := confluent.NewClient(confluent.NewConfig(redpanda.SchemaRegistryURL))
	require.NoError(t, err)

	keyID, err := client.Register("it-key", confluent.SchemaInfo{Schema: `"string"`, SchemaType: "AVRO"}, false)
	require.NoError(t, err)
	valueSchemaText := `{"type":"record","name":"Event","fields":[{"name":"kind","type":"string"}]}`
	valueID, err := client.Register("it-value", confluent.SchemaInfo{Schema: valueSchemaText, SchemaType: "AVRO"}, false)
	require.NoError(t, err)

	_, builder := encoding.NewConfluentWireFormat()
	keyBody, err := avro.Marshal(avro.MustParse(`"string"`), "k1")
	require.NoError(t, err)
	valueBody, err := avro.Marshal(avro.MustParse(valueSchemaText), map[string]any{"kind": "created"})
	require.NoError(t, err)

	dir := t.TempDir()
	w, err := NewAvroWriter(dir, schemaregistry.NewResolver(client), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, w.Write(RawMessage{
		Key:   builder.Build(keyID, keyBody),
		Value: builder.Build(valueID, valueBody),
	}))
	require.NoError(t, w.Close())

	messages := readAll(t, dir)
	require.Len(t, messages, 1)
	assert.Equal(t, "k1", messages[0].Key)
	assert.Equal(t, map[string]any{"kind": "created"}, messages[0].Value)
}
