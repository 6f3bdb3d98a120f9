package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/i-emek/esque/pkg/kafka/avro/schemaregistry"
	"github.com/i-emek/esque/pkg/observability/metrics"
	"go.uber.org/zap"
)

// nullSchemaDocument is persisted for a channel with no schema (id -1), so
// a segment is always self-sufficient without ever asking the registry for
// the sentinel id.
const nullSchemaDocument = `"null"`

type segment struct {
	name          string
	keySchemaID   int
	valueSchemaID int
}

// segmentManager owns the current (key, value) schema pair of one write
// session and mints a new segment directory whenever it changes. Sequence
// numbers are 1-based and strictly increasing; a schema pair seen again
// later in the stream gets a fresh segment, never the old directory.
type segmentManager struct {
	dir      string
	resolver schemaregistry.Resolver
	current  *segment
	sequence int
	log      *zap.Logger
}

func newSegmentManager(dir string, resolver schemaregistry.Resolver, log *zap.Logger) *segmentManager {
	return &segmentManager{
		dir:      dir,
		resolver: resolver,
		sequence: 1,
		log:      log,
	}
}

// advanceIfNeeded returns the segment the given message belongs to, opening
// a new one when the schema pair changed. On any failure the manager state
// is left untouched and no partial segment directory remains on disk.
func (m *segmentManager) advanceIfNeeded(dm decodedMessage) (*segment, error) {
	if !m.schemaChanged(dm) {
		return m.current, nil
	}

	// Resolve both documents before touching the filesystem so a failed
	// fork leaves no orphan directory behind.
	keyText, err := m.schemaDocument(dm.keySchemaID)
	if err != nil {
		return nil, err
	}
	valueText, err := m.schemaDocument(dm.valueSchemaID)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%04d_%d_%d", m.sequence, dm.keySchemaID, dm.valueSchemaID)
	segmentDir := filepath.Join(m.dir, name)

	if err := os.Mkdir(segmentDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create segment directory %s: %w", name, err)
	}
	if err := writeSchemaDocument(segmentDir, keySchemaFileName, keyText); err != nil {
		_ = os.RemoveAll(segmentDir)
		return nil, err
	}
	if err := writeSchemaDocument(segmentDir, valueSchemaFileName, valueText); err != nil {
		_ = os.RemoveAll(segmentDir)
		return nil, err
	}

	m.sequence++
	m.current = &segment{
		name:          name,
		keySchemaID:   dm.keySchemaID,
		valueSchemaID: dm.valueSchemaID,
	}
	metrics.SegmentsCreated.Inc()
	m.log.Debug("opened segment",
		zap.String("segment", name),
		zap.Int("key_schema_id", dm.keySchemaID),
		zap.Int("value_schema_id", dm.valueSchemaID),
	)

	return m.current, nil
}

// schemaChanged reports whether the message no longer fits the current
// segment. The value check is asymmetric on purpose: a tombstone carries
// schema id -1 for its absent value and must not fork a segment, while a
// key schema change always does.
func (m *segmentManager) schemaChanged(dm decodedMessage) bool {
	if m.current == nil {
		return true
	}
	if m.current.keySchemaID != dm.keySchemaID {
		return true
	}
	return m.current.valueSchemaID != dm.valueSchemaID && dm.value != nil
}

func (m *segmentManager) schemaDocument(schemaID int) (string, error) {
	if schemaID == NoSchemaID {
		return nullSchemaDocument, nil
	}
	resolved, err := m.resolver.Resolve(schemaID)
	if err != nil {
		return "", err
	}
	return resolved.RawText, nil
}

func writeSchemaDocument(segmentDir, fileName, text string) error {
	if err := os.WriteFile(filepath.Join(segmentDir, fileName), []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	return nil
}
