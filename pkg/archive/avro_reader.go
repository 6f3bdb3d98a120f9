package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hamba/avro/v2"
	"github.com/i-emek/esque/pkg/observability/metrics"
)

type segmentSchemas struct {
	key   avro.Schema
	value avro.Schema
}

type avroReader struct {
	dir     string
	file    *os.File
	dec     *json.Decoder
	schemas map[string]segmentSchemas
}

// NewAvroReader opens the archive under dir for a single forward scan.
// Re-reading requires a new reader; reading never mutates the archive.
func NewAvroReader(dir string) (Reader, error) {
	file, err := os.Open(filepath.Join(dir, recordsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open record stream: %w", err)
	}

	// Numbers surface as json.Number so longs beyond float64 precision
	// survive the round trip.
	dec := json.NewDecoder(bufio.NewReader(file))
	dec.UseNumber()

	return &avroReader{
		dir:     dir,
		file:    file,
		dec:     dec,
		schemas: make(map[string]segmentSchemas),
	}, nil
}

func (r *avroReader) ReadNext() (*Message, error) {
	var rec record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode archive record: %w", err)
	}

	schemas, err := r.segmentSchemas(rec.Segment)
	if err != nil {
		return nil, err
	}

	metrics.RecordsRead.Inc()
	return &Message{
		Key:         rec.Key,
		Value:       rec.Value,
		KeySchema:   schemas.key,
		ValueSchema: schemas.value,
	}, nil
}

// segmentSchemas loads and parses both schema documents of a segment,
// caching them per segment name for the lifetime of the reader.
func (r *avroReader) segmentSchemas(name string) (segmentSchemas, error) {
	if cached, ok := r.schemas[name]; ok {
		return cached, nil
	}

	segmentDir := filepath.Join(r.dir, name)
	if _, err := os.Stat(segmentDir); err != nil {
		if os.IsNotExist(err) {
			return segmentSchemas{}, fmt.Errorf("%w: %s", ErrSegmentMissing, name)
		}
		return segmentSchemas{}, fmt.Errorf("failed to stat segment %s: %w", name, err)
	}

	keySchema, err := r.readSchemaDocument(segmentDir, keySchemaFileName, name)
	if err != nil {
		return segmentSchemas{}, err
	}
	valueSchema, err := r.readSchemaDocument(segmentDir, valueSchemaFileName, name)
	if err != nil {
		return segmentSchemas{}, err
	}

	schemas := segmentSchemas{key: keySchema, value: valueSchema}
	r.schemas[name] = schemas
	return schemas, nil
}

func (r *avroReader) readSchemaDocument(segmentDir, fileName, segmentName string) (avro.Schema, error) {
	text, err := os.ReadFile(filepath.Join(segmentDir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no %s", ErrSegmentMissing, segmentName, fileName)
		}
		return nil, fmt.Errorf("failed to read %s of segment %s: %w", fileName, segmentName, err)
	}

	schema, err := avro.Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s of segment %s: %w", fileName, segmentName, err)
	}
	return schema, nil
}

func (r *avroReader) Close() error {
	return r.file.Close()
}
