// Package schemaregistry resolves registry schema ids to their raw and
// parsed Avro schema documents.
package schemaregistry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry/rest"
	"github.com/hamba/avro/v2"
)

// schemaNotFoundCode is the registry's REST error code for an unknown
// schema id.
const schemaNotFoundCode = 40403

var (
	// ErrSchemaNotFound is returned when the registry has no schema for the
	// requested id.
	ErrSchemaNotFound = errors.New("schema not found in registry")

	// ErrRegistryUnavailable is returned when the registry could not be
	// reached. The resolver performs no retries; retry policy belongs to the
	// registry client.
	ErrRegistryUnavailable = errors.New("schema registry unavailable")
)

// ResolvedSchema is the raw registry document together with its parsed form.
type ResolvedSchema struct {
	RawText string
	Parsed  avro.Schema
}

// Resolver maps a schema id to its resolved schema. Safe to call repeatedly;
// results are cached per id. Must never be called with a negative id.
type Resolver interface {
	Resolve(schemaID int) (ResolvedSchema, error)
}

// Client is the subset of the Confluent Schema Registry client the resolver
// depends on.
type Client interface {
	GetSubjectsAndVersionsByID(id int) ([]schemaregistry.SubjectAndVersion, error)
	GetBySubjectAndID(subject string, id int) (schemaregistry.SchemaInfo, error)
}

type registryResolver struct {
	client Client
	cache  map[int]ResolvedSchema
	mu     sync.RWMutex
}

// NewResolver creates a registry-backed resolver with an in-memory cache.
func NewResolver(client Client) Resolver {
	return &registryResolver{
		client: client,
		cache:  make(map[int]ResolvedSchema),
	}
}

func (r *registryResolver) Resolve(schemaID int) (ResolvedSchema, error) {
	r.mu.RLock()
	cached, ok := r.cache[schemaID]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resolved, err := r.fetch(schemaID)
	if err != nil {
		return ResolvedSchema{}, err
	}

	r.mu.Lock()
	r.cache[schemaID] = resolved
	r.mu.Unlock()

	return resolved, nil
}

func (r *registryResolver) fetch(schemaID int) (ResolvedSchema, error) {
	subjectVersions, err := r.client.GetSubjectsAndVersionsByID(schemaID)
	if err != nil {
		var restErr *rest.Error
		if errors.As(err, &restErr) && restErr.Code == schemaNotFoundCode {
			return ResolvedSchema{}, fmt.Errorf("%w: id %d", ErrSchemaNotFound, schemaID)
		}
		return ResolvedSchema{}, fmt.Errorf("%w: lookup of schema id %d: %v", ErrRegistryUnavailable, schemaID, err)
	}
	if len(subjectVersions) == 0 {
		return ResolvedSchema{}, fmt.Errorf("%w: id %d", ErrSchemaNotFound, schemaID)
	}

	// The registry ties every schema id to at least one subject; any of them
	// serves the same schema document.
	subject := subjectVersions[0].Subject

	info, err := r.client.GetBySubjectAndID(subject, schemaID)
	if err != nil {
		return ResolvedSchema{}, fmt.Errorf("%w: fetch of schema id %d: %v", ErrRegistryUnavailable, schemaID, err)
	}

	parsed, err := avro.Parse(info.Schema)
	if err != nil {
		return ResolvedSchema{}, fmt.Errorf("failed to parse avro schema for id %d: %w", schemaID, err)
	}

	return ResolvedSchema{RawText: info.Schema, Parsed: parsed}, nil
}
