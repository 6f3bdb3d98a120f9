// Package container provides test containers for integration tests.
package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedpandaContainer runs a single-node Redpanda, giving tests a real Kafka
// broker and schema registry in one container.
type RedpandaContainer struct {
	Container         testcontainers.Container
	SchemaRegistryURL string
}

// RedpandaOption configures the container.
type RedpandaOption func(*redpandaOptions)

type redpandaOptions struct {
	image string
}

// WithImage overrides the Redpanda image.
func WithImage(image string) RedpandaOption {
	return func(o *redpandaOptions) {
		o.image = image
	}
}

// StartRedpanda starts the container and waits until the schema registry
// answers.
func StartRedpanda(ctx context.Context, opts ...RedpandaOption) (*RedpandaContainer, error) {
	options := &redpandaOptions{
		image: "redpandadata/redpanda:v24.1.1",
	}
	for _, opt := range opts {
		opt(options)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        options.image,
			ExposedPorts: []string{"8081/tcp", "9092/tcp"},
			Cmd: []string{
				"redpanda", "start",
				"--mode", "dev-container",
				"--smp", "1",
				"--memory", "512M",
				"--reserve-memory", "0M",
				"--overprovisioned",
				"--node-id", "0",
				"--kafka-addr", "PLAINTEXT://0.0.0.0:9092",
				"--advertise-kafka-addr", "PLAINTEXT://localhost:9092",
				"--schema-registry-addr", "0.0.0.0:8081",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8081/tcp"),
				wait.ForListeningPort("9092/tcp"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redpanda container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "8081")
	if err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("failed to get schema registry port: %w", err)
	}

	registryURL := fmt.Sprintf("http://%s:%s", host, port.Port())
	if err := waitForSchemaRegistry(ctx, registryURL, 30*time.Second); err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("schema registry not ready: %w", err)
	}

	return &RedpandaContainer{
		Container:         container,
		SchemaRegistryURL: registryURL,
	}, nil
}

// KafkaBroker returns the mapped broker address.
func (r *RedpandaContainer) KafkaBroker(ctx context.Context) (string, error) {
	host, err := r.Container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := r.Container.MappedPort(ctx, "9092")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

// Terminate terminates the container.
func (r *RedpandaContainer) Terminate(ctx context.Context) error {
	if r.Container != nil {
		return r.Container.Terminate(ctx)
	}
	return nil
}

func waitForSchemaRegistry(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := client.Get(url + "/subjects")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("schema registry at %s did not become ready within %s", url, timeout)
}
