// Package ogr2ogr wraps GDAL's ogr2ogr for vector format conversion.
package ogr2ogr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Option configures the CLI client.
type Option func(*Client)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// Client wraps the ogr2ogr command-line converter.
type Client struct {
	binary string
}

// New constructs a client using defaults.
func New(opts ...Option) *Client {
	client := &Client{binary: "ogr2ogr"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Convert reprojects inputPath into a FlatGeobuf file at outputPath. The
// tool's combined output is attached to any failure.
func (c *Client) Convert(ctx context.Context, inputPath, outputPath string) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	args := []string{"-f", "FlatGeobuf", outputPath, inputPath, "-progress"}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ogr2ogr %s: %w: %s", outputPath, err, tailLines(output.String(), 20))
	}
	return nil
}

func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
