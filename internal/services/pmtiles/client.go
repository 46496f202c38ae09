// Package pmtiles wraps the pmtiles CLI for repackaging an MBTiles
// container into a PMTiles archive.
package pmtiles

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

// Client wraps the pmtiles command-line tool.
type Client struct {
	binary string
}

// New constructs a client using defaults.
func New(opts ...Option) *Client {
	client := &Client{binary: "pmtiles"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Convert repackages inputPath (mbtiles) into outputPath (pmtiles).
func (c *Client) Convert(ctx context.Context, inputPath, outputPath string) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	cmd := commandContext(ctx, c.binary, "convert", inputPath, outputPath) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pmtiles convert %s: %w: %s", outputPath, err, tailLines(output.String(), 20))
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
