package tippecanoe

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

// Client wraps the tippecanoe command-line tile generator.
type Client struct {
	binary string
}

// New constructs a client using defaults.
func New(opts ...Option) *Client {
	client := &Client{binary: "tippecanoe"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Generate runs tippecanoe with the serialized settings, writing outputPath
// from inputPath. The tool's combined output is attached to any failure.
func (c *Client) Generate(ctx context.Context, inputPath, outputPath string, args []string) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	cmdArgs := append(append([]string{}, args...), "-o", outputPath, inputPath)
	cmd := commandContext(ctx, c.binary, cmdArgs...) //nolint:gosec
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tippecanoe %s: %w: %s", outputPath, err, tailLines(output.String(), 20))
	}
	return nil
}

// tailLines keeps the last n lines of tool output for diagnostics.
func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
