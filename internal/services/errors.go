package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat marks files whose suffix is not recognized or for
	// which no conversion path exists. Raised before any subprocess or
	// network call.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrConversionFailed marks an external tool that exited non-zero or
	// omitted its expected output file.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrStaging marks storage download/upload failures in staged and
	// remote modes.
	ErrStaging = errors.New("staging error")
	// ErrResourceOverride marks remote resource overrides outside their
	// accepted range or step.
	ErrResourceOverride = errors.New("resource override error")
	// ErrMode marks arguments that are incompatible with the requested
	// execution mode.
	ErrMode = errors.New("mode error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConversionFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
