// Package request models a single conversion invocation: what to convert,
// where it runs, and which overrides apply.
package request

import (
	"fmt"

	"cloudtile/internal/geofile"
	"cloudtile/internal/services"
)

// Mode selects where a conversion executes and how bytes are staged.
type Mode int

const (
	// ModeLocal runs every step against local files with no network calls.
	ModeLocal Mode = iota
	// ModeStaged downloads the input from S3 first and uploads the final
	// output after the last step.
	ModeStaged
	// ModeRemote submits the whole conversion as an ECS task and returns a
	// tracking handle without waiting.
	ModeRemote
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeStaged:
		return "staged"
	case ModeRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Operation is the conversion subcommand being requested.
type Operation int

const (
	OpVector2FGB Operation = iota
	OpFGB2PMTiles
	OpMBTiles2PMTiles
	OpSingleStep
)

// Name returns the CLI subcommand spelling, which is also what a remote
// task re-invokes.
func (o Operation) Name() string {
	switch o {
	case OpVector2FGB:
		return "vector2fgb"
	case OpFGB2PMTiles:
		return "fgb2pmtiles"
	case OpMBTiles2PMTiles:
		return "mbtiles2pmtiles"
	case OpSingleStep:
		return "single-step"
	default:
		return "unknown"
	}
}

// Target returns the format the operation converts into.
func (o Operation) Target() geofile.Format {
	if o == OpVector2FGB {
		return geofile.FormatFlatGeobuf
	}
	return geofile.FormatPMTiles
}

// UsesTileGeneration reports whether any step of the operation invokes the
// tile-generation tool, and therefore whether generation settings apply.
func (o Operation) UsesTileGeneration() bool {
	switch o {
	case OpFGB2PMTiles, OpSingleStep:
		return true
	default:
		return false
	}
}

// Zoom bounds accepted by the tile-generation tool.
const (
	MinZoom = 0
	MaxZoom = 22
)

// ZoomRange is the inclusive zoom span requested for tile generation.
type ZoomRange struct {
	Min int
	Max int
}

// Validate checks the range ordering and tool bounds.
func (z ZoomRange) Validate() error {
	if z.Min < MinZoom || z.Max > MaxZoom {
		return fmt.Errorf("zoom levels must be within [%d, %d], got %d-%d", MinZoom, MaxZoom, z.Min, z.Max)
	}
	if z.Min > z.Max {
		return fmt.Errorf("minimum zoom %d cannot exceed maximum zoom %d", z.Min, z.Max)
	}
	return nil
}

// Request is the unit of work handed to the dispatcher. Created per
// invocation and never persisted.
type Request struct {
	Filename   string
	Operation  Operation
	Mode       Mode
	Zoom       *ZoomRange
	Suffix     string
	ConfigPath string
	Overrides  []string
	Memory     *int32
	Storage    *int32
}

// Validate rejects argument combinations before any external call is made.
func (r *Request) Validate() error {
	if r.Filename == "" {
		return fmt.Errorf("filename required")
	}
	if r.Memory != nil && r.Mode != ModeRemote {
		return services.Wrap(services.ErrMode, "request", "validate", "--memory can only be used with remote execution", nil)
	}
	if r.Storage != nil && r.Mode != ModeRemote {
		return services.Wrap(services.ErrMode, "request", "validate", "--storage can only be used with remote execution", nil)
	}
	if r.ConfigPath != "" && !r.Operation.UsesTileGeneration() {
		return services.Wrap(services.ErrMode, "request", "validate",
			fmt.Sprintf("--config has no effect on %s, which never invokes the tile generator", r.Operation.Name()), nil)
	}
	if len(r.Overrides) > 0 && !r.Operation.UsesTileGeneration() {
		return services.Wrap(services.ErrMode, "request", "validate",
			fmt.Sprintf("--tc-kwargs has no effect on %s, which never invokes the tile generator", r.Operation.Name()), nil)
	}
	if r.Operation.UsesTileGeneration() {
		if r.Zoom == nil {
			return fmt.Errorf("%s requires a zoom range", r.Operation.Name())
		}
		if err := r.Zoom.Validate(); err != nil {
			return err
		}
	}
	return nil
}
