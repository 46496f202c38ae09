package geofile

import (
	"fmt"

	"cloudtile/internal/services"
)

// Tool identifies the external tool a conversion step invokes.
type Tool int

const (
	ToolOGR2OGR Tool = iota
	ToolTippecanoe
	ToolPMTiles
)

func (t Tool) String() string {
	switch t {
	case ToolOGR2OGR:
		return "ogr2ogr"
	case ToolTippecanoe:
		return "tippecanoe"
	case ToolPMTiles:
		return "pmtiles"
	default:
		return "unknown"
	}
}

// Step is one format-to-format transition in the conversion chain.
type Step struct {
	Sources []Format
	Target  Format
	Tool    Tool
}

// Name describes the step for logs and errors, e.g. "fgb->pmtiles".
func (s Step) Name() string {
	if len(s.Sources) == 1 {
		return fmt.Sprintf("%s->%s", s.Sources[0], s.Target)
	}
	return fmt.Sprintf("vector->%s", s.Target)
}

// Accepts reports whether the step converts from the given format.
func (s Step) Accepts(f Format) bool {
	for _, source := range s.Sources {
		if source == f {
			return true
		}
	}
	return false
}

// Tiling reports whether the step invokes the tile-generation tool.
func (s Step) Tiling() bool {
	return s.Tool == ToolTippecanoe
}

// steps is the fixed transition table. Raw vector inputs converge on
// FlatGeobuf; FlatGeobuf tiles directly to PMTiles or to the interim
// MBTiles container, which the pmtiles tool repackages.
var steps = []Step{
	{Sources: []Format{FormatGeoJSON, FormatGeoPackage, FormatGeoParquet}, Target: FormatFlatGeobuf, Tool: ToolOGR2OGR},
	{Sources: []Format{FormatFlatGeobuf}, Target: FormatPMTiles, Tool: ToolTippecanoe},
	{Sources: []Format{FormatFlatGeobuf}, Target: FormatMBTiles, Tool: ToolTippecanoe},
	{Sources: []Format{FormatMBTiles}, Target: FormatPMTiles, Tool: ToolPMTiles},
}

// Steps returns a copy of the full transition table.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Resolve returns the ordered steps that convert source into target. A
// direct edge is always preferred over the interim container route, so the
// same (source, target) pair yields the same chain every time.
func Resolve(source, target Format) ([]Step, error) {
	if source == FormatUnknown || target == FormatUnknown {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "geofile", "resolve", "unknown format", nil)
	}
	if source == target {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "geofile", "resolve",
			fmt.Sprintf("file is already in %s format", target), nil)
	}

	var chain []Step
	current := source
	for current != target {
		next, ok := nextStep(current, target)
		if !ok {
			return nil, services.Wrap(services.ErrUnsupportedFormat, "geofile", "resolve",
				fmt.Sprintf("no conversion path from %s to %s", source, target), nil)
		}
		chain = append(chain, next)
		current = next.Target
	}
	return chain, nil
}

func nextStep(current, target Format) (Step, bool) {
	var fallback Step
	found := false
	for _, step := range steps {
		if !step.Accepts(current) {
			continue
		}
		if step.Target == target {
			return step, true
		}
		// Keep the lowest-rank onward edge as the canonical route; it never
		// skips past the target because ranks strictly increase.
		if step.Target.rank() <= target.rank() && (!found || step.Target.rank() < fallback.Target.rank()) {
			fallback = step
			found = true
		}
	}
	return fallback, found
}
