package geofile

import (
	"errors"
	"testing"

	"cloudtile/internal/services"
)

func TestResolveVectorToPMTiles(t *testing.T) {
	for _, source := range []Format{FormatGeoJSON, FormatGeoPackage, FormatGeoParquet} {
		chain, err := Resolve(source, FormatPMTiles)
		if err != nil {
			t.Fatalf("Resolve(%s, pmtiles): %v", source, err)
		}
		if len(chain) != 2 {
			t.Fatalf("Resolve(%s, pmtiles) = %d steps, want 2", source, len(chain))
		}
		if chain[0].Tool != ToolOGR2OGR || chain[0].Target != FormatFlatGeobuf {
			t.Fatalf("unexpected first step %s", chain[0].Name())
		}
		if chain[1].Tool != ToolTippecanoe || chain[1].Target != FormatPMTiles {
			t.Fatalf("unexpected second step %s", chain[1].Name())
		}
	}
}

func TestResolveChainsStrictlyIncrease(t *testing.T) {
	for _, source := range Formats() {
		chain, err := Resolve(source, FormatPMTiles)
		if source == FormatPMTiles {
			if err == nil {
				t.Fatal("expected error resolving pmtiles to itself")
			}
			continue
		}
		if err != nil {
			t.Fatalf("Resolve(%s, pmtiles): %v", source, err)
		}
		if len(chain) == 0 {
			t.Fatalf("Resolve(%s, pmtiles) returned empty chain", source)
		}
		rank := source.rank()
		for _, step := range chain {
			if step.Target.rank() <= rank {
				t.Fatalf("chain from %s does not strictly increase at %s", source, step.Name())
			}
			rank = step.Target.rank()
		}
		if chain[len(chain)-1].Target != FormatPMTiles {
			t.Fatalf("chain from %s does not end at pmtiles", source)
		}
	}
}

func TestResolveDirectEdges(t *testing.T) {
	chain, err := Resolve(FormatFlatGeobuf, FormatPMTiles)
	if err != nil {
		t.Fatalf("Resolve(fgb, pmtiles): %v", err)
	}
	if len(chain) != 1 || chain[0].Tool != ToolTippecanoe {
		t.Fatalf("expected single tippecanoe step, got %d steps", len(chain))
	}

	chain, err = Resolve(FormatMBTiles, FormatPMTiles)
	if err != nil {
		t.Fatalf("Resolve(mbtiles, pmtiles): %v", err)
	}
	if len(chain) != 1 || chain[0].Tool != ToolPMTiles {
		t.Fatalf("expected single pmtiles step, got %d steps", len(chain))
	}
}

func TestResolveDeterministic(t *testing.T) {
	first, err := Resolve(FormatGeoParquet, FormatPMTiles)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 16; i++ {
		again, err := Resolve(FormatGeoParquet, FormatPMTiles)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("chain length changed between resolutions")
		}
		for j := range again {
			if again[j].Name() != first[j].Name() {
				t.Fatalf("chain step %d changed: %s vs %s", j, again[j].Name(), first[j].Name())
			}
		}
	}
}

func TestResolveNoPathBackwards(t *testing.T) {
	cases := [][2]Format{
		{FormatPMTiles, FormatFlatGeobuf},
		{FormatMBTiles, FormatFlatGeobuf},
		{FormatFlatGeobuf, FormatGeoJSON},
		{FormatPMTiles, FormatPMTiles},
	}
	for _, pair := range cases {
		if _, err := Resolve(pair[0], pair[1]); !errors.Is(err, services.ErrUnsupportedFormat) {
			t.Fatalf("Resolve(%s, %s) = %v, want unsupported format", pair[0], pair[1], err)
		}
	}
}
