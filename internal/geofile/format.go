// Package geofile models vector files and the fixed conversion chain
// between their formats.
package geofile

import (
	"path"
	"strings"

	"cloudtile/internal/services"
)

// Format identifies one of the recognized vector or tile formats.
type Format int

const (
	FormatUnknown Format = iota
	FormatGeoJSON
	FormatGeoPackage
	FormatGeoParquet
	FormatFlatGeobuf
	FormatMBTiles
	FormatPMTiles
)

var formatNames = map[Format]string{
	FormatGeoJSON:    "geojson",
	FormatGeoPackage: "gpkg",
	FormatGeoParquet: "parquet",
	FormatFlatGeobuf: "fgb",
	FormatMBTiles:    "mbtiles",
	FormatPMTiles:    "pmtiles",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Suffix returns the file suffix for the format, including the dot.
func (f Format) Suffix() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + f.String()
}

// rank orders formats along the conversion chain. Raw vector inputs share
// the lowest rank; every step must strictly increase it.
func (f Format) rank() int {
	switch f {
	case FormatGeoJSON, FormatGeoPackage, FormatGeoParquet:
		return 0
	case FormatFlatGeobuf:
		return 1
	case FormatMBTiles:
		return 2
	case FormatPMTiles:
		return 3
	default:
		return -1
	}
}

// Vector reports whether the format is a raw multi-format vector input.
func (f Format) Vector() bool {
	return f.rank() == 0
}

// ParseFormat infers the format from a path or object key suffix. An
// unrecognized suffix fails with services.ErrUnsupportedFormat.
func ParseFormat(name string) (Format, error) {
	suffix := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if suffix == "" {
		return FormatUnknown, services.Wrap(services.ErrUnsupportedFormat, "geofile", "parse", "missing file suffix in "+name, nil)
	}
	for format, fname := range formatNames {
		if fname == suffix {
			return format, nil
		}
	}
	return FormatUnknown, services.Wrap(services.ErrUnsupportedFormat, "geofile", "parse", "suffix ."+suffix+" is not a recognized vector or tile format", nil)
}

// Formats lists every recognized format in chain order.
func Formats() []Format {
	return []Format{
		FormatGeoJSON,
		FormatGeoPackage,
		FormatGeoParquet,
		FormatFlatGeobuf,
		FormatMBTiles,
		FormatPMTiles,
	}
}
