// Package tippecanoe merges tile-generation settings and wraps the
// tippecanoe command-line tool.
package tippecanoe

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed settings.toml
var defaultDocument []byte

var (
	defaultsOnce   sync.Once
	defaultsParsed Settings
	defaultsErr    error
)

// Settings maps tippecanoe flag names to their values. Values are booleans,
// numbers, or strings; boolean false acts as a disabling sentinel that keeps
// the flag out of the serialized arguments entirely.
type Settings map[string]any

// Defaults returns a copy of the embedded default settings document.
func Defaults() (Settings, error) {
	defaultsOnce.Do(func() {
		defaultsParsed, defaultsErr = parseDocument(defaultDocument)
	})
	if defaultsErr != nil {
		return nil, defaultsErr
	}
	return defaultsParsed.clone(), nil
}

// LoadDocument reads a caller-supplied settings document. The document
// replaces the defaults wholesale; it is not merged with them.
func LoadDocument(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings document: %w", err)
	}
	settings, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse settings document %s: %w", path, err)
	}
	return settings, nil
}

// Resolve builds the effective settings for one invocation: the embedded
// defaults, replaced by the document at docPath when given, then the inline
// overrides applied key-by-key with later duplicates winning.
func Resolve(docPath string, overrides []string) (Settings, error) {
	var settings Settings
	var err error
	if docPath != "" {
		settings, err = LoadDocument(docPath)
	} else {
		settings, err = Defaults()
	}
	if err != nil {
		return nil, err
	}
	if err := settings.Apply(overrides); err != nil {
		return nil, err
	}
	return settings, nil
}

// Apply parses and applies inline overrides in order.
func (s Settings) Apply(overrides []string) error {
	for _, raw := range overrides {
		key, value, err := ParseOverride(raw)
		if err != nil {
			return err
		}
		s[key] = value
	}
	return nil
}

// ParseOverride interprets a single inline override. A bare name sets the
// key to boolean true; key=value sets a literal, with True/False (any case)
// recognized as booleans.
func ParseOverride(raw string) (string, any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, fmt.Errorf("empty settings override")
	}
	key, value, found := strings.Cut(raw, "=")
	key = normalizeKey(key)
	if key == "" {
		return "", nil, fmt.Errorf("settings override %q has no key", raw)
	}
	if !found {
		return key, true, nil
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "true":
		return key, true, nil
	case "false":
		return key, false, nil
	}
	return key, value, nil
}

// EnsureZoom fills in the zoom range when the merged document does not set
// it already; explicit settings always win over the request range.
func (s Settings) EnsureZoom(minZoom, maxZoom int) {
	if _, ok := s["minimum-zoom"]; !ok {
		s["minimum-zoom"] = int64(minZoom)
	}
	if _, ok := s["maximum-zoom"]; !ok {
		s["maximum-zoom"] = int64(maxZoom)
	}
}

// ZoomParts returns the effective zoom bounds as name fragments for output
// naming.
func (s Settings) ZoomParts() (string, string, bool) {
	minVal, minOK := s["minimum-zoom"]
	maxVal, maxOK := s["maximum-zoom"]
	if !minOK || !maxOK {
		return "", "", false
	}
	return formatValue(minVal), formatValue(maxVal), true
}

// Args serializes the settings into tippecanoe arguments: boolean true
// becomes a bare --flag, boolean false is omitted, everything else becomes
// --key=value. Keys are emitted in sorted order.
func (s Settings) Args() []string {
	keys := s.sortedKeys()
	args := make([]string, 0, len(keys))
	for _, key := range keys {
		switch value := s[key].(type) {
		case bool:
			if value {
				args = append(args, "--"+key)
			}
		default:
			args = append(args, fmt.Sprintf("--%s=%s", key, formatValue(value)))
		}
	}
	return args
}

// InlineOverrides re-expresses the merged settings as inline override
// syntax, for environments that cannot resolve a local document path.
// Boolean false is kept as an explicit key=False so the disabling intent
// survives the round trip.
func (s Settings) InlineOverrides() []string {
	keys := s.sortedKeys()
	overrides := make([]string, 0, len(keys))
	for _, key := range keys {
		switch value := s[key].(type) {
		case bool:
			if value {
				overrides = append(overrides, key)
			} else {
				overrides = append(overrides, key+"=False")
			}
		default:
			overrides = append(overrides, fmt.Sprintf("%s=%s", key, formatValue(value)))
		}
	}
	return overrides
}

func (s Settings) clone() Settings {
	out := make(Settings, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}

func (s Settings) sortedKeys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// parseDocument decodes a TOML settings document. Keys may appear at the
// top level or grouped one level deep into sections; section names carry no
// meaning beyond organization.
func parseDocument(data []byte) (Settings, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	settings := make(Settings)
	for key, value := range raw {
		if section, ok := value.(map[string]any); ok {
			for name, nested := range section {
				settings[normalizeKey(name)] = nested
			}
			continue
		}
		settings[normalizeKey(key)] = value
	}
	return settings, nil
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.TrimLeft(key, "-")
	return strings.ReplaceAll(key, "_", "-")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
