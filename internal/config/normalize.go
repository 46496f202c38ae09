package config

import (
	"os"
	"strings"
)

// normalize expands path fields and applies environment overrides. Env vars
// win over file values so container tasks can point at a different bucket
// without editing the baked-in config.
func (c *Config) normalize() error {
	if v := strings.TrimSpace(os.Getenv("CLOUDTILE_BUCKET")); v != "" {
		c.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("CLOUDTILE_REGION")); v != "" {
		c.Region = v
	}

	for _, field := range []*string{&c.WorkDir, &c.LogDir} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := ExpandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return nil
}
