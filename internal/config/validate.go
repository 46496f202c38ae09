package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateS3(); err != nil {
		return err
	}
	if err := c.validateECS(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateS3() error {
	if c.Bucket == "" {
		return errors.New("s3.bucket must be set")
	}
	if c.Region == "" {
		return errors.New("s3.region must be set")
	}
	return nil
}

func (c *Config) validateECS() error {
	if c.Cluster == "" {
		return errors.New("ecs.cluster must be set")
	}
	if c.TaskDefinition == "" {
		return errors.New("ecs.task_definition must be set")
	}
	if c.Container == "" {
		return errors.New("ecs.container must be set")
	}
	if c.MemoryReservation <= 0 {
		return errors.New("ecs.memory_reservation must be positive")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Ogr2ogrBin == "" {
		return errors.New("tools.ogr2ogr must be set")
	}
	if c.TippecanoeBin == "" {
		return errors.New("tools.tippecanoe must be set")
	}
	if c.PMTilesBin == "" {
		return errors.New("tools.pmtiles must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.LogLevel)
	}
	return nil
}
