package config

const (
	defaultWorkDir           = "~/.local/share/cloudtile/work"
	defaultLogDir            = "~/.local/share/cloudtile/logs"
	defaultBucket            = "cloudtile-files"
	defaultRegion            = "us-east-2"
	defaultCluster           = "cloudtile"
	defaultTaskDefinition    = "cloudtile"
	defaultContainer         = "cloudtile"
	defaultMemoryReservation = 65536
	defaultOgr2ogrBin        = "ogr2ogr"
	defaultTippecanoeBin     = "tippecanoe"
	defaultPMTilesBin        = "pmtiles"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		S3: S3{
			Bucket: defaultBucket,
			Region: defaultRegion,
		},
		ECS: ECS{
			Cluster:           defaultCluster,
			TaskDefinition:    defaultTaskDefinition,
			Container:         defaultContainer,
			MemoryReservation: defaultMemoryReservation,
		},
		Tools: Tools{
			Ogr2ogrBin:    defaultOgr2ogrBin,
			TippecanoeBin: defaultTippecanoeBin,
			PMTilesBin:    defaultPMTilesBin,
		},
		Logging: Logging{
			LogFormat: defaultLogFormat,
			LogLevel:  defaultLogLevel,
		},
	}
}
