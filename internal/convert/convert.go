// Package convert drives a conversion request through its resolved step
// chain, in one of three execution modes: local files only, S3-staged
// input and output, or submission as a remote task.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloudtile/internal/config"
	"cloudtile/internal/ecs"
	"cloudtile/internal/geofile"
	"cloudtile/internal/logging"
	"cloudtile/internal/request"
	"cloudtile/internal/services"
	"cloudtile/internal/services/ogr2ogr"
	"cloudtile/internal/services/pmtiles"
	"cloudtile/internal/services/tippecanoe"
	"cloudtile/internal/storage"
)

// VectorConverter converts a raw vector file into FlatGeobuf.
type VectorConverter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// TileGenerator renders a FlatGeobuf into a tile archive with the given
// serialized settings.
type TileGenerator interface {
	Generate(ctx context.Context, inputPath, outputPath string, args []string) error
}

// Repackager rewraps an interim tile container into the final archive.
type Repackager interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Stager moves files between the local working directory and the bucket.
type Stager interface {
	Download(ctx context.Context, name string) (string, error)
	Upload(ctx context.Context, localPath string) (storage.UploadResult, error)
}

// Submitter hands a request off to the remote task runner.
type Submitter interface {
	Submit(ctx context.Context, req *request.Request, settings tippecanoe.Settings) (*ecs.JobDescriptor, error)
}

// Result describes what a completed request produced. Exactly one of the
// shapes applies: local runs set Output; staged runs add Key and
// AlreadyPresent; remote runs set only Job.
type Result struct {
	Output         geofile.File
	Key            string
	AlreadyPresent bool
	Job            *ecs.JobDescriptor
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithVectorConverter replaces the ogr2ogr client.
func WithVectorConverter(c VectorConverter) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.vector = c
		}
	}
}

// WithTileGenerator replaces the tippecanoe client.
func WithTileGenerator(g TileGenerator) Option {
	return func(d *Dispatcher) {
		if g != nil {
			d.tiles = g
		}
	}
}

// WithRepackager replaces the pmtiles client.
func WithRepackager(r Repackager) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.repack = r
		}
	}
}

// WithStager injects the staging adapter. Without one, staged requests
// construct the real S3 adapter on first use.
func WithStager(s Stager) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.stager = s
		}
	}
}

// WithSubmitter injects the remote submitter. Without one, remote requests
// construct the real ECS submitter on first use.
func WithSubmitter(s Submitter) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.submitter = s
		}
	}
}

// Dispatcher routes a request to its execution mode and walks the step
// chain. One request is processed start to finish with no internal
// parallelism; each step's output is the next step's input.
type Dispatcher struct {
	cfg    *config.Config
	logger *slog.Logger

	vector VectorConverter
	tiles  TileGenerator
	repack Repackager

	stager    Stager
	submitter Submitter
}

// New constructs a dispatcher wired to the configured tool binaries. AWS
// clients are only created when a request's mode needs them.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		cfg:    cfg,
		logger: logger,
		vector: ogr2ogr.New(ogr2ogr.WithBinary(cfg.Ogr2ogrBin)),
		tiles:  tippecanoe.New(tippecanoe.WithBinary(cfg.TippecanoeBin)),
		repack: pmtiles.New(pmtiles.WithBinary(cfg.PMTilesBin)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run validates the request, resolves the effective tile-generation
// settings, and executes it in the requested mode.
func (d *Dispatcher) Run(ctx context.Context, req *request.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var settings tippecanoe.Settings
	if req.Operation.UsesTileGeneration() {
		var err error
		settings, err = tippecanoe.Resolve(req.ConfigPath, req.Overrides)
		if err != nil {
			return nil, err
		}
		settings.EnsureZoom(req.Zoom.Min, req.Zoom.Max)
	}

	switch req.Mode {
	case request.ModeLocal:
		return d.runLocal(ctx, req, settings)
	case request.ModeStaged:
		return d.runStaged(ctx, req, settings)
	case request.ModeRemote:
		return d.runRemote(ctx, req, settings)
	default:
		return nil, services.Wrap(services.ErrMode, "convert", "dispatch",
			fmt.Sprintf("unknown execution mode %d", req.Mode), nil)
	}
}

func (d *Dispatcher) runLocal(ctx context.Context, req *request.Request, settings tippecanoe.Settings) (*Result, error) {
	source, err := geofile.NewFile(req.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(source.Path); err != nil {
		return nil, fmt.Errorf("input file %s: %w", source.Path, err)
	}

	output, err := d.runChain(ctx, source, req, settings)
	if err != nil {
		return nil, err
	}
	return &Result{Output: output}, nil
}

func (d *Dispatcher) runStaged(ctx context.Context, req *request.Request, settings tippecanoe.Settings) (*Result, error) {
	stager, err := d.ensureStager(ctx)
	if err != nil {
		return nil, err
	}

	// Resolve the chain before touching the network so unsupported inputs
	// never trigger a transfer.
	if _, err := d.planChain(req); err != nil {
		return nil, err
	}

	localPath, err := stager.Download(ctx, req.Filename)
	if err != nil {
		return nil, err
	}
	source, err := geofile.NewFile(localPath)
	if err != nil {
		return nil, err
	}

	output, err := d.runChain(ctx, source, req, settings)
	if err != nil {
		return nil, err
	}

	uploaded, err := stager.Upload(ctx, output.Path)
	if err != nil {
		return nil, err
	}
	if uploaded.Skipped {
		d.logger.Info("output already present, upload skipped", logging.String("key", uploaded.Key))
	}
	return &Result{Output: output, Key: uploaded.Key, AlreadyPresent: uploaded.Skipped}, nil
}

func (d *Dispatcher) runRemote(ctx context.Context, req *request.Request, settings tippecanoe.Settings) (*Result, error) {
	submitter, err := d.ensureSubmitter(ctx)
	if err != nil {
		return nil, err
	}
	job, err := submitter.Submit(ctx, req, settings)
	if err != nil {
		return nil, err
	}
	d.logger.Info("remote task submitted", logging.String("task_arn", job.TaskARN))
	return &Result{Job: job}, nil
}

// planChain resolves the step chain for the request and checks that the
// input format matches the requested operation.
func (d *Dispatcher) planChain(req *request.Request) ([]geofile.Step, error) {
	format, err := geofile.ParseFormat(req.Filename)
	if err != nil {
		return nil, err
	}
	if !acceptsSource(req.Operation, format) {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "convert", "plan",
			fmt.Sprintf("%s cannot start from a %s file", req.Operation.Name(), format), nil)
	}
	return geofile.Resolve(format, req.Operation.Target())
}

func acceptsSource(op request.Operation, format geofile.Format) bool {
	switch op {
	case request.OpVector2FGB:
		return format == geofile.FormatGeoJSON ||
			format == geofile.FormatGeoPackage ||
			format == geofile.FormatGeoParquet
	case request.OpFGB2PMTiles:
		return format == geofile.FormatFlatGeobuf
	case request.OpMBTiles2PMTiles:
		return format == geofile.FormatMBTiles
	case request.OpSingleStep:
		return format != geofile.FormatUnknown && format != geofile.FormatPMTiles
	default:
		return false
	}
}

// runChain walks every resolved step, deriving each output next to its
// source. A step that fails or leaves no output aborts the chain; the
// partial artifacts stay on disk for inspection.
func (d *Dispatcher) runChain(ctx context.Context, source geofile.File, req *request.Request, settings tippecanoe.Settings) (geofile.File, error) {
	chain, err := d.planChain(req)
	if err != nil {
		return geofile.File{}, err
	}

	current := source
	for _, step := range chain {
		output := current.Derive(step.Target, d.nameParts(step, settings, req.Suffix)...)
		d.logger.Info("running conversion step",
			logging.String("step", step.Name()),
			logging.String("input", current.Path),
			logging.String("output", output.Path))

		var runErr error
		switch step.Tool {
		case geofile.ToolOGR2OGR:
			runErr = d.vector.Convert(ctx, current.Path, output.Path)
		case geofile.ToolTippecanoe:
			runErr = d.tiles.Generate(ctx, current.Path, output.Path, settings.Args())
		case geofile.ToolPMTiles:
			runErr = d.repack.Convert(ctx, current.Path, output.Path)
		default:
			runErr = fmt.Errorf("no client for tool %s", step.Tool)
		}
		if runErr != nil {
			return geofile.File{}, services.Wrap(services.ErrConversionFailed, "convert", step.Name(), "tool invocation failed", runErr)
		}
		if _, err := os.Stat(output.Path); err != nil {
			return geofile.File{}, services.Wrap(services.ErrConversionFailed, "convert", step.Name(),
				fmt.Sprintf("tool exited cleanly but produced no output at %s", output.Path), err)
		}
		current = output
	}
	return current, nil
}

// nameParts returns the stem fragments a step's output carries. Tiling
// outputs embed the effective zoom bounds and the caller suffix; plain
// conversions keep the stem.
func (d *Dispatcher) nameParts(step geofile.Step, settings tippecanoe.Settings, suffix string) []string {
	if !step.Tiling() {
		return nil
	}
	parts := make([]string, 0, 3)
	if minPart, maxPart, ok := settings.ZoomParts(); ok {
		parts = append(parts, minPart, maxPart)
	}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return parts
}

func (d *Dispatcher) ensureStager(ctx context.Context) (Stager, error) {
	if d.stager == nil {
		stager, err := storage.New(ctx, d.cfg)
		if err != nil {
			return nil, err
		}
		d.stager = stager
	}
	return d.stager, nil
}

func (d *Dispatcher) ensureSubmitter(ctx context.Context) (Submitter, error) {
	if d.submitter == nil {
		submitter, err := ecs.New(ctx, d.cfg)
		if err != nil {
			return nil, err
		}
		d.submitter = submitter
	}
	return d.submitter, nil
}
