package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cloudtile/internal/convert"
	"cloudtile/internal/logging"
	"cloudtile/internal/request"
	"cloudtile/internal/runlog"
)

type convertFlags struct {
	s3       bool
	ecs      bool
	memory   int32
	storage  int32
	suffix   string
	tcConfig string
	tcKwargs []string
}

func (f *convertFlags) mode() request.Mode {
	switch {
	case f.ecs:
		return request.ModeRemote
	case f.s3:
		return request.ModeStaged
	default:
		return request.ModeLocal
	}
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run a conversion toward the PMTiles archive format",
	}

	cmd.AddCommand(newConvertSubcommand(ctx, request.OpVector2FGB,
		"vector2fgb FILE", "Convert a raw vector file into FlatGeobuf"))
	cmd.AddCommand(newConvertSubcommand(ctx, request.OpFGB2PMTiles,
		"fgb2pmtiles FILE MIN_ZOOM MAX_ZOOM", "Generate a PMTiles archive from a FlatGeobuf file"))
	cmd.AddCommand(newConvertSubcommand(ctx, request.OpMBTiles2PMTiles,
		"mbtiles2pmtiles FILE", "Repackage an MBTiles container as PMTiles"))
	cmd.AddCommand(newConvertSubcommand(ctx, request.OpSingleStep,
		"single-step FILE MIN_ZOOM MAX_ZOOM", "Run the full chain from a vector file to PMTiles"))

	return cmd
}

func newConvertSubcommand(ctx *commandContext, op request.Operation, use, short string) *cobra.Command {
	flags := &convertFlags{}
	argCount := 1
	if op.UsesTileGeneration() {
		argCount = 3
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(argCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildConvertRequest(cmd, op, args, flags)
			if err != nil {
				return err
			}
			return runConvert(ctx, cmd, req)
		},
	}

	cmd.Flags().BoolVar(&flags.s3, "s3", false, "Stage the input from S3 and upload the output")
	cmd.Flags().BoolVar(&flags.ecs, "ecs", false, "Submit the conversion as a remote ECS task")
	cmd.MarkFlagsMutuallyExclusive("s3", "ecs")
	cmd.Flags().Int32Var(&flags.memory, "memory", 0, "Remote task memory override in MiB")
	cmd.Flags().Int32Var(&flags.storage, "storage", 0, "Remote task ephemeral storage override in GiB")

	if op.UsesTileGeneration() {
		cmd.Flags().StringVar(&flags.tcConfig, "tc-config", "", "Tile-generation settings document (replaces the defaults)")
		cmd.Flags().StringArrayVar(&flags.tcKwargs, "tc-kwargs", nil, "Inline tile-generation override, key or key=value (repeatable)")
		cmd.Flags().StringVar(&flags.suffix, "suffix", "", "Suffix appended to the output file name")
	}

	return cmd
}

func buildConvertRequest(cmd *cobra.Command, op request.Operation, args []string, flags *convertFlags) (*request.Request, error) {
	req := &request.Request{
		Filename:   args[0],
		Operation:  op,
		Mode:       flags.mode(),
		Suffix:     flags.suffix,
		ConfigPath: flags.tcConfig,
		Overrides:  flags.tcKwargs,
	}

	if op.UsesTileGeneration() {
		minZoom, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("minimum zoom %q is not a number", args[1])
		}
		maxZoom, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("maximum zoom %q is not a number", args[2])
		}
		req.Zoom = &request.ZoomRange{Min: minZoom, Max: maxZoom}
	}

	if cmd.Flags().Changed("memory") {
		memory := flags.memory
		req.Memory = &memory
	}
	if cmd.Flags().Changed("storage") {
		storage := flags.storage
		req.Storage = &storage
	}

	return req, nil
}

func runConvert(ctx *commandContext, cmd *cobra.Command, req *request.Request) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	dispatcher := convert.New(cfg, logger)
	result, runErr := dispatcher.Run(cmd.Context(), req)
	recordRun(ctx, cmd, req, result, runErr)
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	switch {
	case result.Job != nil:
		return writeJSON(cmd, result.Job.Response)
	case result.Key != "":
		if result.AlreadyPresent {
			fmt.Fprintf(out, "Output already present, upload skipped: %s\n", result.Key)
		} else {
			fmt.Fprintf(out, "Uploaded %s\n", result.Key)
		}
	default:
		fmt.Fprintf(out, "Wrote %s\n", result.Output.Path)
	}
	return nil
}

// recordRun appends the invocation to the local run history. History is a
// convenience; failures to record never fail the conversion itself.
func recordRun(ctx *commandContext, cmd *cobra.Command, req *request.Request, result *convert.Result, runErr error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return
	}

	store, err := runlog.Open(cfg)
	if err != nil {
		warnRecord(ctx, err)
		return
	}
	defer store.Close()

	run := runlog.Run{
		Filename:  req.Filename,
		Operation: req.Operation.Name(),
		Mode:      req.Mode.String(),
	}
	if req.Zoom != nil {
		minZoom, maxZoom := req.Zoom.Min, req.Zoom.Max
		run.MinZoom = &minZoom
		run.MaxZoom = &maxZoom
	}

	switch {
	case runErr != nil:
		run.Outcome = runlog.OutcomeFailed
		run.Output = runErr.Error()
	case result.Job != nil:
		run.Outcome = runlog.OutcomeSubmitted
		run.Output = result.Job.TaskARN
	case result.AlreadyPresent:
		run.Outcome = runlog.OutcomeAlreadyPresent
		run.Output = result.Key
	case result.Key != "":
		run.Outcome = runlog.OutcomeConverted
		run.Output = result.Key
	default:
		run.Outcome = runlog.OutcomeConverted
		run.Output = result.Output.Path
	}

	if _, err := store.Record(cmd.Context(), run); err != nil {
		warnRecord(ctx, err)
	}
}

func warnRecord(ctx *commandContext, err error) {
	if logger, logErr := ctx.ensureLogger(); logErr == nil {
		logger.Warn("recording run history failed", logging.Error(err))
	}
}
