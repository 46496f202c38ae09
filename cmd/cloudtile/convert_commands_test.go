package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"

	"cloudtile/internal/request"
	"cloudtile/internal/services"
)

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Int32("memory", 0, "")
	cmd.Flags().Int32("storage", 0, "")
	return cmd
}

func TestBuildConvertRequestZoomAndMode(t *testing.T) {
	cmd := newFlagCommand()
	flags := &convertFlags{ecs: true, suffix: "demo", tcKwargs: []string{"hilbert"}}

	req, err := buildConvertRequest(cmd, request.OpSingleStep, []string{"blocks.parquet", "2", "9"}, flags)
	if err != nil {
		t.Fatalf("buildConvertRequest: %v", err)
	}
	if req.Mode != request.ModeRemote {
		t.Fatalf("mode = %s, want remote", req.Mode)
	}
	if req.Zoom == nil || req.Zoom.Min != 2 || req.Zoom.Max != 9 {
		t.Fatalf("zoom = %+v, want 2-9", req.Zoom)
	}
	if req.Suffix != "demo" || len(req.Overrides) != 1 {
		t.Fatalf("suffix/overrides not carried: %+v", req)
	}
	if req.Memory != nil || req.Storage != nil {
		t.Fatal("untouched resource flags produced overrides")
	}
}

func TestBuildConvertRequestResourceFlagsOnlyWhenSet(t *testing.T) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Set("memory", "65536"); err != nil {
		t.Fatalf("set memory: %v", err)
	}
	flags := &convertFlags{ecs: true, memory: 65536}

	req, err := buildConvertRequest(cmd, request.OpVector2FGB, []string{"blocks.geojson"}, flags)
	if err != nil {
		t.Fatalf("buildConvertRequest: %v", err)
	}
	if req.Memory == nil || *req.Memory != 65536 {
		t.Fatalf("memory override = %v, want 65536", req.Memory)
	}
	if req.Storage != nil {
		t.Fatal("storage override set without the flag")
	}
}

func TestBuildConvertRequestRejectsBadZoom(t *testing.T) {
	cmd := newFlagCommand()
	flags := &convertFlags{}

	if _, err := buildConvertRequest(cmd, request.OpFGB2PMTiles, []string{"blocks.fgb", "two", "9"}, flags); err == nil {
		t.Fatal("expected an error for a non-numeric zoom")
	}
}

func TestConvertRejectsMemoryWithoutRemote(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"convert", "vector2fgb", "blocks.geojson", "--memory", "65536"}, env.configPath)
	if !errors.Is(err, services.ErrMode) {
		t.Fatalf("error = %v, want ErrMode", err)
	}
}

func TestConvertRejectsKwargsWithoutTiling(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"convert", "mbtiles2pmtiles", "blocks.mbtiles", "--tc-kwargs", "hilbert"}, env.configPath)
	if err == nil {
		t.Fatal("expected an unknown flag error")
	}
}

func TestConvertModesAreMutuallyExclusive(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"convert", "single-step", "blocks.parquet", "2", "9", "--s3", "--ecs"}, env.configPath)
	if err == nil {
		t.Fatal("expected --s3/--ecs conflict error")
	}
}
