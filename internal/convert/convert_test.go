package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloudtile/internal/ecs"
	"cloudtile/internal/request"
	"cloudtile/internal/services"
	"cloudtile/internal/services/tippecanoe"
	"cloudtile/internal/storage"
	"cloudtile/internal/testsupport"
)

type fakeVector struct {
	calls  int
	fail   bool
	silent bool
}

func (f *fakeVector) Convert(_ context.Context, _, outputPath string) error {
	f.calls++
	if f.fail {
		return errors.New("ogr2ogr exploded")
	}
	if f.silent {
		return nil
	}
	return os.WriteFile(outputPath, []byte("fgb"), 0o644)
}

type fakeTiles struct {
	calls int
	fail  bool
	args  []string
}

func (f *fakeTiles) Generate(_ context.Context, _, outputPath string, args []string) error {
	f.calls++
	f.args = args
	if f.fail {
		return errors.New("tippecanoe exploded")
	}
	return os.WriteFile(outputPath, []byte("tiles"), 0o644)
}

type fakeRepack struct {
	calls int
}

func (f *fakeRepack) Convert(_ context.Context, _, outputPath string) error {
	f.calls++
	return os.WriteFile(outputPath, []byte("pmtiles"), 0o644)
}

type fakeStager struct {
	dir       string
	downloads int
	uploads   int
	uploaded  string
	skipped   bool
}

func (f *fakeStager) Download(_ context.Context, name string) (string, error) {
	f.downloads++
	localPath := filepath.Join(f.dir, filepath.Base(name))
	if err := os.WriteFile(localPath, []byte("staged"), 0o644); err != nil {
		return "", err
	}
	return localPath, nil
}

func (f *fakeStager) Upload(_ context.Context, localPath string) (storage.UploadResult, error) {
	f.uploads++
	f.uploaded = localPath
	key, err := storage.Key(localPath)
	if err != nil {
		return storage.UploadResult{}, err
	}
	return storage.UploadResult{Key: key, Skipped: f.skipped}, nil
}

type fakeSubmitter struct {
	calls int
	req   *request.Request
}

func (f *fakeSubmitter) Submit(_ context.Context, req *request.Request, _ tippecanoe.Settings) (*ecs.JobDescriptor, error) {
	f.calls++
	f.req = req
	return &ecs.JobDescriptor{TaskARN: "arn:aws:ecs:task/fake"}, nil
}

type harness struct {
	dispatcher *Dispatcher
	vector     *fakeVector
	tiles      *fakeTiles
	repack     *fakeRepack
	stager     *fakeStager
	submitter  *fakeSubmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		vector:    &fakeVector{},
		tiles:     &fakeTiles{},
		repack:    &fakeRepack{},
		stager:    &fakeStager{dir: cfg.WorkDir},
		submitter: &fakeSubmitter{},
	}
	h.dispatcher = New(cfg, nil,
		WithVectorConverter(h.vector),
		WithTileGenerator(h.tiles),
		WithRepackager(h.repack),
		WithStager(h.stager),
		WithSubmitter(h.submitter),
	)
	return h
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, "input")
	return path
}

func TestLocalSingleStepRunsEachToolOnce(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.parquet")

	result, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpSingleStep,
		Mode:      request.ModeLocal,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.vector.calls != 1 {
		t.Fatalf("vector calls = %d, want 1", h.vector.calls)
	}
	if h.tiles.calls != 1 {
		t.Fatalf("tile generator calls = %d, want 1", h.tiles.calls)
	}
	if h.repack.calls != 0 {
		t.Fatalf("repackager calls = %d, want 0", h.repack.calls)
	}
	if got := filepath.Base(result.Output.Path); got != "blocks-2-9.pmtiles" {
		t.Fatalf("output name = %s, want blocks-2-9.pmtiles", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "blocks.fgb")); err != nil {
		t.Fatalf("interim fgb missing: %v", err)
	}
}

func TestLocalSuffixInOutputName(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.fgb")

	result, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpFGB2PMTiles,
		Mode:      request.ModeLocal,
		Zoom:      &request.ZoomRange{Min: 0, Max: 5},
		Suffix:    "draft",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := filepath.Base(result.Output.Path); got != "blocks-0-5-draft.pmtiles" {
		t.Fatalf("output name = %s, want blocks-0-5-draft.pmtiles", got)
	}
}

func TestDocumentZoomWinsOverRequest(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.fgb")

	result, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpFGB2PMTiles,
		Mode:      request.ModeLocal,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
		Overrides: []string{"minimum-zoom=4"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := filepath.Base(result.Output.Path); got != "blocks-4-9.pmtiles" {
		t.Fatalf("output name = %s, want blocks-4-9.pmtiles", got)
	}
}

func TestUnsupportedSuffixMakesNoCalls(t *testing.T) {
	h := newHarness(t)

	_, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  "notes.txt",
		Operation: request.OpSingleStep,
		Mode:      request.ModeStaged,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
	})
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
	if h.stager.downloads != 0 || h.stager.uploads != 0 {
		t.Fatalf("staging calls = %d/%d, want none", h.stager.downloads, h.stager.uploads)
	}
	if h.vector.calls+h.tiles.calls+h.repack.calls != 0 {
		t.Fatal("tool clients were invoked for an unsupported suffix")
	}
}

func TestWrongSourceForOperation(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.mbtiles")

	_, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpFGB2PMTiles,
		Mode:      request.ModeLocal,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
	})
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
	if h.tiles.calls != 0 {
		t.Fatalf("tile generator calls = %d, want 0", h.tiles.calls)
	}
}

func TestStagedDownloadsConvertsAndUploads(t *testing.T) {
	h := newHarness(t)

	result, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  "blocks.fgb",
		Operation: request.OpFGB2PMTiles,
		Mode:      request.ModeStaged,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.stager.downloads != 1 || h.stager.uploads != 1 {
		t.Fatalf("staging calls = %d/%d, want 1/1", h.stager.downloads, h.stager.uploads)
	}
	if got := filepath.Base(h.stager.uploaded); got != "blocks-2-9.pmtiles" {
		t.Fatalf("uploaded file = %s, want blocks-2-9.pmtiles", got)
	}
	if result.Key != "pmtiles/blocks-2-9.pmtiles" {
		t.Fatalf("key = %s, want pmtiles/blocks-2-9.pmtiles", result.Key)
	}
	if result.AlreadyPresent {
		t.Fatal("fresh upload reported as already present")
	}
}

func TestStagedReportsAlreadyPresent(t *testing.T) {
	h := newHarness(t)
	h.stager.skipped = true

	result, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  "blocks.mbtiles",
		Operation: request.OpMBTiles2PMTiles,
		Mode:      request.ModeStaged,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.AlreadyPresent {
		t.Fatal("skipped upload not reported as already present")
	}
	if h.repack.calls != 1 {
		t.Fatalf("repackager calls = %d, want 1", h.repack.calls)
	}
}

func TestRemoteSubmitsWithoutRunningTools(t *testing.T) {
	h := newHarness(t)

	result, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  "blocks.parquet",
		Operation: request.OpSingleStep,
		Mode:      request.ModeRemote,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.submitter.calls != 1 {
		t.Fatalf("submitter calls = %d, want 1", h.submitter.calls)
	}
	if h.vector.calls+h.tiles.calls+h.repack.calls != 0 {
		t.Fatal("remote request ran local tools")
	}
	if result.Job == nil || result.Job.TaskARN == "" {
		t.Fatal("remote result missing job descriptor")
	}
}

func TestStepFailureAbortsChainAndKeepsPartialOutput(t *testing.T) {
	h := newHarness(t)
	h.tiles.fail = true
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.parquet")

	_, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpSingleStep,
		Mode:      request.ModeLocal,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
	})
	if !errors.Is(err, services.ErrConversionFailed) {
		t.Fatalf("error = %v, want ErrConversionFailed", err)
	}
	if h.vector.calls != 1 || h.tiles.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", h.vector.calls, h.tiles.calls)
	}
	// The interim artifact from the completed step stays on disk.
	if _, statErr := os.Stat(filepath.Join(dir, "blocks.fgb")); statErr != nil {
		t.Fatalf("interim fgb removed after failure: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "blocks-2-9.pmtiles")); statErr == nil {
		t.Fatal("failed step left a final output")
	}
}

func TestMissingOutputIsConversionFailure(t *testing.T) {
	h := newHarness(t)
	h.vector.silent = true
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.geojson")

	_, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpVector2FGB,
		Mode:      request.ModeLocal,
	})
	if !errors.Is(err, services.ErrConversionFailed) {
		t.Fatalf("error = %v, want ErrConversionFailed", err)
	}
}

func TestSettingsArgsReachTileGenerator(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	input := writeInput(t, dir, "blocks.fgb")

	_, err := h.dispatcher.Run(context.Background(), &request.Request{
		Filename:  input,
		Operation: request.OpFGB2PMTiles,
		Mode:      request.ModeLocal,
		Zoom:      &request.ZoomRange{Min: 2, Max: 9},
		Overrides: []string{"hilbert"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var sawHilbert, sawZoom bool
	for _, arg := range h.tiles.args {
		if arg == "--hilbert" {
			sawHilbert = true
		}
		if arg == "--minimum-zoom=2" {
			sawZoom = true
		}
	}
	if !sawHilbert || !sawZoom {
		t.Fatalf("generator args missing overrides: %v", h.tiles.args)
	}
}
