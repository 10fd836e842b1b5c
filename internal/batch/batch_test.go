package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/visionscan/internal/barcode"
	"github.com/MeKo-Tech/visionscan/internal/scan"
	"github.com/MeKo-Tech/visionscan/internal/testutil"
	"github.com/MeKo-Tech/visionscan/internal/vision"
	"github.com/MeKo-Tech/visionscan/internal/vision/visiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type countingProgress struct {
	started, completed bool
	progress, errors   int
}

func (c *countingProgress) OnStart(int)         { c.started = true }
func (c *countingProgress) OnProgress(int, int) { c.progress++ }
func (c *countingProgress) OnComplete()         { c.completed = true }
func (c *countingProgress) OnError(int, error)  { c.errors++ }

func keepSession(t *testing.T, det vision.Detector, mode vision.Mode) *scan.Session {
	t.Helper()
	opts := scan.DefaultOptions(mode)
	opts.DeleteAfterScan = false
	s, err := scan.NewSession(det, opts)
	require.NoError(t, err)
	return s
}

func photoDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		testutil.WritePNG(t, dir, n, testutil.CreateTestImage(16, 16, testutil.White))
	}
	return dir
}

func TestRun_Barcodes(t *testing.T) {
	det := &visiontest.Detector{Barcodes: []vision.Barcode{{
		RawValue:  "123456789",
		Symbology: barcode.SymbologyCode128,
		ValueType: barcode.ValueTypeText,
	}}}
	dir := photoDir(t, "b.png", "a.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	progress := &countingProgress{}
	res, err := Run(context.Background(), keepSession(t, det, vision.ModeBarcode), []string{dir}, DefaultConfig(), progress)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, filepath.Join(dir, "a.png"), res.Items[0].File, "files are scanned in lexical order")
	assert.Equal(t, StatusFound, res.Items[0].Status)
	assert.Equal(t, "123 456789\n(CODE_128, TEXT)", res.Items[0].Text)
	assert.Equal(t, "CODE_128", res.Items[0].Symbology)
	assert.Equal(t, "123456789", res.Items[0].RawValue)

	assert.True(t, progress.started)
	assert.True(t, progress.completed)
	assert.Equal(t, 2, progress.progress)
	assert.Zero(t, progress.errors)
	assert.True(t, testutil.FileExists(filepath.Join(dir, "a.png")))
}

func TestRun_TextAndFailures(t *testing.T) {
	det := &visiontest.Detector{Texts: []string{"", "Hello there"}}
	dir := photoDir(t, "page.png")
	broken := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("not a jpeg"), 0o600))

	progress := &countingProgress{}
	cfg := DefaultConfig()
	cfg.Mode = vision.ModeText
	res, err := Run(context.Background(), keepSession(t, det, vision.ModeText), []string{dir}, cfg, progress)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	assert.Equal(t, StatusError, res.Items[0].Status)
	assert.Equal(t, scan.MsgReadFailed, res.Items[0].Message)
	assert.NotEmpty(t, res.Items[0].Error)

	assert.Equal(t, StatusFound, res.Items[1].Status)
	assert.Equal(t, "Hello there \n", res.Items[1].Text)
	assert.Equal(t, 90, res.Items[1].Angle)

	found, empty, failed := res.Counts()
	assert.Equal(t, []int{1, 0, 1}, []int{found, empty, failed})
	assert.Equal(t, 1, progress.errors)
}

func TestRun_StopOnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("junk"), 0o600))
	testutil.WritePNG(t, dir, "b.png", testutil.CreateTestImage(4, 4, testutil.White))

	cfg := DefaultConfig()
	cfg.StopOnError = true
	progress := &countingProgress{}
	res, err := Run(context.Background(), keepSession(t, &visiontest.Detector{}, vision.ModeBarcode), []string{dir}, cfg, progress)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Items, 1)
	assert.Positive(t, res.Duration, "partial results still carry their elapsed time")
	assert.True(t, progress.completed)
	assert.Equal(t, 1, progress.errors)
}

func TestRun_Errors(t *testing.T) {
	s := keepSession(t, &visiontest.Detector{}, vision.ModeBarcode)

	_, err := Run(context.Background(), s, []string{t.TempDir()}, DefaultConfig(), nil)
	require.ErrorIs(t, err, ErrNoImages)

	_, err = Run(context.Background(), s, []string{"/nonexistent/file.png"}, DefaultConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")

	cfg := DefaultConfig()
	cfg.Format = "xml"
	_, err = Run(context.Background(), s, nil, cfg, nil)
	require.Error(t, err)
}

func TestRun_DisabledSessionAborts(t *testing.T) {
	s, err := scan.NewSession(&visiontest.Detector{Unavailable: true}, scan.DefaultOptions(vision.ModeBarcode))
	require.Error(t, err)

	_, err = Run(context.Background(), s, []string{photoDir(t, "a.png", "b.png")}, DefaultConfig(), nil)
	require.ErrorIs(t, err, scan.ErrNoDetectionAvailable)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Mode = "audio"
	assert.Error(t, cfg.Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func sampleResult() *Result {
	return &Result{
		Mode: vision.ModeBarcode,
		Items: []Item{
			{File: "a.png", Status: StatusFound, Text: "1 234567\n(EAN_8, PRODUCT)", Symbology: "EAN_8", ValueType: "PRODUCT", Message: "1 234567\n(EAN_8, PRODUCT)"},
			{File: "b.png", Status: StatusEmpty, Message: scan.MsgNothingFound},
		},
	}
}

func TestFormatResults(t *testing.T) {
	r := sampleResult()

	text, err := r.FormatResults(FormatText)
	require.NoError(t, err)
	assert.Equal(t, "# a.png\n1 234567\n(EAN_8, PRODUCT)\n\n# b.png\nNothing detected.\n", text)

	js, err := r.FormatResults(FormatJSON)
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Equal(t, r.Items, decoded.Items)

	ym, err := r.FormatResults(FormatYAML)
	require.NoError(t, err)
	var fromYAML Result
	require.NoError(t, yaml.Unmarshal([]byte(ym), &fromYAML))
	assert.Equal(t, vision.ModeBarcode, fromYAML.Mode)
	assert.Len(t, fromYAML.Items, 2)

	csvOut, err := r.FormatResults(FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, csvOut, "file,status,text,symbology,value_type,angle,message\n")
	assert.Contains(t, csvOut, "b.png,empty,,,,0,Nothing detected.\n")

	_, err = r.FormatResults("xml")
	assert.Error(t, err)
}

func TestSaveResultsAndStats(t *testing.T) {
	r := sampleResult()
	var buf bytes.Buffer

	require.NoError(t, r.SaveResults(&buf, FormatText, "", false))
	assert.Contains(t, buf.String(), "# b.png")

	out := filepath.Join(t.TempDir(), "out.json")
	buf.Reset()
	require.NoError(t, r.SaveResults(&buf, FormatJSON, out, false))
	assert.Contains(t, buf.String(), "Results written to")
	assert.True(t, testutil.FileExists(out))

	buf.Reset()
	r.PrintStats(&buf, false)
	assert.Contains(t, buf.String(), "Total images: 2")
	assert.Contains(t, buf.String(), "Nothing detected: 1")

	buf.Reset()
	r.PrintStats(&buf, true)
	assert.Empty(t, buf.String())
}

func TestDiscovery(t *testing.T) {
	dir := photoDir(t, "one.png", "two.jpg", "skip.png")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	testutil.WritePNG(t, sub, "deep.png", testutil.CreateTestImage(2, 2, testutil.White))

	files, err := discoverImageFiles([]string{dir}, false, nil, []string{"skip*"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "one.png"), filepath.Join(dir, "two.jpg")}, files)

	files, err = discoverImageFiles([]string{dir}, true, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	explicit := filepath.Join(dir, "one.png")
	files, err = discoverImageFiles([]string{explicit}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, files)
}

func TestConsoleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgressCallback(&buf, "Scanning: ").WithUpdateInterval(0)
	p.OnStart(2)
	p.OnProgress(1, 2)
	p.OnError(2, errors.New("bad image"))
	p.OnProgress(2, 2)
	p.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "Scanning: 0/2")
	assert.Contains(t, out, "2/2 (100.0%)")
	assert.Contains(t, out, "Error at item 2: bad image")
	assert.Contains(t, out, "Completed in")
}

func TestFormatItem(t *testing.T) {
	it := NewItem("a.png", scan.Result{Found: true, Text: "hello", Angle: 180}, nil)

	text, err := FormatItem(it, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", text)

	js, err := FormatItem(it, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, js, `"angle": 180`)
	assert.Contains(t, js, `"status": "found"`)

	y, err := FormatItem(it, FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, y, "file: a.png\n")

	c, err := FormatItem(it, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "file,status,text,symbology,value_type,angle,message\na.png,found,hello,,,180,hello\n", c)

	empty, err := FormatItem(NewItem("b.png", scan.Result{}, nil), FormatText)
	require.NoError(t, err)
	assert.Equal(t, scan.MsgNothingFound+"\n", empty)

	_, err = FormatItem(it, "xml")
	require.Error(t, err)
}
