package visualization

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mrdrecon/internal/models"
	"mrdrecon/pkg/reconstruction"
)

func testImage(slices int) *models.Image[float32] {
	im := models.NewImage[float32](1, slices, 2, 3)
	for i := range im.Data {
		im.Data[i] = float32(i % 6)
	}
	return im
}

func readGray(t *testing.T, path string) *image.Gray {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected a grayscale PNG, got %T", img)
	}
	return gray
}

func TestExportScalesToMaximum(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "image_", false, nil)

	records := []models.Record{
		models.ImageFloatRecord(testImage(1)),
		models.ImageFloatRecord(testImage(2)),
	}
	if err := e.Export(reconstruction.Records(records)); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "image_00000.png"),
		filepath.Join(dir, "image_00001.png"),
		filepath.Join(dir, "image_00002.png"),
	}
	if diff := cmp.Diff(want, e.Files); diff != "" {
		t.Errorf("file list mismatch (-want +got):\n%s", diff)
	}
	if e.Count() != 3 {
		t.Errorf("expected 3 planes, got %d", e.Count())
	}

	gray := readGray(t, want[0])
	if b := gray.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("expected 3x2 image, got %v", b)
	}
	// Pixel values 0..5 scaled by 255/5.
	wantPix := []uint8{0, 51, 102, 153, 204, 255}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got := gray.GrayAt(x, y).Y; got != wantPix[y*3+x] {
				t.Errorf("pixel (%d,%d): expected %d, got %d", x, y, wantPix[y*3+x], got)
			}
		}
	}
}

func TestExportRejectsOtherRecords(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "image_", false, nil)

	records := []models.Record{
		models.ImageFloatRecord(testImage(1)),
		models.AcquisitionRecord(&models.Acquisition{}),
	}
	if err := e.Export(reconstruction.Records(records)); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if e.Count() != 1 {
		t.Errorf("expected the leading image to be written, got %d", e.Count())
	}
}

func TestExportRejectsEmptyImageRecord(t *testing.T) {
	e := NewExporter(t.TempDir(), "image_", false, nil)
	records := []models.Record{{Kind: models.KindImageFloat}}
	if err := e.Export(reconstruction.Records(records)); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if e.Count() != 0 {
		t.Errorf("expected nothing written, got %d", e.Count())
	}
}

func TestGrayscaleSaturates(t *testing.T) {
	img := Grayscale([]float32{-1, 0.5, 3}, 3, 1, 100)
	got := []uint8{img.GrayAt(0, 0).Y, img.GrayAt(1, 0).Y, img.GrayAt(2, 0).Y}
	if diff := cmp.Diff([]uint8{0, 50, 255}, got); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestExportBlankImage(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "blank_", false, nil)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := e.ExportImage(models.NewImage[float32](1, 1, 2, 2)); err != nil {
		t.Fatalf("ExportImage failed: %v", err)
	}
	gray := readGray(t, e.Files[0])
	for _, v := range gray.Pix {
		if v != 0 {
			t.Fatalf("expected a black image, got pixel %d", v)
		}
	}
}

func TestExportHeatMap(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "image_", true, nil)
	if err := e.Export(reconstruction.Records([]models.Record{models.ImageFloatRecord(testImage(1))})); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	hm := filepath.Join(dir, "image_00000_heatmap.png")
	if len(e.Files) != 2 || e.Files[1] != hm {
		t.Fatalf("expected png and heat map, got %v", e.Files)
	}
	info, err := os.Stat(hm)
	if err != nil {
		t.Fatalf("heat map missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("heat map is empty")
	}
}

func TestSaveHeatMapShapeMismatch(t *testing.T) {
	err := SaveHeatMap([]float32{1, 2, 3}, 2, 2, "bad", filepath.Join(t.TempDir(), "bad.png"))
	if err == nil {
		t.Error("expected an error for a short plane")
	}
}
