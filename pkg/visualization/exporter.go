// Package visualization writes reconstructed magnitude images to disk as
// grayscale PNG files and, optionally, as heat-map plots.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"iter"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"mrdrecon/internal/models"
)

// ErrUnsupportedImage is returned for records that are not floating-point images.
var ErrUnsupportedImage = errors.New("stream must contain only floating point images")

// Exporter writes every channel/slice plane of the images it is given to
// <dir>/<prefix><counter>.png, with a five-digit counter shared by all
// images of the run.
type Exporter struct {
	outputDir string
	prefix    string
	heatmap   bool

	count  int
	logger zerolog.Logger

	// Files lists the paths written so far, heat maps included.
	Files []string
}

// NewExporter creates an exporter writing into outputDir. When heatmap is
// set each plane is also rendered as a gonum/plot heat map.
func NewExporter(outputDir, prefix string, heatmap bool, logger *zerolog.Logger) *Exporter {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Exporter{
		outputDir: outputDir,
		prefix:    prefix,
		heatmap:   heatmap,
		logger:    l,
	}
}

// Count returns the number of planes written.
func (e *Exporter) Count() int {
	return e.count
}

// Export writes every image of records. Any record other than a
// floating-point image fails with ErrUnsupportedImage.
func (e *Exporter) Export(records iter.Seq2[models.Record, error]) error {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return err
	}
	for rec, err := range records {
		if err != nil {
			return err
		}
		im, ok := rec.Item().(*models.Image[float32])
		if !ok {
			return fmt.Errorf("%w: got %v", ErrUnsupportedImage, rec.Kind)
		}
		if err := e.ExportImage(im); err != nil {
			return err
		}
	}
	return nil
}

// ExportImage writes every plane of im. The output directory must exist.
func (e *Exporter) ExportImage(im *models.Image[float32]) error {
	scale := 255 / maxValue(im.Data)

	for c := 0; c < im.Channels; c++ {
		for s := 0; s < im.Slices; s++ {
			plane := im.Plane(c, s)
			gray := Grayscale(plane, im.Cols, im.Rows, scale)

			name := filepath.Join(e.outputDir, fmt.Sprintf("%s%05d.png", e.prefix, e.count))
			if err := SavePNG(gray, name); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
			e.Files = append(e.Files, name)

			if e.heatmap {
				hm := filepath.Join(e.outputDir, fmt.Sprintf("%s%05d_heatmap.png", e.prefix, e.count))
				title := fmt.Sprintf("image %d slice %d", im.Head.ImageIndex, s)
				if err := SaveHeatMap(plane, im.Cols, im.Rows, title, hm); err != nil {
					return fmt.Errorf("failed to write %s: %w", hm, err)
				}
				e.Files = append(e.Files, hm)
			}

			e.logger.Debug().Str("file", name).Msg("generated image")
			e.count++
		}
	}
	return nil
}

// Grayscale converts a row-major plane to an 8-bit image, multiplying each
// pixel by scale and truncating. Values outside [0, 255] saturate.
func Grayscale(plane []float32, width, height int, scale float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float64(plane[y*width+x]) * scale
			switch {
			case v < 0 || math.IsNaN(v):
				v = 0
			case v > 255:
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

// SavePNG writes img to filename.
func SavePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// maxValue returns the largest pixel, or 1 for an image with no positive pixel.
func maxValue(data []float32) float64 {
	var m float32
	for _, v := range data {
		if v > m {
			m = v
		}
	}
	if m <= 0 {
		return 1
	}
	return float64(m)
}
