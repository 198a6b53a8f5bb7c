package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"math"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Default normalization bounds used for caption model input.
const (
	DefaultMaxWidth  = 224
	DefaultMaxHeight = 224
	DefaultQuality   = 80
	// DefaultMaxPixels bounds the decoded bitmap; the fetch size cap only bounds compressed bytes.
	DefaultMaxPixels = 40_000_000
)

// MediaTypeJPEG is the encoding every normalized image is submitted in.
const MediaTypeJPEG = "image/jpeg"

// NormalizeOptions configures Normalize.
type NormalizeOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	// MaxPixels rejects images whose header declares more pixels. Zero means DefaultMaxPixels.
	MaxPixels int
}

// DefaultNormalizeOptions returns the 224x224 JPEG settings.
func DefaultNormalizeOptions() *NormalizeOptions {
	return &NormalizeOptions{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
		MaxPixels: DefaultMaxPixels,
	}
}

// Normalized is an image ready for submission to a captioning service.
type Normalized struct {
	Data         []byte
	MediaType    string
	Width        int
	Height       int
	SourceFormat string
}

// Normalize decodes data, shrinks it to fit inside the configured bounds while
// keeping the aspect ratio, and re-encodes it as JPEG. Images already within
// bounds keep their size.
func Normalize(data []byte, opts *NormalizeOptions) (*Normalized, error) {
	if opts == nil {
		opts = DefaultNormalizeOptions()
	}
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return nil, &Error{Op: "normalize", Cause: fmt.Errorf("invalid bounds %dx%d", opts.MaxWidth, opts.MaxHeight)}
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Op: "decode", Cause: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, &Error{Op: "decode", Cause: fmt.Errorf("%dx%d image exceeds %d pixels", cfg.Width, cfg.Height, maxPixels)}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Op: "decode", Cause: err}
	}

	srcBounds := src.Bounds()
	if srcBounds.Dx() <= 0 || srcBounds.Dy() <= 0 {
		return nil, &Error{Op: "decode", Cause: fmt.Errorf("empty image")}
	}

	width, height := FitInside(srcBounds.Dx(), srcBounds.Dy(), opts.MaxWidth, opts.MaxHeight)

	// JPEG has no alpha channel; transparent pixels become white.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if width == srcBounds.Dx() && height == srcBounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, srcBounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, srcBounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &Error{Op: "encode", Cause: err}
	}

	return &Normalized{
		Data:         buf.Bytes(),
		MediaType:    MediaTypeJPEG,
		Width:        width,
		Height:       height,
		SourceFormat: format,
	}, nil
}

// FitInside returns the largest size with the aspect ratio of width x height
// that fits inside maxWidth x maxHeight, never larger than the original.
func FitInside(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	scale := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))

	w = max(1, min(w, maxWidth))
	h = max(1, min(h, maxHeight))
	return w, h
}
