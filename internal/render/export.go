package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/rook-computer/covermaker/internal/imagecache"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrEmptyExport       = errors.New("export produced no data")
)

type Format string

const (
	FormatWEBP Format = "webp"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

const (
	DefaultFormat  = FormatWEBP
	DefaultQuality = 0.9
)

// ParseFormat accepts a format name or a mime type. Empty selects the default.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	switch s {
	case "":
		return DefaultFormat, nil
	case "webp":
		return FormatWEBP, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) MimeType() string { return "image/" + string(f) }

func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Encode writes img in the given format. quality applies to lossy formats
// and is clamped to the default when outside (0, 1].
func Encode(w io.Writer, img image.Image, format Format, quality float64) error {
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	switch format {
	case FormatWEBP:
		// Lossless encoder; quality has no effect.
		return nativewebp.Encode(w, img, nil)
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: int(math.Round(quality * 100))})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

// Blob is one exported cover.
type Blob struct {
	Bytes    []byte `json:"-"`
	URL      string `json:"url"`
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
}

// OutputSource is implemented by Renderer.
type OutputSource interface {
	Output() (*image.RGBA, uint64, error)
}

// Exporter serializes the output surface and remembers recent exports for
// the direct download path.
type Exporter struct {
	Source    OutputSource
	Recent    *imagecache.Cache[Blob]
	URLPrefix string
	Now       func() time.Time
}

func NewExporter(source OutputSource, recent *imagecache.Cache[Blob], urlPrefix string) *Exporter {
	if recent == nil {
		recent = imagecache.New[Blob](8)
	}
	return &Exporter{Source: source, Recent: recent, URLPrefix: urlPrefix, Now: time.Now}
}

func (e *Exporter) Export(format Format, quality float64) (Blob, error) {
	if e.Source == nil {
		return Blob{}, ErrMissingSurface
	}
	img, _, err := e.Source.Output()
	if err != nil {
		return Blob{}, fmt.Errorf("export: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return Blob{}, fmt.Errorf("export %s: %w", format, err)
	}
	if buf.Len() == 0 {
		return Blob{}, ErrEmptyExport
	}
	filename := fmt.Sprintf("cover-%d.%s", e.Now().UnixMilli(), format.Extension())
	blob := Blob{
		Bytes:    buf.Bytes(),
		URL:      strings.TrimSuffix(e.URLPrefix, "/") + "/" + filename,
		Size:     buf.Len(),
		MimeType: format.MimeType(),
		Filename: filename,
	}
	e.Recent.Set(filename, blob)
	return blob, nil
}

// Lookup returns a recent export by filename.
func (e *Exporter) Lookup(filename string) (Blob, bool) {
	return e.Recent.Get(filename)
}
