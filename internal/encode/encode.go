// Package encode turns rectified crops into output artifacts.
package encode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Format is an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
)

// DefaultJPEGQuality matches the quality used for data URLs in browsers.
const DefaultJPEGQuality = 90

// ParseFormat accepts jpeg, jpg, png and pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// MIMEType returns the media type for f.
func (f Format) MIMEType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatPDF:
		return ".pdf"
	default:
		return ".jpg"
	}
}

// Options controls encoding.
type Options struct {
	Format      Format
	JPEGQuality int
}

// DefaultOptions returns JPEG at DefaultJPEGQuality.
func DefaultOptions() Options {
	return Options{Format: FormatJPEG, JPEGQuality: DefaultJPEGQuality}
}

// Encode writes img to w. JPEG flattens no-data pixels to black; PNG keeps
// them transparent; PDF wraps the JPEG in a single page.
func Encode(w io.Writer, img image.Image, opts Options) error {
	if img == nil {
		return fmt.Errorf("encode %s: nil image", opts.Format)
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	switch opts.Format {
	case FormatJPEG, "":
		if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	case FormatPNG:
		if err := imaging.Encode(w, img, imaging.PNG); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case FormatPDF:
		var jpg bytes.Buffer
		if err := imaging.Encode(&jpg, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return fmt.Errorf("encode pdf page: %w", err)
		}
		conf := model.NewDefaultConfiguration()
		if err := api.ImportImages(nil, w, []io.Reader{&jpg}, nil, conf); err != nil {
			return fmt.Errorf("encode pdf: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
	return nil
}

// Bytes encodes img into memory.
func Bytes(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL renders data as a base64 data URL of format f.
func DataURL(data []byte, f Format) string {
	return "data:" + f.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}
