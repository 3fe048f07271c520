package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// sniffType trusts a declared type unless it is empty or generic.
func sniffType(data []byte, declared string) string {
	ct := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if isHEICFormat(data) {
		return "image/heic"
	}
	if ct == "" || ct == "application/octet-stream" {
		return http.DetectContentType(data)
	}
	return ct
}

func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// writePages materializes the input as image files tesseract can read, one per
// page, inside dir. PDFs are rasterized and HEIC is decoded to PNG.
func writePages(data []byte, contentType, dir string, maxPages int, dpi float64) ([]string, error) {
	switch ct := sniffType(data, contentType); {
	case ct == "application/pdf":
		return writePDFPages(data, dir, maxPages, dpi)
	case ct == "image/heic" || ct == "image/heif":
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		p := filepath.Join(dir, "page-1.png")
		if err := writePNG(p, img); err != nil {
			return nil, err
		}
		return []string{p}, nil
	case strings.HasPrefix(ct, "image/"):
		p := filepath.Join(dir, "page-1"+imageExt(ct))
		if err := os.WriteFile(p, data, 0o600); err != nil {
			return nil, fmt.Errorf("write image: %w", err)
		}
		return []string{p}, nil
	default:
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}
}

func writePDFPages(data []byte, dir string, maxPages int, dpi float64) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		p := filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
		if err := writePNG(p, img); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return f.Close()
}

func imageExt(ct string) string {
	switch ct {
	case "image/png":
		return ".png"
	case "image/tiff":
		return ".tif"
	case "image/bmp":
		return ".bmp"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
