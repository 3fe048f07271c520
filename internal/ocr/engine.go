package ocr

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

var (
	// ErrExtractionUnavailable means the engine finished the read but reported failure.
	ErrExtractionUnavailable = errors.New("ocr: extraction unavailable")
	// ErrOperationNotFound means the engine has no record of an operation ID.
	ErrOperationNotFound = errors.New("ocr: operation not found")
	// ErrEmptyImage means neither bytes nor a URL were supplied.
	ErrEmptyImage = errors.New("ocr: empty image")
	// ErrImageFetch means an image submitted by URL could not be downloaded.
	ErrImageFetch = errors.New("ocr: image could not be fetched")
	// ErrResponseTooLarge means a reply body exceeded its byte limit.
	ErrResponseTooLarge = errors.New("ocr: response too large")
)

// Image is what gets submitted for reading: either a URL or raw bytes.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
}

func (i Image) Empty() bool { return i.URL == "" && len(i.Data) == 0 }

type Line struct {
	Text string `json:"text"`
}

type Page struct {
	Number int    `json:"page"`
	Lines  []Line `json:"lines"`
}

// ReadResult is a snapshot of an operation. Pages are only set once it succeeded.
type ReadResult struct {
	Status constants.ReadStatus
	Pages  []Page
}

// Lines flattens pages in order, then lines in order.
func (r ReadResult) Lines() []string {
	var out []string
	for _, p := range r.Pages {
		for _, l := range p.Lines {
			out = append(out, l.Text)
		}
	}
	return out
}

// Engine is an asynchronous OCR backend.
type Engine interface {
	Submit(ctx context.Context, img Image) (operationID string, err error)
	Result(ctx context.Context, operationID string) (ReadResult, error)
}
