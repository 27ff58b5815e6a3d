package ingest

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/nileshsolidarity/Processes/internal/core"
)

var plainTextMimes = map[string]bool{
	"text/plain":    true,
	"text/csv":      true,
	"text/markdown": true,
}

var docconvMimes = map[string]bool{
	"application/pdf":    true,
	"application/x-pdf":  true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// DocconvExtractor converts downloaded file bytes to plain text. Text media
// types pass through; PDF and Word formats go through docconv; anything else
// is reported as unsupported so the pipeline can skip the file.
type DocconvExtractor struct{}

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

func (e *DocconvExtractor) Extract(content []byte, mimeType string) (string, error) {
	if plainTextMimes[mimeType] {
		return string(content), nil
	}

	if docconvMimes[mimeType] {
		res, err := docconv.Convert(bytes.NewReader(content), mimeType, false)
		if err != nil {
			return "", fmt.Errorf("docconv %s: %w", mimeType, err)
		}
		return res.Body, nil
	}

	return "", core.ErrUnsupportedFormat
}

var _ core.TextExtractor = (*DocconvExtractor)(nil)
