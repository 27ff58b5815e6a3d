package core

import (
	"context"
	"errors"

	"github.com/nileshsolidarity/Processes/internal/models"
)

// ErrUnsupportedFormat marks a media type no extractor can handle. The ingest
// pipeline treats it as "not ingestible", not as a failure.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DriveClient is the cloud drive contract the ingest pipeline consumes.
type DriveClient interface {
	// ListFiles drains the configured folder's listing, pagination included.
	ListFiles(ctx context.Context) ([]models.DriveFile, error)
	// Download fetches a file's content. Google-native types are exported to a
	// text media type; the returned mime is the one extraction should use.
	Download(ctx context.Context, fileID, mimeType string) (content []byte, effectiveMime string, err error)
}

// TextExtractor turns downloaded bytes plus a declared media type into plain text.
type TextExtractor interface {
	Extract(content []byte, mimeType string) (string, error)
}
