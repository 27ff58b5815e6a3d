package drive

import (
	"context"
	"fmt"
	"io"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/nileshsolidarity/Processes/internal/config"
	"github.com/nileshsolidarity/Processes/internal/core"
	"github.com/nileshsolidarity/Processes/internal/models"
)

// Google-native types cannot be downloaded raw; they are exported to the
// mapped text media type instead.
var exportMimes = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "text/plain",
}

// Client reads a single shared Drive folder with a service account.
type Client struct {
	svc      *gdrive.Service
	folderID string
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.DriveCredentials == "" {
		return nil, fmt.Errorf("google service account credentials not configured")
	}
	if cfg.DriveFolderID == "" {
		return nil, fmt.Errorf("GOOGLE_DRIVE_FOLDER_ID not set")
	}

	svc, err := gdrive.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.DriveCredentials)),
		option.WithScopes(gdrive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{svc: svc, folderID: cfg.DriveFolderID}, nil
}

// ListFiles returns every non-trashed file in the folder, draining pagination
// before returning.
func (c *Client) ListFiles(ctx context.Context) ([]models.DriveFile, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", c.folderID)

	var files []models.DriveFile
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size, webViewLink)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list drive files: %w", err)
		}

		for _, f := range resp.Files {
			files = append(files, models.DriveFile{
				ID:           f.Id,
				Name:         f.Name,
				MimeType:     f.MimeType,
				ModifiedTime: f.ModifiedTime,
				Size:         f.Size,
				WebViewLink:  f.WebViewLink,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return files, nil
}

// Download fetches a file's bytes. Google-native types are exported; everything
// else is downloaded as-is. The returned media type is the one extraction
// should use.
func (c *Client) Download(ctx context.Context, fileID, mimeType string) ([]byte, string, error) {
	if target, ok := exportMimes[mimeType]; ok {
		resp, err := c.svc.Files.Export(fileID, target).Context(ctx).Download()
		if err != nil {
			return nil, "", fmt.Errorf("export drive file %s: %w", fileID, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("read export body: %w", err)
		}
		return data, target, nil
	}

	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, "", fmt.Errorf("download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read download body: %w", err)
	}
	return data, mimeType, nil
}

var _ core.DriveClient = (*Client)(nil)
