package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nileshsolidarity/Processes/internal/core"
	"github.com/nileshsolidarity/Processes/internal/models"
)

// ErrSyncInProgress rejects a second concurrent sync run; callers surface it
// as a conflict rather than queueing.
var ErrSyncInProgress = errors.New("sync already in progress")

// minTextLen is the shortest extracted text worth indexing. Anything below it
// is treated as not ingestible, not as an error.
const minTextLen = 10

// Store is the persistence the pipeline needs. ReplaceChunks must swap a
// document's chunk set atomically.
type Store interface {
	GetDocumentByDriveFileID(ctx context.Context, driveFileID string) (*models.Document, error)
	InsertDocument(ctx context.Context, doc *models.Document) (int64, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	ReplaceChunks(ctx context.Context, documentID int64, chunks []models.Chunk) error
}

// Pipeline syncs the drive folder into the store: list, download, extract,
// chunk, embed, upsert. Files are processed sequentially to bound embedding
// API load; one run at a time.
type Pipeline struct {
	store     Store
	drive     core.DriveClient
	embedder  core.EmbeddingProvider
	extractor core.TextExtractor
	log       *zap.Logger

	chunkTarget  int
	chunkOverlap int

	mu      sync.Mutex
	running bool
	status  models.SyncStatus
}

func NewPipeline(store Store, drive core.DriveClient, emb core.EmbeddingProvider, ext core.TextExtractor, chunkTarget, chunkOverlap int, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if chunkTarget <= 0 {
		chunkTarget = DefaultChunkTarget
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Pipeline{
		store:        store,
		drive:        drive,
		embedder:     emb,
		extractor:    ext,
		log:          log,
		chunkTarget:  chunkTarget,
		chunkOverlap: chunkOverlap,
		status:       models.SyncStatus{Status: models.SyncIdle},
	}
}

// Status returns a copy of the current sync status for polling.
func (p *Pipeline) Status() models.SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Run executes one sync over the current drive listing. Per-file failures are
// logged and skipped; only a failure to list files at all aborts the run.
// A second concurrent call returns ErrSyncInProgress.
func (p *Pipeline) Run(ctx context.Context) (models.SyncResult, error) {
	if !p.begin() {
		return models.SyncResult{}, ErrSyncInProgress
	}
	defer p.end()

	files, err := p.drive.ListFiles(ctx)
	if err != nil {
		err = fmt.Errorf("list drive files: %w", err)
		p.setError(err)
		return models.SyncResult{}, err
	}

	p.update(func(s *models.SyncStatus) {
		s.Total = len(files)
		s.Message = fmt.Sprintf("Found %d files. Processing...", len(files))
	})

	processed := 0
	for i, f := range files {
		if ctx.Err() != nil {
			p.setError(ctx.Err())
			return models.SyncResult{FilesFound: len(files), FilesProcessed: processed}, ctx.Err()
		}

		p.update(func(s *models.SyncStatus) {
			s.Progress = i + 1
			s.Message = fmt.Sprintf("Processing: %s (%d/%d)", f.Name, i+1, len(files))
		})

		ok, err := p.syncFile(ctx, f)
		if err != nil {
			p.log.Warn("file sync failed",
				zap.String("file", f.Name),
				zap.String("drive_file_id", f.ID),
				zap.Error(err))
			continue
		}
		if ok {
			processed++
		}
	}

	p.update(func(s *models.SyncStatus) {
		s.Status = models.SyncCompleted
		s.Progress = len(files)
		s.Message = fmt.Sprintf("Sync completed. Processed %d of %d files.", processed, len(files))
	})

	return models.SyncResult{FilesFound: len(files), FilesProcessed: processed}, nil
}

// syncFile ingests one drive file. The bool reports whether the file was
// actually processed; skips (unchanged, unsupported, too little text) return
// false with no error.
func (p *Pipeline) syncFile(ctx context.Context, f models.DriveFile) (bool, error) {
	existing, err := p.store.GetDocumentByDriveFileID(ctx, f.ID)
	if err != nil {
		return false, fmt.Errorf("lookup document: %w", err)
	}

	// Modification timestamp equality is the sole change-detection rule.
	if existing != nil && existing.LastModified == f.ModifiedTime {
		return false, nil
	}

	content, effectiveMime, err := p.drive.Download(ctx, f.ID, f.MimeType)
	if err != nil {
		return false, fmt.Errorf("download: %w", err)
	}

	text, err := p.extractor.Extract(content, effectiveMime)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedFormat) {
			p.log.Info("skipping file: unsupported format",
				zap.String("file", f.Name), zap.String("mime", effectiveMime))
			return false, nil
		}
		return false, fmt.Errorf("extract: %w", err)
	}
	if len(strings.TrimSpace(text)) < minTextLen {
		p.log.Info("skipping file: no extractable text", zap.String("file", f.Name))
		return false, nil
	}

	doc := &models.Document{
		DriveFileID:  f.ID,
		Title:        f.Name,
		Category:     InferCategory(f.Name),
		MimeType:     f.MimeType,
		DriveURL:     f.WebViewLink,
		ContentText:  text,
		FileSize:     f.Size,
		LastModified: f.ModifiedTime,
	}

	if existing != nil {
		doc.ID = existing.ID
		if err := p.store.UpdateDocument(ctx, doc); err != nil {
			return false, fmt.Errorf("update document: %w", err)
		}
	} else {
		id, err := p.store.InsertDocument(ctx, doc)
		if err != nil {
			return false, fmt.Errorf("insert document: %w", err)
		}
		doc.ID = id
	}

	texts := ChunkWords(text, p.chunkTarget, p.chunkOverlap)
	vecs, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return false, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(texts) {
		return false, fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(texts))
	}

	chunks := make([]models.Chunk, len(texts))
	for i := range texts {
		chunks[i] = models.Chunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    texts[i],
			Embedding:  vecs[i],
			TokenCount: WordCount(texts[i]),
		}
	}
	if err := p.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return false, fmt.Errorf("replace chunks: %w", err)
	}

	p.log.Info("synced file",
		zap.String("file", f.Name),
		zap.Int64("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return true, nil
}

func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.status = models.SyncStatus{
		RunID:   uuid.NewString(),
		Status:  models.SyncRunning,
		Message: "Fetching file list...",
	}
	return true
}

func (p *Pipeline) end() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Pipeline) setError(err error) {
	p.update(func(s *models.SyncStatus) {
		s.Status = models.SyncError
		s.Message = err.Error()
	})
}

func (p *Pipeline) update(fn func(*models.SyncStatus)) {
	p.mu.Lock()
	fn(&p.status)
	p.mu.Unlock()
}
