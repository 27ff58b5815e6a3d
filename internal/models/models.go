package models

import (
	"time"
)

// Branch is an organizational unit whose static code is the login credential.
// Branches are seeded at bootstrap and immutable at runtime.
type Branch struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// Document is one synced drive file. DriveFileID is the upsert key;
// LastModified carries the source-side timestamp string used for change detection.
type Document struct {
	ID           int64     `db:"id" json:"id"`
	DriveFileID  string    `db:"drive_file_id" json:"drive_file_id"`
	Title        string    `db:"title" json:"title"`
	Category     string    `db:"category" json:"category"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	DriveURL     string    `db:"drive_url" json:"drive_url"`
	ContentText  string    `db:"content_text" json:"content_text,omitempty"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	LastModified string    `db:"last_modified" json:"last_modified"`
	SyncedAt     time.Time `db:"synced_at" json:"synced_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Chunk is one text window of a document, carrying its embedding for retrieval.
// All chunks of a document are replaced together on re-sync.
type Chunk struct {
	ID         int64     `db:"id" json:"id"`
	DocumentID int64     `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	Content    string    `db:"content" json:"content"`
	Embedding  []float32 `db:"embedding" json:"-"`
	TokenCount int       `db:"token_count" json:"token_count"`
}

// EmbeddedChunk is a chunk joined with its owning document's attribution,
// as loaded for retrieval scoring.
type EmbeddedChunk struct {
	ID         int64
	DocumentID int64
	Content    string
	Embedding  []float32
	DocTitle   string
	DriveURL   string
}

// RetrievedChunk is a scored retrieval hit with the embedding stripped.
type RetrievedChunk struct {
	ID         int64   `json:"id"`
	DocumentID int64   `json:"document_id"`
	Content    string  `json:"content"`
	DocTitle   string  `json:"doc_title"`
	DriveURL   string  `json:"drive_url"`
	Score      float64 `json:"score"`
}

// Source is one attribution entry attached to an assistant message.
type Source struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	DocumentID int64  `json:"documentId"`
}

type ChatSession struct {
	ID        int64     `db:"id" json:"id"`
	BranchID  int64     `db:"branch_id" json:"branch_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatSessionSummary is a session list row with its opening user message.
type ChatSessionSummary struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	FirstMessage string    `json:"first_message"`
}

// ChatMessage is one turn of a conversation. Messages are append-only and
// ordered by id ascending; that order is fed back into generation.
type ChatMessage struct {
	ID        int64     `db:"id" json:"id"`
	SessionID int64     `db:"session_id" json:"session_id"`
	Role      string    `db:"role" json:"role"` // "user" or "assistant"
	Content   string    `db:"content" json:"content"`
	Sources   []Source  `db:"sources" json:"sources,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DriveFile is one entry of the drive folder listing.
type DriveFile struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime string
	Size         int64
	WebViewLink  string
}

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// Sync status values.
const (
	SyncIdle      = "idle"
	SyncRunning   = "running"
	SyncCompleted = "completed"
	SyncError     = "error"
)

// SyncStatus is the pollable state of the ingest pipeline.
type SyncStatus struct {
	RunID    string `json:"run_id,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
}

// SyncResult reports one completed sync run. FilesProcessed counts files that
// were actually ingested; skipped files are not processed.
type SyncResult struct {
	FilesFound     int `json:"filesFound"`
	FilesProcessed int `json:"filesProcessed"`
}
