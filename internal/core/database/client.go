package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nileshsolidarity/Processes/internal/config"
	"github.com/nileshsolidarity/Processes/internal/models"
)

// Client is the Postgres/pgvector implementation of the portal's persistence.
// Each operation is atomic on its own; chunk replacement runs in a transaction
// so readers never observe a stale+fresh mix.
type Client struct {
	db *sql.DB
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Client{db: sqlDB}, nil
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// --- Branches ---

// GetBranchByCode returns (nil, nil) when no branch carries the code.
func (c *Client) GetBranchByCode(ctx context.Context, code string) (*models.Branch, error) {
	const q = `SELECT id, name, code FROM branches WHERE code = $1`
	var b models.Branch
	err := c.db.QueryRowContext(ctx, q, code).Scan(&b.ID, &b.Name, &b.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) ListBranches(ctx context.Context) ([]models.Branch, error) {
	const q = `SELECT id, name, code FROM branches ORDER BY name`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Branch
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Code); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- Documents ---

func (c *Client) GetDocumentByDriveFileID(ctx context.Context, driveFileID string) (*models.Document, error) {
	const q = `
		SELECT id, drive_file_id, title, category, mime_type, drive_url,
		       content_text, file_size, last_modified, synced_at, created_at
		FROM documents WHERE drive_file_id = $1
	`
	return c.scanDocument(c.db.QueryRowContext(ctx, q, driveFileID))
}

func (c *Client) GetDocumentByID(ctx context.Context, id int64) (*models.Document, error) {
	const q = `
		SELECT id, drive_file_id, title, category, mime_type, drive_url,
		       content_text, file_size, last_modified, synced_at, created_at
		FROM documents WHERE id = $1
	`
	return c.scanDocument(c.db.QueryRowContext(ctx, q, id))
}

func (c *Client) scanDocument(row *sql.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID, &d.DriveFileID, &d.Title, &d.Category, &d.MimeType, &d.DriveURL,
		&d.ContentText, &d.FileSize, &d.LastModified, &d.SyncedAt, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertDocument stores a new document and returns its assigned id.
func (c *Client) InsertDocument(ctx context.Context, doc *models.Document) (int64, error) {
	if doc == nil {
		return 0, errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(drive_file_id, title, category, mime_type, drive_url, content_text, file_size, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := c.db.QueryRowContext(ctx, q,
		doc.DriveFileID, doc.Title, doc.Category, doc.MimeType, doc.DriveURL,
		doc.ContentText, doc.FileSize, doc.LastModified,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateDocument refreshes a re-synced document in place and bumps synced_at.
func (c *Client) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		UPDATE documents
		SET title = $2, category = $3, mime_type = $4, drive_url = $5,
		    content_text = $6, file_size = $7, last_modified = $8, synced_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Category, doc.MimeType, doc.DriveURL,
		doc.ContentText, doc.FileSize, doc.LastModified,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %d", doc.ID)
	}
	return nil
}

// ListDocuments returns one page of documents (content_text stripped) plus the
// total match count for the pagination envelope.
func (c *Client) ListDocuments(ctx context.Context, f models.DocumentFilter) ([]models.Document, int, error) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR content_text ILIKE $%d)", len(args), len(args)))
	}
	if f.Category != "" && f.Category != "All" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`
		SELECT id, drive_file_id, title, category, mime_type, drive_url,
		       file_size, last_modified, synced_at, created_at
		FROM documents%s
		ORDER BY title ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.DriveFileID, &d.Title, &d.Category, &d.MimeType, &d.DriveURL,
			&d.FileSize, &d.LastModified, &d.SyncedAt, &d.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT category FROM documents ORDER BY category`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

// --- Chunks ---

// ReplaceChunks swaps a document's chunk set in one transaction: the old rows
// are deleted and the new ones inserted before commit, so the document's
// chunks always reflect a single content_text version.
func (c *Client) ReplaceChunks(ctx context.Context, documentID int64, chunks []models.Chunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete chunks: %w", err)
	}

	const q = `
		INSERT INTO chunks (document_id, chunk_index, content, embedding, token_count)
		VALUES ($1, $2, $3, $4, $5)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		var emb any
		if len(ch.Embedding) > 0 {
			emb = pgvector.NewVector(ch.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			documentID, ch.ChunkIndex, ch.Content, emb, ch.TokenCount,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %d: %w", ch.ChunkIndex, err)
		}
	}
	return tx.Commit()
}

// ListEmbeddedChunks loads every chunk that carries an embedding, joined with
// its document's attribution, for retrieval scoring.
func (c *Client) ListEmbeddedChunks(ctx context.Context) ([]models.EmbeddedChunk, error) {
	const q = `
		SELECT ch.id, ch.document_id, ch.content, ch.embedding, d.title, d.drive_url
		FROM chunks ch
		JOIN documents d ON d.id = ch.document_id
		WHERE ch.embedding IS NOT NULL
		ORDER BY ch.id
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EmbeddedChunk
	for rows.Next() {
		var (
			ch  models.EmbeddedChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Content, &emb, &ch.DocTitle, &ch.DriveURL); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// --- Chat ---

func (c *Client) CreateChatSession(ctx context.Context, branchID int64) (int64, error) {
	const q = `INSERT INTO chat_sessions (branch_id) VALUES ($1) RETURNING id`
	var id int64
	if err := c.db.QueryRowContext(ctx, q, branchID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListChatSessions returns a branch's most recent sessions, newest first, each
// with the opening user message for display.
func (c *Client) ListChatSessions(ctx context.Context, branchID int64, limit int) ([]models.ChatSessionSummary, error) {
	const q = `
		SELECT cs.id, cs.created_at,
		       COALESCE((
		           SELECT content FROM chat_messages
		           WHERE session_id = cs.id AND role = 'user'
		           ORDER BY id ASC LIMIT 1
		       ), '') AS first_message
		FROM chat_sessions cs
		WHERE cs.branch_id = $1
		ORDER BY cs.created_at DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, branchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatSessionSummary
	for rows.Next() {
		var s models.ChatSessionSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.FirstMessage); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddChatMessage appends one turn and returns its assigned id. Sources are
// stored as JSONB; user turns carry none.
func (c *Client) AddChatMessage(ctx context.Context, msg *models.ChatMessage) (int64, error) {
	if msg == nil {
		return 0, errors.New("nil message")
	}
	var sources any
	if msg.Role == "assistant" {
		raw, err := json.Marshal(msg.Sources)
		if err != nil {
			return 0, fmt.Errorf("marshal sources: %w", err)
		}
		sources = raw
	}
	const q = `
		INSERT INTO chat_messages (session_id, role, content, sources)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	if err := c.db.QueryRowContext(ctx, q, msg.SessionID, msg.Role, msg.Content, sources).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListMessagesBySession returns a session's messages in conversation order
// (id ascending).
func (c *Client) ListMessagesBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY id ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var (
			m   models.ChatMessage
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &raw, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &m.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources for message %d: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
