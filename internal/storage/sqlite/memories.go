package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

const memoryColumns = `id, owner_id, content, category, importance, decay_rate, confidence,
	source_kind, source_id, source_date, last_accessed, expires_at,
	related_entities, tags, deleted, created_at, updated_at`

const upsertMemorySQL = `
INSERT INTO memories (` + memoryColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	category = excluded.category,
	importance = excluded.importance,
	decay_rate = excluded.decay_rate,
	confidence = excluded.confidence,
	source_kind = excluded.source_kind,
	source_id = excluded.source_id,
	source_date = excluded.source_date,
	last_accessed = excluded.last_accessed,
	expires_at = excluded.expires_at,
	related_entities = excluded.related_entities,
	tags = excluded.tags,
	deleted = excluded.deleted,
	updated_at = excluded.updated_at
WHERE memories.owner_id = excluded.owner_id`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveMemory inserts or updates a memory.
func (s *Store) SaveMemory(ctx context.Context, memory *types.Memory) error {
	return saveMemory(ctx, s.db, memory)
}

func saveMemory(ctx context.Context, db execer, m *types.Memory) error {
	if m == nil || m.OwnerID == "" {
		return fmt.Errorf("%w: memory with owner is required", storage.ErrInvalidInput)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}

	related, err := encodeJSON(m.RelatedEntities)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode related entities: %w", err)
	}
	tags, err := encodeJSON(m.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode tags: %w", err)
	}

	res, err := db.ExecContext(ctx, upsertMemorySQL,
		m.ID, m.OwnerID, m.Content, string(m.Category), m.Importance, m.DecayRate, m.Confidence,
		string(m.SourceKind), nullableString(m.SourceID), m.SourceDate.UTC(),
		nullableTime(m.LastAccessed), nullableTime(m.ExpiresAt),
		related, tags, m.Deleted, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save memory %s: %w", m.ID, err)
	}
	return rowsAffectedOrErr(res,
		fmt.Errorf("%w: memory %s belongs to another owner", storage.ErrInvalidInput, m.ID))
}

// SaveMemories inserts a batch in one transaction and returns the assigned
// IDs in input order.
func (s *Store) SaveMemories(ctx context.Context, memories []*types.Memory) ([]string, error) {
	ids := make([]string, 0, len(memories))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range memories {
			if err := saveMemory(ctx, tx, m); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetMemory returns a live memory.
func (s *Store) GetMemory(ctx context.Context, ownerID, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE owner_id = ? AND id = ? AND deleted = 0`,
		ownerID, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListMemories returns the owner's memories, newest source date first.
func (s *Store) ListMemories(ctx context.Context, ownerID string, opts storage.MemoryListOptions) ([]*types.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE owner_id = ?`
	args := []any{ownerID}
	if !opts.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	if len(opts.Categories) > 0 {
		query += ` AND category IN (` + placeholders(len(opts.Categories)) + `)`
		for _, c := range opts.Categories {
			args = append(args, string(c))
		}
	}
	query += ` ORDER BY source_date DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list memories: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TouchMemories sets last_accessed for the given IDs.
func (s *Store) TouchMemories(ctx context.Context, ownerID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	at = at.UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE memories SET last_accessed = ?, updated_at = ? WHERE owner_id = ? AND id = ?`)
		if err != nil {
			return fmt.Errorf("sqlite: failed to prepare touch: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, at, at, ownerID, id); err != nil {
				return fmt.Errorf("sqlite: failed to touch memory %s: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteMemory soft-deletes a memory.
func (s *Store) DeleteMemory(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET deleted = 1, updated_at = ? WHERE owner_id = ? AND id = ? AND deleted = 0`,
		time.Now().UTC(), ownerID, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete memory %s: %w", id, err)
	}
	return rowsAffectedOrErr(res, storage.ErrNotFound)
}

// PurgeMemory removes a memory permanently.
func (s *Store) PurgeMemory(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to purge memory %s: %w", id, err)
	}
	return rowsAffectedOrErr(res, storage.ErrNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*types.Memory, error) {
	var (
		m                   types.Memory
		category, kind      string
		sourceID            sql.NullString
		lastAccessed, expAt sql.NullTime
		related, tags       string
	)
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Content, &category, &m.Importance, &m.DecayRate, &m.Confidence,
		&kind, &sourceID, &m.SourceDate, &lastAccessed, &expAt,
		&related, &tags, &m.Deleted, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Category = types.Category(category)
	m.SourceKind = types.SourceKind(kind)
	m.SourceID = sourceID.String
	m.SourceDate = m.SourceDate.UTC()
	m.LastAccessed = timePtr(lastAccessed)
	m.ExpiresAt = timePtr(expAt)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()

	if m.RelatedEntities, err = decodeJSON[types.EntityRef](related); err != nil {
		return nil, fmt.Errorf("sqlite: memory %s: bad related_entities: %w", m.ID, err)
	}
	if m.Tags, err = decodeJSON[string](tags); err != nil {
		return nil, fmt.Errorf("sqlite: memory %s: bad tags: %w", m.ID, err)
	}
	return &m, nil
}
