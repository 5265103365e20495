package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

const memoryColumns = `id, owner_id, content, category, importance, decay_rate, confidence,
	source_kind, source_id, source_date, last_accessed, expires_at,
	related_entities, tags, deleted, created_at, updated_at`

const upsertMemorySQL = `
INSERT INTO memories (` + memoryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO UPDATE SET
	content = EXCLUDED.content,
	category = EXCLUDED.category,
	importance = EXCLUDED.importance,
	decay_rate = EXCLUDED.decay_rate,
	confidence = EXCLUDED.confidence,
	source_kind = EXCLUDED.source_kind,
	source_id = EXCLUDED.source_id,
	source_date = EXCLUDED.source_date,
	last_accessed = EXCLUDED.last_accessed,
	expires_at = EXCLUDED.expires_at,
	related_entities = EXCLUDED.related_entities,
	tags = EXCLUDED.tags,
	deleted = EXCLUDED.deleted,
	updated_at = EXCLUDED.updated_at
WHERE memories.owner_id = EXCLUDED.owner_id`

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
		return fmt.Errorf("postgres: failed to encode related entities: %w", err)
	}

	res, err := db.ExecContext(ctx, upsertMemorySQL,
		m.ID, m.OwnerID, m.Content, string(m.Category), m.Importance, m.DecayRate, m.Confidence,
		string(m.SourceKind), nullableString(m.SourceID), m.SourceDate.UTC(),
		nullableTime(m.LastAccessed), nullableTime(m.ExpiresAt),
		string(related), pq.Array(m.Tags), m.Deleted, m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save memory %s: %w", m.ID, err)
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
		`SELECT `+memoryColumns+` FROM memories WHERE owner_id = $1 AND id = $2 AND NOT deleted`,
		ownerID, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListMemories returns the owner's memories, newest source date first.
func (s *Store) ListMemories(ctx context.Context, ownerID string, opts storage.MemoryListOptions) ([]*types.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE owner_id = $1`
	args := []any{ownerID}
	if !opts.IncludeDeleted {
		query += ` AND NOT deleted`
	}
	if len(opts.Categories) > 0 {
		categories := make([]string, len(opts.Categories))
		for i, c := range opts.Categories {
			categories[i] = string(c)
		}
		args = append(args, pq.Array(categories))
		query += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}
	query += ` ORDER BY source_date DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list memories: %w", err)
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

// TouchMemories sets last_accessed for the given IDs in a single statement.
func (s *Store) TouchMemories(ctx context.Context, ownerID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	at = at.UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET last_accessed = $1, updated_at = $1 WHERE owner_id = $2 AND id = ANY($3)`,
		at, ownerID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("postgres: failed to touch %d memories: %w", len(ids), err)
	}
	return nil
}

// DeleteMemory soft-deletes a memory.
func (s *Store) DeleteMemory(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET deleted = TRUE, updated_at = $1 WHERE owner_id = $2 AND id = $3 AND NOT deleted`,
		time.Now().UTC(), ownerID, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete memory %s: %w", id, err)
	}
	return rowsAffectedOrErr(res, storage.ErrNotFound)
}

// PurgeMemory removes a memory permanently.
func (s *Store) PurgeMemory(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to purge memory %s: %w", id, err)
	}
	return rowsAffectedOrErr(res, storage.ErrNotFound)
}

func scanMemory(row scanner) (*types.Memory, error) {
	var (
		m                   types.Memory
		category, kind      string
		sourceID            sql.NullString
		lastAccessed, expAt sql.NullTime
		related             []byte
		tags                pq.StringArray
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
	if len(tags) > 0 {
		m.Tags = []string(tags)
	}

	if m.RelatedEntities, err = decodeJSON[types.EntityRef](related); err != nil {
		return nil, fmt.Errorf("postgres: memory %s: bad related_entities: %w", m.ID, err)
	}
	return &m, nil
}
