package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

const entityColumns = `id, owner_id, type, value, normalized, confidence, source, context,
	is_identity, match_confidence, created_at`

// SaveEntity inserts or updates an entity.
func (s *Store) SaveEntity(ctx context.Context, e *types.Entity) error {
	if e == nil || e.OwnerID == "" {
		return fmt.Errorf("%w: entity with owner is required", storage.ErrInvalidInput)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO entities (`+entityColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	type = EXCLUDED.type,
	value = EXCLUDED.value,
	normalized = EXCLUDED.normalized,
	confidence = EXCLUDED.confidence,
	source = EXCLUDED.source,
	context = EXCLUDED.context,
	is_identity = EXCLUDED.is_identity,
	match_confidence = EXCLUDED.match_confidence
WHERE entities.owner_id = EXCLUDED.owner_id`,
		e.ID, e.OwnerID, string(e.Type), e.Value, nullableString(e.Normalized), e.Confidence,
		nullableString(string(e.Source)), nullableString(e.Context),
		e.IsIdentity, nullableFloat(e.MatchConfidence), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save entity %s: %w", e.ID, err)
	}
	return rowsAffectedOrErr(res,
		fmt.Errorf("%w: entity %s belongs to another owner", storage.ErrInvalidInput, e.ID))
}

// GetEntity returns one entity.
func (s *Store) GetEntity(ctx context.Context, ownerID, id string) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE owner_id = $1 AND id = $2`, ownerID, id)
	e, err := scanEntity(row)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// ListEntities returns the owner's entities in creation order.
func (s *Store) ListEntities(ctx context.Context, ownerID string, filter storage.EntityFilter) ([]*types.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE owner_id = $1`
	args := []any{ownerID}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.IdentityOnly {
		query += ` AND is_identity`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list entities: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntity(row scanner) (*types.Entity, error) {
	var (
		e                        types.Entity
		typ                      string
		normalized, source, ctxt sql.NullString
		matchConfidence          sql.NullFloat64
	)
	err := row.Scan(&e.ID, &e.OwnerID, &typ, &e.Value, &normalized, &e.Confidence, &source, &ctxt,
		&e.IsIdentity, &matchConfidence, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Type = types.EntityType(typ)
	e.Normalized = normalized.String
	e.Source = types.MentionSource(source.String)
	e.Context = ctxt.String
	e.CreatedAt = e.CreatedAt.UTC()
	if matchConfidence.Valid {
		v := matchConfidence.Float64
		e.MatchConfidence = &v
	}
	return &e, nil
}

// SaveAlias records an alias. Case-insensitive duplicates return
// storage.ErrDuplicate.
func (s *Store) SaveAlias(ctx context.Context, a *types.Alias) error {
	if a == nil || a.OwnerID == "" || a.EntityValue == "" || a.Alias == "" {
		return fmt.Errorf("%w: alias requires owner, value and alias", storage.ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO aliases (owner_id, entity_type, entity_value, alias, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`,
		a.OwnerID, string(a.EntityType), a.EntityValue, a.Alias, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("postgres: failed to save alias: %w", err)
	}
	return rowsAffectedOrErr(res, storage.ErrDuplicate)
}

// ListAliases returns the owner's alias table in insertion order.
func (s *Store) ListAliases(ctx context.Context, ownerID string) ([]types.Alias, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT owner_id, entity_type, entity_value, alias
FROM aliases WHERE owner_id = $1 ORDER BY seq ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list aliases: %w", err)
	}
	defer rows.Close()

	out := make([]types.Alias, 0)
	for rows.Next() {
		var a types.Alias
		var typ string
		if err := rows.Scan(&a.OwnerID, &typ, &a.EntityValue, &a.Alias); err != nil {
			return nil, err
		}
		a.EntityType = types.EntityType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}
