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

const suggestionColumns = `id, owner_id, entity1_id, entity2_id, entity_type, confidence, reason,
	status, created_at, reviewed_at`

// CreateMergeSuggestion inserts a suggestion unless the pair already exists.
func (s *Store) CreateMergeSuggestion(ctx context.Context, sg *types.MergeSuggestion) error {
	if sg == nil || sg.OwnerID == "" || sg.Entity1ID == "" || sg.Entity2ID == "" {
		return fmt.Errorf("%w: suggestion requires owner and both entities", storage.ErrInvalidInput)
	}
	id := sg.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := sg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := sg.Status
	if status == "" {
		status = types.SuggestionPending
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO merge_suggestions (`+suggestionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
		id, sg.OwnerID, sg.Entity1ID, sg.Entity2ID, string(sg.EntityType), sg.Confidence,
		nullableString(sg.Reason), string(status), createdAt.UTC(), nullableTime(sg.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create merge suggestion: %w", err)
	}
	if err := rowsAffectedOrErr(res, storage.ErrDuplicate); err != nil {
		return err
	}
	sg.ID, sg.CreatedAt, sg.Status = id, createdAt, status
	return nil
}

// ListMergeSuggestions returns suggestions, highest confidence first.
func (s *Store) ListMergeSuggestions(ctx context.Context, ownerID string, status types.SuggestionStatus) ([]*types.MergeSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM merge_suggestions WHERE owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY confidence DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list merge suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]*types.MergeSuggestion, 0)
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// GetMergeSuggestion returns one suggestion.
func (s *Store) GetMergeSuggestion(ctx context.Context, ownerID, id string) (*types.MergeSuggestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM merge_suggestions WHERE owner_id = ? AND id = ?`, ownerID, id)
	sg, err := scanSuggestion(row)
	if err != nil {
		return nil, notFound(err)
	}
	return sg, nil
}

// UpdateMergeSuggestionStatus records a review decision.
func (s *Store) UpdateMergeSuggestionStatus(ctx context.Context, ownerID, id string, status types.SuggestionStatus, reviewedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE merge_suggestions SET status = ?, reviewed_at = ? WHERE owner_id = ? AND id = ?`,
		string(status), reviewedAt.UTC(), ownerID, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update merge suggestion %s: %w", id, err)
	}
	return rowsAffectedOrErr(res, storage.ErrNotFound)
}

func scanSuggestion(row scanner) (*types.MergeSuggestion, error) {
	var (
		sg               types.MergeSuggestion
		entityType, stat string
		reason           sql.NullString
		reviewedAt       sql.NullTime
	)
	err := row.Scan(&sg.ID, &sg.OwnerID, &sg.Entity1ID, &sg.Entity2ID, &entityType, &sg.Confidence,
		&reason, &stat, &sg.CreatedAt, &reviewedAt)
	if err != nil {
		return nil, err
	}
	sg.EntityType = types.EntityType(entityType)
	sg.Status = types.SuggestionStatus(stat)
	sg.Reason = reason.String
	sg.CreatedAt = sg.CreatedAt.UTC()
	sg.ReviewedAt = timePtr(reviewedAt)
	return &sg, nil
}

const relationshipColumns = `id, owner_id, source_id, target_id, type, status, confidence, evidence, created_at`

// SaveRelationship inserts an edge unless the unordered pair already has one
// of the same type.
func (s *Store) SaveRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel == nil || rel.OwnerID == "" || rel.SourceID == "" || rel.TargetID == "" || rel.Type == "" {
		return fmt.Errorf("%w: relationship requires owner, endpoints and type", storage.ErrInvalidInput)
	}
	id := rel.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := rel.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := rel.Status
	if status == "" {
		status = types.RelationshipActive
	}
	lo, hi := rel.PairKey()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO relationships (`+relationshipColumns+`, pair_a, pair_b)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
		id, rel.OwnerID, rel.SourceID, rel.TargetID, rel.Type, status, rel.Confidence,
		nullableString(rel.Evidence), createdAt.UTC(), lo, hi,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save relationship: %w", err)
	}
	if err := rowsAffectedOrErr(res, storage.ErrDuplicate); err != nil {
		return err
	}
	rel.ID, rel.CreatedAt, rel.Status = id, createdAt, status
	return nil
}

// ListRelationships returns the owner's edges in creation order.
func (s *Store) ListRelationships(ctx context.Context, ownerID string, relTypes ...string) ([]*types.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE owner_id = ?`
	args := []any{ownerID}
	if len(relTypes) > 0 {
		query += ` AND type IN (` + placeholders(len(relTypes)) + `)`
		for _, t := range relTypes {
			args = append(args, t)
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list relationships: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Relationship, 0)
	for rows.Next() {
		var r types.Relationship
		var evidence sql.NullString
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.SourceID, &r.TargetID, &r.Type, &r.Status,
			&r.Confidence, &evidence, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Evidence = evidence.String
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}
