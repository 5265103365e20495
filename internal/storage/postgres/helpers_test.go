package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from every table. It lives in a _test
// file of package postgres so it can reach the unexported db field, and is
// exported so that the postgres_test package can call it.
func (s *Store) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"TRUNCATE TABLE memories, entities, aliases, merge_suggestions, relationships RESTART IDENTITY")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate tables: %w", err)
	}
	return nil
}
