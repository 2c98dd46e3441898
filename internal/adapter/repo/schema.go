package repo

import (
	"context"
	"fmt"

	"uniqbot/internal/infra"
	"uniqbot/internal/sqlinline"
)

// ApplySchema runs the idempotent schema statements. Both processes call it
// at startup so either can be deployed first.
func ApplySchema(ctx context.Context, sql infra.SQLExecutor) error {
	for _, stmt := range sqlinline.SchemaStatements {
		if _, err := sql.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
