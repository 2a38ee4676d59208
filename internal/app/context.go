package app

import (
	"database/sql"
	"fmt"

	"dmaker/internal/db"
	"dmaker/internal/engine"
	"dmaker/internal/migrate"
)

// Open prepares the workspace database and returns a migrated connection
// plus an engine bound to it. The caller owns the connection.
func Open(workspace string) (*sql.DB, engine.Engine, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, engine.Engine{}, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, engine.Engine{}, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, engine.Engine{}, fmt.Errorf("migrate: %w", err)
	}
	return conn, engine.New(conn), nil
}
