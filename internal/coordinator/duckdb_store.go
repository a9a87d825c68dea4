package coordinator

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBPropertyStore is a reference stand-in for the opaque
// "query(ids) -> rows" capability the query planner consumes once the core
// has handed it seed handles resolved back to labels. The core never
// imports this package; it exists only so the coordinator demo has
// something concrete to call on the far side of that boundary.
type DuckDBPropertyStore struct {
	db *sql.DB
}

// NewDuckDBPropertyStore opens an in-memory DuckDB instance and creates the
// single properties table the demo queries against.
func NewDuckDBPropertyStore(ctx context.Context) (*DuckDBPropertyStore, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE properties (node_label VARCHAR, payload VARCHAR)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create properties table: %w", err)
	}
	return &DuckDBPropertyStore{db: db}, nil
}

// Close releases the underlying DuckDB connection.
func (s *DuckDBPropertyStore) Close() error {
	return s.db.Close()
}

// Seed inserts a property row. Tests and the demo binary use this to
// populate the store before querying it.
func (s *DuckDBPropertyStore) Seed(ctx context.Context, nodeLabel, payload string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO properties (node_label, payload) VALUES (?, ?)`, nodeLabel, payload)
	return err
}

// PropertyRow is one result row: a node label resolved by the caller from a
// core handle, paired with its opaque payload.
type PropertyRow struct {
	NodeLabel string
	Payload   string
}

// Query fetches the property rows for a set of node labels. The core itself
// never sees this call: the query planner resolves handles to labels via
// the interner first, then hands the labels to whatever property store the
// host wires in.
func (s *DuckDBPropertyStore) Query(ctx context.Context, nodeLabels []string) ([]PropertyRow, error) {
	if len(nodeLabels) == 0 {
		return nil, nil
	}
	placeholders := make([]any, len(nodeLabels))
	query := "SELECT node_label, payload FROM properties WHERE node_label IN ("
	for i, label := range nodeLabels {
		if i > 0 {
			query += ", "
		}
		query += "?"
		placeholders[i] = label
	}
	query += ")"

	rows, err := s.db.QueryContext(ctx, query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var out []PropertyRow
	for rows.Next() {
		var r PropertyRow
		if err := rows.Scan(&r.NodeLabel, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan property row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
