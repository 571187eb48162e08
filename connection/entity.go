package connection

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Entity is embedded by types that persist through a named
// connection.
type Entity struct {
	connection string
	db         *sql.DB
}

// Bind returns an Entity on the named connection, opening it if
// needed.
func Bind(ctx context.Context, m *Manager, name string) (Entity, error) {
	if name == "" {
		name = DefaultName
	}
	db, err := m.Connect(ctx, name)
	if err != nil {
		return Entity{}, err
	}
	return Entity{connection: name, db: db}, nil
}

// Connection is the name the entity is bound to.
func (e Entity) Connection() string { return e.connection }

// DB is the bound connection.
func (e Entity) DB() *sql.DB { return e.db }

// Records runs a query and returns each row as a map from column name
// to value.  []byte values become strings.
func (e Entity) Records(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if e.db == nil {
		return nil, errors.Wrap(ErrNotConnected, "entity is not bound")
	}
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns")
	}
	records := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				record[column] = string(b)
				continue
			}
			record[column] = values[i]
		}
		records = append(records, record)
	}
	return records, errors.Wrap(rows.Err(), "rows")
}

// Exec runs a statement on the bound connection.
func (e Entity) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, errors.Wrap(ErrNotConnected, "entity is not bound")
	}
	res, err := e.db.ExecContext(ctx, query, args...)
	return res, errors.Wrap(err, "exec")
}
