// Package sqlstore persists projects in SQLite or PostgreSQL through
// database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const columns = "id, name, description, flow_data, generated_code, sealed, created_at, updated_at"

// Store implements ports.ProjectStore on a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to dsn with the dialect's driver and migrates the schema.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.maxConns > 0 {
		db.SetMaxOpenConns(d.maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	s, err := New(ctx, db, d)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates the schema.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	flow_data TEXT,
	generated_code TEXT,
	sealed %s,
	created_at %s NOT NULL,
	updated_at %s NOT NULL
)`, s.dialect.Blob, s.dialect.Int64, s.dialect.Int64)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Save upserts the project row.
func (s *Store) Save(ctx context.Context, p *domain.Project) error {
	flowData, err := jsonColumn(p.Flow, p.Flow == nil)
	if err != nil {
		return fmt.Errorf("failed to encode flow: %w", err)
	}
	generated, err := jsonColumn(p.Generated, p.Generated == nil)
	if err != nil {
		return fmt.Errorf("failed to encode generated code: %w", err)
	}

	var sealed any
	if len(p.Sealed) > 0 {
		sealed = p.Sealed
	}

	query := s.dialect.rebind(`INSERT INTO projects (` + columns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	description = excluded.description,
	flow_data = excluded.flow_data,
	generated_code = excluded.generated_code,
	sealed = excluded.sealed,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`)
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, flowData, generated, sealed,
		p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func jsonColumn(v any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Load fetches one project.
func (s *Store) Load(ctx context.Context, id string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind("SELECT "+columns+" FROM projects WHERE id = ?"), id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return p, nil
}

// Delete removes the project row.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM projects WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// List returns every project, oldest first.
func (s *Store) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM projects ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p                   domain.Project
		flowData, generated sql.NullString
		sealed              []byte
		created, updated    int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &flowData, &generated, &sealed, &created, &updated); err != nil {
		return nil, err
	}
	if flowData.Valid {
		var g flow.Graph
		if err := json.Unmarshal([]byte(flowData.String), &g); err != nil {
			return nil, fmt.Errorf("decode flow of %s: %w", p.ID, err)
		}
		p.Flow = &g
	}
	if generated.Valid {
		if err := json.Unmarshal([]byte(generated.String), &p.Generated); err != nil {
			return nil, fmt.Errorf("decode generated code of %s: %w", p.ID, err)
		}
	}
	if len(sealed) > 0 {
		p.Sealed = sealed
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}
