package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

type sqliteComponentRepo struct {
	db *sql.DB
}

func (r *sqliteComponentRepo) Upsert(ctx context.Context, c *models.Component) error {
	query := `
		INSERT INTO components (id, display_name, kind, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name,
			kind = excluded.kind, active = excluded.active
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.DisplayName, string(c.Kind), boolToInt(c.Active))
	if err != nil {
		return fmt.Errorf("upsert component: %w", err)
	}
	return nil
}

func (r *sqliteComponentRepo) GetByID(ctx context.Context, id int) (*models.Component, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, display_name, kind, active FROM components WHERE id = ?", id)

	c, err := scanComponent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get component: %w", err)
	}
	return c, nil
}

func (r *sqliteComponentRepo) List(ctx context.Context) ([]*models.Component, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, display_name, kind, active FROM components ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	defer rows.Close()

	var components []*models.Component
	for rows.Next() {
		c, err := scanComponent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

func (r *sqliteComponentRepo) SetActive(ctx context.Context, id int, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE components SET active = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set component active: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteComponentRepo) FetchComponentsByIDs(ctx context.Context, ids []int) (found map[int]*models.Component, err error) {
	defer func(start time.Time) { observe("fetch_components", backendSQLite, start, err) }(time.Now())

	found = make(map[int]*models.Component, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT id, display_name, kind, active FROM components WHERE id IN (%s)",
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query components by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComponent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		found[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return found, nil
}

func scanComponent(scan func(dest ...interface{}) error) (*models.Component, error) {
	c := &models.Component{}
	var kind string
	var active int
	if err := scan(&c.ID, &c.DisplayName, &kind, &active); err != nil {
		return nil, err
	}
	c.Kind = models.ComponentKind(kind)
	if k, err := models.ParseComponentKind(kind); err == nil {
		c.Kind = k
	}
	c.Active = active != 0
	return c, nil
}
