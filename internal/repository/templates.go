package repository

import (
	"context"
	"log/slog"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

type TemplateRepository interface {
	List(ctx context.Context) ([]*entity.MessageTemplate, error)
	Get(ctx context.Context, id int32) (*entity.MessageTemplate, error)
	// Save upserts by template name and returns the stored row.
	Save(ctx context.Context, name, content string) (*entity.MessageTemplate, error)
	Delete(ctx context.Context, id int32) error
}

type templateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTemplateRepository(db *DB, logger *slog.Logger) TemplateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &templateRepository{db: db, logger: logger}
}

func (r *templateRepository) List(ctx context.Context) ([]*entity.MessageTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, content FROM message_templates ORDER BY name`)
	if err != nil {
		r.logger.Error("failed to list templates", "error", err)
		return nil, common.WrapError(err, "list templates")
	}
	defer rows.Close()

	var out []*entity.MessageTemplate
	for rows.Next() {
		var t entity.MessageTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Content); err != nil {
			return nil, common.WrapError(err, "scan template")
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *templateRepository) Get(ctx context.Context, id int32) (*entity.MessageTemplate, error) {
	var t entity.MessageTemplate
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, content FROM message_templates WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Content)
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to load template", "id", id, "error", err)
		return nil, common.WrapError(err, "load template")
	}
	return &t, nil
}

func (r *templateRepository) Save(ctx context.Context, name, content string) (*entity.MessageTemplate, error) {
	var t entity.MessageTemplate
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO message_templates (name, content) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content
		RETURNING id, name, content`, name, content).
		Scan(&t.ID, &t.Name, &t.Content)
	if err != nil {
		r.logger.Error("failed to save template", "name", name, "error", err)
		return nil, common.WrapError(err, "save template")
	}
	return &t, nil
}

func (r *templateRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_templates WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete template", "id", id, "error", err)
		return common.WrapError(err, "delete template")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
