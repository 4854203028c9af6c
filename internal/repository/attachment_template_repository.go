package repository

import (
	"context"
	"database/sql"
	"fmt"

	"covermsg/internal/models"
)

const attachmentTemplateColumns = `id, name, kind, html_body, is_active, created_at, updated_at`

type attachmentTemplateRepository struct {
	db *sql.DB
}

// NewAttachmentTemplateRepository creates a new attachment template repository
func NewAttachmentTemplateRepository(db *sql.DB) AttachmentTemplateRepository {
	return &attachmentTemplateRepository{db: db}
}

func scanAttachmentTemplate(row rowScanner, t *models.AttachmentTemplate) error {
	return row.Scan(&t.ID, &t.Name, &t.Kind, &t.HTMLBody, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

// Create creates a new attachment template
func (r *attachmentTemplateRepository) Create(ctx context.Context, template *models.AttachmentTemplate) error {
	query := `
		INSERT INTO attachment_templates (name, kind, html_body, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		template.Name,
		template.Kind,
		template.HTMLBody,
		template.IsActive,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create attachment template: %w", err)
	}

	return nil
}

// GetByID retrieves an attachment template by ID
func (r *attachmentTemplateRepository) GetByID(ctx context.Context, id int) (*models.AttachmentTemplate, error) {
	query := `SELECT ` + attachmentTemplateColumns + ` FROM attachment_templates WHERE id = $1`

	template := &models.AttachmentTemplate{}
	err := scanAttachmentTemplate(r.db.QueryRowContext(ctx, query, id), template)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment template: %w", err)
	}

	return template, nil
}

// Update updates an attachment template
func (r *attachmentTemplateRepository) Update(ctx context.Context, template *models.AttachmentTemplate) error {
	query := `
		UPDATE attachment_templates
		SET name = $2, kind = $3, html_body = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		template.ID,
		template.Name,
		template.Kind,
		template.HTMLBody,
		template.IsActive,
	).Scan(&template.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update attachment template: %w", err)
	}

	return nil
}

// List retrieves all attachment templates
func (r *attachmentTemplateRepository) List(ctx context.Context) ([]*models.AttachmentTemplate, error) {
	query := `SELECT ` + attachmentTemplateColumns + ` FROM attachment_templates ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachment templates: %w", err)
	}
	defer rows.Close()

	templates := []*models.AttachmentTemplate{}
	for rows.Next() {
		template := &models.AttachmentTemplate{}
		if err := scanAttachmentTemplate(rows, template); err != nil {
			return nil, fmt.Errorf("failed to scan attachment template: %w", err)
		}
		templates = append(templates, template)
	}

	return templates, nil
}
