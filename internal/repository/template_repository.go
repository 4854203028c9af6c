package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"covermsg/internal/models"
)

const templateColumns = `id, template_key, channel, language, subject, body, text_body, placeholders, is_active, created_at, updated_at`

type templateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func scanTemplate(row rowScanner, t *models.MessagingTemplate) error {
	return row.Scan(
		&t.ID,
		&t.TemplateKey,
		&t.Channel,
		&t.Language,
		&t.Subject,
		&t.Body,
		&t.TextBody,
		&t.Placeholders,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// Create creates a new messaging template
func (r *templateRepository) Create(ctx context.Context, template *models.MessagingTemplate) error {
	query := `
		INSERT INTO messaging_templates (template_key, channel, language, subject, body, text_body, placeholders, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		template.TemplateKey,
		template.Channel,
		template.Language,
		template.Subject,
		template.Body,
		template.TextBody,
		template.Placeholders,
		template.IsActive,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by ID
func (r *templateRepository) GetByID(ctx context.Context, id int) (*models.MessagingTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM messaging_templates WHERE id = $1`

	template := &models.MessagingTemplate{}
	err := scanTemplate(r.db.QueryRowContext(ctx, query, id), template)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return template, nil
}

// Update updates a messaging template
func (r *templateRepository) Update(ctx context.Context, template *models.MessagingTemplate) error {
	query := `
		UPDATE messaging_templates
		SET template_key = $2, channel = $3, language = $4, subject = $5,
			body = $6, text_body = $7, placeholders = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		template.ID,
		template.TemplateKey,
		template.Channel,
		template.Language,
		template.Subject,
		template.Body,
		template.TextBody,
		template.Placeholders,
		template.IsActive,
	).Scan(&template.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	return nil
}

// List retrieves templates matching the given filters
func (r *templateRepository) List(ctx context.Context, filters TemplateFilters) ([]*models.MessagingTemplate, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.TemplateKey != nil {
		conditions = append(conditions, fmt.Sprintf("template_key = $%d", argPos))
		args = append(args, *filters.TemplateKey)
		argPos++
	}
	if filters.Channel != nil {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", argPos))
		args = append(args, *filters.Channel)
		argPos++
	}
	if filters.Language != nil {
		conditions = append(conditions, fmt.Sprintf("language = $%d", argPos))
		args = append(args, *filters.Language)
	}

	query := `SELECT ` + templateColumns + ` FROM messaging_templates`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY template_key, channel, language"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []*models.MessagingTemplate{}
	for rows.Next() {
		template := &models.MessagingTemplate{}
		if err := scanTemplate(rows, template); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, template)
	}

	return templates, nil
}

// FindActive retrieves the active template for (template_key, channel, language)
func (r *templateRepository) FindActive(ctx context.Context, templateKey string, channel models.Channel, language string) (*models.MessagingTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM messaging_templates
		WHERE template_key = $1 AND channel = $2 AND language = $3 AND is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	template := &models.MessagingTemplate{}
	err := scanTemplate(r.db.QueryRowContext(ctx, query, templateKey, channel, language), template)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active template: %w", err)
	}

	return template, nil
}
