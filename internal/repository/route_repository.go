package repository

import (
	"context"
	"database/sql"
	"fmt"

	"covermsg/internal/models"
)

const routeColumns = `id, template_key, sms_enabled, email_enabled, is_active, created_at, updated_at`

type routeRepository struct {
	db *sql.DB
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db *sql.DB) RouteRepository {
	return &routeRepository{db: db}
}

func scanRoute(row rowScanner, route *models.MessagingRoute) error {
	return row.Scan(
		&route.ID,
		&route.TemplateKey,
		&route.SMSEnabled,
		&route.EmailEnabled,
		&route.IsActive,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
}

// Create creates a new messaging route
func (r *routeRepository) Create(ctx context.Context, route *models.MessagingRoute) error {
	query := `
		INSERT INTO messaging_routes (template_key, sms_enabled, email_enabled, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		route.TemplateKey,
		route.SMSEnabled,
		route.EmailEnabled,
		route.IsActive,
	).Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}

	return nil
}

// GetByID retrieves a route by ID
func (r *routeRepository) GetByID(ctx context.Context, id int) (*models.MessagingRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM messaging_routes WHERE id = $1`

	route := &models.MessagingRoute{}
	err := scanRoute(r.db.QueryRowContext(ctx, query, id), route)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	return route, nil
}

// GetByTemplateKey retrieves the route for a template key
func (r *routeRepository) GetByTemplateKey(ctx context.Context, templateKey string) (*models.MessagingRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM messaging_routes WHERE template_key = $1`

	route := &models.MessagingRoute{}
	err := scanRoute(r.db.QueryRowContext(ctx, query, templateKey), route)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route by template key: %w", err)
	}

	return route, nil
}

// Update updates a messaging route
func (r *routeRepository) Update(ctx context.Context, route *models.MessagingRoute) error {
	query := `
		UPDATE messaging_routes
		SET template_key = $2, sms_enabled = $3, email_enabled = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		route.ID,
		route.TemplateKey,
		route.SMSEnabled,
		route.EmailEnabled,
		route.IsActive,
	).Scan(&route.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}

	return nil
}

// List retrieves all routes
func (r *routeRepository) List(ctx context.Context) ([]*models.MessagingRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM messaging_routes ORDER BY template_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	routes := []*models.MessagingRoute{}
	for rows.Next() {
		route := &models.MessagingRoute{}
		if err := scanRoute(rows, route); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, route)
	}

	return routes, nil
}
