package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
)

var ErrEventNotFound = errors.New("security event not found")

const maxEventPage = 500

type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

func NewSecurityEventRepository(pool *pgxpool.Pool) *SecurityEventRepository {
	return &SecurityEventRepository{pool: pool}
}

const eventColumns = `id, event_type, user_id, ip_address, user_agent, details, severity,
		       resolved, resolved_by, resolved_at, created_at`

func scanEvent(row pgx.Row) (models.SecurityEvent, error) {
	var (
		event   models.SecurityEvent
		details []byte
	)
	if err := row.Scan(
		&event.ID,
		&event.Type,
		&event.UserID,
		&event.IPAddress,
		&event.UserAgent,
		&details,
		&event.Severity,
		&event.Resolved,
		&event.ResolvedBy,
		&event.ResolvedAt,
		&event.CreatedAt,
	); err != nil {
		return models.SecurityEvent{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &event.Details); err != nil {
			return models.SecurityEvent{}, fmt.Errorf("decode details: %w", err)
		}
	}
	return event, nil
}

func (r *SecurityEventRepository) Insert(ctx context.Context, event models.SecurityEvent) error {
	const query = `
		INSERT INTO security_events (
			id, event_type, user_id, ip_address, user_agent, details, severity, resolved, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, FALSE, $8
		)
	`

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	if event.Details == nil {
		details = []byte("{}")
	}

	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.UserID,
		event.IPAddress,
		event.UserAgent,
		details,
		event.Severity,
		event.CreatedAt,
	)
	return err
}

func (r *SecurityEventRepository) CountByIPSince(ctx context.Context, eventType models.EventType, ip string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM security_events
		WHERE event_type = $1 AND ip_address = $2 AND created_at >= $3
	`
	var count int
	err := r.pool.QueryRow(ctx, query, eventType, ip, since).Scan(&count)
	return count, err
}

func (r *SecurityEventRepository) CountByUserSince(ctx context.Context, eventType models.EventType, userID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM security_events
		WHERE event_type = $1 AND user_id = $2 AND created_at >= $3
	`
	var count int
	err := r.pool.QueryRow(ctx, query, eventType, userID, since).Scan(&count)
	return count, err
}

func (r *SecurityEventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.SecurityEvent, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		conds = append(conds, fmt.Sprintf("resolved = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxEventPage {
		limit = maxEventPage
	}
	args = append(args, limit)

	query := `SELECT ` + eventColumns + ` FROM security_events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SecurityEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Resolve stamps the resolution fields together. Resolving twice overwrites
// the resolver and time.
func (r *SecurityEventRepository) Resolve(ctx context.Context, id string, resolvedBy string, at time.Time) (models.SecurityEvent, error) {
	query := `
		UPDATE security_events
		SET resolved = TRUE, resolved_by = $2, resolved_at = $3
		WHERE id = $1
		RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, resolvedBy, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SecurityEvent{}, ErrEventNotFound
		}
		return models.SecurityEvent{}, err
	}
	return event, nil
}

func (r *SecurityEventRepository) Statistics(ctx context.Context, since time.Time) (models.EventStatistics, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE severity = 'critical'),
			COUNT(*) FILTER (WHERE severity = 'high'),
			COUNT(*) FILTER (WHERE NOT resolved),
			COUNT(*) FILTER (WHERE event_type = 'login_failed' AND created_at >= $1)
		FROM security_events
	`
	var stats models.EventStatistics
	err := r.pool.QueryRow(ctx, query, since).Scan(
		&stats.Total,
		&stats.Critical,
		&stats.High,
		&stats.Unresolved,
		&stats.FailedLoginsToday,
	)
	return stats, err
}

// CountUnresolvedSevere counts open high and critical events.
func (r *SecurityEventRepository) CountUnresolvedSevere(ctx context.Context) (int, error) {
	const query = `
		SELECT COUNT(*) FROM security_events
		WHERE NOT resolved AND severity IN ('high', 'critical')
	`
	var count int
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}
