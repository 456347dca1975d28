package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deadline-tracker/internal/domain"
)

// DeadlineRepository define el contrato de persistencia para deadlines.
type DeadlineRepository interface {
	Create(ctx context.Context, d domain.Deadline) error
	GetByID(ctx context.Context, id string) (domain.Deadline, error)
	ListByUser(ctx context.Context, username string) ([]domain.Deadline, error)
	ListIncomplete(ctx context.Context) ([]domain.Deadline, error)
	MarkComplete(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PgDeadlineRepository implementa DeadlineRepository usando pgxpool.
type PgDeadlineRepository struct {
	pool *pgxpool.Pool
}

func NewPgDeadlineRepository(pool *pgxpool.Pool) *PgDeadlineRepository {
	return &PgDeadlineRepository{pool: pool}
}

const deadlineColumns = `id, username, category, title, due_at, notify_before_hours, completed, created_at`

func (r *PgDeadlineRepository) Create(ctx context.Context, d domain.Deadline) error {
	const query = `
		INSERT INTO deadlines (id, username, category, title, due_at, notify_before_hours, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		d.ID,
		d.Username,
		d.Category,
		d.Title,
		d.DueAt,
		d.NotifyBeforeHours,
		d.Completed,
		d.CreatedAt,
	)
	return err
}

func (r *PgDeadlineRepository) GetByID(ctx context.Context, id string) (domain.Deadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM deadlines WHERE id = $1`
	var d domain.Deadline
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.Username,
		&d.Category,
		&d.Title,
		&d.DueAt,
		&d.NotifyBeforeHours,
		&d.Completed,
		&d.CreatedAt,
	)
	if err != nil {
		return domain.Deadline{}, err
	}
	return d, nil
}

func (r *PgDeadlineRepository) ListByUser(ctx context.Context, username string) ([]domain.Deadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM deadlines WHERE username = $1 ORDER BY due_at ASC`
	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	return collectDeadlines(rows)
}

// ListIncomplete devuelve todos los deadlines pendientes de todos los usuarios.
// Solo lo usa el sweeper de notificaciones.
func (r *PgDeadlineRepository) ListIncomplete(ctx context.Context) ([]domain.Deadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM deadlines WHERE completed = FALSE ORDER BY due_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectDeadlines(rows)
}

// MarkComplete es idempotente: un id ausente o ya completado no es un error.
func (r *PgDeadlineRepository) MarkComplete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE deadlines SET completed = TRUE WHERE id = $1`, id)
	return err
}

// Delete es idempotente: borrar un id ausente no es un error.
func (r *PgDeadlineRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM deadlines WHERE id = $1`, id)
	return err
}

func collectDeadlines(rows pgx.Rows) ([]domain.Deadline, error) {
	defer rows.Close()
	var list []domain.Deadline
	for rows.Next() {
		var d domain.Deadline
		if err := rows.Scan(
			&d.ID,
			&d.Username,
			&d.Category,
			&d.Title,
			&d.DueAt,
			&d.NotifyBeforeHours,
			&d.Completed,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
