package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"deadline-tracker/internal/domain"
	"deadline-tracker/internal/repository"
)

// DeadlineService coordina reglas de negocio para deadlines.
type DeadlineService struct {
	logger    *zap.Logger
	deadlines repository.DeadlineRepository
	users     repository.UserRepository
}

func NewDeadlineService(logger *zap.Logger, deadlines repository.DeadlineRepository, users repository.UserRepository) *DeadlineService {
	return &DeadlineService{
		logger:    logger,
		deadlines: deadlines,
		users:     users,
	}
}

var (
	ErrDeadlineNotFound = errors.New("deadline not found")
	ErrOwnerNotFound    = errors.New("owner not found")
	ErrInvalidDeadline  = errors.New("invalid deadline")
)

type CreateDeadlineInput struct {
	Username          string
	Category          string
	Title             string
	DueAt             time.Time
	NotifyBeforeHours int
}

// Create valida el dueño antes de insertar: la referencia username -> users
// se comprueba en escritura ademas del FK en el esquema.
func (s *DeadlineService) Create(ctx context.Context, input CreateDeadlineInput) (domain.Deadline, error) {
	if s.deadlines == nil {
		return domain.Deadline{}, errors.New("deadline service not configured")
	}

	username := normalizeUsername(input.Username)
	title := strings.TrimSpace(input.Title)
	if username == "" || title == "" || input.DueAt.IsZero() {
		return domain.Deadline{}, ErrInvalidDeadline
	}
	hours := input.NotifyBeforeHours
	if hours <= 0 {
		hours = 1
	}

	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Deadline{}, ErrOwnerNotFound
		}
		return domain.Deadline{}, err
	}

	d := domain.Deadline{
		ID:                uuid.NewString(),
		Username:          username,
		Category:          strings.TrimSpace(input.Category),
		Title:             title,
		DueAt:             input.DueAt.UTC(),
		NotifyBeforeHours: hours,
		Completed:         false,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.deadlines.Create(ctx, d); err != nil {
		return domain.Deadline{}, err
	}
	return d, nil
}

// ListByUser devuelve los deadlines del usuario ordenados por vencimiento.
func (s *DeadlineService) ListByUser(ctx context.Context, username string) ([]domain.Deadline, error) {
	return s.deadlines.ListByUser(ctx, normalizeUsername(username))
}

// Calendar agrupa los deadlines del usuario por fecha de vencimiento (YYYY-MM-DD).
func (s *DeadlineService) Calendar(ctx context.Context, username string) (map[string][]domain.Deadline, error) {
	list, err := s.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string][]domain.Deadline, len(list))
	for _, d := range list {
		day := d.DueAt.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], d)
	}
	return byDay, nil
}

// Projects agrupa los deadlines del usuario por categoria.
func (s *DeadlineService) Projects(ctx context.Context, username string) (map[string][]domain.Deadline, error) {
	list, err := s.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string][]domain.Deadline, len(list))
	for _, d := range list {
		category := d.Category
		if category == "" {
			category = "uncategorized"
		}
		byCategory[category] = append(byCategory[category], d)
	}
	for _, group := range byCategory {
		sort.Slice(group, func(i, j int) bool { return group[i].DueAt.Before(group[j].DueAt) })
	}
	return byCategory, nil
}

// Complete marca el deadline como completado. La actualizacion en el store es
// idempotente; completar dos veces deja el mismo estado.
func (s *DeadlineService) Complete(ctx context.Context, username, id string) error {
	if err := s.authorize(ctx, username, id); err != nil {
		return err
	}
	return s.deadlines.MarkComplete(ctx, id)
}

// Delete elimina el deadline del usuario.
func (s *DeadlineService) Delete(ctx context.Context, username, id string) error {
	if err := s.authorize(ctx, username, id); err != nil {
		return err
	}
	return s.deadlines.Delete(ctx, id)
}

// authorize comprueba que el deadline exista y pertenezca al usuario. Un
// deadline de otro usuario se reporta como no encontrado.
func (s *DeadlineService) authorize(ctx context.Context, username, id string) error {
	d, err := s.deadlines.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDeadlineNotFound
		}
		return err
	}
	if d.Username != normalizeUsername(username) {
		return ErrDeadlineNotFound
	}
	return nil
}
