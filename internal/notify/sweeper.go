package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"deadline-tracker/internal/domain"
	"deadline-tracker/internal/sms"
)

// DeadlineSource entrega los deadlines pendientes a revisar en cada barrido.
type DeadlineSource interface {
	ListIncomplete(ctx context.Context) ([]domain.Deadline, error)
}

// UserLookup resuelve el dueño de un deadline para obtener su telefono.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// Sweeper revisa periodicamente los deadlines pendientes y dispara un SMS
// por cada uno que este dentro de su ventana de recordatorio.
type Sweeper struct {
	logger    *zap.Logger
	deadlines DeadlineSource
	users     UserLookup
	sender    sms.Sender
	marker    Marker
	interval  time.Duration
}

// New construye un Sweeper. Con marker nil se re-notifica en cada tick dentro
// de la ventana, que es el comportamiento historico del sistema.
func New(logger *zap.Logger, deadlines DeadlineSource, users UserLookup, sender sms.Sender, marker Marker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		logger:    logger,
		deadlines: deadlines,
		users:     users,
		sender:    sender,
		marker:    marker,
		interval:  interval,
	}
}

// Run ejecuta barridos en un ticker fijo hasta que el contexto se cancele.
// Los ticks corren secuencialmente en esta goroutine: nunca hay dos barridos
// en vuelo a la vez.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			// Un error de store aborta solo este tick; el siguiente reintenta.
			if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("sweep aborted", zap.Error(err))
			}
		}
	}
}

// Sweep ejecuta un barrido: lista los deadlines pendientes y envia un
// recordatorio por cada uno dentro de [due - notify_before, due). Devuelve
// cuantos envios se realizaron. Un fallo de envio individual no detiene el
// resto del barrido.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	list, err := s.deadlines.ListIncomplete(ctx)
	if err != nil {
		return 0, fmt.Errorf("list incomplete deadlines: %w", err)
	}

	sent := 0
	for _, d := range list {
		if !d.DueForReminder(now) {
			continue
		}

		user, err := s.users.GetByUsername(ctx, d.Username)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Dueño ausente: se omite, no es un error.
				s.logger.Debug("deadline owner missing", zap.String("deadline_id", d.ID), zap.String("username", d.Username))
				continue
			}
			s.logger.Warn("owner lookup failed", zap.String("deadline_id", d.ID), zap.Error(err))
			continue
		}
		if !user.HasPhone() {
			s.logger.Debug("owner has no phone", zap.String("deadline_id", d.ID), zap.String("username", d.Username))
			continue
		}

		if s.marker != nil && !s.marker.FirstNotice(d.ID, d.DueAt.Sub(now)) {
			continue
		}

		body := reminderBody(d)
		if err := s.sender.Send(ctx, user.Phone, body); err != nil {
			s.logger.Warn("send reminder failed", zap.String("deadline_id", d.ID), zap.String("username", d.Username), zap.Error(err))
			continue
		}
		s.logger.Info("reminder sent", zap.String("deadline_id", d.ID), zap.String("username", d.Username), zap.Time("due_at", d.DueAt))
		sent++
	}
	return sent, nil
}

func reminderBody(d domain.Deadline) string {
	return fmt.Sprintf("Reminder: %q is due at %s.", d.Title, d.DueAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))
}
