package domain

import "time"

// DeadlineStatus clasifica un deadline segun tiempo y completado.
type DeadlineStatus string

const (
	StatusPending   DeadlineStatus = "pending"
	StatusDueSoon   DeadlineStatus = "due_soon"
	StatusOverdue   DeadlineStatus = "overdue"
	StatusCompleted DeadlineStatus = "completed"
)

type Deadline struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Category          string    `json:"category"`
	Title             string    `json:"title"`
	DueAt             time.Time `json:"due_at"`
	NotifyBeforeHours int       `json:"notify_before_hours"`
	Completed         bool      `json:"completed"`
	CreatedAt         time.Time `json:"created_at"`
}

// NotifyAt devuelve el inicio de la ventana de recordatorio.
func (d Deadline) NotifyAt() time.Time {
	return d.DueAt.Add(-time.Duration(d.NotifyBeforeHours) * time.Hour)
}

// DueForReminder indica si now cae dentro de [due - notify_before, due).
func (d Deadline) DueForReminder(now time.Time) bool {
	return !now.Before(d.NotifyAt()) && now.Before(d.DueAt)
}

// StatusAt clasifica el deadline en el instante dado.
func (d Deadline) StatusAt(now time.Time) DeadlineStatus {
	switch {
	case d.Completed:
		return StatusCompleted
	case !now.Before(d.DueAt):
		return StatusOverdue
	case d.DueForReminder(now):
		return StatusDueSoon
	default:
		return StatusPending
	}
}
