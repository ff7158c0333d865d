package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fieldops/fieldservice/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (ticket code, user email,
	// payment per ticket) is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleStatus is returned by a guarded status update when the stored
	// status no longer matches the expected one.
	ErrStaleStatus = errors.New("ticket status changed concurrently")
	// ErrOutOfRange is returned when a money or percentage value does not fit
	// its column.
	ErrOutOfRange = errors.New("numeric value out of range")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TicketFilter captures list parameters.
type TicketFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Kind         *domain.TicketKind
	TechnicianID *string
	Search       string
	Page         int
	PageSize     int
}

// PaymentFilter captures payroll listing parameters. From/To bound EnabledAt (inclusive).
type PaymentFilter struct {
	TechnicianID *string
	Statuses     []domain.PaymentStatus
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// Page is a slice of a filtered, ordered result set.
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Window is the normalized paging input derived from a total count.
type Window struct {
	Page       int
	PageSize   int
	TotalPages int
	Offset     int
}

// NormalizePage clamps page to [1, max(1,totalPages)] and pageSize to [1, MaxPageSize].
// Both store implementations use it so paging is identical.
func NormalizePage(page, pageSize, total int) Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	totalPages := (total + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return Window{Page: page, PageSize: pageSize, TotalPages: totalPages, Offset: (page - 1) * pageSize}
}

// NormalizeSearch trims and lowercases a free-text term.
func NormalizeSearch(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) (Page[domain.Ticket], error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	// UpdateIfStatus writes the ticket only when the stored status equals expected.
	UpdateIfStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	// Delete removes the ticket and its history and payment records.
	Delete(ctx context.Context, id string) error
}

// HistoryRepository stores append-only audit entries.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.ChangeHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ChangeHistoryEntry, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

// PaymentRepository stores technician commission obligations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.TechnicianPayment) error
	GetByID(ctx context.Context, id string) (*domain.TechnicianPayment, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.TechnicianPayment, error)
	Update(ctx context.Context, payment *domain.TechnicianPayment) error
	List(ctx context.Context, filter PaymentFilter) (Page[domain.TechnicianPayment], error)
}

// UserRepository defines persistence access for employees.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, role *domain.Role) ([]domain.User, error)
}

// Sequencer allocates per-kind, per-year running ticket numbers starting at 1.
type Sequencer interface {
	Next(ctx context.Context, kind domain.TicketKind, year int) (int, error)
}

// Store is the persistence port consumed by the services.
type Store interface {
	Tickets() TicketRepository
	History() HistoryRepository
	Payments() PaymentRepository
	Users() UserRepository
	Sequences() Sequencer
	// WithinTx runs fn as one atomic unit. Repositories obtained from the
	// Store passed to fn participate in the unit; when fn returns an error no
	// write made through them is visible afterwards.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
}
