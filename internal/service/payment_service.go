package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/events"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// PaymentService settles technician commissions and serves the payroll view.
type PaymentService struct {
	store      repository.Store
	policy     *auth.Policy
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      Clock
}

// PaymentDependencies bundles collaborators for the payment service.
type PaymentDependencies struct {
	Store      repository.Store
	Policy     *auth.Policy
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	return &PaymentService{
		store:      deps.Store,
		policy:     policy,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// PaymentListFilter is the caller-facing payroll query.
type PaymentListFilter struct {
	TechnicianID *string
	Statuses     []domain.PaymentStatus
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// PayrollLine sums one technician's obligations in the report window.
type PayrollLine struct {
	TechnicianID   string
	TechnicianName string
	PendingCount   int
	PendingAmount  decimal.Decimal
	PaidCount      int
	PaidAmount     decimal.Decimal
}

// PayrollReport aggregates payments enabled within [From, To]. Voided
// payments are excluded.
type PayrollReport struct {
	From         *time.Time
	To           *time.Time
	Lines        []PayrollLine
	TotalPending decimal.Decimal
	TotalPaid    decimal.Decimal
}

// Process marks a pending payment as paid. It is irreversible.
func (s *PaymentService) Process(ctx context.Context, actor *domain.Actor, paymentID string, method domain.PaymentMethod, reference string) (*domain.TechnicianPayment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.policy.HasPermission(actor.Role, auth.PermPaymentsProcess) {
		return nil, errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, auth.PermPaymentsProcess))
	}
	if !s.policy.IsElevated(actor.Role) {
		return nil, errorutil.NewForbidden(fmt.Sprintf("payment processing requires level %d", auth.ElevatedLevel))
	}
	if !method.Valid() {
		return nil, errorutil.NewValidationError("method must be one of transfer, cash, check, deposit",
			map[string]any{"field": "method", "method": string(method)})
	}

	now := s.clock.now()
	var payment *domain.TechnicianPayment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return translate(err, "payment", "load payment")
		}
		switch current.Status {
		case domain.PaymentStatusPaid:
			return errorutil.NewAlreadyProcessed("payment already processed", map[string]any{"payment_id": paymentID})
		case domain.PaymentStatusVoided:
			return errorutil.NewConflict("payment was voided because its ticket was reopened",
				map[string]any{"payment_id": paymentID})
		}

		payment = current.Clone()
		payment.Status = domain.PaymentStatusPaid
		payment.Method = &method
		if ref := strings.TrimSpace(reference); ref != "" {
			payment.Reference = &ref
		}
		payer := actor.ID
		payment.PaidBy = &payer
		payment.PaidAt = &now
		return translate(tx.Payments().Update(ctx, payment), "payment", "process payment")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment processed",
		zap.String("payment_id", payment.ID),
		zap.String("ticket_id", payment.TicketID),
		zap.String("method", string(method)),
		zap.String("amount_owed", payment.AmountOwed.StringFixed(2)),
		zap.String("actor_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, paymentEvent(events.EventPaymentProcessed, actor, payment, now))
	return payment, nil
}

// Get returns one payment. Actors without reports.view only see their own.
func (s *PaymentService) Get(ctx context.Context, actor *domain.Actor, paymentID string) (*domain.TechnicianPayment, error) {
	if err := s.requireView(actor); err != nil {
		return nil, err
	}
	payment, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, translate(err, "payment", "load payment")
	}
	if !s.seesAll(actor) && payment.TechnicianID != actor.ID {
		return nil, errorutil.NewNotFound("payment", nil)
	}
	return payment, nil
}

// List pages through payments, newest enablement first.
func (s *PaymentService) List(ctx context.Context, actor *domain.Actor, filter PaymentListFilter) (repository.Page[domain.TechnicianPayment], error) {
	if err := s.requireView(actor); err != nil {
		return repository.Page[domain.TechnicianPayment]{}, err
	}
	query, err := s.scopedFilter(actor, filter)
	if err != nil {
		return repository.Page[domain.TechnicianPayment]{}, err
	}
	page, err := s.store.Payments().List(ctx, query)
	if err != nil {
		return repository.Page[domain.TechnicianPayment]{}, translate(err, "payment", "list payments")
	}
	return page, nil
}

// Report summarises pending and paid obligations per technician. Technicians
// without reports.view get a report restricted to themselves.
func (s *PaymentService) Report(ctx context.Context, actor *domain.Actor, technicianID *string, from, to *time.Time) (*PayrollReport, error) {
	if err := s.requireView(actor); err != nil {
		return nil, err
	}
	query, err := s.scopedFilter(actor, PaymentListFilter{TechnicianID: technicianID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	query.Statuses = []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusPaid}
	query.PageSize = repository.MaxPageSize

	lines := map[string]*PayrollLine{}
	report := &PayrollReport{From: from, To: to, TotalPending: decimal.Zero, TotalPaid: decimal.Zero}
	for query.Page = 1; ; query.Page++ {
		page, err := s.store.Payments().List(ctx, query)
		if err != nil {
			return nil, translate(err, "payment", "list payments")
		}
		for _, p := range page.Items {
			line, ok := lines[p.TechnicianID]
			if !ok {
				line = &PayrollLine{TechnicianID: p.TechnicianID, PendingAmount: decimal.Zero, PaidAmount: decimal.Zero}
				lines[p.TechnicianID] = line
			}
			if p.Status == domain.PaymentStatusPaid {
				line.PaidCount++
				line.PaidAmount = line.PaidAmount.Add(p.AmountOwed)
				report.TotalPaid = report.TotalPaid.Add(p.AmountOwed)
			} else {
				line.PendingCount++
				line.PendingAmount = line.PendingAmount.Add(p.AmountOwed)
				report.TotalPending = report.TotalPending.Add(p.AmountOwed)
			}
		}
		if page.Page >= page.TotalPages {
			break
		}
	}

	for id, line := range lines {
		user, err := s.store.Users().GetByID(ctx, id)
		if err == nil {
			line.TechnicianName = user.Name
		}
		report.Lines = append(report.Lines, *line)
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		if report.Lines[i].TechnicianName != report.Lines[j].TechnicianName {
			return report.Lines[i].TechnicianName < report.Lines[j].TechnicianName
		}
		return report.Lines[i].TechnicianID < report.Lines[j].TechnicianID
	})
	return report, nil
}

func (s *PaymentService) requireView(actor *domain.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !s.policy.HasPermission(actor.Role, auth.PermPaymentsView) {
		return errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, auth.PermPaymentsView))
	}
	return nil
}

func (s *PaymentService) seesAll(actor *domain.Actor) bool {
	return s.policy.HasPermission(actor.Role, auth.PermReportsView)
}

func (s *PaymentService) scopedFilter(actor *domain.Actor, filter PaymentListFilter) (repository.PaymentFilter, error) {
	for _, st := range filter.Statuses {
		switch st {
		case domain.PaymentStatusPending, domain.PaymentStatusPaid, domain.PaymentStatusVoided:
		default:
			return repository.PaymentFilter{}, errorutil.NewValidationError("unknown payment status", map[string]any{"status": string(st)})
		}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return repository.PaymentFilter{}, errorutil.NewValidationError("from must not be after to", nil)
	}
	query := repository.PaymentFilter{
		TechnicianID: filter.TechnicianID,
		Statuses:     filter.Statuses,
		From:         filter.From,
		To:           filter.To,
		Page:         filter.Page,
		PageSize:     filter.PageSize,
	}
	if !s.seesAll(actor) {
		self := actor.ID
		query.TechnicianID = &self
	}
	return query, nil
}
