package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldservice/internal/api/dto"
	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/service"
)

// PaymentsHandler exposes technician payroll endpoints.
type PaymentsHandler struct {
	service *service.PaymentService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(paymentService *service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{service: paymentService}
}

// ListPayments GET /payments.
func (h *PaymentsHandler) ListPayments(c *fiber.Ctx) error {
	filter := service.PaymentListFilter{
		TechnicianID: optionalString(c.Query("technician_id")),
		Page:         parseInt(c.Query("page"), 1),
		PageSize:     parseInt(c.Query("page_size"), 0),
	}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.PaymentStatus(part))
	}
	var err error
	if filter.From, err = parseTime("from", c.Query("from"), false); err != nil {
		return err
	}
	if filter.To, err = parseTime("to", c.Query("to"), true); err != nil {
		return err
	}

	page, err := h.service.List(c.UserContext(), auth.CurrentActor(c), filter)
	if err != nil {
		return err
	}
	items := make([]dto.PaymentResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewPaymentResponse(&page.Items[i]))
	}
	return respond(c, fiber.StatusOK, dto.PageResponse[dto.PaymentResponse]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// GetPayment GET /payments/:id.
func (h *PaymentsHandler) GetPayment(c *fiber.Ctx) error {
	payment, err := h.service.Get(c.UserContext(), auth.CurrentActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewPaymentResponse(payment))
}

// ProcessPayment POST /payments/:id/process.
func (h *PaymentsHandler) ProcessPayment(c *fiber.Ctx) error {
	var req dto.ProcessPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payment, err := h.service.Process(c.UserContext(), auth.CurrentActor(c), c.Params("id"), req.Method, req.Reference)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewPaymentResponse(payment))
}

// Report GET /payments/report.
func (h *PaymentsHandler) Report(c *fiber.Ctx) error {
	from, err := parseTime("from", c.Query("from"), false)
	if err != nil {
		return err
	}
	to, err := parseTime("to", c.Query("to"), true)
	if err != nil {
		return err
	}
	report, err := h.service.Report(c.UserContext(), auth.CurrentActor(c), optionalString(c.Query("technician_id")), from, to)
	if err != nil {
		return err
	}

	out := dto.PayrollReportResponse{
		From:         report.From,
		To:           report.To,
		Lines:        make([]dto.PayrollLineResponse, 0, len(report.Lines)),
		TotalPending: report.TotalPending.StringFixed(2),
		TotalPaid:    report.TotalPaid.StringFixed(2),
	}
	for _, line := range report.Lines {
		out.Lines = append(out.Lines, dto.PayrollLineResponse{
			TechnicianID:   line.TechnicianID,
			TechnicianName: line.TechnicianName,
			PendingCount:   line.PendingCount,
			PendingAmount:  line.PendingAmount.StringFixed(2),
			PaidCount:      line.PaidCount,
			PaidAmount:     line.PaidAmount.StringFixed(2),
		})
	}
	return respond(c, fiber.StatusOK, out)
}
