package purchases

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/settlement"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type invoiceRequest struct {
	SupplierID  int64         `json:"supplier_id" validate:"required,gt=0"`
	SupplierRef string        `json:"supplier_ref"`
	InvoiceDate string        `json:"invoice_date"`
	Discount    string        `json:"discount"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Qty       string `json:"qty" validate:"required"`
	UnitPrice string `json:"unit_price" validate:"required"`
	MarkupPct string `json:"markup_pct"`
}

type paymentRequest struct {
	Mode    string `json:"mode" validate:"required"`
	Amount  string `json:"amount" validate:"required"`
	BankRef string `json:"bank_ref"`
	PaidAt  string `json:"paid_at"`
}

func (req invoiceRequest) toInput(actorID int64) CreateInvoiceInput {
	input := CreateInvoiceInput{
		SupplierID:  req.SupplierID,
		SupplierRef: req.SupplierRef,
		Discount:    shared.ParseAmount(req.Discount),
		CreatedBy:   actorID,
	}
	if date, err := time.Parse("2006-01-02", req.InvoiceDate); err == nil {
		input.InvoiceDate = date
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, CreateLineInput{
			ProductID: line.ProductID,
			Qty:       shared.ParseQty(line.Qty),
			UnitPrice: shared.ParseAmount(line.UnitPrice),
			MarkupPct: shared.ParseAmount(line.MarkupPct),
		})
	}
	return input
}

func actorID(r *http.Request) int64 {
	return shared.ActorIDFromContext(r.Context())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := filtersFromQuery(r)

	invoices, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list purchase invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice ID")
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get purchase invoice", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	detail, err := h.service.Create(r.Context(), req.toInput(actorID(r)))
	if err != nil {
		h.logger.Error("create purchase invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, detail)
}

func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice ID")
		return
	}

	var req paymentRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	input := AddPaymentInput{
		InvoiceID:      id,
		Mode:           settlement.PaymentMode(req.Mode),
		Amount:         shared.ParseAmount(req.Amount),
		BankRef:        req.BankRef,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if paidAt, err := time.Parse("2006-01-02", req.PaidAt); err == nil {
		input.PaidAt = paidAt
	}

	payment, err := h.service.AddPayment(r.Context(), actorID(r), input)
	if err != nil {
		h.logger.Error("add purchase payment", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, payment)
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	var filters ListFilters
	filters.SupplierID, _ = strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	if from, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		filters.From = from
	}
	if to, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		filters.To = to
	}
	return filters
}
