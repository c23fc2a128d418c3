package loans

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type loanRequest struct {
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	Principal  string `json:"principal" validate:"required"`
	RatePct    string `json:"rate_pct"`
	Months     int    `json:"months" validate:"gte=0"`
	IssuedAt   string `json:"issued_at"`
	Remarks    string `json:"remarks"`
}

type repaymentRequest struct {
	Amount  string `json:"amount" validate:"required"`
	PaidAt  string `json:"paid_at"`
	Remarks string `json:"remarks"`
}

type scheduleRequest struct {
	Principal string `json:"principal" validate:"required"`
	RatePct   string `json:"rate_pct"`
	Months    int    `json:"months" validate:"gte=0"`
}

func actorID(r *http.Request) int64 {
	return shared.ActorIDFromContext(r.Context())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters ListFilters
	filters.EmployeeID, _ = strconv.ParseInt(q.Get("employee_id"), 10, 64)
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))

	loans, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list loans", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"loans":      loans,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid loan ID")
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get loan", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	input := CreateLoanInput{
		EmployeeID: req.EmployeeID,
		Principal:  shared.ParseAmount(req.Principal),
		RatePct:    shared.ParseAmount(req.RatePct),
		Months:     req.Months,
		Remarks:    req.Remarks,
		CreatedBy:  actorID(r),
	}
	if issuedAt, err := time.Parse("2006-01-02", req.IssuedAt); err == nil {
		input.IssuedAt = issuedAt
	}

	detail, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create loan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, detail)
}

func (h *Handler) AddRepayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid loan ID")
		return
	}

	var req repaymentRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	input := AddRepaymentInput{
		LoanID:         id,
		Amount:         shared.ParseAmount(req.Amount),
		Remarks:        req.Remarks,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if paidAt, err := time.Parse("2006-01-02", req.PaidAt); err == nil {
		input.PaidAt = paidAt
	}

	repayment, err := h.service.AddRepayment(r.Context(), actorID(r), input)
	if err != nil {
		h.logger.Error("add loan repayment", slog.Any("error", err), slog.Int64("loan_id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, repayment)
}

// PreviewSchedule computes a schedule without creating anything, for
// display before the loan is issued.
func (h *Handler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	principal := shared.ParseAmount(req.Principal)
	if !principal.IsPositive() {
		httpx.RespondError(w, ErrNonPositivePrincipal)
		return
	}

	httpx.JSON(w, http.StatusOK, ComputeSchedule(principal, shared.ParseAmount(req.RatePct), req.Months))
}
