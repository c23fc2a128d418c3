package loans

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/schedule", h.PreviewSchedule)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/repayments", h.AddRepayment)
}
