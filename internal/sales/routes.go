package sales

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/dues-report", h.DuesReport)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/payments", h.AddPayment)
	r.Post("/{id}/returns", h.AddReturn)
}
