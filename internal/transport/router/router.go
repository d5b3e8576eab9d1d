package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/DivEden/DGB/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/batches", h.CompressBatch)
		r.Get("/batches/{id}", h.BatchStatus)
		r.Get("/downloads/{token}", h.DownloadBatch)

		r.Post("/normalize", h.Normalize)
		r.Post("/normalize/excel", h.NormalizeExcel)

		r.Post("/tickets", h.CreateTicket)
		r.Get("/tickets", h.ListTickets)
	})

	return r
}
