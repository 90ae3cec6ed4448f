package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the cart API under /api/v1. sessions loads the visitor
// session and runs inside the account middleware.
func NewRouter(h *CartHandler, sessions func(http.Handler) http.Handler, timeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AccountMiddleware)
		if sessions != nil {
			r.Use(sessions)
		}

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.EmptyCart)
			r.Post("/items", h.AddItem)
			r.Post("/items/{itemID}/increase", h.IncreaseItem)
			r.Delete("/items/{itemID}", h.RemoveItem)
			r.Patch("/metadata", h.UpdateMetadata)
			r.Delete("/metadata", h.ClearMetadata)
		})
		r.Delete("/carts", h.EmptyAllCarts)
	})

	return r
}
