package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/cart"
	"github.com/fjod/go_cart/shopcart/internal/catalog"
	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/fjod/go_cart/shopcart/internal/identity"
	"github.com/fjod/go_cart/shopcart/internal/session"
	"github.com/fjod/go_cart/shopcart/internal/storage"
	"github.com/go-chi/chi/v5"
)

// CartManager is satisfied by *cart.Manager.
type CartManager interface {
	New(ctx context.Context, ident identity.Context, prefix string) (*cart.Cart, error)
}

type CartHandler struct {
	carts         CartManager
	products      cart.Resolver
	defaultPrefix string
	timeout       time.Duration
	logger        *log.Logger
}

func NewCartHandler(carts CartManager, products cart.Resolver, defaultPrefix string, timeout time.Duration, logger *log.Logger) *CartHandler {
	if defaultPrefix == "" {
		defaultPrefix = cart.DefaultPrefix
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CartHandler{
		carts:         carts,
		products:      products,
		defaultPrefix: defaultPrefix,
		timeout:       timeout,
		logger:        logger,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ref := domain.ProductRef{Type: req.ProductType, PK: string(req.ProductID)}
	if ref.Type == "" {
		ref.Type = catalog.ProductType
	}
	if ref.PK == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	product, err := h.products.Resolve(ctx, ref)
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}

	opts := []cart.AddOption{cart.WithVariant(req.Variant), cart.WithMetadata(req.Metadata)}
	if req.OverrideQuantity {
		opts = append(opts, cart.OverrideQuantity())
	}
	if _, err := c.Add(ctx, product, quantity, opts...); err != nil {
		h.handleCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartDTO(c))
}

func (h *CartHandler) IncreaseItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	item, err := c.Increase(ctx, chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "item_not_found", "no item with this id in the cart")
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(c))
}

// RemoveItem removes ?quantity= units, or the whole line when quantity is omitted.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	quantity := 0
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be a positive integer")
			return
		}
		quantity = q
	}

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	item, err := c.Remove(ctx, chi.URLParam(r, "itemID"), quantity)
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "item_not_found", "no item with this id in the cart")
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *CartHandler) EmptyCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	keepMetadata, _ := strconv.ParseBool(r.URL.Query().Get("keep_metadata"))

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := c.Empty(ctx, !keepMetadata); err != nil {
		h.handleCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(c))
}

// EmptyAllCarts clears every prefix stored for the visitor.
func (h *CartHandler) EmptyAllCarts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := c.EmptyAll(ctx); err != nil {
		h.handleCartError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := c.UpdateMetadata(ctx, patch); err != nil {
		h.handleCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(c))
}

// ClearMetadata drops the ?key= entries, or all metadata when no key is given.
func (h *CartHandler) ClearMetadata(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, ok := h.loadCart(ctx, w, r)
	if !ok {
		return
	}
	if err := c.ClearMetadata(ctx, r.URL.Query()["key"]...); err != nil {
		h.handleCartError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *CartHandler) loadCart(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	prefix := strings.TrimSpace(r.URL.Query().Get("prefix"))
	if prefix == "" {
		prefix = h.defaultPrefix
	}
	c, err := h.carts.New(ctx, identityFromRequest(r), prefix)
	if err != nil {
		h.handleCartError(w, r, err)
		return nil, false
	}
	return c, true
}

func identityFromRequest(r *http.Request) identity.Identity {
	accountID := getUserIDFromContext(r.Context())
	sess := session.FromContext(r.Context())
	if sess == nil {
		return identity.New(accountID, "", nil)
	}
	return identity.New(accountID, sess.ID(), sess)
}

func (h *CartHandler) handleCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidVariant):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, storage.ErrNoSession):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "a session or an authenticated account is required")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.logger.Printf("request %s: %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
