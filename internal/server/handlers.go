package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vitachat-poc-v1/server/internal/agent/chat"
	"github.com/vitachat-poc-v1/server/internal/agent/model"
	"github.com/vitachat-poc-v1/server/internal/cart"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
)

type handlers struct {
	chat    *chat.Service
	catalog Catalog
	carts   *cart.Store
}

type startSessionRequest struct {
	PersonaID string `json:"persona_id"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type deliveryRequest struct {
	Method cart.DeliveryMethod `json:"method"`
}

// MessageResponse is what the chat UI renders after each answered message.
type MessageResponse struct {
	SessionID       string          `json:"session_id"`
	Reply           string          `json:"reply"`
	Messages        []model.Message `json:"messages"`
	Typing          bool            `json:"typing"`
	ShowProductCard bool            `json:"show_product_card"`
	ProductID       string          `json:"product_id,omitempty"`
	Product         *model.Product  `json:"product,omitempty"`
	Stage           model.Stage     `json:"stage"`
	QuickReplies    []string        `json:"quick_replies"`
	AddedToCart     bool            `json:"added_to_cart"`
}

type CartResponse struct {
	Cart   *cart.Cart  `json:"cart"`
	Totals cart.Totals `json:"totals"`
}

func (h *handlers) listPersonas(w http.ResponseWriter, _ *http.Request) {
	okJSON(w, map[string]any{"personas": h.catalog.Personas()})
}

func (h *handlers) listProducts(w http.ResponseWriter, _ *http.Request) {
	okJSON(w, map[string]any{"products": h.catalog.Products()})
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.chat.Start(r.Context(), req.PersonaID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.chat.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	okJSON(w, v)
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) switchPersona(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.chat.SwitchPersona(r.Context(), chi.URLParam(r, "id"), req.PersonaID)
	if err != nil {
		writeError(w, err)
		return
	}
	okJSON(w, v)
}

func (h *handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.chat.Send(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := MessageResponse{
		SessionID:       res.View.SessionID,
		Reply:           res.Reply.Text,
		Messages:        res.View.State.Messages,
		Typing:          res.View.Typing,
		ShowProductCard: res.Reply.ShowCard,
		ProductID:       res.Reply.ProductID,
		Product:         res.Product,
		Stage:           res.View.State.Stage,
		QuickReplies:    res.View.QuickReplies,
		AddedToCart:     res.AddedToCart,
	}
	if resp.QuickReplies == nil {
		resp.QuickReplies = []string{}
	}
	okJSON(w, resp)
}

func (h *handlers) quickReplies(w http.ResponseWriter, r *http.Request) {
	v, err := h.chat.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	replies := v.QuickReplies
	if replies == nil {
		replies = []string{}
	}
	okJSON(w, map[string]any{"quick_replies": replies})
}

func (h *handlers) getCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.chat.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	c := h.carts.Get(id)
	okJSON(w, CartResponse{Cart: c, Totals: c.Totals()})
}

func (h *handlers) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, ok := h.catalog.Product(req.ProductID)
	if !ok {
		writeError(w, errx.ErrUnknownProduct)
		return
	}
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	h.updateCart(w, r, func(c *cart.Cart) error {
		c.Add(*p)
		if qty > 1 {
			return c.SetQuantity(p.ID, c.Quantity(p.ID)+qty-1)
		}
		return nil
	})
}

func (h *handlers) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	productID := chi.URLParam(r, "productID")
	h.updateCart(w, r, func(c *cart.Cart) error {
		return c.SetQuantity(productID, req.Quantity)
	})
}

func (h *handlers) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	h.updateCart(w, r, func(c *cart.Cart) error {
		return c.Remove(productID)
	})
}

func (h *handlers) setDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.updateCart(w, r, func(c *cart.Cart) error {
		return c.SetDelivery(req.Method)
	})
}

// updateCart checks the session exists, applies fn and writes the new cart.
func (h *handlers) updateCart(w http.ResponseWriter, r *http.Request, fn func(*cart.Cart) error) {
	id := chi.URLParam(r, "id")
	if _, err := h.chat.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.carts.Update(id, fn)
	if err != nil {
		writeError(w, cartError(err))
		return
	}
	okJSON(w, CartResponse{Cart: c, Totals: c.Totals()})
}

func cartError(err error) error {
	switch {
	case errors.Is(err, cart.ErrNotInCart):
		return errx.New(err, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrUnknownDelivery):
		return errx.New(err, http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
