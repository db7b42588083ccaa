package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joao-fontenele/burgerverse/internal/accounts"
	"github.com/joao-fontenele/burgerverse/internal/domain"
	"github.com/joao-fontenele/burgerverse/internal/web"
)

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	service   *Service
	renderer  *web.Renderer
	publisher EventPublisher
	logger    *slog.Logger
}

// NewHandler builds the cart pages. publisher may be nil, in which case no
// checkout events are emitted.
func NewHandler(service *Service, renderer *web.Renderer, publisher EventPublisher, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
	}
}

type cartPage struct {
	Cart *domain.Order
}

type successPage struct {
	Order *domain.Order
}

func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	user := accounts.PrincipalFromContext(r.Context())
	if user == nil {
		web.Redirect(w, r, "/accounts/login/")
		return
	}

	cart, err := h.service.ActiveCart(r.Context(), user.UserID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load cart", "error", err, "user_id", user.UserID)
		h.renderer.RenderError(w, http.StatusInternalServerError, user, "internal server error")
		return
	}

	h.renderer.Render(w, http.StatusOK, "cart", web.Page{Title: "Cart", User: user, Data: cartPage{Cart: cart}})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user := accounts.PrincipalFromContext(r.Context())
	if user == nil {
		web.Redirect(w, r, "/accounts/login/")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		h.renderer.RenderError(w, http.StatusNotFound, user, "product not found")
		return
	}

	quantity := 1
	if raw := r.PostFormValue("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			h.renderer.RenderError(w, http.StatusBadRequest, user, "invalid quantity")
			return
		}
	}

	cart, err := h.service.AddToActiveCart(r.Context(), user.UserID, productID, quantity)
	if err != nil {
		h.handleError(w, r, user, err, "failed to add product")
		return
	}

	h.logger.InfoContext(r.Context(), "product added to cart",
		"order_id", cart.ID, "product_id", productID, "quantity", quantity, "total", cart.TotalPrice.StringFixed(2))
	web.Redirect(w, r, "/")
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user := accounts.PrincipalFromContext(r.Context())
	if user == nil {
		web.Redirect(w, r, "/accounts/login/")
		return
	}

	next := web.SafeNext(r.PostFormValue("next"), "/")

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		h.renderer.RenderError(w, http.StatusNotFound, user, "product not found")
		return
	}

	cart, err := h.service.RemoveFromActiveCart(r.Context(), user.UserID, productID)
	if err != nil {
		if errors.Is(err, ErrNoActiveCart) {
			web.Redirect(w, r, next)
			return
		}
		h.handleError(w, r, user, err, "failed to remove product")
		return
	}

	h.logger.InfoContext(r.Context(), "product removed from cart",
		"order_id", cart.ID, "product_id", productID, "total", cart.TotalPrice.StringFixed(2))
	web.Redirect(w, r, next)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	user := accounts.PrincipalFromContext(r.Context())
	if user == nil {
		web.Redirect(w, r, "/accounts/login/")
		return
	}

	order, err := h.service.CheckoutActiveCart(r.Context(), user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveCart):
			web.Redirect(w, r, "/")
		case errors.Is(err, ErrEmptyCart):
			cart, loadErr := h.service.ActiveCart(r.Context(), user.UserID)
			if loadErr != nil {
				h.logger.ErrorContext(r.Context(), "failed to load cart", "error", loadErr, "user_id", user.UserID)
			}
			h.renderer.Render(w, http.StatusUnprocessableEntity, "cart", web.Page{
				Title: "Cart",
				User:  user,
				Error: "Your cart is empty.",
				Data:  cartPage{Cart: cart},
			})
		default:
			h.handleError(w, r, user, err, "failed to checkout")
		}
		return
	}

	if h.publisher != nil {
		event := domain.NewOrderCheckedOutEvent(order, *user, time.Now().UTC())
		if err := h.publisher.Publish(r.Context(), order.ID.String(), event); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to publish order checked out event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.InfoContext(r.Context(), "order checked out",
		"order_id", order.ID, "user_id", user.UserID, "total", order.TotalPrice.StringFixed(2))
	web.Redirect(w, r, "/orders/success/"+order.ID.String()+"/")
}

func (h *Handler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	user := accounts.PrincipalFromContext(r.Context())
	if user == nil {
		web.Redirect(w, r, "/accounts/login/")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		h.renderer.RenderError(w, http.StatusNotFound, user, "order not found")
		return
	}

	order, err := h.service.OrderForUser(r.Context(), user.UserID, orderID)
	if err != nil {
		h.handleError(w, r, user, err, "failed to load order")
		return
	}

	h.renderer.Render(w, http.StatusOK, "success", web.Page{Title: "Order placed", User: user, Data: successPage{Order: order}})
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, user *domain.Principal, err error, msg string) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		h.renderer.RenderError(w, http.StatusNotFound, user, "product not found")
	case errors.Is(err, ErrOrderNotFound):
		h.renderer.RenderError(w, http.StatusNotFound, user, "order not found")
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrTotalTooLarge):
		h.renderer.RenderError(w, http.StatusBadRequest, user, err.Error())
	case errors.Is(err, ErrOrderNotPending):
		h.renderer.RenderError(w, http.StatusConflict, user, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), msg, "error", err, "user_id", user.UserID)
		h.renderer.RenderError(w, http.StatusInternalServerError, user, "internal server error")
	}
}
