package catalog

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/burgerverse/internal/accounts"
	"github.com/joao-fontenele/burgerverse/internal/domain"
	"github.com/joao-fontenele/burgerverse/internal/web"
)

type Handler struct {
	service  *Service
	renderer *web.Renderer
	logger   *slog.Logger
}

func NewHandler(service *Service, renderer *web.Renderer, logger *slog.Logger) *Handler {
	return &Handler{service: service, renderer: renderer, logger: logger}
}

type menuPage struct {
	Sections []domain.MenuSection
}

func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	user := accounts.PrincipalFromContext(r.Context())

	sections, err := h.service.Menu(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load menu", "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, user, "internal server error")
		return
	}

	h.renderer.Render(w, http.StatusOK, "menu", web.Page{Title: "Menu", User: user, Data: menuPage{Sections: sections}})
}
