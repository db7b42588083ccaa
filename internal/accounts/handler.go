package accounts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/burgerverse/internal/web"
)

type Handler struct {
	service      *Service
	tokens       *TokenManager
	renderer     *web.Renderer
	secureCookie bool
	logger       *slog.Logger
}

func NewHandler(service *Service, tokens *TokenManager, renderer *web.Renderer, secureCookie bool, logger *slog.Logger) *Handler {
	return &Handler{
		service:      service,
		tokens:       tokens,
		renderer:     renderer,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signupPage struct {
	Form   SignupInput
	Errors map[string]string
}

type loginPage struct {
	Username string
	Next     string
}

func (h *Handler) HandleSignupForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "signup", web.Page{
		Title: "Sign up",
		User:  PrincipalFromContext(r.Context()),
		Data:  signupPage{},
	})
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, nil, "invalid form")
		return
	}

	in := SignupInput{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password1"),
		PasswordConfirm: r.PostFormValue("password2"),
	}

	user, err := h.service.Signup(r.Context(), in)
	if err != nil {
		form := SignupInput{Username: in.Username, Email: in.Email}
		page := web.Page{Title: "Sign up", Data: signupPage{Form: form}}

		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			page.Data = signupPage{Form: form, Errors: verr.Fields}
			h.renderer.Render(w, http.StatusUnprocessableEntity, "signup", page)
		case errors.Is(err, ErrUserExists):
			page.Error = "A user with that username or email already exists."
			h.renderer.Render(w, http.StatusConflict, "signup", page)
		default:
			h.logger.ErrorContext(r.Context(), "failed to sign up", "error", err)
			h.renderer.RenderError(w, http.StatusInternalServerError, nil, "internal server error")
		}
		return
	}

	h.logger.InfoContext(r.Context(), "user signed up", "user_id", user.ID, "username", user.Username)
	web.Redirect(w, r, "/accounts/login/")
}

func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "login", web.Page{
		Title: "Log in",
		User:  PrincipalFromContext(r.Context()),
		Data:  loginPage{Next: web.SafeNext(r.URL.Query().Get("next"), "")},
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, nil, "invalid form")
		return
	}

	username := r.PostFormValue("username")
	next := web.SafeNext(r.PostFormValue("next"), "/")

	token, principal, err := h.service.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.renderer.Render(w, http.StatusUnauthorized, "login", web.Page{
				Title: "Log in",
				Error: "Please enter a correct username and password.",
				Data:  loginPage{Username: username, Next: web.SafeNext(r.PostFormValue("next"), "")},
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to log in", "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, nil, "internal server error")
		return
	}

	setSession(w, token, h.tokens.TTL(), h.secureCookie)
	h.logger.InfoContext(r.Context(), "user logged in", "user_id", principal.UserID)
	web.Redirect(w, r, next)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearSession(w, h.secureCookie)
	web.Redirect(w, r, "/")
}
