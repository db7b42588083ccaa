package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

var (
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

// ValidationError maps lower-cased field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid signup: %d field(s)", len(e.Fields))
}

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type SignupInput struct {
	Username        string `validate:"required,min=3,max=150"`
	Email           string `validate:"required,email,max=254"`
	Password        string `validate:"required,min=8,maxbytes=72"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type Service struct {
	users      UserStore
	tokens     *TokenManager
	validate   *validator.Validate
	bcryptCost int
}

func NewService(users UserStore, tokens *TokenManager, bcryptCost int) *Service {
	validate := validator.New()
	// fails only for an empty tag name
	_ = validate.RegisterValidation("maxbytes", maxBytes)

	return &Service{
		users:      users,
		tokens:     tokens,
		validate:   validate,
		bcryptCost: bcryptCost,
	}
}

// maxBytes limits the encoded length of a string. bcrypt refuses inputs
// longer than 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, &ValidationError{Fields: formatValidationError(verrs)}
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login checks the credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *domain.Principal, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	principal := &domain.Principal{UserID: user.ID, Username: user.Username, Email: user.Email}
	token, err := s.tokens.Issue(*principal)
	if err != nil {
		return "", nil, err
	}

	return token, principal, nil
}

func formatValidationError(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "maxbytes":
			fields[field] = fmt.Sprintf("%s must be at most %s bytes long", field, fe.Param())
		case "email":
			fields[field] = "enter a valid email address"
		case "eqfield":
			fields[field] = "the two password fields didn't match"
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return fields
}
