package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/autocabinet/internal/config"
	"github.com/geocoder89/autocabinet/internal/domain/user"
	"github.com/geocoder89/autocabinet/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByLogin(ctx context.Context, login string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Exists(ctx context.Context, login, email string) (loginExists bool, emailExists bool, err error)
}

type UserWriter interface {
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, login, email string) (string, error)
}

// ContactSyncer creates the CRM contact for a freshly registered user.
type ContactSyncer interface {
	SyncContact(ctx context.Context, u user.User) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        TokenIssuer
	contacts   ContactSyncer
	log        *slog.Logger
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwt TokenIssuer, contacts ContactSyncer, log *slog.Logger) *AuthHandler {
	RegisterValidators()

	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwt,
		contacts:   contacts,
		log:        log,
	}
}

type authResponse struct {
	Message     string    `json:"message"`
	User        user.User `json:"user"`
	AccessToken string    `json:"accessToken"`
	ContactID   string    `json:"crmContactId,omitempty"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	loginExists, emailExists, err := h.users.Exists(cctx, req.Login, req.Email)
	if err != nil {
		h.log.ErrorContext(cctx, "user_exists_check_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}
	if loginExists {
		RespondConflict(ctx, "login_taken", "Login is already in use.")
		return
	}
	if emailExists {
		RespondConflict(ctx, "email_taken", "Email is already in use.")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.ErrorContext(cctx, "password_hash_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, user.CreateParams{
		Login:        req.Login,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
	})

	if err != nil {
		if respondUniqueViolation(ctx, err) {
			return
		}

		h.log.ErrorContext(cctx, "user_create_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	// the account exists now; a CRM outage must not undo that
	var contactID string
	if h.contacts != nil {
		contactID, err = h.contacts.SyncContact(ctx.Request.Context(), u)
		if err != nil {
			h.log.WarnContext(ctx.Request.Context(), "contact_sync_failed",
				"user_id", u.ID,
				"err", err,
			)
		}
	}

	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Login, u.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user_registered", "user_id", u.ID)

	ctx.JSON(http.StatusCreated, authResponse{
		Message:     "Пользователь успешно зарегистрирован",
		User:        u,
		AccessToken: accessToken,
		ContactID:   contactID,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.lookup(cctx, strings.TrimSpace(req.Login))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.ErrorContext(cctx, "user_lookup_failed", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}
		security.CheckPasswordMissingUser(req.Password)
		RespondUnAuthorized(ctx, "invalid_credentials", "Login or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Login or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Login, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, authResponse{
		Message:     "Успешная авторизация",
		User:        foundUser,
		AccessToken: accessToken,
	})
}

// lookup resolves the identifier as a login first, then as an email.
func (h *AuthHandler) lookup(ctx context.Context, ident string) (user.User, error) {
	u, err := h.users.GetByLogin(ctx, ident)
	if err == nil || !errors.Is(err, user.ErrNotFound) {
		return u, err
	}

	if !strings.Contains(ident, "@") {
		return user.User{}, user.ErrNotFound
	}

	return h.users.GetByEmail(ctx, strings.ToLower(ident))
}

func respondUniqueViolation(ctx *gin.Context, err error) bool {
	switch {
	case errors.Is(err, user.ErrLoginTaken):
		RespondConflict(ctx, "login_taken", "Login is already in use.")
		return true
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
		return true
	}
	return false
}
