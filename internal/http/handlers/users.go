package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/autocabinet/internal/config"
	"github.com/geocoder89/autocabinet/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type UserProfileStore interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, p user.UpdateParams) (user.User, error)
}

type UsersHandler struct {
	users UserProfileStore
	log   *slog.Logger
}

func NewUsersHandler(users UserProfileStore, log *slog.Logger) *UsersHandler {
	RegisterValidators()

	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{users: users, log: log}
}

// Fields a profile update may never carry.
var immutableUserFields = []string{"id", "createdAt", "created_at", "password", "passwordHash", "password_hash"}

func parseUserID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "User id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(cctx, "user_get_failed", "user_id", id, "err", err)
		RespondInternal(ctx, "Could not load user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := ctx.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err, &raw))
		return
	}

	var rejected []FieldError
	for _, f := range immutableUserFields {
		if _, present := raw[f]; present {
			rejected = append(rejected, FieldError{Field: f, Rule: "immutable", Message: "cannot be changed"})
		}
	}
	if len(rejected) > 0 {
		RespondError(ctx, http.StatusBadRequest, "immutable_field", "Request contains fields that cannot be changed", gin.H{"fields": rejected})
		return
	}

	var params user.UpdateParams
	if !BindJSON(ctx, &params) {
		return
	}

	if params.Login != nil {
		v := strings.TrimSpace(*params.Login)
		if v == "" {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{Field: "login", Rule: "required", Message: validationMessage("required", "")}}})
			return
		}
		params.Login = &v
	}
	if params.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*params.Email))
		params.Email = &v
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.Update(cctx, id, params)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		if respondUniqueViolation(ctx, err) {
			return
		}
		h.log.ErrorContext(cctx, "user_update_failed", "user_id", id, "err", err)
		RespondInternal(ctx, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Данные пользователя обновлены",
		"user":    u,
	})
}
