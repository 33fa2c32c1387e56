// internal/app/features/auth/handler.go
package auth

import (
	"context"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	resetstore "taskhub/internal/app/store/resets"
	userstore "taskhub/internal/app/store/users"
	sysauth "taskhub/internal/app/system/auth"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/app/system/mailer"
	"taskhub/internal/app/system/ratelimit"
	"taskhub/internal/app/system/timeouts"
	"taskhub/internal/app/system/validate"
	"taskhub/internal/domain/models"
)

// Handler serves registration, login, and password recovery.
type Handler struct {
	Users    *userstore.Store
	Resets   *resetstore.Store
	Tokens   *sysauth.Manager
	Mailer   *mailer.Mailer
	Limits   *ratelimit.AttemptLimiter
	SiteName string
	BaseURL  string
	DevMode  bool
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, resets *resetstore.Store, tokens *sysauth.Manager, mail *mailer.Mailer, siteName, baseURL string, devMode bool, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Resets:   resets,
		Tokens:   tokens,
		Mailer:   mail,
		Limits:   ratelimit.NewAttemptLimiter(),
		SiteName: siteName,
		BaseURL:  baseURL,
		DevMode:  devMode,
		Log:      logger,
	}
}

// HandleRegister handles POST /register. New accounts always start as plain
// users; role changes go through the admin user endpoints.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.Create(ctx, models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			httpapi.Conflict(w, "an account with this email already exists")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	token, expires, err := h.Tokens.Issue(&user)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", user.ID.Hex()))
	httpapi.Created(w, tokenResponse{Token: token, ExpiresAt: expires, User: user})
}

// HandleLogin handles POST /login. Soft-deleted accounts cannot sign in. The
// same message covers unknown emails and bad passwords.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}
	if !h.Limits.Check(r, req.Email) {
		httpapi.TooManyRequests(w, "too many attempts, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.Unauthorized(w, "invalid email or password")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if user.IsDeleted {
		httpapi.Unauthorized(w, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httpapi.Unauthorized(w, "invalid email or password")
		return
	}

	token, expires, err := h.Tokens.Issue(user)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Limits.Success(req.Email)
	h.Log.Info("user logged in", zap.String("user_id", user.ID.Hex()))
	httpapi.OK(w, tokenResponse{Token: token, ExpiresAt: expires, User: *user})
}

// HandleMe handles GET /me for the signed-in user.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	tu, ok := sysauth.CurrentUser(r)
	if !ok {
		httpapi.Unauthorized(w, "sign in required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetActiveByID(ctx, tu.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Token outlived the account.
			httpapi.Unauthorized(w, "account no longer active")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, user)
}

// HandleVerify handles GET /verify. Clients call it on startup to check
// whether a stored token is still good.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	tu, ok := sysauth.CurrentUser(r)
	if !ok {
		httpapi.Unauthorized(w, "invalid or expired token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetActiveByID(ctx, tu.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.Unauthorized(w, "account no longer active")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, verifyResponse{Valid: true, User: *user})
}

// HandleChangePassword handles POST /password for the signed-in user.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	tu, ok := sysauth.CurrentUser(r)
	if !ok {
		httpapi.Unauthorized(w, "sign in required")
		return
	}

	var req changePasswordRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.GetActiveByID(ctx, tu.ID)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		httpapi.Unauthorized(w, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := h.Users.SetPasswordHash(ctx, user.ID, string(hash)); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("password changed", zap.String("user_id", user.ID.Hex()))
	httpapi.NoContent(w)
}

// HandleForgotPassword handles POST /forgot-password. The response is the
// same whether or not the email exists so the endpoint cannot be used to
// probe for accounts.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}
	if !h.Limits.Check(r, req.Email) {
		httpapi.TooManyRequests(w, "too many attempts, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	accepted := forgotResponse{Message: "if the account exists, a reset email has been sent"}

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil || user.IsDeleted {
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			h.Log.Error("forgot-password lookup failed", zap.Error(err))
		}
		httpapi.OK(w, accepted)
		return
	}

	token, err := h.Resets.Issue(ctx, user.ID)
	if err != nil {
		h.Log.Error("reset token issue failed", zap.Error(err))
		httpapi.OK(w, accepted)
		return
	}
	if h.DevMode {
		accepted.ResetToken = token
	}

	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetEmailData{
		SiteName:  h.SiteName,
		Token:     token,
		ResetLink: h.BaseURL + "/reset-password?token=" + token,
		ExpiresIn: "1 hour",
	})
	msg.To = user.Email
	if err := h.Mailer.Send(msg); err != nil {
		h.Log.Error("reset email send failed", zap.Error(err))
	}

	httpapi.OK(w, accepted)
}

// HandleResetPassword handles POST /complete-reset with a token from the
// reset email.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	userID, err := h.Resets.Consume(ctx, req.Token)
	if err != nil {
		if errors.Is(err, resetstore.ErrInvalidToken) {
			httpapi.BadRequest(w, err.Error())
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := h.Users.SetPasswordHash(ctx, userID, string(hash)); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("password reset", zap.String("user_id", userID.Hex()))
	httpapi.NoContent(w)
}
