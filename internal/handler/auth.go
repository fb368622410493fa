package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/repository"
	"github.com/dentraining/portfolio-api/internal/utils"
)

// AuthHandler covers login, token refresh and logout. There is no open
// registration: every account is provisioned by an administrator.
type AuthHandler struct {
	Cfg    config.Config
	Log    *zap.Logger
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, log *zap.Logger, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Log: log, Users: u, Tokens: t}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login verifies credentials and returns a token pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil || !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return writeErr(c, h.Log, err)
	}

	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: string(u.Role)},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh rotates the refresh token and issues a new access token. The role
// claim is re-read from storage so a role change is picked up on rotation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqContext(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return writeErr(c, h.Log, err)
	}

	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: string(u.Role)},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Logout revokes one session by refresh token, or, on the authenticated
// route, every session of the current user when no token is supplied.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqContext(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return writeErr(c, h.Log, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	uid, _ := c.Get("user_id").(uint64)
	if uid == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile, read fresh from storage.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"area_id":      u.AreaID,
		"scheme_id":    u.SchemeID,
	})
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=10"`
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every refresh token so other sessions must log in again.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return writeErr(c, h.Log, err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, u.ID)
	return c.NoContent(http.StatusNoContent)
}
