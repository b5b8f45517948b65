package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskboard-backend/internal/auth"
	"taskboard-backend/internal/model"
)

// AuthHandler exchanges a Google ID token for our own tokens.
type AuthHandler struct {
	db         *gorm.DB
	jwtManager *auth.JWTManager
	googleAuth *auth.GoogleAuthenticator
	expiresIn  time.Duration
}

func NewAuthHandler(db *gorm.DB, jwtManager *auth.JWTManager, googleAuth *auth.GoogleAuthenticator, expiresIn time.Duration) *AuthHandler {
	return &AuthHandler{
		db:         db,
		jwtManager: jwtManager,
		googleAuth: googleAuth,
		expiresIn:  expiresIn,
	}
}

// GoogleLoginRequest login request body.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse login/refresh response body.
type AuthResponse struct {
	User         model.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresIn    int64      `json:"expiresIn"`
}

// GoogleLogin verifies a Google ID token, upserts the user record and issues
// access and refresh tokens.
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var req GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.IDToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "idToken is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	googleUser, err := h.googleAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid google token",
		})
	}

	provider := "google"
	var user model.User
	result := h.db.First(&user, "uid = ?", googleUser.ID)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		user = model.User{
			UID:       googleUser.ID,
			Email:     googleUser.Email,
			Name:      googleUser.Name,
			AvatarURL: &googleUser.Picture,
			Provider:  &provider,
		}
		if err := h.db.Create(&user).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create user",
			})
		}
	} else if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "database error",
		})
	} else {
		user.Name = googleUser.Name
		user.AvatarURL = &googleUser.Picture
		h.db.Save(&user)
	}

	return h.respondWithTokens(c, user, true)
}

// RefreshRequest refresh request body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken issues a new access token from a valid refresh token.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "refreshToken is required",
		})
	}

	uid, err := h.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid refresh token",
		})
	}

	var user model.User
	if err := h.db.First(&user, "uid = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unknown user",
		})
	}

	return h.respondWithTokens(c, user, false)
}

// GetMe returns the authenticated user's profile.
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	uid, _ := c.Locals("uid").(string)

	var user model.User
	if err := h.db.First(&user, "uid = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	return c.JSON(user)
}

func (h *AuthHandler) respondWithTokens(c *fiber.Ctx, user model.User, withRefresh bool) error {
	avatar := ""
	if user.AvatarURL != nil {
		avatar = *user.AvatarURL
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(user.UID, user.Email, user.Name, avatar)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	resp := AuthResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(h.expiresIn.Seconds()),
	}

	if withRefresh {
		refreshToken, err := h.jwtManager.GenerateRefreshToken(user.UID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to generate token",
			})
		}
		resp.RefreshToken = refreshToken
	}

	return c.JSON(resp)
}
