package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/auth"
	"habilitaciones/internal/http/middleware"
)

type signInResponse struct {
	Token    string        `json:"token"`
	Identity auth.Identity `json:"identity"`
}

// StartSignIn redirects the browser to the identity provider.
//
// @Summary  Start sign-in
// @Tags     auth
// @Success  302
// @Failure  503 {object} errorPayload
// @Router   /auth/google/start [get]
func StartSignIn(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := gate.StartSignIn()
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Redirect(target, fiber.StatusFound)
	}
}

// SignInCallback completes the provider round trip. With a UI redirect
// configured the token is handed over as ?token=, otherwise it is returned
// as JSON.
//
// @Summary  Sign-in callback
// @Tags     auth
// @Produce  json
// @Param    state query string true "state from the start step"
// @Param    code  query string true "authorization code"
// @Success  200 {object} signInResponse
// @Success  302
// @Failure  400 {object} errorPayload
// @Failure  401 {object} errorPayload
// @Router   /auth/google/callback [get]
func SignInCallback(gate *auth.Gate, uiRedirect string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("error") != "" {
			return writeError(c, fiber.StatusUnauthorized, "SIGN_IN_DENIED", "sign-in was cancelled")
		}
		code := c.Query("code")
		if code == "" {
			return writeError(c, fiber.StatusBadRequest, "CODE_REQUIRED", "authorization code is required")
		}

		token, id, err := gate.CompleteSignIn(c.UserContext(), c.Query("state"), code)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidState) || errors.Is(err, auth.ErrNotConfigured) {
				return writeDomainError(c, err)
			}
			return writeError(c, fiber.StatusUnauthorized, "SIGN_IN_FAILED", "sign-in failed")
		}

		if uiRedirect != "" {
			target, err := auth.AppendToken(uiRedirect, token)
			if err != nil {
				return writeDomainError(c, err)
			}
			return c.Redirect(target, fiber.StatusFound)
		}
		return c.JSON(signInResponse{Token: token, Identity: id})
	}
}

// SignOut revokes the caller's session token.
//
// @Summary  Sign out
// @Tags     auth
// @Success  204
// @Failure  401 {object} errorPayload
// @Security BearerAuth
// @Router   /auth/signout [post]
func SignOut(gate *auth.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := gate.SignOut(middleware.BearerToken(c)); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Me returns the signed-in administrator.
//
// @Summary  Current identity
// @Tags     auth
// @Produce  json
// @Success  200 {object} auth.Identity
// @Security BearerAuth
// @Router   /auth/me [get]
func Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := middleware.ClaimsFromCtx(c)
		if !ok {
			return writeDomainError(c, auth.ErrInvalidToken)
		}
		return c.JSON(claims.Identity())
	}
}
