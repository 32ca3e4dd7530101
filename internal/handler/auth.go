package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"filegate/internal/auth"
)

// AuthHandler handles credential verification requests.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Login handles POST /auth: verifies username/password (plus TOTP for
// enrolled users) and returns the resolved role with a session token.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
		OTP      string `json:"otp"`
	}
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return failResponse(http.StatusBadRequest, "invalid request body"), nil
	}
	if payload.Username == "" || payload.Password == "" {
		return failResponse(http.StatusBadRequest, "username and password are required"), nil
	}

	session, err := h.auth.Authenticate(ctx, payload.Username, payload.Password, payload.OTP)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return failResponse(http.StatusUnauthorized, "invalid credentials"), nil
		}
		fmt.Printf("Authenticate error: %v\n", err)
		return failResponse(http.StatusInternalServerError, "authentication failed"), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{
		"status": "success",
		"role":   string(session.Role),
		"token":  session.Token,
	}), nil
}

// Logout handles POST /auth/logout: revokes the presented session token.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token := ExtractToken(req)
	if token == "" {
		return failResponse(http.StatusUnauthorized, "no session token"), nil
	}
	if err := h.auth.Revoke(ctx, token); err != nil {
		return failResponse(http.StatusUnauthorized, "invalid session token"), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "logged out",
	}), nil
}
