package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"filegate/internal/auth"
	"filegate/internal/command"
	"filegate/internal/model"
)

// CommandHandler handles POST /command: one logical operation per
// request, dispatched through the command engine. The role in the body
// is trusted as bound by the transport layer; the engine never
// re-derives it from credentials.
type CommandHandler struct {
	engine *command.Engine
	auth   *auth.Service
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(engine *command.Engine, svc *auth.Service) *CommandHandler {
	return &CommandHandler{engine: engine, auth: svc}
}

// Execute parses the command envelope and dispatches it.
func (h *CommandHandler) Execute(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var payload struct {
		Command  string `json:"command"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return failResponse(http.StatusBadRequest, "invalid request body"), nil
	}
	if payload.Command == "" {
		return failResponse(http.StatusBadRequest, "no command provided"), nil
	}
	if payload.Username == "" {
		return failResponse(http.StatusBadRequest, "no username provided"), nil
	}
	role, ok := model.ParseRole(payload.Role)
	if !ok {
		return failResponse(http.StatusBadRequest, fmt.Sprintf("unknown role %q", payload.Role)), nil
	}

	result := h.engine.Dispatch(ctx, payload.Command, payload.Username, role)

	// LOGOUT also invalidates the session token when one accompanies
	// the request; the engine only sweeps locks.
	if result.Status == command.StatusSuccess && isLogout(payload.Command) {
		if token := ExtractToken(req); token != "" {
			if err := h.auth.Revoke(ctx, token); err != nil {
				fmt.Printf("Revoke on logout failed: %v\n", err)
			}
		}
	}

	return jsonResponse(http.StatusOK, result), nil
}

func isLogout(raw string) bool {
	return raw == string(command.ActionLogout)
}
