package command

import (
	"fmt"
	"strconv"
	"strings"

	"filegate/internal/model"
)

// Separator delimits command fields. Content is always the trailing
// field, so a literal "::" inside content survives a SplitN/re-join
// round trip; the JSON envelope is the escape hatch for anything
// stricter.
const Separator = "::"

// Action is one verb of the command grammar.
type Action string

const (
	ActionList          Action = "LIST"
	ActionListRequests  Action = "LIST_REQUESTS"
	ActionCreate        Action = "CREATE"
	ActionRead          Action = "READ"
	ActionEdit          Action = "EDIT"
	ActionDelete        Action = "DELETE"
	ActionLock          Action = "LOCK"
	ActionUnlock        Action = "UNLOCK"
	ActionMakeRequest   Action = "MAKE_REQUEST"
	ActionHandleRequest Action = "HANDLE_REQUEST"
	ActionLogout        Action = "LOGOUT"
)

// Command is one parsed, not yet authorized, client command.
type Command struct {
	Action   Action
	Filename string

	// Content is set for CREATE and EDIT, and optionally for
	// MAKE_REQUEST (nil when the request carries no payload).
	Content *string

	// MAKE_REQUEST fields.
	RequestAction string

	// HANDLE_REQUEST fields.
	RequestID int64
	Approve   bool

	// LIST_REQUESTS optional filter.
	StatusFilter model.RequestStatus
}

// Parse splits a raw command string on the field separator and
// validates the field layout. It performs no authorization and touches
// no component state.
func Parse(raw string) (*Command, error) {
	parts := strings.Split(raw, Separator)

	switch Action(parts[0]) {
	case ActionList, ActionLogout:
		if len(parts) != 1 {
			return nil, fmt.Errorf("%w: %s takes no arguments", ErrBadCommand, parts[0])
		}
		return &Command{Action: Action(parts[0])}, nil

	case ActionListRequests:
		cmd := &Command{Action: ActionListRequests}
		if len(parts) > 2 {
			return nil, fmt.Errorf("%w: LIST_REQUESTS takes at most a status filter", ErrBadCommand)
		}
		if len(parts) == 2 {
			status, ok := model.ParseRequestStatus(parts[1])
			if !ok {
				return nil, fmt.Errorf("%w: unknown request status %q", ErrBadCommand, parts[1])
			}
			cmd.StatusFilter = status
		}
		return cmd, nil

	case ActionRead, ActionDelete, ActionLock, ActionUnlock:
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("%w: %s requires a filename", ErrBadCommand, parts[0])
		}
		return &Command{Action: Action(parts[0]), Filename: parts[1]}, nil

	case ActionCreate, ActionEdit:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: %s requires a filename and content", ErrBadCommand, parts[0])
		}
		name := parts[1]
		if Action(parts[0]) == ActionCreate {
			if err := validateFilename(name); err != nil {
				return nil, err
			}
		} else if name == "" {
			return nil, fmt.Errorf("%w: EDIT requires a filename", ErrBadCommand)
		}
		content := strings.Join(parts[2:], Separator)
		return &Command{Action: Action(parts[0]), Filename: name, Content: &content}, nil

	case ActionMakeRequest:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: MAKE_REQUEST requires an action and a filename", ErrBadCommand)
		}
		cmd := &Command{
			Action:        ActionMakeRequest,
			RequestAction: parts[1],
			Filename:      parts[2],
		}
		if cmd.RequestAction == string(model.RequestCreate) {
			if err := validateFilename(cmd.Filename); err != nil {
				return nil, err
			}
		} else if cmd.Filename == "" {
			return nil, fmt.Errorf("%w: MAKE_REQUEST requires a filename", ErrBadCommand)
		}
		if len(parts) > 3 {
			content := strings.Join(parts[3:], Separator)
			cmd.Content = &content
		}
		return cmd, nil

	case ActionHandleRequest:
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: HANDLE_REQUEST requires an id and a decision", ErrBadCommand)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid request id %q", ErrBadCommand, parts[1])
		}
		var approve bool
		switch strings.ToLower(parts[2]) {
		case "approve":
			approve = true
		case "reject":
			approve = false
		default:
			return nil, fmt.Errorf("%w: decision must be approve or reject, got %q", ErrBadCommand, parts[2])
		}
		return &Command{Action: ActionHandleRequest, RequestID: id, Approve: approve}, nil
	}

	return nil, fmt.Errorf("%w: unknown action %q", ErrBadCommand, parts[0])
}

// validateFilename rejects names that would escape or hide inside the
// store's namespace.
func validateFilename(name string) error {
	if name == "" || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid filename %q", ErrBadCommand, name)
	}
	return nil
}
