package command

import (
	"filegate/internal/model"
)

// Result statuses at the protocol layer. Every committed operation,
// including a rejected request resolution, reports success; every
// error kind reports fail with a message.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Result is the uniform outcome of one dispatched command, rendered
// directly into the /command JSON envelope.
type Result struct {
	Status      string                `json:"status"`
	Message     string                `json:"message,omitempty"`
	Files       []string              `json:"files,omitempty"`
	Content     *string               `json:"content,omitempty"`
	Version     *int64                `json:"version,omitempty"`
	Requests    []model.ChangeRequest `json:"requests,omitempty"`
	LockedFiles map[string]string     `json:"locked_files,omitempty"`
	Readers     map[string]int        `json:"readers,omitempty"`
}

func success(message string) Result {
	return Result{Status: StatusSuccess, Message: message}
}

func failure(err error) Result {
	return Result{Status: StatusFail, Message: err.Error()}
}
