package model

import "time"

// Role is the closed set of permission levels a session can carry.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps the wire representation to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// User represents an account stored in the users table.
type User struct {
	Username     string `json:"username" dynamodbav:"username"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	Role         Role   `json:"role" dynamodbav:"role"`
	// TOTPSecret is the encrypted TOTP seed; empty when the user has
	// not enrolled a second factor.
	TOTPSecret string    `json:"-" dynamodbav:"totp_secret"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Session is an authenticated session bound to (username, role).
// The role is immutable for the session lifetime; re-authentication
// is required to change it.
type Session struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Token     string    `json:"token" dynamodbav:"-"`
	Username  string    `json:"username" dynamodbav:"username"`
	Role      Role      `json:"role" dynamodbav:"role"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at,unixtime"`
}

// FileLock is an exclusive write claim on one file by one user.
type FileLock struct {
	Filename   string    `json:"filename"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// RequestAction is the mutation a change request asks for.
type RequestAction string

const (
	RequestCreate RequestAction = "CREATE"
	RequestEdit   RequestAction = "EDIT"
	RequestDelete RequestAction = "DELETE"
)

// ParseRequestAction maps the wire representation to a RequestAction.
func ParseRequestAction(s string) (RequestAction, bool) {
	switch RequestAction(s) {
	case RequestCreate, RequestEdit, RequestDelete:
		return RequestAction(s), true
	}
	return "", false
}

// NeedsContent reports whether the action carries a content payload.
func (a RequestAction) NeedsContent() bool {
	return a == RequestCreate || a == RequestEdit
}

// RequestStatus is the lifecycle state of a change request. A request
// transitions pending -> approved|rejected exactly once.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus maps the wire representation to a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return RequestStatus(s), true
	}
	return "", false
}

// ChangeRequest is a deferred mutation submitted by a non-privileged
// user, requiring admin approval before execution. Resolved requests
// are retained for listing.
type ChangeRequest struct {
	ID        int64         `json:"id" dynamodbav:"id"`
	Requester string        `json:"username" dynamodbav:"requester"`
	Action    RequestAction `json:"action" dynamodbav:"action"`
	Filename  string        `json:"filename" dynamodbav:"filename"`
	Content   *string       `json:"content,omitempty" dynamodbav:"content"`
	Status    RequestStatus `json:"status" dynamodbav:"status"`
	CreatedAt time.Time     `json:"created_at" dynamodbav:"created_at"`
}
