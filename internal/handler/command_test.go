package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"filegate/internal/broker"
	"filegate/internal/command"
	"filegate/internal/lock"
	"filegate/internal/store/memory"
)

func newTestCommandHandler(t *testing.T) *CommandHandler {
	t.Helper()
	svc := newTestAuthService(t)
	engine := command.NewEngine(memory.NewStore(nil), lock.NewManager(), broker.NewBroker(nil))
	return NewCommandHandler(engine, svc)
}

func execute(t *testing.T, h *CommandHandler, body string) (int, command.Result) {
	t.Helper()
	res, err := h.Execute(context.Background(), postJSON(body))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var result command.Result
	if err := json.Unmarshal([]byte(res.Body), &result); err != nil {
		t.Fatalf("Response not a result envelope: %v (%s)", err, res.Body)
	}
	return res.StatusCode, result
}

func TestExecute_CreateAndRead(t *testing.T) {
	h := newTestCommandHandler(t)

	code, result := execute(t, h, `{"command":"CREATE::a.txt::hello","username":"admin","role":"admin"}`)
	if code != http.StatusOK || result.Status != command.StatusSuccess {
		t.Fatalf("Create failed: %d %+v", code, result)
	}

	code, result = execute(t, h, `{"command":"READ::a.txt","username":"alice","role":"user"}`)
	if code != http.StatusOK || result.Status != command.StatusSuccess {
		t.Fatalf("Read failed: %d %+v", code, result)
	}
	if result.Content == nil || *result.Content != "hello" {
		t.Errorf("Unexpected content: %v", result.Content)
	}
}

func TestExecute_DomainErrorsAreHTTP200Fails(t *testing.T) {
	h := newTestCommandHandler(t)

	// Domain failures ride the envelope, not the HTTP status.
	code, result := execute(t, h, `{"command":"READ::ghost.txt","username":"alice","role":"user"}`)
	if code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}
	if result.Status != command.StatusFail {
		t.Errorf("Expected fail envelope, got %+v", result)
	}

	code, result = execute(t, h, `{"command":"CREATE::a.txt::x","username":"alice","role":"user"}`)
	if code != http.StatusOK || result.Status != command.StatusFail {
		t.Errorf("Expected 200 fail for forbidden, got %d %+v", code, result)
	}
}

func TestExecute_BadEnvelope(t *testing.T) {
	h := newTestCommandHandler(t)

	cases := []string{
		`not json`,
		`{"username":"admin","role":"admin"}`,
		`{"command":"LIST","role":"admin"}`,
		`{"command":"LIST","username":"admin","role":"superuser"}`,
	}
	for _, body := range cases {
		res, _ := h.Execute(context.Background(), postJSON(body))
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("Body %q: expected 400, got %d", body, res.StatusCode)
		}
	}
}

func TestExecute_LogoutRevokesSessionToken(t *testing.T) {
	svc := newTestAuthService(t)
	engine := command.NewEngine(memory.NewStore(nil), lock.NewManager(), broker.NewBroker(nil))
	h := NewCommandHandler(engine, svc)
	ctx := context.Background()

	sess, err := svc.Authenticate(ctx, "admin", "password123", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	req := postJSON(`{"command":"LOGOUT","username":"admin","role":"admin"}`)
	req.Headers["Authorization"] = "Bearer " + sess.Token
	res, err := h.Execute(ctx, req)
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("Logout failed: %v (%d)", err, res.StatusCode)
	}

	if _, err := svc.Validate(ctx, sess.Token); err == nil {
		t.Error("Expected session token to be revoked by LOGOUT")
	}
}
