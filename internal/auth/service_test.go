package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"filegate/internal/crypto"
	"filegate/internal/model"
)

func newTestService() *Service {
	return NewService(nil, "", "", crypto.NewMockEncryptor(), "test-secret")
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if err := s.Register(ctx, "admin", "password123", model.RoleAdmin); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	sess, err := s.Authenticate(ctx, "admin", "password123", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if sess.Username != "admin" || sess.Role != model.RoleAdmin {
		t.Errorf("Unexpected session identity: %+v", sess)
	}
	if sess.Token == "" {
		t.Error("Expected a signed token")
	}
}

func TestService_Register_Duplicate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	s.Register(ctx, "alice", "pw", model.RoleUser)
	if err := s.Register(ctx, "alice", "pw2", model.RoleUser); !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
}

func TestService_Authenticate_Failures(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	s.Register(ctx, "alice", "correct", model.RoleUser)

	if _, err := s.Authenticate(ctx, "alice", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "correct", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestService_ValidateAndRevoke(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	s.Register(ctx, "alice", "pw", model.RoleUser)
	sess, err := s.Authenticate(ctx, "alice", "pw", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	got, err := s.Validate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.Username != "alice" || got.Role != model.RoleUser {
		t.Errorf("Unexpected validated session: %+v", got)
	}

	if err := s.Revoke(ctx, sess.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	// Signature and exp are still fine, but the session registry is the
	// source of truth after revocation.
	if _, err := s.Validate(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken after revoke, got %v", err)
	}
}

func TestService_Validate_GarbageToken(t *testing.T) {
	s := newTestService()

	if _, err := s.Validate(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestService_Validate_WrongSecret(t *testing.T) {
	ctx := context.Background()

	issuer := newTestService()
	issuer.Register(ctx, "alice", "pw", model.RoleUser)
	sess, _ := issuer.Authenticate(ctx, "alice", "pw", "")

	verifier := NewService(nil, "", "", crypto.NewMockEncryptor(), "other-secret")
	if _, err := verifier.Validate(ctx, sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestService_TOTP(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	s.Register(ctx, "admin", "pw", model.RoleAdmin)

	url, err := s.EnrollTOTP(ctx, "admin")
	if err != nil {
		t.Fatalf("EnrollTOTP failed: %v", err)
	}

	// Without a code the enrolled account must not authenticate.
	if _, err := s.Authenticate(ctx, "admin", "pw", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials without otp, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "admin", "pw", "000000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for bad otp, got %v", err)
	}

	key, err := otp.NewKeyFromURL(url)
	if err != nil {
		t.Fatalf("Provisioning URL unparseable: %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}

	sess, err := s.Authenticate(ctx, "admin", "pw", code)
	if err != nil {
		t.Fatalf("Authenticate with otp failed: %v", err)
	}
	if sess.Role != model.RoleAdmin {
		t.Errorf("Expected admin role, got %s", sess.Role)
	}
}
