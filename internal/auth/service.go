// Package auth is the credential gate: it verifies username/password
// (plus TOTP where enrolled), resolves the account role, and issues
// revocable session tokens. The core trusts the role the transport
// passes with each command; this service is what binds that role to a
// session in the first place.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"filegate/internal/crypto"
	"filegate/internal/model"
)

// DefaultSessionTTL bounds how long an issued token stays valid.
const DefaultSessionTTL = 12 * time.Hour

const totpIssuer = "filegate"

// Service handles authentication and session management.
// If the DynamoDB client is nil, users and sessions live in in-process
// maps (tests, DEV_MODE); otherwise they persist to the configured
// tables, with session expiry enforced by both the JWT exp claim and
// the table's TTL attribute.
type Service struct {
	client        *dynamodb.Client
	usersTable    string
	sessionsTable string
	encryptor     crypto.Encryptor
	jwtSecret     string
	sessionTTL    time.Duration

	mu       sync.RWMutex
	users    map[string]model.User
	sessions map[string]model.Session
}

// NewService creates a new Service.
func NewService(client *dynamodb.Client, usersTable, sessionsTable string, encryptor crypto.Encryptor, jwtSecret string) *Service {
	return &Service{
		client:        client,
		usersTable:    usersTable,
		sessionsTable: sessionsTable,
		encryptor:     encryptor,
		jwtSecret:     jwtSecret,
		sessionTTL:    DefaultSessionTTL,
		users:         make(map[string]model.User),
		sessions:      make(map[string]model.Session),
	}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password string, role model.Role) error {
	if _, err := s.getUser(ctx, username); err == nil {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.putUser(ctx, model.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	})
}

// EnrollTOTP generates a TOTP seed for the user, stores it encrypted,
// and returns the otpauth:// provisioning URL for the authenticator app.
// Subsequent Authenticate calls for this user require a valid code.
func (s *Service) EnrollTOTP(ctx context.Context, username string) (string, error) {
	user, err := s.getUser(ctx, username)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(ctx, key.Secret())
	if err != nil {
		return "", fmt.Errorf("failed to encrypt totp secret: %w", err)
	}

	user.TOTPSecret = encrypted
	if err := s.putUser(ctx, *user); err != nil {
		return "", err
	}
	return key.URL(), nil
}

// Authenticate verifies the credentials and issues a session bound to
// (username, role). Any mismatch, including a bad or missing OTP for an
// enrolled user, fails with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password, otpCode string) (*model.Session, error) {
	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if user.TOTPSecret != "" {
		seed, err := s.encryptor.Decrypt(ctx, user.TOTPSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt totp secret: %w", err)
		}
		if !totp.Validate(otpCode, seed) {
			return nil, ErrInvalidCredentials
		}
	}

	return s.issueSession(ctx, user.Username, user.Role)
}

// Validate parses and verifies a session token. Revoked sessions fail
// even when the signature and expiry are still good.
func (s *Service) Validate(ctx context.Context, token string) (*model.Session, error) {
	session, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	stored, err := s.getSession(ctx, session.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	stored.Token = token
	return stored, nil
}

// Revoke invalidates the session immediately.
func (s *Service) Revoke(ctx context.Context, token string) error {
	session, err := s.parseToken(token)
	if err != nil {
		return err
	}
	return s.deleteSession(ctx, session.ID)
}

func (s *Service) issueSession(ctx context.Context, username string, role model.Role) (*model.Session, error) {
	session := model.Session{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  session.Username,
		"role": string(session.Role),
		"jti":  session.ID,
		"exp":  session.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	session.Token = signed

	if err := s.putSession(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Service) parseToken(tokenString string) (*model.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	roleClaim, _ := claims["role"].(string)
	role, ok := model.ParseRole(roleClaim)
	if sub == "" || jti == "" || !ok {
		return nil, ErrInvalidToken
	}

	return &model.Session{ID: jti, Username: sub, Role: role}, nil
}

func (s *Service) getUser(ctx context.Context, username string) (*model.User, error) {
	if s.client == nil {
		s.mu.RLock()
		u, ok := s.users[username]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("user %q not found", username)
		}
		return &u, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.usersTable),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %q not found", username)
	}

	var user model.User
	if err := attributevalue.UnmarshalMap(out.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *Service) putUser(ctx context.Context, user model.User) error {
	if s.client == nil {
		s.mu.Lock()
		s.users[user.Username] = user
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.usersTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Service) getSession(ctx context.Context, id string) (*model.Session, error) {
	if s.client == nil {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if !ok || time.Now().After(sess.ExpiresAt) {
			return nil, fmt.Errorf("session %q not found", id)
		}
		return &sess, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.sessionsTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session %q not found", id)
	}

	var sess model.Session
	if err := attributevalue.UnmarshalMap(out.Item, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	// DynamoDB TTL deletion lags; enforce expiry here too.
	if time.Now().After(sess.ExpiresAt) {
		return nil, fmt.Errorf("session %q expired", id)
	}
	return &sess, nil
}

func (s *Service) putSession(ctx context.Context, sess model.Session) error {
	if s.client == nil {
		s.mu.Lock()
		s.sessions[sess.ID] = sess
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.sessionsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Service) deleteSession(ctx context.Context, id string) error {
	if s.client == nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.sessionsTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
