package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"filegate/internal/auth"
	"filegate/internal/broker"
	"filegate/internal/command"
	"filegate/internal/crypto"
	"filegate/internal/handler"
	"filegate/internal/lock"
	"filegate/internal/model"
	"filegate/internal/secret"
	"filegate/internal/store/memory"
)

// App holds the wired handlers for one deployment.
type App struct {
	authHandler      *handler.AuthHandler
	commandHandler   *handler.CommandHandler
	apiGatewaySecret string
}

// NewApp initializes the application dependencies. With DEV_MODE=true
// everything runs in-process (no AWS clients); otherwise files,
// requests, users, and sessions persist to DynamoDB, TOTP seeds are
// encrypted with KMS, and secrets come from SSM Parameter Store.
func NewApp(ctx context.Context) *App {
	devMode := os.Getenv("DEV_MODE") == "true"

	var dynamoClient *dynamodb.Client
	var encryptor crypto.Encryptor
	var resolver secret.Resolver

	if devMode {
		encryptor = crypto.NewMockEncryptor()
		resolver = secret.NewEnvResolver()
		fmt.Println("Using in-process store, MockEncryptor and EnvResolver (DEV_MODE=true)")
	} else {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			panic(fmt.Sprintf("unable to load SDK config, %v", err))
		}
		dynamoClient = dynamodb.NewFromConfig(cfg)

		kmsKeyID := os.Getenv("KMS_KEY_ID")
		if kmsKeyID == "" {
			kmsKeyID = "alias/filegate-otp-key"
		}
		encryptor = crypto.NewKMSService(kms.NewFromConfig(cfg), kmsKeyID)
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	jwtSecretParam := os.Getenv("JWT_SECRET_PARAM")
	if jwtSecretParam == "" {
		jwtSecretParam = "/filegate/jwt-secret"
	}
	jwtSecret, err := resolver.GetSecret(ctx, jwtSecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve JWT_SECRET: %v", err)
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecretParam := os.Getenv("API_GATEWAY_SECRET_PARAM")
	if apiGatewaySecretParam == "" {
		apiGatewaySecretParam = "/filegate/api-gateway-secret"
	}
	apiGatewaySecret, err := resolver.GetSecret(ctx, apiGatewaySecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve API_GATEWAY_SECRET: %v", err)
	}

	usersTable := os.Getenv("USERS_TABLE")
	if usersTable == "" {
		usersTable = "FilegateUsers"
	}
	sessionsTable := os.Getenv("SESSIONS_TABLE")
	if sessionsTable == "" {
		sessionsTable = "FilegateSessions"
	}

	authService := auth.NewService(dynamoClient, usersTable, sessionsTable, encryptor, jwtSecret)
	seedUsers(ctx, authService)

	files := memory.NewStore(dynamoClient)
	locks := lock.NewManager()
	requests := broker.NewBroker(dynamoClient)
	engine := command.NewEngine(files, locks, requests)

	return &App{
		authHandler:      handler.NewAuthHandler(authService),
		commandHandler:   handler.NewCommandHandler(engine, authService),
		apiGatewaySecret: apiGatewaySecret,
	}
}

// seedUsers registers accounts from the BOOTSTRAP_USERS environment
// variable, a JSON role map:
//
//	{"admin": {"password": "...", "role": "admin"},
//	 "alice": {"password": "...", "role": "user"}}
func seedUsers(ctx context.Context, svc *auth.Service) {
	raw := os.Getenv("BOOTSTRAP_USERS")
	if raw == "" {
		return
	}

	var users map[string]struct {
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		log.Printf("WARNING: invalid BOOTSTRAP_USERS: %v", err)
		return
	}

	for username, u := range users {
		role, ok := model.ParseRole(u.Role)
		if !ok {
			log.Printf("WARNING: skipping bootstrap user %q: unknown role %q", username, u.Role)
			continue
		}
		if err := svc.Register(ctx, username, u.Password, role); err != nil {
			log.Printf("WARNING: failed to register bootstrap user %q: %v", username, err)
		}
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	fmt.Printf("Request: %s %s\n", method, path)

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Security: verify the request came through the fronting proxy.
	// Skipped in DEV_MODE.
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			fmt.Printf("Security block: missing or invalid X-Origin-Verify header\n")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for proxying setups).
	if strings.HasPrefix(path, "/api") {
		path = strings.TrimPrefix(path, "/api")
	}

	if path == "/auth" && method == "POST" {
		return corsResponse(must(app.authHandler.Login(ctx, req))), nil
	}
	if path == "/auth/logout" && method == "POST" {
		return corsResponse(must(app.authHandler.Logout(ctx, req))), nil
	}
	if path == "/command" && method == "POST" {
		return corsResponse(must(app.commandHandler.Execute(ctx, req))), nil
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = os.Getenv("FRONTEND_URL")
	if resp.Headers["Access-Control-Allow-Origin"] == "" {
		resp.Headers["Access-Control-Allow-Origin"] = "http://localhost:3000"
	}
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, converting errors to a 500.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		fmt.Printf("Handler error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
