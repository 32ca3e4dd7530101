package handler

import (
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ExtractToken pulls the session token from the Authorization header
// (Bearer <token>) or the session_token cookie. Returns "" when absent.
func ExtractToken(req events.APIGatewayProxyRequest) string {
	// Case-insensitive header lookup; API Gateway does not normalize.
	getHeader := func(name string) string {
		for k, v := range req.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	if authHeader := getHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookies := getHeader("Cookie"); cookies != "" {
		for _, part := range strings.Split(cookies, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "session_token=") {
				return strings.TrimPrefix(part, "session_token=")
			}
		}
	}
	return ""
}

// jsonResponse marshals v into a JSON API Gateway response.
func jsonResponse(statusCode int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// failResponse renders a protocol-level failure envelope.
func failResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	return jsonResponse(statusCode, map[string]string{
		"status":  "fail",
		"message": message,
	})
}
