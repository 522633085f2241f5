package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/spacesedan/commentflow/internal/models"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET,HEAD,PUT,PATCH,POST,DELETE,OPTIONS",
	"Access-Control-Allow-Headers": "*",
}

// LambdaHandler serves POST /comments/ for API Gateway HTTP APIs (payload v2).
type LambdaHandler struct {
	service commentService
}

func NewLambdaHandler(service commentService) *LambdaHandler {
	return &LambdaHandler{service: service}
}

func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := req.RequestContext.HTTP.Method
	path := strings.TrimSuffix(req.RawPath, "/")

	slog.Info("[LambdaHandler] Received request",
		slog.String("method", method),
		slog.String("path", req.RawPath),
		slog.String("request_id", req.RequestContext.RequestID))

	if method == http.MethodOptions {
		return respond(http.StatusNoContent, nil), nil
	}
	if path != "/comments" {
		return respond(http.StatusNotFound, models.ErrorResponse{Detail: "Not Found"}), nil
	}
	if method != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, models.ErrorResponse{Detail: "Method Not Allowed"}), nil
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return respond(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid request body"}), nil
		}
		body = string(decoded)
	}

	var in models.CommentsRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return respond(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid request body"}), nil
	}
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		return respond(http.StatusBadRequest, models.ErrorResponse{Detail: "url is required"}), nil
	}

	resp, err := h.service.Collect(ctx, in.URL)
	if err != nil {
		slog.Error("[LambdaHandler] Request failed",
			slog.String("url", in.URL),
			slog.String("error", err.Error()))
		return respond(http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()}), nil
	}

	return respond(http.StatusOK, resp), nil
}

func respond(status int, payload any) events.APIGatewayV2HTTPResponse {
	headers := make(map[string]string, len(corsHeaders)+1)
	for k, v := range corsHeaders {
		headers[k] = v
	}

	if payload == nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: status, Headers: headers}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("[LambdaHandler] Failed to marshal response",
			slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		body = []byte(`{"detail":"failed to encode response"}`)
	}
	headers["Content-Type"] = "application/json"

	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}
