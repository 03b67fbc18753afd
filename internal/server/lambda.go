package server

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

// LambdaHandler adapts API Gateway proxy invocations to the webhook router
type LambdaHandler struct {
	webhook Webhook
}

// NewLambdaHandler creates a handler suitable for lambda.Start
func NewLambdaHandler(webhook Webhook) *LambdaHandler {
	return &LambdaHandler{webhook: webhook}
}

// Handle processes one invocation. Lambda cannot answer before returning,
// so no early acknowledgement is offered.
func (h *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.webhook.Handle(ctx, types.WebhookRequest{
		Method:          event.HTTPMethod,
		Body:            event.Body,
		Headers:         event.Headers,
		IsBase64Encoded: event.IsBase64Encoded,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
