// Package lambdaproxy runs an http.Handler behind API Gateway proxy
// integration, so the same router serves both the standalone server and
// the Lambda deployment.
package lambdaproxy

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

const malformedBody = `{"error":"malformed proxy request","code":"validation_error"}`

// Adapter converts proxy events to requests and recorded responses back.
type Adapter struct {
	proxy *httpadapter.HandlerAdapter
}

func New(handler http.Handler) *Adapter {
	return &Adapter{proxy: httpadapter.New(handler)}
}

// Handle is the Lambda handler function. Events that cannot be turned into
// a request get a 400 response rather than a Lambda error, which API
// Gateway would turn into an opaque 502.
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := a.proxy.ProxyWithContext(ctx, event)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       malformedBody,
		}, nil
	}
	return resp, nil
}
