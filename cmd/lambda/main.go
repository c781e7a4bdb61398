package main

import (
	"context"
	"log"
	"time"

	"photographer-backend/internal/config"
	"photographer-backend/internal/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
	coldStart = true
)

// init builds the container once per execution environment.
func init() {
	started := time.Now()
	ctx := context.Background()

	cfg, err := config.NewLoaderFromEnv().Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The execution environment is frozen, not shut down, so the cleanup
	// never gets a chance to run.
	container, _, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	if err := container.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed store: %v", err)
	}

	chiLambda = chiadapter.NewV2(container.Router)
	container.Logger.Info("Cold start completed", zap.Duration("duration", time.Since(started)))
}

// Handler is the Lambda function handler.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if coldStart {
		container.Logger.Info("First invocation after cold start",
			zap.String("requestId", req.RequestContext.RequestID),
		)
		coldStart = false
	}
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
