package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/internal/app"
	"github.com/valentinpelus/birdwatch/internal/server"
)

func main() {
	application, err := app.New(context.Background())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}
	application.LogStartupInfo()

	lambda.Start(server.NewLambdaHandler(application.Router).Handle)
}
