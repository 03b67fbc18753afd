package main

import (
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/valentinpelus/birdwatch/internal/config"
	"github.com/valentinpelus/birdwatch/internal/logging"
	"github.com/valentinpelus/birdwatch/pkg/mockmodel"
)

func main() {
	log := logging.New("mockmodel", os.Getenv("LOG_LEVEL"))
	config.LoadEnv(log)
	cfg := config.LoadConfig()

	model := mockmodel.New(cfg.MockModelVersion, nil, log)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(model.HandleLambda)
		return
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           model,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("Mock model %s listening on %s", cfg.MockModelVersion, srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("Server error")
	}
}
