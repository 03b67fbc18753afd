package inference

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaAPI is the subset of the Lambda client used here
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker calls the inference function synchronously through the Lambda Invoke API
type LambdaInvoker struct {
	api          LambdaAPI
	functionName string
}

// NewLambdaInvoker loads AWS credentials from environment/IAM role and
// creates an invoker for functionName
func NewLambdaInvoker(ctx context.Context, region, functionName string) (*LambdaInvoker, error) {
	if region == "" {
		region = "us-west-1"
	}
	if functionName == "" {
		return nil, fmt.Errorf("lambda function name is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewLambdaInvokerWithAPI(lambda.NewFromConfig(cfg), functionName), nil
}

// NewLambdaInvokerWithAPI wraps an existing Lambda client
func NewLambdaInvokerWithAPI(api LambdaAPI, functionName string) *LambdaInvoker {
	return &LambdaInvoker{api: api, functionName: functionName}
}

// Name returns the transport name
func (l *LambdaInvoker) Name() string {
	return fmt.Sprintf("lambda:%s", l.functionName)
}

// Invoke runs a RequestResponse invocation and returns the raw payload
func (l *LambdaInvoker) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	out, err := l.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Lambda API: %w", err)
	}

	if out.FunctionError != nil {
		return nil, fmt.Errorf("function %s failed (%s): %s", l.functionName, aws.ToString(out.FunctionError), string(out.Payload))
	}

	return out.Payload, nil
}
