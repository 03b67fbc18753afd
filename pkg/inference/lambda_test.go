package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLambdaAPI struct {
	input *lambda.InvokeInput
	out   *lambda.InvokeOutput
	err   error
}

func (f *fakeLambdaAPI) Invoke(_ context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestLambdaInvoker_Invoke(t *testing.T) {
	api := &fakeLambdaAPI{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`"{}"`)}}
	invoker := NewLambdaInvokerWithAPI(api, "ai_handler")

	payload, err := invoker.Invoke(context.Background(), []byte(`{"image_url":"u"}`))
	require.NoError(t, err)

	assert.Equal(t, `"{}"`, string(payload))
	assert.Equal(t, "ai_handler", aws.ToString(api.input.FunctionName))
	assert.Equal(t, lambdatypes.InvocationTypeRequestResponse, api.input.InvocationType)
	assert.Equal(t, `{"image_url":"u"}`, string(api.input.Payload))
	assert.Equal(t, "lambda:ai_handler", invoker.Name())
}

func TestLambdaInvoker_FunctionError(t *testing.T) {
	api := &fakeLambdaAPI{out: &lambda.InvokeOutput{
		StatusCode:    200,
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorMessage":"boom"}`),
	}}

	_, err := NewLambdaInvokerWithAPI(api, "ai_handler").Invoke(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unhandled")
	assert.Contains(t, err.Error(), "boom")
}

func TestLambdaInvoker_APIError(t *testing.T) {
	api := &fakeLambdaAPI{err: errors.New("AccessDeniedException")}

	_, err := NewLambdaInvokerWithAPI(api, "ai_handler").Invoke(context.Background(), nil)
	assert.ErrorContains(t, err, "AccessDeniedException")
}
