package main

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"renoquote/internal/app"
	"renoquote/internal/config"
	"renoquote/internal/logging"
	"renoquote/internal/server"
)

const defaultParamPrefix = "/renoquote/prod/"

// API Gateway answers 504 after 29s, so requests must settle before that.
const lambdaBudgetMS = 25000

// applyLambdaDefaults keeps an explicit REQUEST_BUDGET_MS and otherwise fits the
// request budget inside the API Gateway limit.
func applyLambdaDefaults(cfg *config.Config) {
	if cfg.Retry.BudgetMS <= 0 || cfg.Retry.BudgetMS > lambdaBudgetMS {
		cfg.Retry.BudgetMS = lambdaBudgetMS
	}
}

// ParameterGetter is the subset of the SSM client used to resolve secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// loadSecrets fills every empty secret from SSM Parameter Store. Missing parameters
// leave the provider disabled.
func loadSecrets(ctx context.Context, client ParameterGetter, prefix string, cfg *config.Config) {
	secrets := map[string]*string{
		"openai-api-key":       &cfg.AI.OpenAI.APIKey,
		"gemini-api-key":       &cfg.AI.Gemini.APIKey,
		"pexels-api-key":       &cfg.Pexels.APIKey,
		"lead-webhook-url":     &cfg.Leads.WebhookURL,
		"database-url":         &cfg.DatabaseURL,
		"diagnostics-key-hash": &cfg.Diagnostics.KeyHash,
	}
	for name, dst := range secrets {
		if *dst != "" {
			continue
		}
		param := prefix + name
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(param),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			log.Debug().Err(err).Str("param", param).Msg("secret not loaded from SSM")
			continue
		}
		if out.Parameter != nil && out.Parameter.Value != nil {
			*dst = strings.TrimSpace(*out.Parameter.Value)
			log.Info().Str("param", param).Msg("secret loaded from SSM Parameter Store")
		}
	}
}

func main() {
	cfg := config.FromEnv()
	logging.Init(cfg.Log.Level, false)

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}
	prefix := os.Getenv("SSM_PARAM_PREFIX")
	if prefix == "" {
		prefix = defaultParamPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	loadSecrets(ctx, ssm.NewFromConfig(awsCfg), prefix, &cfg)
	applyLambdaDefaults(&cfg)

	services, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire services")
	}

	adapter := httpadapter.NewV2(server.Router(services.Handler, services.Options))
	lambda.Start(adapter.ProxyWithContext)
}
