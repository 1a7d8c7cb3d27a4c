package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// LoadAWSCredentials loads AWS IAM credentials with the following priority:
// 1. CLI flags (accessKeyID, secretAccessKey, sessionToken) - highest priority
// 2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN)
// 3. AWS SDK default chain (AWS CLI credentials, SSO cache, IAM roles, etc.)
//
// Only sets environment variables if CLI flags are explicitly provided. If no
// CLI flags, the AWS SDK keeps its full default credential chain.
func LoadAWSCredentials(accessKeyID, secretAccessKey, sessionToken string) {
	if accessKeyID != "" && secretAccessKey != "" {
		_ = os.Setenv("AWS_ACCESS_KEY_ID", accessKeyID)
		_ = os.Setenv("AWS_SECRET_ACCESS_KEY", secretAccessKey)
		if sessionToken != "" {
			_ = os.Setenv("AWS_SESSION_TOKEN", sessionToken)
		}
	}
}

// NewAWSConfig builds the SDK config every AWS client in this repo uses.
// Explicit credentials in the environment (possibly set by LoadAWSCredentials)
// become a static provider; otherwise the SDK default chain applies.
func NewAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, os.Getenv("AWS_SESSION_TOKEN"))))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}

// GetInfluxTokenFromSecretsManager retrieves the InfluxDB API token from AWS
// Secrets Manager. The secret is expected to be JSON with a "token" field,
// falling back to the raw secret string when it is not JSON.
func GetInfluxTokenFromSecretsManager(ctx context.Context, secretName, region string) (string, error) {
	if secretName == "" {
		return "", fmt.Errorf("secret name is required for Secrets Manager")
	}
	if region == "" {
		return "", fmt.Errorf("region is required for Secrets Manager")
	}

	awsCfg, err := NewAWSConfig(ctx, region)
	if err != nil {
		return "", fmt.Errorf("create AWS config: %w", err)
	}

	svc := secretsmanager.NewFromConfig(awsCfg)
	out, err := svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret string empty for %s", secretName)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err == nil && payload.Token != "" {
		return payload.Token, nil
	}

	return *out.SecretString, nil
}

// ResolveInfluxToken returns the InfluxDB token. A token configured directly
// (flag, env, or YAML) wins; otherwise the token is fetched from AWS Secrets
// Manager using the provided secret name and region.
func ResolveInfluxToken(ctx context.Context, configured, secretName, region string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return GetInfluxTokenFromSecretsManager(ctx, secretName, region)
}
