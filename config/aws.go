package config

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

var (
	awsCfg     *aws.Config
	awsCfgMu   sync.Mutex
	dynamoOnce sync.Once
	dynamoCli  *dynamodb.Client
	snsOnce    sync.Once
	snsCli     *sns.Client
	sqsOnce    sync.Once
	sqsCli     *sqs.Client
)

func awsRegion() string {
	if v := strings.TrimSpace(os.Getenv("AWS_REGION")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("AWS_DEFAULT_REGION")); v != "" {
		return v
	}
	return "us-east-1"
}

// awsEndpoint returns a non-empty base endpoint override when targeting a
// local stack (localstack, dynamodb-local).
func awsEndpoint() string {
	return strings.TrimSpace(os.Getenv("AWS_ENDPOINT"))
}

// GetAWSConfig loads the shared AWS configuration once, using the default
// credential chain.
func GetAWSConfig(ctx context.Context) (aws.Config, error) {
	awsCfgMu.Lock()
	defer awsCfgMu.Unlock()
	if awsCfg != nil {
		return *awsCfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion()))
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg = &cfg
	return cfg, nil
}

func GetDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := GetAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	dynamoOnce.Do(func() {
		dynamoCli = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if ep := awsEndpoint(); ep != "" {
				o.BaseEndpoint = aws.String(ep)
			}
		})
	})
	return dynamoCli, nil
}

func GetSNSClient(ctx context.Context) (*sns.Client, error) {
	cfg, err := GetAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	snsOnce.Do(func() {
		snsCli = sns.NewFromConfig(cfg, func(o *sns.Options) {
			if ep := awsEndpoint(); ep != "" {
				o.BaseEndpoint = aws.String(ep)
			}
		})
	})
	return snsCli, nil
}

func GetSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := GetAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	sqsOnce.Do(func() {
		sqsCli = sqs.NewFromConfig(cfg, func(o *sqs.Options) {
			if ep := awsEndpoint(); ep != "" {
				o.BaseEndpoint = aws.String(ep)
			}
		})
	})
	return sqsCli, nil
}
