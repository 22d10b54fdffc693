package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const defaultSESRegion = "us-east-1"

// sesAPI is the subset of *sesv2.Client used by SESProvider.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESProvider sends through Amazon SES v2 using the default credential chain.
type SESProvider struct {
	client sesAPI
}

// NewSESProvider loads AWS configuration for cfg.Region and builds a client.
func NewSESProvider(ctx context.Context, cfg Config) (*SESProvider, error) {
	region := cfg.Region
	if region == "" {
		region = defaultSESRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &SESProvider{client: client}, nil
}

// Name implements Provider.
func (p *SESProvider) Name() string { return ProviderSES }

// Send implements Provider.
func (p *SESProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	_, err := p.client.SendEmail(ctx, buildSESInput(msg))
	return err
}

func buildSESInput(msg Message) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text)},
				},
			},
		},
	}
}
