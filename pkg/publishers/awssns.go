package publishers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsTransport struct {
	topicARN string
	api      snsAPI
}

func newSNSTransport(ctx context.Context, t *SNSTarget) (transport, error) {
	if t == nil {
		return nil, errors.New("sns target is missing")
	}
	cfg, err := loadAWSConfig(ctx, t.Region, t.Keys)
	if err != nil {
		return nil, err
	}
	return &snsTransport{topicARN: t.TopicARN, api: sns.NewFromConfig(cfg)}, nil
}

func (s *snsTransport) Deliver(ctx context.Context, body []byte, attrs map[string]string) (string, error) {
	values := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		values[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	out, err := s.api.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(body)),
		MessageAttributes: values,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
