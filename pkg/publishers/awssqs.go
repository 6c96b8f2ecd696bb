package publishers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsTransport struct {
	queueURL string
	api      sqsAPI
}

func newSQSTransport(ctx context.Context, t *SQSTarget) (transport, error) {
	if t == nil {
		return nil, errors.New("sqs target is missing")
	}
	cfg, err := loadAWSConfig(ctx, t.Region, t.Keys)
	if err != nil {
		return nil, err
	}
	return &sqsTransport{queueURL: t.QueueURL, api: sqs.NewFromConfig(cfg)}, nil
}

func (s *sqsTransport) Deliver(ctx context.Context, body []byte, attrs map[string]string) (string, error) {
	values := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		values[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	out, err := s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: values,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
