package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"bitbucket.org/mmdatafocus/orders_backend/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SNSPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Alerter publishes a LARGE_ORDER notification when the order amount reaches
// the configured threshold. Publish failures propagate so the message is
// redelivered; since persistence is idempotent but publishing is not, a
// redelivered message that already alerted can alert again. Accepted.
type Alerter struct {
	SNS       SNSPublishAPI
	TopicARN  string
	Threshold decimal.Decimal
	Logger    *logrus.Logger

	now func() time.Time
}

func NewAlerter(client SNSPublishAPI, topicARN string, threshold decimal.Decimal, logger *logrus.Logger) *Alerter {
	return &Alerter{SNS: client, TopicARN: topicARN, Threshold: threshold, Logger: logger, now: time.Now}
}

func (a *Alerter) MaybeAlert(ctx context.Context, payload *models.OrderPayload) error {
	amount, err := payload.Amount()
	if err != nil {
		// An unparseable amount must not crash the pipeline here; the
		// sentinel keeps the threshold comparison from ever firing.
		amount = decimal.NewFromInt(-1)
	}
	if amount.LessThan(a.Threshold) {
		return nil
	}

	msg := models.AlertMessage{
		Event:    models.AlertEventLargeOrder,
		OrderID:  payload.OrderID,
		UserID:   payload.UserID,
		Amount:   json.Number(amount.String()),
		Currency: payload.CurrencyOrDefault(),
		Ts:       a.now().Unix(),
	}
	body, err := utils.MarshalToJSON(msg)
	if err != nil {
		return fmt.Errorf("marshal alert message: %w", err)
	}

	_, err = a.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.TopicARN),
		Message:  aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("publish large order alert: %w", err)
	}

	if a.Logger != nil {
		a.Logger.WithFields(logrus.Fields{
			"order_id": payload.OrderID,
			"amount":   amount.String(),
		}).Info("published large order alert")
	}
	return nil
}
