package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// PutOutcome is the result of the conditional write.
type PutOutcome int

const (
	PutWritten PutOutcome = iota
	PutAlreadyExists
)

type DynamoPutAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Persister turns a payload into a stored order record via a conditional
// write keyed on order_id. Redelivery of an already-persisted order is a
// no-op success, which is what makes at-least-once delivery safe here.
type Persister struct {
	DB     DynamoPutAPI
	Table  string
	Logger *logrus.Logger

	now func() time.Time
}

func NewPersister(db DynamoPutAPI, table string, logger *logrus.Logger) *Persister {
	return &Persister{DB: db, Table: table, Logger: logger, now: time.Now}
}

func (p *Persister) Persist(ctx context.Context, payload *models.OrderPayload) error {
	item, err := p.buildRecord(payload)
	if err != nil {
		return fmt.Errorf("build order record: %w", err)
	}

	outcome, err := p.conditionalPut(ctx, item)
	if err != nil {
		return err
	}
	if outcome == PutAlreadyExists && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"order_id": payload.OrderID,
		}).Info("order already persisted, duplicate delivery absorbed")
	}
	return nil
}

// buildRecord copies every payload field verbatim (numeric leaves as exact
// decimals), then overlays the canonical attributes plus ts and status.
func (p *Persister) buildRecord(payload *models.OrderPayload) (map[string]types.AttributeValue, error) {
	item, err := models.ToAttributeValues(payload.Fields)
	if err != nil {
		return nil, err
	}

	amount, err := payload.Amount()
	if err != nil {
		return nil, err
	}

	item["order_id"] = &types.AttributeValueMemberS{Value: payload.OrderID}
	item["user_id"] = &types.AttributeValueMemberS{Value: payload.UserID}
	item["amount"] = &types.AttributeValueMemberN{Value: amount.String()}
	item["currency"] = &types.AttributeValueMemberS{Value: payload.CurrencyOrDefault()}
	item["ts"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(p.now().Unix(), 10)}
	item["status"] = &types.AttributeValueMemberS{Value: models.OrderStatusReceived}
	return item, nil
}

func (p *Persister) conditionalPut(ctx context.Context, item map[string]types.AttributeValue) (PutOutcome, error) {
	_, err := p.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(p.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return PutAlreadyExists, nil
		}
		return 0, fmt.Errorf("put order: %w", err)
	}
	return PutWritten, nil
}
