package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"bitbucket.org/mmdatafocus/orders_backend/pipeline"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"
)

// The worker long-polls the order queue in batches of up to 10 messages and
// deletes only the messages the processor fully handled. Failed messages stay
// on the queue until the visibility timeout expires; the queue's redrive
// policy decides when they move to the dead-letter queue.
func main() {
	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	queueURL, err := config.OrdersQueueURL()
	if err != nil {
		logger.Fatal("worker: " + err.Error())
	}
	table, err := config.OrdersTable()
	if err != nil {
		logger.Fatal("worker: " + err.Error())
	}
	topicARN, err := config.AlertTopicARN()
	if err != nil {
		logger.Fatal("worker: " + err.Error())
	}

	sqsCli, err := config.GetSQSClient(sigCtx)
	if err != nil {
		logger.Fatal("worker: init sqs: " + err.Error())
	}
	dynamoCli, err := config.GetDynamoClient(sigCtx)
	if err != nil {
		logger.Fatal("worker: init dynamo: " + err.Error())
	}
	snsCli, err := config.GetSNSClient(sigCtx)
	if err != nil {
		logger.Fatal("worker: init sns: " + err.Error())
	}

	processor := pipeline.NewProcessor(
		pipeline.NewValidator(config.SkipValidation(), logger),
		pipeline.NewPersister(dynamoCli, table, logger),
		pipeline.NewAlerter(snsCli, topicARN, config.AlertAmount(), logger),
		logger,
	)

	logger.WithFields(logrus.Fields{
		"queue_url":       queueURL,
		"table":           table,
		"alert_amount":    config.AlertAmount().String(),
		"skip_validation": config.SkipValidation(),
	}).Info("order worker started")

	for {
		select {
		case <-sigCtx.Done():
			logger.Info("order worker stopping")
			return
		default:
		}

		out, err := sqsCli.ReceiveMessage(sigCtx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     10,
		})
		if err != nil {
			if sigCtx.Err() != nil {
				logger.Info("order worker stopping")
				return
			}
			config.LogError(logger, "worker", "main", "receive", nil, err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if len(out.Messages) == 0 {
			continue
		}

		batch := make([]models.QueueMessage, 0, len(out.Messages))
		for _, m := range out.Messages {
			batch = append(batch, models.QueueMessage{
				MessageID:     aws.ToString(m.MessageId),
				Body:          aws.ToString(m.Body),
				ReceiptHandle: aws.ToString(m.ReceiptHandle),
			})
		}

		failures := processor.Process(sigCtx, batch)
		failedIDs := make(map[string]bool, len(failures))
		for _, f := range failures {
			failedIDs[f.ItemIdentifier] = true
		}

		acknowledge(sigCtx, logger, sqsCli, queueURL, batch, failedIDs)

		logger.WithFields(logrus.Fields{
			"received": len(batch),
			"failed":   len(failures),
		}).Info("processed order batch")
	}
}

// acknowledge deletes every message not reported as failed.
func acknowledge(ctx context.Context, logger *logrus.Logger, cli *sqs.Client, queueURL string, batch []models.QueueMessage, failedIDs map[string]bool) {
	entries := make([]types.DeleteMessageBatchRequestEntry, 0, len(batch))
	for _, m := range batch {
		if failedIDs[m.MessageID] {
			continue
		}
		entries = append(entries, types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(m.MessageID),
			ReceiptHandle: aws.String(m.ReceiptHandle),
		})
	}
	if len(entries) == 0 {
		return
	}

	out, err := cli.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(queueURL),
		Entries:  entries,
	})
	if err != nil {
		// Not fatal: the messages get redelivered and the conditional
		// write absorbs the duplicates.
		config.LogError(logger, "worker", "acknowledge", "delete batch", nil, err)
		return
	}
	for _, f := range out.Failed {
		logger.WithFields(logrus.Fields{
			"message_id": aws.ToString(f.Id),
			"code":       aws.ToString(f.Code),
		}).Warn("failed to delete processed message, expect a duplicate delivery")
	}
}
