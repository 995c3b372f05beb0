package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"bitbucket.org/mmdatafocus/orders_backend/models"
	"bitbucket.org/mmdatafocus/orders_backend/sender"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// sendevents floods a queue with synthetic order events for load testing.
// Batches the transport rejects as oversized get split automatically and
// failed entries are retried with exponential backoff; exhausting the retry
// budget aborts the run.
func main() {
	var (
		queueURL    = flag.String("queue-url", "", "target SQS queue URL (required)")
		count       = flag.Int("count", 25, "number of messages to send")
		sizeKB      = flag.Int("size-kb", 0, fmt.Sprintf("pad each message body to roughly this many KB (0 = no padding, capped at %d)", sender.MaxPaddedKB))
		batchSize   = flag.Int("batch-size", 10, "messages per batch, 1-10")
		msgRate     = flag.Float64("rate", 0, "messages per second, 0 = unthrottled")
		retryLimit  = flag.Int("retry-limit", 5, "total send attempts per batch")
		baseBackoff = flag.Float64("base-backoff", 1, "base retry backoff in seconds")
	)
	flag.Parse()

	logger := config.GetLogger()

	if *queueURL == "" {
		logger.Fatal("sendevents: -queue-url is required")
	}
	if *batchSize < 1 || *batchSize > 10 {
		logger.Fatal("sendevents: -batch-size must be between 1 and 10")
	}
	if *sizeKB > sender.MaxPaddedKB {
		logger.WithFields(logrus.Fields{
			"size_kb": *sizeKB,
			"cap_kb":  sender.MaxPaddedKB,
		}).Warn("requested size exceeds the transport cap, clamping")
		*sizeKB = sender.MaxPaddedKB
	}

	ctx := context.Background()
	sqsCli, err := config.GetSQSClient(ctx)
	if err != nil {
		logger.Fatal("sendevents: init sqs: " + err.Error())
	}

	snd := sender.NewSender(sqsCli, *queueURL, logger)
	snd.RetryLimit = *retryLimit
	snd.BaseBackoff = time.Duration(*baseBackoff * float64(time.Second))

	var limiter *rate.Limiter
	if *msgRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*msgRate), 1)
	}

	sent := 0
	batch := make([]models.SendEntry, 0, *batchSize)
	for i := 0; i < *count; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				logger.Fatal("sendevents: rate limiter: " + err.Error())
			}
		}

		entry, err := sender.SyntheticEntry(fmt.Sprintf("%d", i), *sizeKB)
		if err != nil {
			logger.Fatal("sendevents: build entry: " + err.Error())
		}
		batch = append(batch, entry)

		if len(batch) == *batchSize || i == *count-1 {
			if err := snd.SendBatch(ctx, batch); err != nil {
				logger.Fatal("sendevents: " + err.Error())
			}
			sent += len(batch)
			batch = batch[:0]
		}
	}

	logger.WithFields(logrus.Fields{
		"sent":    sent,
		"size_kb": *sizeKB,
	}).Info("done sending synthetic order events")
}
