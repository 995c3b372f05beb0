package sender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// ErrEntryTooLarge means a single entry still exceeds the transport size
// limit, so no further splitting is possible.
var ErrEntryTooLarge = errors.New("entry exceeds transport size limit")

// PartialSendError carries the ids of entries that kept failing after the
// retry budget was exhausted. It aborts the run; data is never dropped
// silently.
type PartialSendError struct {
	EntryIDs []string
}

func (e *PartialSendError) Error() string {
	return fmt.Sprintf("%d entries failed after retries: %s", len(e.EntryIDs), strings.Join(e.EntryIDs, ", "))
}

type SQSSendAPI interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// Sender dispatches entry batches with two recovery mechanisms: batches the
// transport rejects as oversized are bisected and re-sent independently, and
// individually failed entries are retried with exponential backoff.
type Sender struct {
	SQS         SQSSendAPI
	QueueURL    string
	RetryLimit  int
	BaseBackoff time.Duration
	Logger      *logrus.Logger

	sleep func(time.Duration)
}

func NewSender(client SQSSendAPI, queueURL string, logger *logrus.Logger) *Sender {
	return &Sender{
		SQS:         client,
		QueueURL:    queueURL,
		RetryLimit:  5,
		BaseBackoff: time.Second,
		Logger:      logger,
		sleep:       time.Sleep,
	}
}

// SendBatch sends entries, retrying individually failed ones with backoff
// base*2^attempt, RetryLimit attempts in total. Oversize handling happens per
// attempt inside sendSplitting.
func (s *Sender) SendBatch(ctx context.Context, entries []models.SendEntry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[string]models.SendEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	pending := entries
	for attempt := 0; ; attempt++ {
		failed, err := s.sendSplitting(ctx, pending)
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			return nil
		}
		if attempt+1 >= s.RetryLimit {
			return &PartialSendError{EntryIDs: failed}
		}

		backoff := s.BaseBackoff * (1 << attempt)
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"failed":  len(failed),
				"backoff": backoff.String(),
			}).Warn("retrying failed entries after backoff")
		}
		s.sleep(backoff)

		next := make([]models.SendEntry, 0, len(failed))
		for _, id := range failed {
			if e, ok := byID[id]; ok {
				next = append(next, e)
			}
		}
		pending = next
	}
}

// sendSplitting performs one logical attempt. A size-limit rejection bisects
// the batch and sends each half independently, down to single entries, which
// are fatal if still too large. Returns the ids of individually failed
// entries across all fragments.
func (s *Sender) sendSplitting(ctx context.Context, entries []models.SendEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	batch := make([]types.SendMessageBatchRequestEntry, 0, len(entries))
	for _, e := range entries {
		batch = append(batch, types.SendMessageBatchRequestEntry{
			Id:          aws.String(e.ID),
			MessageBody: aws.String(e.Body),
		})
	}

	out, err := s.SQS.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(s.QueueURL),
		Entries:  batch,
	})
	if err != nil {
		if !isBatchTooLong(err) {
			return nil, fmt.Errorf("send message batch: %w", err)
		}
		if len(entries) == 1 {
			return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, entries[0].ID)
		}
		mid := len(entries) / 2
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"entries": len(entries),
			}).Warn("batch rejected as oversized, splitting in half")
		}
		left, err := s.sendSplitting(ctx, entries[:mid])
		if err != nil {
			return nil, err
		}
		right, err := s.sendSplitting(ctx, entries[mid:])
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}

	failed := make([]string, 0, len(out.Failed))
	for _, f := range out.Failed {
		failed = append(failed, aws.ToString(f.Id))
	}
	return failed, nil
}

func isBatchTooLong(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return strings.Contains(ae.ErrorCode(), "BatchRequestTooLong")
	}
	return false
}
