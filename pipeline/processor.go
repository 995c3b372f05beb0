package pipeline

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/sirupsen/logrus"
)

// Processor runs decode -> validate -> persist -> alert for every message of
// a delivered batch. Failures are strictly per message: the returned set is
// the exact list of message ids the queue must redeliver, everything else is
// considered fully processed.
type Processor struct {
	Validator *Validator
	Persister *Persister
	Alerter   *Alerter
	Logger    *logrus.Logger
}

func NewProcessor(v *Validator, p *Persister, a *Alerter, logger *logrus.Logger) *Processor {
	return &Processor{Validator: v, Persister: p, Alerter: a, Logger: logger}
}

// Process never returns an error itself; there is no batch-level transaction
// and partial success is the expected steady state under transient errors.
func (pr *Processor) Process(ctx context.Context, batch []models.QueueMessage) []models.BatchItemFailure {
	failures := []models.BatchItemFailure{}
	for _, msg := range batch {
		if err := pr.processOne(ctx, msg); err != nil {
			if pr.Logger != nil {
				pr.Logger.WithFields(logrus.Fields{
					"message_id": msg.MessageID,
					"validation": IsValidationError(err),
				}).Error("order message failed: " + err.Error())
			}
			failures = append(failures, models.BatchItemFailure{ItemIdentifier: msg.MessageID})
		}
	}
	return failures
}

func (pr *Processor) processOne(ctx context.Context, msg models.QueueMessage) error {
	payload, err := models.DecodeOrderPayload([]byte(msg.Body))
	if err != nil {
		return fmt.Errorf("decode order payload: %w", err)
	}
	if err := pr.Validator.Validate(payload); err != nil {
		return err
	}
	if err := pr.Persister.Persist(ctx, payload); err != nil {
		return err
	}
	if err := pr.Alerter.MaybeAlert(ctx, payload); err != nil {
		return err
	}
	return nil
}
