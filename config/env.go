package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

var defaultAlertAmount = decimal.NewFromInt(500)

// OrdersTable returns the name of the orders table.
func OrdersTable() (string, error) {
	v := strings.TrimSpace(os.Getenv("DDB_TABLE"))
	if v == "" {
		return "", errors.New("DDB_TABLE is required")
	}
	return v, nil
}

// AlertTopicARN returns the notification topic for large-order alerts.
func AlertTopicARN() (string, error) {
	v := strings.TrimSpace(os.Getenv("SNS_TOPIC_ARN"))
	if v == "" {
		return "", errors.New("SNS_TOPIC_ARN is required")
	}
	return v, nil
}

// OrdersQueueURL returns the inbound order queue consumed by the worker.
func OrdersQueueURL() (string, error) {
	v := strings.TrimSpace(os.Getenv("SQS_QUEUE_URL"))
	if v == "" {
		return "", errors.New("SQS_QUEUE_URL is required")
	}
	return v, nil
}

// AlertAmount returns the order value at or above which an alert is published.
// Defaults to 500. A malformed value falls back to the default rather than
// disabling alerting.
func AlertAmount() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("ALERT_AMOUNT"))
	if raw == "" {
		return defaultAlertAmount
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return defaultAlertAmount
	}
	return d
}

// SkipValidation bypasses all structural payload checks. Intended only for
// controlled load testing.
//
// Set via env:
// - SKIP_VALIDATION=true
func SkipValidation() bool {
	return EnvBoolDefault("SKIP_VALIDATION", false)
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
