package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency      = "USD"
	OrderStatusReceived  = "RECEIVED"
	AlertEventLargeOrder = "LARGE_ORDER"
)

// OrderPayload is a decoded, still-untrusted order event. Fields keeps the
// full decoded body (numbers as json.Number) so unknown attributes survive
// into storage verbatim.
type OrderPayload struct {
	OrderID   string          `validate:"required"`
	UserID    string          `validate:"required"`
	RawAmount json.RawMessage `validate:"required"`
	Currency  string
	Items     []interface{} `validate:"required,min=1"`
	Fields    map[string]interface{}
}

// DecodeOrderPayload decodes a message body. Numeric literals are kept as
// json.Number so monetary values never pass through binary floating point.
func DecodeOrderPayload(body []byte) (*OrderPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}

	p := &OrderPayload{Fields: fields}
	p.OrderID = coerceString(fields["order_id"])
	p.UserID = coerceString(fields["user_id"])
	if raw, ok := fields["amount"]; ok {
		if b, err := json.Marshal(raw); err == nil {
			p.RawAmount = b
		}
	}
	if c, ok := fields["currency"].(string); ok {
		p.Currency = c
	}
	if items, ok := fields["items"].([]interface{}); ok {
		p.Items = items
	}
	return p, nil
}

// Amount parses the declared order amount exactly. Both number literals and
// numeric strings are accepted.
func (p *OrderPayload) Amount() (decimal.Decimal, error) {
	raw := bytes.TrimSpace(p.RawAmount)
	if len(raw) == 0 {
		return decimal.Decimal{}, errors.New("missing field: amount")
	}
	s := string(raw)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, err
		}
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// HasField reports whether the raw body carried the given top-level key.
func (p *OrderPayload) HasField(key string) bool {
	_, ok := p.Fields[key]
	return ok
}

func (p *OrderPayload) CurrencyOrDefault() string {
	if p.Currency == "" {
		return DefaultCurrency
	}
	return p.Currency
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// QueueMessage is one delivered queue record: an opaque message id plus the
// JSON body. ReceiptHandle is the transport token needed to acknowledge it.
type QueueMessage struct {
	MessageID     string
	Body          string
	ReceiptHandle string
}

// BatchItemFailure identifies one message of a delivered batch that must be
// redelivered. Wire shape matches the partial batch response contract.
type BatchItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// AlertMessage is the large-order notification body. Amount is a json.Number
// so it renders as an exact number literal.
type AlertMessage struct {
	Event    string      `json:"event"`
	OrderID  string      `json:"order_id"`
	UserID   string      `json:"user_id"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Ts       int64       `json:"ts"`
}

// SendEntry is one synthetic message queued by the load generator.
type SendEntry struct {
	ID   string
	Body string
}
