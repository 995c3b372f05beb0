package pipeline

import (
	"encoding/json"
	"errors"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// itemTotalTolerance is the absolute allowed gap between the declared amount
// and the amount recomputed from line items (one cent).
var itemTotalTolerance = decimal.NewFromFloat(0.01)

// ValidationError marks a payload as malformed or out of range. It is always
// attributed to the message and never retried by this system.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validator checks structural and business invariants of a decoded payload.
// With Skip set, every payload passes unconditionally (load-testing mode).
type Validator struct {
	Skip   bool
	Logger *logrus.Logger
}

func NewValidator(skip bool, logger *logrus.Logger) *Validator {
	return &Validator{Skip: skip, Logger: logger}
}

// Validate short-circuits on the first failed check: required fields, then
// non-empty items, then a parseable non-negative amount. The item-total
// cross-check below is advisory only.
func (v *Validator) Validate(p *models.OrderPayload) error {
	if v.Skip {
		return nil
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Reason: reasonFor(verrs[0], p)}
		}
		return &ValidationError{Reason: err.Error()}
	}

	amount, err := p.Amount()
	if err != nil {
		return &ValidationError{Reason: "amount must be a non-negative number"}
	}
	if amount.IsNegative() {
		return &ValidationError{Reason: "amount must be non-negative"}
	}

	v.warnOnItemTotalMismatch(p, amount)
	return nil
}

func reasonFor(fe validator.FieldError, p *models.OrderPayload) string {
	switch fe.StructField() {
	case "OrderID":
		return "missing field: order_id"
	case "UserID":
		return "missing field: user_id"
	case "RawAmount":
		return "missing field: amount"
	case "Items":
		if fe.Tag() == "required" && !p.HasField("items") {
			return "missing field: items"
		}
		return "items must be a non-empty list"
	}
	return "invalid field: " + fe.StructField()
}

// warnOnItemTotalMismatch recomputes the order total from line items and logs
// a warning when it disagrees with the declared amount. The check must never
// fail the payload: anything it cannot interpret simply disables it.
func (v *Validator) warnOnItemTotalMismatch(p *models.OrderPayload, amount decimal.Decimal) {
	expected, ok := expectedItemTotal(p.Items)
	if !ok || !expected.IsPositive() {
		return
	}
	if expected.Sub(amount).Abs().LessThanOrEqual(itemTotalTolerance) {
		return
	}
	if v.Logger != nil {
		v.Logger.WithFields(logrus.Fields{
			"order_id":        p.OrderID,
			"declared_amount": amount.String(),
			"item_total":      expected.String(),
		}).Warn("declared amount differs from computed item total")
	}
}

// expectedItemTotal sums quantity x unit price across items. Unit price falls
// back to a plain price field, then to zero. ok is false whenever an item
// cannot be interpreted, which disables the cross-check entirely.
func expectedItemTotal(items []interface{}) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			return decimal.Decimal{}, false
		}
		qty, ok := numericField(m, "qty", "quantity")
		if !ok {
			return decimal.Decimal{}, false
		}
		price, ok := numericField(m, "unit_price", "price")
		if !ok {
			price = decimal.Zero
		}
		total = total.Add(qty.Mul(price))
	}
	return total, true
}

func numericField(m map[string]interface{}, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		raw, present := m[k]
		if !present {
			continue
		}
		switch t := raw.(type) {
		case json.Number:
			d, err := decimal.NewFromString(t.String())
			if err != nil {
				return decimal.Decimal{}, false
			}
			return d, true
		case string:
			d, err := decimal.NewFromString(t)
			if err != nil {
				return decimal.Decimal{}, false
			}
			return d, true
		case float64:
			return decimal.NewFromFloat(t), true
		default:
			return decimal.Decimal{}, false
		}
	}
	return decimal.Decimal{}, false
}
