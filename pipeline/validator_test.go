package pipeline

import (
	"testing"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func decodeT(t *testing.T, body string) *models.OrderPayload {
	t.Helper()
	p, err := models.DecodeOrderPayload([]byte(body))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return p
}

func TestValidate_AcceptsWellFormedPayload(t *testing.T) {
	v := NewValidator(false, nil)
	p := decodeT(t, `{"order_id":"o","user_id":"u","amount":19.99,"items":[{"sku":"s","qty":1}]}`)
	if err := v.Validate(p); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_ShortCircuitsOnFirstFailure(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		reason string
	}{
		{"missing order_id", `{"user_id":"u","amount":1,"items":[1]}`, "missing field: order_id"},
		{"missing user_id", `{"order_id":"o","amount":1,"items":[1]}`, "missing field: user_id"},
		{"missing amount", `{"order_id":"o","user_id":"u","items":[1]}`, "missing field: amount"},
		{"missing items", `{"order_id":"o","user_id":"u","amount":1}`, "missing field: items"},
		{"empty items", `{"order_id":"o","user_id":"u","amount":1,"items":[]}`, "items must be a non-empty list"},
		{"items not a list", `{"order_id":"o","user_id":"u","amount":1,"items":"x"}`, "items must be a non-empty list"},
		{"negative amount", `{"order_id":"o","user_id":"u","amount":-5,"items":[1]}`, "amount must be non-negative"},
		{"unparseable amount", `{"order_id":"o","user_id":"u","amount":"abc","items":[1]}`, "amount must be a non-negative number"},
		{"missing everything reports order_id first", `{}`, "missing field: order_id"},
	}

	v := NewValidator(false, nil)
	for _, tc := range cases {
		err := v.Validate(decodeT(t, tc.body))
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !IsValidationError(err) {
			t.Fatalf("%s: expected *ValidationError, got %T", tc.name, err)
		}
		if err.Error() != tc.reason {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.reason, err.Error())
		}
	}
}

func TestValidate_SkipModePassesEverything(t *testing.T) {
	v := NewValidator(true, nil)
	p := decodeT(t, `{"amount":-999}`)
	if err := v.Validate(p); err != nil {
		t.Fatalf("skip mode must pass unconditionally, got %v", err)
	}
}

func TestValidate_ItemTotalMismatchWarnsButPasses(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	v := NewValidator(false, logger)

	// 2 x 9.99 = 19.98, declared 25.00: warn, still valid.
	p := decodeT(t, `{"order_id":"o","user_id":"u","amount":25.00,"items":[{"sku":"s","qty":2,"unit_price":9.99}]}`)
	if err := v.Validate(p); err != nil {
		t.Fatalf("mismatch must not fail validation: %v", err)
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("expected exactly one warning, got %d entries", len(hook.Entries))
	}
}

func TestValidate_ItemTotalWithinToleranceIsSilent(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	v := NewValidator(false, logger)

	p := decodeT(t, `{"order_id":"o","user_id":"u","amount":19.99,"items":[{"sku":"s","qty":2,"price":9.995}]}`)
	if err := v.Validate(p); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if len(hook.Entries) != 0 {
		t.Fatalf("expected no warning, got %v", hook.Entries)
	}
}

func TestValidate_BrokenItemsDisableCrossCheckSilently(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	v := NewValidator(false, logger)

	// qty is garbage: the cross-check must neither warn nor fail.
	p := decodeT(t, `{"order_id":"o","user_id":"u","amount":100,"items":[{"sku":"s","qty":{"bad":true}}]}`)
	if err := v.Validate(p); err != nil {
		t.Fatalf("cross-check must never fail validation: %v", err)
	}
	if len(hook.Entries) != 0 {
		t.Fatalf("expected silence, got %v", hook.Entries)
	}
}
