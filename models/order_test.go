package models

import (
	"encoding/json"
	"testing"
)

func TestDecodeOrderPayload_KeepsExactAmount(t *testing.T) {
	body := []byte(`{"order_id":"ord-1","user_id":"user-9","amount":19.99,"items":[{"sku":"SKU-1","qty":2}]}`)

	p, err := DecodeOrderPayload(body)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	amt, err := p.Amount()
	if err != nil {
		t.Fatalf("amount error: %v", err)
	}
	if amt.String() != "19.99" {
		t.Fatalf("expected amount 19.99, got %s", amt.String())
	}
	if n, ok := p.Fields["amount"].(json.Number); !ok || n.String() != "19.99" {
		t.Fatalf("raw amount not kept as json.Number: %#v", p.Fields["amount"])
	}
}

func TestDecodeOrderPayload_StringAmountAndNumericIDs(t *testing.T) {
	body := []byte(`{"order_id":12345,"user_id":"u","amount":"42.50","items":[1]}`)

	p, err := DecodeOrderPayload(body)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if p.OrderID != "12345" {
		t.Fatalf("expected numeric order id coerced to string, got %q", p.OrderID)
	}
	amt, err := p.Amount()
	if err != nil {
		t.Fatalf("amount error: %v", err)
	}
	if amt.String() != "42.5" {
		t.Fatalf("expected 42.5, got %s", amt.String())
	}
}

func TestDecodeOrderPayload_ExtrasAndCurrencyDefault(t *testing.T) {
	body := []byte(`{"order_id":"o","user_id":"u","amount":1,"items":[{"sku":"s","qty":1}],"padding":"zzz","meta":{"score":1.10}}`)

	p, err := DecodeOrderPayload(body)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if p.CurrencyOrDefault() != DefaultCurrency {
		t.Fatalf("expected default currency %s, got %s", DefaultCurrency, p.CurrencyOrDefault())
	}
	if p.Fields["padding"] != "zzz" {
		t.Fatalf("padding not preserved: %#v", p.Fields["padding"])
	}
	meta, ok := p.Fields["meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("meta not preserved: %#v", p.Fields["meta"])
	}
	if n, ok := meta["score"].(json.Number); !ok || n.String() != "1.10" {
		t.Fatalf("nested number lost precision: %#v", meta["score"])
	}
}

func TestDecodeOrderPayload_RejectsNonObjectBody(t *testing.T) {
	if _, err := DecodeOrderPayload([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error for invalid JSON")
	}
	if _, err := DecodeOrderPayload([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected decode error for non-object body")
	}
}

func TestAmount_MissingAndMalformed(t *testing.T) {
	p := &OrderPayload{}
	if _, err := p.Amount(); err == nil {
		t.Fatal("expected error for missing amount")
	}

	p = &OrderPayload{RawAmount: json.RawMessage(`"abc"`)}
	if _, err := p.Amount(); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}
