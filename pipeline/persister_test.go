package pipeline

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// fakeDynamo honors the attribute_not_exists condition the way the real
// table would: a second put for the same order id fails the condition.
type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
	puts  int
	err   error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts++
	if f.err != nil {
		return nil, f.err
	}
	id := in.Item["order_id"].(*types.AttributeValueMemberS).Value
	if _, exists := f.items[id]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(order_id)" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func newTestPersister(db DynamoPutAPI) *Persister {
	p := NewPersister(db, "orders", nil)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return p
}

func TestPersist_WritesRecordWithTimestampAndStatus(t *testing.T) {
	db := newFakeDynamo()
	p := newTestPersister(db)

	payload := decodeT(t, `{"order_id":"ord-1","user_id":"u","amount":19.99,"items":[{"sku":"s","qty":2}],"padding":"zz"}`)
	if err := p.Persist(context.Background(), payload); err != nil {
		t.Fatalf("persist error: %v", err)
	}

	item := db.items["ord-1"]
	if item == nil {
		t.Fatal("record not stored")
	}
	if n := item["amount"].(*types.AttributeValueMemberN); n.Value != "19.99" {
		t.Fatalf("amount stored lossily: %s", n.Value)
	}
	if s := item["status"].(*types.AttributeValueMemberS); s.Value != models.OrderStatusReceived {
		t.Fatalf("status marker missing: %s", s.Value)
	}
	if n := item["ts"].(*types.AttributeValueMemberN); n.Value != "1700000000" {
		t.Fatalf("unexpected ts: %s", n.Value)
	}
	if s := item["currency"].(*types.AttributeValueMemberS); s.Value != models.DefaultCurrency {
		t.Fatalf("currency default not applied: %s", s.Value)
	}
	if s := item["padding"].(*types.AttributeValueMemberS); s.Value != "zz" {
		t.Fatalf("extra field dropped: %#v", item["padding"])
	}
}

func TestPersist_DuplicateDeliveryIsNoOpSuccess(t *testing.T) {
	db := newFakeDynamo()
	p := newTestPersister(db)

	payload := decodeT(t, `{"order_id":"ord-1","user_id":"u","amount":5,"items":[1]}`)
	if err := p.Persist(context.Background(), payload); err != nil {
		t.Fatalf("first persist error: %v", err)
	}
	if err := p.Persist(context.Background(), payload); err != nil {
		t.Fatalf("duplicate persist must succeed, got %v", err)
	}
	if len(db.items) != 1 {
		t.Fatalf("expected exactly one stored record, got %d", len(db.items))
	}
	if db.puts != 2 {
		t.Fatalf("expected 2 put attempts, got %d", db.puts)
	}
}

func TestPersist_OtherStorageErrorsPropagate(t *testing.T) {
	db := newFakeDynamo()
	db.err = &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
	p := newTestPersister(db)

	payload := decodeT(t, `{"order_id":"ord-1","user_id":"u","amount":5,"items":[1]}`)
	if err := p.Persist(context.Background(), payload); err == nil {
		t.Fatal("expected storage error to propagate")
	}
}

func TestPersist_UnparseableAmountFails(t *testing.T) {
	// Reachable in validation skip mode only.
	db := newFakeDynamo()
	p := newTestPersister(db)

	payload := decodeT(t, `{"order_id":"ord-1","user_id":"u","amount":"garbage","items":[1]}`)
	if err := p.Persist(context.Background(), payload); err == nil {
		t.Fatal("expected build error for unparseable amount")
	}
	if db.puts != 0 {
		t.Fatalf("no write must happen, puts=%d", db.puts)
	}
}
