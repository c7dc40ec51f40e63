package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := newWriter(&fakeInserter{}, Config{OrderEventsTable: " "}); err == nil {
		t.Fatal("expected error when order events table missing")
	}
}

func TestNewWriterDefaults(t *testing.T) {
	w, err := newWriter(&fakeInserter{}, Config{
		OrderEventsTable: " order_events ",
		RetryPolicy:      RetryPolicy{InitialBackoff: 5 * time.Second, MaximumBackoff: time.Second},
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	if w.table != "order_events" {
		t.Fatalf("expected trimmed table, got %q", w.table)
	}
	if w.batchSize != defaultBatchSize {
		t.Fatalf("expected default batch size, got %d", w.batchSize)
	}
	if w.retry.MaxAttempts != defaultMaxAttempts {
		t.Fatalf("expected default attempts, got %d", w.retry.MaxAttempts)
	}
	if w.retry.MaximumBackoff != w.retry.InitialBackoff {
		t.Fatalf("expected maximum backoff raised to initial, got %s", w.retry.MaximumBackoff)
	}
}

func TestEncodeJSON(t *testing.T) {
	raw := map[string]any{"foo": "bar"}
	nj, err := EncodeJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error encoding json: %v", err)
	}
	if !nj.Valid {
		t.Fatal("expected json to be marked valid")
	}

	nj, err = EncodeJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error for nil json: %v", err)
	}
	if nj.Valid {
		t.Fatal("expected nil json to be invalid")
	}

	rawMessage := json.RawMessage(`{"foo":"baz"}`)
	nj, err = EncodeJSON(rawMessage)
	if err != nil {
		t.Fatalf("unexpected error encoding raw json: %v", err)
	}
	if nj.JSONVal != string(rawMessage) {
		t.Fatalf("expected raw json passed through, got %s", nj.JSONVal)
	}

	nj, err = EncodeJSON(json.RawMessage(nil))
	if err != nil || nj.Valid {
		t.Fatalf("expected empty raw json to be null, got %+v err=%v", nj, err)
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != "order_events" {
		t.Fatalf("expected order_events table on retry, got %s", fake.calls[1].table)
	}
	if writer.Pending() != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	err := writer.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "1"})
	if err == nil {
		t.Fatal("expected error for bad request")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.calls))
	}
	if writer.Pending() != 1 {
		t.Fatalf("expected row kept for the next flush, got %d", writer.Pending())
	}
}

func TestWriterGivesUpAfterMaxAttempts(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	unavailable := status.Error(codes.Unavailable, "try later")
	fake.responses = []error{unavailable, unavailable, unavailable, unavailable}

	err := writer.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "1"})
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected max attempts honored, got %d", len(fake.calls))
	}
}

func TestWriterBatching(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert before batch full, got %d", len(fake.calls))
	}

	if err := writer.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "2"}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single insert after batch flush, got %d", len(fake.calls))
	}
	if fake.calls[0].rowCount != 2 {
		t.Fatalf("expected two rows inserted, got %d", fake.calls[0].rowCount)
	}
}

func TestWriterFlush(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10
	if err := writer.InsertOrderEvent(context.Background(), types.OrderEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected flush to insert once, got %d", len(fake.calls))
	}
	if writer.Pending() != 0 {
		t.Fatalf("expected buffer to be empty after flush, got %d", writer.Pending())
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("empty flush should be a no-op: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected no insert for empty buffer, got %d", len(fake.calls))
	}
}

func TestIsRetryableBigQueryError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":          {err: nil, want: false},
		"plain":        {err: errors.New("boom"), want: false},
		"http 429":     {err: &googleapi.Error{Code: http.StatusTooManyRequests}, want: true},
		"http 404":     {err: &googleapi.Error{Code: http.StatusNotFound}, want: false},
		"grpc aborted": {err: status.Error(codes.Aborted, "x"), want: true},
		"grpc invalid": {err: status.Error(codes.InvalidArgument, "x"), want: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := isRetryableBigQueryError(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	writer, err := newWriter(fake, Config{
		OrderEventsTable: "order_events",
		RetryPolicy: RetryPolicy{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	return writer, fake
}
