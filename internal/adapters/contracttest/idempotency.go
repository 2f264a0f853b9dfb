package contracttest

import (
	"context"
	"testing"

	idempotencyport "github.com/the-holiday/member-portal-api/internal/ports/out/idempotency"
)

type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// RunIdempotencyStore checks replay records. Records are written without CreatedAt so
// each store stamps them with its own clock and they stay within retention.
func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Scope:    "ayesha@example.com",
		Method:   "POST",
		Route:    "/auth/signup",
		BodyHash: "body-1",
	}
	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"notification":{"title":"Account created!"}}`),
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != string(rec.Body) || got.ContentType != rec.ContentType || got.StatusCode != rec.StatusCode {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be stamped")
	}

	// A different payload under the same key is a different fingerprint.
	other := fp
	other.BodyHash = "body-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other body: ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.StatusCode = 409
	rec2.Body = []byte(`{"error":{"code":"USER_ALREADY_REGISTERED"}}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || got.StatusCode != 409 || string(got.Body) != string(rec2.Body) {
		t.Fatalf("expected overwritten record, got ok=%v err=%v rec=%+v", ok, err, got)
	}
}
