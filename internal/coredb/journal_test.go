package coredb

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJournalAppendAndIterate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(ctx, Options{DataDir: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	journal := NewJournal(db, 0)

	ts := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	first, err := journal.Append(ctx, "dsp-1", "dispatch.start", []byte(`{"action":"deploy"}`), ts)
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	if first.Seq == 0 {
		t.Fatalf("expected sequence > 0")
	}

	second, err := journal.Append(ctx, "dsp-1", "argument.resolved", []byte(`{"message":"hello"}`), ts.Add(time.Second))
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if second.Seq <= first.Seq {
		t.Fatalf("expected second seq greater than first (first=%d second=%d)", first.Seq, second.Seq)
	}

	var entries []JournalEntry
	if err := journal.ForEach(ctx, "dsp-1", 0, func(e JournalEntry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		t.Fatalf("journal iterate: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Seq != first.Seq || entries[1].Seq != second.Seq {
		t.Fatalf("unexpected sequences: %#v", entries)
	}
	if !entries[0].Timestamp.Equal(ts) {
		t.Fatalf("expected first timestamp %v, got %v", ts, entries[0].Timestamp)
	}
	if entries[1].EventType != "argument.resolved" {
		t.Fatalf("expected event type argument.resolved, got %s", entries[1].EventType)
	}
}

func TestJournalEvictsOldestWhenOverLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(ctx, Options{DataDir: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	// Limit well below two payloads to force eviction of the first.
	journal := NewJournal(db, 30)

	if _, err := journal.Append(ctx, "dsp-1", "argument.resolved", []byte(`{"message":"alpha"}`), time.Now().UTC()); err != nil {
		t.Fatalf("append alpha: %v", err)
	}
	second, err := journal.Append(ctx, "dsp-1", "argument.resolved", []byte(`{"message":"bravo"}`), time.Now().UTC())
	if err != nil {
		t.Fatalf("append bravo: %v", err)
	}

	var sequences []int64
	if err := journal.ForEach(ctx, "dsp-1", 0, func(e JournalEntry) error {
		sequences = append(sequences, e.Seq)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(sequences) != 1 {
		t.Fatalf("expected single retained entry, got %d", len(sequences))
	}
	if sequences[0] != second.Seq {
		t.Fatalf("expected retained seq %d, got %d", second.Seq, sequences[0])
	}

	earliest, latest, err := journal.Bounds(ctx, "dsp-1")
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if earliest != second.Seq || latest != second.Seq {
		t.Fatalf("expected bounds to equal second seq %d, got earliest=%d latest=%d", second.Seq, earliest, latest)
	}
}

func TestJournalRejectsPayloadAboveLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(ctx, Options{DataDir: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	journal := NewJournal(db, 8) // eight bytes max
	_, err = journal.Append(ctx, "dsp-1", "argument.resolved", []byte(`{"msg":"too big"}`), time.Now().UTC())
	if !errors.Is(err, ErrJournalQuotaExceeded) {
		t.Fatalf("expected ErrJournalQuotaExceeded, got %v", err)
	}
}

func TestJournalDispatchesNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	journal := NewJournal(db, 0)
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	appends := []struct {
		id  string
		typ string
		at  time.Duration
	}{
		{"dsp-a", "dispatch.start", 0},
		{"dsp-a", "dispatch.finish", time.Second},
		{"dsp-b", "dispatch.start", 2 * time.Second},
		{"dsp-c", "dispatch.start", 3 * time.Second},
		{"dsp-c", "argument.resolved", 4 * time.Second},
		{"dsp-c", "dispatch.finish", 5 * time.Second},
	}
	for _, a := range appends {
		if _, err := journal.Append(ctx, a.id, a.typ, []byte(`{}`), base.Add(a.at)); err != nil {
			t.Fatalf("append %s: %v", a.id, err)
		}
	}

	all, err := journal.Dispatches(ctx, 0)
	if err != nil {
		t.Fatalf("dispatches: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(all))
	}
	if all[0].DispatchID != "dsp-c" || all[2].DispatchID != "dsp-a" {
		t.Fatalf("unexpected order: %#v", all)
	}
	if all[0].Events != 3 {
		t.Fatalf("expected 3 events for dsp-c, got %d", all[0].Events)
	}
	if !all[0].Started.Equal(base.Add(3*time.Second)) || !all[0].Updated.Equal(base.Add(5*time.Second)) {
		t.Fatalf("unexpected times: %#v", all[0])
	}

	limited, err := journal.Dispatches(ctx, 1)
	if err != nil {
		t.Fatalf("dispatches limited: %v", err)
	}
	if len(limited) != 1 || limited[0].DispatchID != "dsp-c" {
		t.Fatalf("unexpected limited result: %#v", limited)
	}
}

func TestJournalAppendRequiresDispatchID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := NewJournal(db, 0).Append(ctx, "", "dispatch.start", []byte(`{}`), time.Time{}); err == nil {
		t.Fatalf("expected error for empty dispatch id")
	}
}

func TestNilJournalIsNoop(t *testing.T) {
	t.Parallel()
	var j *Journal
	if _, err := j.Append(context.Background(), "dsp", "x", []byte("{}"), time.Time{}); err != nil {
		t.Fatalf("nil journal append: %v", err)
	}
	if got, err := j.Dispatches(context.Background(), 5); err != nil || got != nil {
		t.Fatalf("nil journal dispatches: %v %v", got, err)
	}
}
