package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/overview"
	"expenses/internal/sheets/memory"
)

type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSource) SourceTotals(context.Context) ([]overview.SourceTotal, error) {
	f.calls.Add(1)
	return []overview.SourceTotal{
		{Source: "visa", Tagged: true, Debits: 450},
		{Source: "visa", Tagged: false, Debits: 500},
	}, f.err
}

func (f *fakeSource) SourceTagTotals(context.Context) ([]overview.SourceTagTotal, error) {
	return []overview.SourceTagTotal{{Source: "visa", Tag: "food", Debits: 450}}, nil
}

func (f *fakeSource) ExpensesByYearTag(context.Context, int, int) ([]overview.YearTag, error) {
	return []overview.YearTag{{Year: 2024, Tag: "food", Cents: 450}}, nil
}

func TestExport(t *testing.T) {
	store := memory.New()
	w := NewOverviewWorker(&fakeSource{}, store, time.Hour)
	defer w.Close()

	if err := w.Export(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := store.Overview()
	if len(rows) != 2 || rows[0].Source != overview.AllSources || rows[1].Source != "visa" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[1].Untagged.Debits != 500 {
		t.Errorf("untagged debits = %d, want 500", rows[1].Untagged.Debits)
	}
	if got := store.Yearly(); len(got) != 1 || got[0].Tag != "food" {
		t.Errorf("unexpected yearly rows %+v", got)
	}
}

func TestExportFailsWithoutWriting(t *testing.T) {
	store := memory.New()
	w := NewOverviewWorker(&fakeSource{err: errors.New("db down")}, store, time.Hour)
	defer w.Close()

	err := w.Export(context.Background())
	if err == nil || err.Error() != "load aggregates: db down" {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Writes() != 0 {
		t.Errorf("expected no writes, got %d", store.Writes())
	}
}

func TestTagChangesAreCoalesced(t *testing.T) {
	src := &fakeSource{}
	store := memory.New()
	w := NewOverviewWorker(src, store, 20*time.Millisecond)
	defer w.Close()

	for i := 0; i < 5; i++ {
		msg := amqp.NewTagsChangedMessage(core.TagEdit{IDs: []string{"1"}, Op: core.TagAdd, Tags: []string{"food"}})
		if err := w.HandleTagsChanged(context.Background(), msg); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.Writes() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if got := src.calls.Load(); got != 1 {
		t.Errorf("expected one export for the burst, got %d", got)
	}
	if store.Writes() != 2 {
		t.Errorf("writes = %d, want 2", store.Writes())
	}
}

func TestRunExportsOnStartup(t *testing.T) {
	store := memory.New()
	w := NewOverviewWorker(&fakeSource{}, store, time.Hour)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 0) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.Writes() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if store.Writes() != 2 {
		t.Errorf("writes = %d, want 2", store.Writes())
	}
}
