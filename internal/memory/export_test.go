package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/keepsake-ai/keepsake/internal/memory"
)

func TestExportImport_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src, _ := newManager(t)

	if _, err := src.AppendMessage(ctx, userTurn("remember me", "hopeful")); err != nil {
		t.Fatalf("AppendMessage: unexpected error: %v", err)
	}
	if err := src.UpsertWeeklySummary(ctx, memory.WeeklySummary{
		WeekID:    "2026-W34",
		StartDate: time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		Summary:   "a steady week",
	}); err != nil {
		t.Fatalf("UpsertWeeklySummary: unexpected error: %v", err)
	}
	if err := src.MergeIntoProfile(ctx, memory.ProfilePatch{
		PreferredName: "Sam",
		Triggers:      []string{"crowds"},
	}); err != nil {
		t.Fatalf("MergeIntoProfile: unexpected error: %v", err)
	}

	doc, err := src.Export(ctx)
	if err != nil {
		t.Fatalf("Export: unexpected error: %v", err)
	}
	if doc.ExportDate.IsZero() {
		t.Error("ExportDate not set")
	}
	if doc.Session == nil || len(doc.Session.Messages) != 1 {
		t.Fatalf("exported session = %+v, want 1 message", doc.Session)
	}

	// Import overwrites a populated target wholesale.
	dst, _ := newManager(t)
	if err := dst.MergeIntoProfile(ctx, memory.ProfilePatch{PreferredName: "Overwritten"}); err != nil {
		t.Fatalf("MergeIntoProfile (pre-import): unexpected error: %v", err)
	}
	if err := dst.Import(ctx, doc); err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}

	p, err := dst.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: unexpected error: %v", err)
	}
	if p.PreferredName != "Sam" {
		t.Errorf("PreferredName = %q, want %q (wholesale overwrite)", p.PreferredName, "Sam")
	}
	weeks, _ := dst.WeeklySummaries(ctx)
	if len(weeks) != 1 || weeks[0].Summary != "a steady week" {
		t.Errorf("imported weeks = %+v, want the exported summary", weeks)
	}
	cur, _ := dst.CurrentSession(ctx)
	if cur == nil || cur.Messages[0].Content != "remember me" {
		t.Errorf("imported session = %+v, want the exported session", cur)
	}
}

func TestImport_NilSessionClearsShortTier(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newManager(t)

	if _, err := m.AppendMessage(ctx, userTurn("stale", "")); err != nil {
		t.Fatalf("AppendMessage: unexpected error: %v", err)
	}

	if err := m.Import(ctx, memory.ExportDocument{ExportDate: time.Now()}); err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}

	cur, err := m.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession: unexpected error: %v", err)
	}
	if cur != nil {
		t.Errorf("CurrentSession after import of empty document = %+v, want nil", cur)
	}
}
