package organizer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xritd/internal/journal"
	"xritd/internal/organizer"
	"xritd/internal/product"
	"xritd/internal/services"
	"xritd/internal/testsupport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 15, 31, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newOrganizer(t *testing.T, dir string, clock *fakeClock, j organizer.SegmentJournal) *organizer.Organizer {
	t.Helper()
	return organizer.New(organizer.Options{
		Folder:         "test",
		Dir:            dir,
		Pattern:        "*.lrit",
		Bucket:         time.Second,
		CropFullDisk:   true,
		RenameIncoming: true,
		Journal:        j,
		Now:            clock.Now,
	})
}

func segmentName(channel string, seq uint16) string {
	return fmt.Sprintf("gos16chn%srgnFDseg%03d.lrit", channel, seq)
}

func TestIngestRoutesAndCompletes(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	ctx := context.Background()

	var key product.GroupKey
	for seq := range uint16(3) {
		path := testsupport.WriteSegment(t, dir, segmentName("VS", seq), testsupport.Segment{Sequence: seq, MaxSegment: 3})
		res, err := org.Ingest(ctx, path)
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if !res.Inserted || res.Route.Pipeline != product.PipelineVisible {
			t.Fatalf("unexpected result %+v", res)
		}
		key = res.Key
		if res.Complete != (seq == 2) {
			t.Fatalf("segment %d: complete=%v", seq, res.Complete)
		}
	}
	groups := org.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[key]
	if g.SatelliteName != "G16" || g.RegionName != "FD" {
		t.Fatalf("unexpected labels %q %q", g.SatelliteName, g.RegionName)
	}
	if !g.CropImage || !g.HasNavigationData || g.SatelliteLongitude != -75 {
		t.Fatalf("unexpected navigation state %+v", g)
	}
	if !g.Visible.IsComplete() || g.Infrared.MaxSegments != 0 {
		t.Fatal("expected only the visible buffer to be filled")
	}
	if !g.FrameTime.Equal(testsupport.DefaultSegmentTime) {
		t.Fatalf("unexpected frame time %v", g.FrameTime)
	}
}

func TestIngestSharesGroupAcrossChannels(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	ctx := context.Background()

	vis := testsupport.WriteSegment(t, dir, "vis.lrit", testsupport.Segment{SubProductID: 11})
	ir := testsupport.WriteSegment(t, dir, "ir.lrit", testsupport.Segment{SubProductID: 1})
	wv := testsupport.WriteSegment(t, dir, "wv.lrit", testsupport.Segment{SubProductID: 21})
	other := testsupport.WriteSegment(t, dir, "other.lrit", testsupport.Segment{SubProductID: 41})
	nh := testsupport.WriteSegment(t, dir, "nh.lrit", testsupport.Segment{SubProductID: 12})

	for _, p := range []string{vis, ir, wv, other, nh} {
		if _, err := org.Ingest(ctx, p); err != nil {
			t.Fatalf("Ingest %s: %v", p, err)
		}
	}
	groups := org.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected full disk and northern hemisphere groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.RegionName == "NH" {
			continue
		}
		if !g.Visible.IsComplete() || !g.Infrared.IsComplete() || !g.WaterVapour.IsComplete() {
			t.Fatal("expected all fixed channels in the full disk group")
		}
		if _, ok := g.Other["16-41"]; !ok {
			t.Fatalf("expected other channel 16-41, got %v", g.Other)
		}
	}
}

func TestIngestFirstWriterWinsAndMaxSegmentsImmutable(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	ctx := context.Background()

	first := testsupport.WriteSegment(t, dir, "a.lrit", testsupport.Segment{Sequence: 0, MaxSegment: 2})
	dup := testsupport.WriteSegment(t, dir, "b.lrit", testsupport.Segment{Sequence: 0, MaxSegment: 5, Data: []byte{9, 9, 9, 9, 9, 9, 9, 9}})

	res, err := org.Ingest(ctx, first)
	if err != nil {
		t.Fatalf("Ingest first: %v", err)
	}
	again, err := org.Ingest(ctx, dup)
	if err != nil {
		t.Fatalf("Ingest duplicate: %v", err)
	}
	if again.Inserted {
		t.Fatal("duplicate index must not be inserted")
	}
	g := org.Groups()[res.Key]
	if g.Visible.Segments[0] != first {
		t.Fatalf("expected first path kept, got %q", g.Visible.Segments[0])
	}
	if g.Visible.MaxSegments != 2 {
		t.Fatalf("max segments changed to %d", g.Visible.MaxSegments)
	}
}

func TestIngestRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	path := filepath.Join(dir, "junk.lrit")
	testsupport.WriteFile(t, path, 32)

	if _, err := org.Ingest(context.Background(), path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if org.Len() != 0 {
		t.Fatal("garbage must not create groups")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	ctx := context.Background()
	res, err := org.Ingest(ctx, testsupport.WriteSegment(t, dir, "a.lrit", testsupport.Segment{MaxSegment: 2}))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	snapshot := org.Groups()
	if _, err := org.Ingest(ctx, testsupport.WriteSegment(t, dir, "b.lrit", testsupport.Segment{Sequence: 1, MaxSegment: 2})); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(snapshot[res.Key].Visible.Segments) != 1 {
		t.Fatal("snapshot must not observe later ingestion")
	}
	snapshot[res.Key].IsVisibleProcessed = true
	if org.Groups()[res.Key].IsVisibleProcessed {
		t.Fatal("snapshot writes must not leak into live state")
	}

	if !org.Update(res.Key, func(g *product.Group) { g.IsVisibleProcessed = true }) {
		t.Fatal("expected update of live group")
	}
	if !org.Groups()[res.Key].IsVisibleProcessed {
		t.Fatal("expected update to be visible in the next snapshot")
	}
}

func TestConcurrentIngestDuringIteration(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	ctx := context.Background()

	const total = 40
	paths := make([]string, total)
	for i := range total {
		paths[i] = testsupport.WriteSegment(t, dir, fmt.Sprintf("s%02d.lrit", i), testsupport.Segment{Sequence: uint16(i), MaxSegment: total})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, p := range paths {
			if _, err := org.Ingest(ctx, p); err != nil {
				t.Errorf("Ingest: %v", err)
			}
		}
	}()
	for range 50 {
		for _, g := range org.Groups() {
			if n := len(g.Visible.Segments); n > total {
				t.Fatalf("impossible segment count %d", n)
			}
		}
	}
	wg.Wait()

	for _, g := range org.Groups() {
		if !g.Visible.IsComplete() {
			t.Fatalf("expected complete buffer, got %d/%d", len(g.Visible.Segments), g.Visible.MaxSegments)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	org := newOrganizer(t, dir, newFakeClock(), nil)
	ctx := context.Background()
	res, err := org.Ingest(ctx, testsupport.WriteSegment(t, dir, "a.lrit", testsupport.Segment{}))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !org.Remove(ctx, res.Key) {
		t.Fatal("expected first remove to succeed")
	}
	if org.Remove(ctx, res.Key) {
		t.Fatal("expected second remove to be a no-op")
	}
	if org.Update(res.Key, func(*product.Group) {}) {
		t.Fatal("update of removed group must report false")
	}
}

func TestScanRenamesAndIngests(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	org := newOrganizer(t, dir, clock, nil)
	ctx := context.Background()

	testsupport.WriteSegment(t, dir, "rx-0001.lrit", testsupport.Segment{Name: segmentName("VS", 0)})
	testsupport.WriteFile(t, filepath.Join(dir, "broken.lrit"), 4)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 4)

	res, err := org.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Renamed != 1 || res.Ingested != 1 || res.Rejected != 1 {
		t.Fatalf("unexpected scan result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, segmentName("VS", 0))); err != nil {
		t.Fatalf("expected renamed file: %v", err)
	}

	res, err = org.Scan(ctx)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if res.Ingested != 0 || res.Rejected != 0 || res.Renamed != 0 {
		t.Fatalf("expected second scan to skip seen files, got %+v", res)
	}
}

func TestScanRetriesTruncatedSegmentOnceWritten(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	org := newOrganizer(t, dir, clock, nil)
	ctx := context.Background()

	full := testsupport.Segment{Name: segmentName("VS", 0)}.Bytes()
	path := filepath.Join(dir, segmentName("VS", 0))
	if err := os.WriteFile(path, full[:20], 0o644); err != nil {
		t.Fatalf("write partial segment: %v", err)
	}

	res, err := org.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Rejected != 1 || res.Ingested != 0 || len(org.Groups()) != 0 {
		t.Fatalf("expected partial segment to be rejected, got %+v with %d groups", res, len(org.Groups()))
	}

	res, err = org.Scan(ctx)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if res.Rejected != 0 || res.Ingested != 0 {
		t.Fatalf("expected unchanged partial segment to be skipped, got %+v", res)
	}

	if err := os.WriteFile(path, full, 0o644); err != nil {
		t.Fatalf("complete segment: %v", err)
	}
	res, err = org.Scan(ctx)
	if err != nil {
		t.Fatalf("third Scan: %v", err)
	}
	if res.Ingested != 1 || res.Rejected != 0 {
		t.Fatalf("expected completed segment to be ingested, got %+v", res)
	}
	if got := len(org.Groups()); got != 1 {
		t.Fatalf("expected 1 group after completion, got %d", got)
	}
}

func TestScanExpiresOldGroups(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock()
	org := newOrganizer(t, dir, clock, nil)
	ctx := context.Background()

	testsupport.WriteSegment(t, dir, "a.lrit", testsupport.Segment{MaxSegment: 2})
	if _, err := org.Scan(ctx); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	clock.Advance(14 * time.Minute)
	res, err := org.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Stalled != 1 {
		t.Fatalf("expected stalled report, got %+v", res)
	}
	res, _ = org.Scan(ctx)
	if res.Stalled != 0 {
		t.Fatal("stalled groups must be reported once")
	}

	clock.Advance(time.Hour)
	res, err = org.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Expired != 1 || org.Len() != 0 {
		t.Fatalf("expected group to expire, got %+v len=%d", res, org.Len())
	}
}

func TestRestoreFromJournal(t *testing.T) {
	dir := t.TempDir()
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	clock := newFakeClock()

	org := newOrganizer(t, dir, clock, store)
	kept := testsupport.WriteSegment(t, dir, "a.lrit", testsupport.Segment{Sequence: 0, MaxSegment: 3})
	gone := testsupport.WriteSegment(t, dir, "b.lrit", testsupport.Segment{Sequence: 1, MaxSegment: 3})
	for _, p := range []string{kept, gone} {
		if _, err := org.Ingest(ctx, p); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove: %v", err)
	}

	clock.Advance(time.Minute)
	restarted := newOrganizer(t, dir, clock, store)
	n, err := restarted.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 restored segment, got %d", n)
	}
	for _, g := range restarted.Groups() {
		if len(g.Visible.Segments) != 1 || g.Visible.MaxSegments != 3 {
			t.Fatalf("unexpected restored buffer %+v", g.Visible)
		}
		if !g.Created.Equal(newFakeClock().Now()) {
			t.Fatalf("expected creation time from journal, got %v", g.Created)
		}
	}
	rows, err := store.Load(ctx, "test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 || rows[0].Path != kept {
		t.Fatalf("expected missing file row to be dropped, got %+v", rows)
	}

	for key := range restarted.Groups() {
		restarted.Remove(ctx, key)
	}
	if rows, _ := store.Load(ctx, "test"); len(rows) != 0 {
		t.Fatalf("expected journal rows removed with group, got %d", len(rows))
	}
}
