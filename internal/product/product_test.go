package product_test

import (
	"testing"
	"time"

	"xritd/internal/product"
)

func TestChannelBufferCompletion(t *testing.T) {
	buf := product.NewChannelBuffer("VIS")
	if buf.IsComplete() {
		t.Fatal("empty buffer must not be complete")
	}
	buf.Insert(0, "/a/0", 1)
	buf.Insert(1, "/a/1", 2)
	if buf.IsComplete() {
		t.Fatal("buffer without max segments must not be complete")
	}
	if !buf.SetMaxSegments(3) {
		t.Fatal("expected first max segments to be stored")
	}
	if buf.SetMaxSegments(5) || buf.MaxSegments != 3 {
		t.Fatalf("max segments must be immutable once set, got %d", buf.MaxSegments)
	}
	if buf.IsComplete() {
		t.Fatal("buffer with 2 of 3 segments must not be complete")
	}
	if !buf.Insert(2, "/a/2", 3) {
		t.Fatal("expected third segment to be inserted")
	}
	if !buf.IsComplete() {
		t.Fatal("expected buffer to be complete")
	}
	if buf.Insert(1, "/b/1", 9) {
		t.Fatal("duplicate index must be ignored")
	}
	if buf.Segments[1] != "/a/1" || buf.Checksums[1] != 2 {
		t.Fatalf("first writer must win, got %q/%d", buf.Segments[1], buf.Checksums[1])
	}
	if !buf.IsComplete() {
		t.Fatal("duplicate insertion must not break completion")
	}
}

func TestChannelBufferOrdering(t *testing.T) {
	buf := product.NewChannelBuffer("IR")
	buf.Insert(7, "/s/7", 0)
	buf.Insert(2, "/s/2", 0)
	buf.Insert(4, "/s/4", 0)
	first, ok := buf.FirstSegment()
	if !ok || first != "/s/2" {
		t.Fatalf("FirstSegment = %q,%v", first, ok)
	}
	paths := buf.Paths()
	if len(paths) != 3 || paths[0] != "/s/2" || paths[1] != "/s/4" || paths[2] != "/s/7" {
		t.Fatalf("unexpected path order %v", paths)
	}
	if buf.Insert(-1, "/s/neg", 0) {
		t.Fatal("negative index must be rejected")
	}
}

func TestPipelinesSatisfiedOnlyConsidersEnabled(t *testing.T) {
	visibleOnly := product.Pipelines{Visible: true}
	if visibleOnly.Satisfied(product.PipelineState{}) {
		t.Fatal("unprocessed enabled pipeline must block")
	}
	if !visibleOnly.Satisfied(product.PipelineState{Visible: true}) {
		t.Fatal("disabled pipelines must be vacuously satisfied")
	}
	if !(product.Pipelines{}).Satisfied(product.PipelineState{}) {
		t.Fatal("no enabled pipelines must be satisfied")
	}
	all := product.Pipelines{FalseColor: true, Visible: true, Infrared: true, WaterVapour: true, Other: true}
	if all.Satisfied(product.PipelineState{FalseColor: true, Visible: true, Infrared: true, WaterVapour: true}) {
		t.Fatal("other pipeline must block when enabled")
	}
}

func TestGroupVisibleOnlyScenario(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := product.NewGroup(1, now)
	g.Visible.SetMaxSegments(3)
	for i := range 3 {
		g.Visible.Insert(i, "/v", 0)
	}
	g.SetProcessed(product.PipelineVisible)

	enabled := product.Pipelines{Visible: true}
	if !enabled.Satisfied(g.State()) {
		t.Fatal("expected group to be processed with only visible enabled")
	}
	state := g.State()
	if state.Infrared || state.WaterVapour || state.FalseColor {
		t.Fatalf("other flags must remain unset, got %+v", state)
	}
}

func TestForceCompleteOnEmptyGroup(t *testing.T) {
	g := product.NewGroup(1, time.Now())
	g.OtherChannel("16-99")
	g.ForceComplete()
	if !g.IsProcessed {
		t.Fatal("expected IsProcessed")
	}
	state := g.State()
	if !state.FalseColor || !state.Visible || !state.Infrared || !state.WaterVapour {
		t.Fatalf("expected all flags set, got %+v", state)
	}
	if !g.Other["16-99"].OK {
		t.Fatal("expected other buffer OK")
	}
	all := product.Pipelines{FalseColor: true, Visible: true, Infrared: true, WaterVapour: true}
	if !all.Satisfied(state) {
		t.Fatal("expected fixed pipelines satisfied after force complete")
	}
}

func TestOtherDataProcessed(t *testing.T) {
	g := product.NewGroup(1, time.Now())
	if !g.IsOtherDataProcessed() {
		t.Fatal("no other data must count as processed")
	}
	buf := g.OtherChannel("16-99")
	buf.SetMaxSegments(1)
	buf.Insert(0, "/o", 0)
	if g.IsOtherDataProcessed() {
		t.Fatal("complete but undelivered buffer must not count")
	}
	buf.OK = true
	if !g.IsOtherDataProcessed() {
		t.Fatal("expected processed once delivered")
	}
	if g.OtherChannel("16-99") != buf {
		t.Fatal("OtherChannel must return the existing buffer")
	}
}

func TestGroupTimeouts(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := product.NewGroup(1, created)
	if g.Timeout(created.Add(15*time.Minute)) || !g.Timeout(created.Add(15*time.Minute+time.Second)) {
		t.Fatal("unexpected data timeout boundary")
	}
	if g.ReadyToMark(created.Add(13*time.Minute)) || !g.ReadyToMark(created.Add(14*time.Minute)) {
		t.Fatal("unexpected mark boundary")
	}
	if g.GroupTimeout(created.Add(time.Hour)) || !g.GroupTimeout(created.Add(time.Hour+time.Second)) {
		t.Fatal("unexpected group timeout boundary")
	}
}

func TestGroupDefaultsAndClone(t *testing.T) {
	g := product.NewGroup(5, time.Now())
	if g.SatelliteName != "Unknown" || g.RegionName != "Unknown" {
		t.Fatalf("unexpected default names %q %q", g.SatelliteName, g.RegionName)
	}
	if g.FallBackColumnOffset != -1 || g.FallBackLineOffset != -1 {
		t.Fatal("expected fallback offsets of -1")
	}
	g.Visible.Insert(0, "/v0", 0)
	g.OtherChannel("x").Insert(0, "/x0", 0)

	clone := g.Clone()
	clone.Visible.Insert(1, "/v1", 0)
	clone.Other["x"].OK = true
	clone.IsVisibleProcessed = true
	if len(g.Visible.Segments) != 1 || g.Other["x"].OK || g.IsVisibleProcessed {
		t.Fatal("clone must not share state with the original")
	}
}

func TestGroupKeyComposition(t *testing.T) {
	frame := time.Date(2026, 3, 14, 15, 30, 7, 0, time.UTC)
	a := product.NewGroupKey(16, 1, frame, time.Second)
	b := product.NewGroupKey(16, 2, frame, time.Second)
	c := product.NewGroupKey(17, 1, frame, time.Second)
	d := product.NewGroupKey(16, 1, frame.Add(time.Second), time.Second)
	if a == b || a == c || a == d {
		t.Fatal("distinct product/region/time must yield distinct keys")
	}
	if d <= a {
		t.Fatal("later frames must sort after earlier ones")
	}
	if a.ProductID() != 16 || a.Region() != 1 {
		t.Fatalf("unexpected components %d %d", a.ProductID(), a.Region())
	}
	if !a.Timestamp(time.Second).Equal(frame) {
		t.Fatalf("Timestamp = %v, want %v", a.Timestamp(time.Second), frame)
	}
	wide := product.NewGroupKey(16, 1, frame, time.Minute)
	if !wide.Timestamp(time.Minute).Equal(frame.Truncate(time.Minute)) {
		t.Fatalf("expected minute bucket start, got %v", wide.Timestamp(time.Minute))
	}
	if product.NewGroupKey(16, 1, frame.Add(30*time.Second), time.Minute) != wide {
		t.Fatal("frames in the same bucket must share a key")
	}

	high := product.NewGroupKey(16+32768, 1, frame, time.Second)
	if high == a {
		t.Fatal("product ids differing in the top bit must not share a key")
	}
	if high < 0 {
		t.Fatalf("key must stay positive, got %d", high)
	}
	if high.ProductID() != 16+32768 || high.Region() != 1 || !high.Timestamp(time.Second).Equal(frame) {
		t.Fatalf("unexpected components %d %d %v", high.ProductID(), high.Region(), high.Timestamp(time.Second))
	}
	top := product.NewGroupKey(0xFFFF, 0xFF, frame, time.Second)
	if top < 0 || top.ProductID() != 0xFFFF || top.Region() != 0xFF {
		t.Fatalf("unexpected extreme key %d", top)
	}
}
