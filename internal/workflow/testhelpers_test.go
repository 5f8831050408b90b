package workflow_test

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xritd/internal/config"
	"xritd/internal/logging"
	"xritd/internal/notifications"
	"xritd/internal/organizer"
	"xritd/internal/product"
	"xritd/internal/render"
	"xritd/internal/testsupport"
	"xritd/internal/workflow"
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

type stubRenderer struct {
	mu            sync.Mutex
	full          []string
	falseColor    int
	err           error
	falseColorOK  bool
	lastCropValue bool
}

func (s *stubRenderer) RenderFullImage(_ context.Context, buf *product.ChannelBuffer, crop bool) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full = append(s.full, buf.Name)
	s.lastCropValue = crop
	if s.err != nil {
		return nil, s.err
	}
	return image.NewGray(image.Rect(0, 0, 4, 2*buf.MaxSegments)), nil
}

func (s *stubRenderer) CanRenderFalseColor(g *product.Group) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.falseColorOK && g.Visible.IsComplete() && g.Infrared.IsComplete()
}

func (s *stubRenderer) RenderFalseColor(context.Context, *product.Group) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.falseColor++
	if s.err != nil {
		return nil, s.err
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 2)), nil
}

func (s *stubRenderer) setFalseColorReady(ok bool) {
	s.mu.Lock()
	s.falseColorOK = ok
	s.mu.Unlock()
}

func (s *stubRenderer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.full) + s.falseColor
}

type recordingPublisher struct {
	mu       sync.Mutex
	products []notifications.Product
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, p notifications.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = append(r.products, p)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

type harness struct {
	cfg       *config.Config
	folder    config.Folder
	clock     *fakeClock
	org       *organizer.Organizer
	renderer  *stubRenderer
	publisher *recordingPublisher
	mgr       *workflow.Manager
}

func newHarness(t *testing.T, r render.Renderer, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	folder := testsupport.Folder(cfg)
	clock := newFakeClock()
	org := organizer.New(organizer.Options{
		Folder:  folder.Name,
		Dir:     folder.Path,
		Pattern: "*.lrit",
		Bucket:  time.Second,
		Now:     clock.Now,
	})
	h := &harness{
		cfg:       cfg,
		folder:    folder,
		clock:     clock,
		org:       org,
		publisher: &recordingPublisher{},
	}
	if r == nil {
		h.renderer = &stubRenderer{}
		r = h.renderer
	}
	mgr, err := workflow.NewManager(cfg, folder, org, logging.NewNop(),
		workflow.WithRenderer(r),
		workflow.WithPublisher(h.publisher),
		workflow.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.mgr = mgr
	return h
}

func (h *harness) writeSegment(t *testing.T, channel string, sub, seq, total uint16) string {
	t.Helper()
	name := fmt.Sprintf("gos16chn%srgnFDseg%03d.lrit", channel, seq)
	return testsupport.WriteSegment(t, h.folder.Path, name, testsupport.Segment{
		SubProductID: sub,
		Sequence:     seq,
		MaxSegment:   total,
		Name:         name,
	})
}

func (h *harness) outputPath(tag string) string {
	return filepath.Join(h.folder.OutputDir, fmt.Sprintf("G16-FD-%s-%d.png", tag, testsupport.DefaultSegmentTime.Unix()))
}

func (h *harness) outputs(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.folder.OutputDir, "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat %s: %v", path, err)
	return false
}

func onlyVisible() config.Pipelines {
	return config.Pipelines{Visible: true}
}

const (
	subVisibleFD     = 11
	subInfraredFD    = 1
	subWaterVapourFD = 21
)
