package render_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"xritd/internal/product"
	"xritd/internal/render"
	"xritd/internal/services"
	"xritd/internal/testsupport"
)

func channelFromSegments(t *testing.T, segs ...testsupport.Segment) *product.ChannelBuffer {
	t.Helper()
	dir := t.TempDir()
	buf := product.NewChannelBuffer("VIS")
	buf.SetMaxSegments(len(segs))
	for i, seg := range segs {
		seg.Sequence = uint16(i)
		seg.MaxSegment = uint16(len(segs))
		path := testsupport.WriteSegment(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".lrit", seg)
		buf.Insert(i, path, 0)
	}
	return buf
}

func TestRenderFullImageStacksSegments(t *testing.T) {
	buf := channelFromSegments(t,
		testsupport.Segment{Columns: 3, Lines: 1, Data: []byte{1, 2, 3}},
		testsupport.Segment{Columns: 3, Lines: 2, Data: []byte{4, 5, 6, 7, 8, 9}},
	)
	img, err := render.NewRaw().RenderFullImage(context.Background(), buf, false)
	if err != nil {
		t.Fatalf("RenderFullImage: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(3, 3) {
		t.Fatalf("unexpected size %v", got)
	}
	gray := img.(*image.Gray)
	if gray.GrayAt(0, 0).Y != 1 || gray.GrayAt(2, 2).Y != 9 || gray.GrayAt(0, 1).Y != 4 {
		t.Fatal("segments stacked in the wrong order")
	}
}

func TestRenderFullImageRejectsInconsistentSegments(t *testing.T) {
	buf := channelFromSegments(t,
		testsupport.Segment{Columns: 3, Lines: 1, Data: []byte{1, 2, 3}},
		testsupport.Segment{Columns: 2, Lines: 1, Data: []byte{4, 5}},
	)
	_, err := render.NewRaw().RenderFullImage(context.Background(), buf, false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRenderFullImageRejectsCompressed(t *testing.T) {
	buf := channelFromSegments(t, testsupport.Segment{Compressed: true})
	_, err := render.NewRaw().RenderFullImage(context.Background(), buf, false)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRenderFullImageCropsBlackBorder(t *testing.T) {
	data := []byte{
		0, 0, 0, 0,
		0, 7, 8, 0,
		0, 0, 9, 0,
		0, 0, 0, 0,
	}
	buf := channelFromSegments(t, testsupport.Segment{Columns: 4, Lines: 4, Data: data})
	img, err := render.NewRaw().RenderFullImage(context.Background(), buf, true)
	if err != nil {
		t.Fatalf("RenderFullImage: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(1, 1, 3, 3) {
		t.Fatalf("unexpected crop bounds %v", got)
	}
}

func TestRenderFalseColor(t *testing.T) {
	raw := render.NewRaw()
	g := product.NewGroup(1, time.Now())
	if raw.CanRenderFalseColor(g) {
		t.Fatal("empty group must not be eligible")
	}
	if _, err := raw.RenderFalseColor(context.Background(), g); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	g.Visible = channelFromSegments(t, testsupport.Segment{Columns: 2, Lines: 1, Data: []byte{100, 10}})
	g.Infrared = channelFromSegments(t, testsupport.Segment{Columns: 2, Lines: 1, Data: []byte{255, 0}})
	if !raw.CanRenderFalseColor(g) {
		t.Fatal("expected group to be eligible")
	}
	img, err := raw.RenderFalseColor(context.Background(), g)
	if err != nil {
		t.Fatalf("RenderFalseColor: %v", err)
	}
	rgba := img.(*image.RGBA)
	if got := rgba.RGBAAt(0, 0); got != (color.RGBA{R: 100, G: 100, B: 100, A: 255}) {
		t.Fatalf("unexpected warm pixel %v", got)
	}
	if got := rgba.RGBAAt(1, 0); got != (color.RGBA{R: 10, G: 10, B: 255, A: 255}) {
		t.Fatalf("unexpected cold pixel %v", got)
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 3))
	path := filepath.Join(t.TempDir(), "out.png")
	if err := render.WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	decoded, err := render.DecodePNG(path)
	if err != nil {
		t.Fatalf("DecodePNG: %v", err)
	}
	if decoded.Bounds().Size() != image.Pt(5, 3) {
		t.Fatalf("unexpected decoded size %v", decoded.Bounds())
	}

	missing := filepath.Join(t.TempDir(), "nope", "out.png")
	if err := render.WritePNG(missing, img); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}
