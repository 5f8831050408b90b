package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"xritd/internal/fileutil"
	"xritd/internal/product"
	"xritd/internal/services"
	"xritd/internal/xrit"
)

// Renderer produces product images from reassembled channel buffers.
type Renderer interface {
	RenderFullImage(ctx context.Context, buf *product.ChannelBuffer, crop bool) (image.Image, error)
	CanRenderFalseColor(g *product.Group) bool
	RenderFalseColor(ctx context.Context, g *product.Group) (image.Image, error)
}

// Raw renders uncompressed 8-bit segments.
type Raw struct{}

// NewRaw returns the built-in renderer.
func NewRaw() *Raw { return &Raw{} }

// RenderFullImage stacks the segments of buf top to bottom. All segments must
// share bit depth and column count.
func (Raw) RenderFullImage(ctx context.Context, buf *product.ChannelBuffer, crop bool) (image.Image, error) {
	if buf == nil || len(buf.Segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "render", "full image", "channel has no segments", nil)
	}
	var (
		columns int
		rows    [][]byte
	)
	for _, path := range buf.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, data, err := xrit.ReadDataField(path)
		if err != nil {
			return nil, err
		}
		if header.Compressed() {
			return nil, services.Wrap(services.ErrExternalTool, "render", "full image", "segment is compressed; an external decompressor is required", nil)
		}
		if !header.HasImage || header.Image.Columns == 0 {
			return nil, services.Wrap(services.ErrValidation, "render", "full image", "segment lacks image structure", nil)
		}
		if header.Image.BitsPerPixel != 8 {
			return nil, services.Wrap(services.ErrValidation, "render", "full image", fmt.Sprintf("unsupported bit depth %d", header.Image.BitsPerPixel), nil)
		}
		width := int(header.Image.Columns)
		if columns == 0 {
			columns = width
		} else if width != columns {
			return nil, services.Wrap(services.ErrValidation, "render", "full image", fmt.Sprintf("segment width %d differs from %d", width, columns), nil)
		}
		for len(data) >= width {
			rows = append(rows, data[:width])
			data = data[width:]
		}
	}
	if len(rows) == 0 {
		return nil, services.Wrap(services.ErrValidation, "render", "full image", "segments carry no image lines", nil)
	}

	img := image.NewGray(image.Rect(0, 0, columns, len(rows)))
	for y, row := range rows {
		copy(img.Pix[y*img.Stride:], row)
	}
	if crop {
		return cropBorder(img), nil
	}
	return img, nil
}

// CanRenderFalseColor reports whether both visible and infrared are complete.
func (Raw) CanRenderFalseColor(g *product.Group) bool {
	return g != nil && g.Visible.IsComplete() && g.Infrared.IsComplete()
}

// RenderFalseColor blends visible brightness with inverted infrared so cold
// cloud tops tint blue.
func (r Raw) RenderFalseColor(ctx context.Context, g *product.Group) (image.Image, error) {
	if !r.CanRenderFalseColor(g) {
		return nil, services.Wrap(services.ErrValidation, "render", "false colour", "visible and infrared channels are required", nil)
	}
	vis, err := r.RenderFullImage(ctx, g.Visible, false)
	if err != nil {
		return nil, fmt.Errorf("visible channel: %w", err)
	}
	ir, err := r.RenderFullImage(ctx, g.Infrared, false)
	if err != nil {
		return nil, fmt.Errorf("infrared channel: %w", err)
	}
	bounds := vis.Bounds()
	if bounds != ir.Bounds() {
		return nil, services.Wrap(services.ErrValidation, "render", "false colour",
			fmt.Sprintf("visible %v and infrared %v differ in size", bounds.Size(), ir.Bounds().Size()), nil)
	}
	visGray, irGray := vis.(*image.Gray), ir.(*image.Gray)
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := visGray.GrayAt(x, y).Y
			cold := 255 - irGray.GrayAt(x, y).Y
			out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: max(v, cold), A: 255})
		}
	}
	if g.CropImage {
		return cropBorder(out), nil
	}
	return out, nil
}

// cropBorder trims outer rows and columns that are entirely black, such as
// the space surrounding a full disk.
func cropBorder(img image.Image) image.Image {
	b := img.Bounds()
	blank := func(x, y int) bool {
		r, g, bl, _ := img.At(x, y).RGBA()
		return r == 0 && g == 0 && bl == 0
	}
	rowBlank := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !blank(x, y) {
				return false
			}
		}
		return true
	}
	colBlank := func(x, y0, y1 int) bool {
		for y := y0; y < y1; y++ {
			if !blank(x, y) {
				return false
			}
		}
		return true
	}
	top, bottom := b.Min.Y, b.Max.Y
	for top < bottom && rowBlank(top) {
		top++
	}
	for bottom > top && rowBlank(bottom-1) {
		bottom--
	}
	if top == bottom {
		return img
	}
	left, right := b.Min.X, b.Max.X
	for left < right && colBlank(left, top, bottom) {
		left++
	}
	for right > left && colBlank(right-1, top, bottom) {
		right--
	}
	rect := image.Rect(left, top, right, bottom)
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}
	return img
}

// WritePNG encodes img to path atomically.
func WritePNG(path string, img image.Image) error {
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return png.Encode(w, img)
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "render", "write png", path, err)
	}
	return nil
}

// DecodePNG reads an image written by WritePNG.
func DecodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
