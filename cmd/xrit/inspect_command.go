package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"xritd/internal/organizer"
	"xritd/internal/product"
	"xritd/internal/xrit"
)

type inspectRow struct {
	File       string    `json:"file"`
	Name       string    `json:"name"`
	Satellite  string    `json:"satellite"`
	Region     string    `json:"region"`
	Channel    string    `json:"channel"`
	Pipeline   string    `json:"pipeline"`
	GroupKey   int64     `json:"group_key"`
	Segment    int       `json:"segment"`
	Segments   int       `json:"segments"`
	Columns    int       `json:"columns"`
	Lines      int       `json:"lines"`
	Pixels     int       `json:"pixels"`
	Compressed bool      `json:"compressed"`
	NOAAFlag   bool      `json:"noaa_compression_flag"`
	FrameTime  time.Time `json:"frame_time"`
}

func newInspectCommand() *cobra.Command {
	var asJSON bool
	var bucket time.Duration

	cmd := &cobra.Command{
		Use:         "inspect <file>...",
		Short:       "Decode transport file headers",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]inspectRow, 0, len(args))
			for _, path := range args {
				row, err := inspectFile(path, bucket)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				rows = append(rows, row)
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					r.File,
					r.Name,
					r.Satellite,
					r.Region,
					r.Channel,
					fmt.Sprintf("%d/%d", r.Segment, r.Segments),
					fmt.Sprintf("%dx%d", r.Columns, r.Lines),
					yesNo(r.Compressed),
					formatFrameTime(r.FrameTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Name", "Satellite", "Region", "Channel", "Segment", "Size", "Compressed", "Frame"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().DurationVar(&bucket, "bucket", time.Second, "Frame time bucket used for group keys")
	return cmd
}

func inspectFile(path string, bucket time.Duration) (inspectRow, error) {
	buf, err := xrit.ReadHeader(path)
	if err != nil {
		return inspectRow{}, err
	}
	h, err := xrit.ParseHeader(buf)
	if err != nil {
		return inspectRow{}, err
	}
	route := organizer.Resolve(h)
	row := inspectRow{
		File:       filepath.Base(path),
		Name:       xrit.ExtractFilename(buf),
		Satellite:  route.Satellite,
		Region:     route.Region,
		Channel:    route.Channel,
		Pipeline:   string(route.Pipeline),
		Segment:    int(h.Segment.Sequence),
		Segments:   int(h.Segment.MaxSegment),
		Columns:    int(h.Image.Columns),
		Lines:      int(h.Image.Lines),
		Pixels:     int(xrit.PixelCount(buf)),
		Compressed: h.Compressed(),
		NOAAFlag:   xrit.IsCompressed(buf),
		FrameTime:  h.Time,
	}
	if h.HasProduct && h.HasTime {
		row.GroupKey = int64(product.NewGroupKey(h.Product.ProductID, route.RegionCode, h.Time, bucket))
	}
	return row, nil
}

func formatFrameTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339) + " (" + strconv.FormatInt(t.Unix(), 10) + ")"
}
