package workflow_test

import (
	"strings"
	"testing"
	"time"

	"xritd/internal/workflow"
)

func TestOutputName(t *testing.T) {
	ts := time.Date(2026, time.March, 14, 15, 30, 5, 0, time.UTC)
	goes := strings.Repeat("a", 31) + strings.Repeat("b", 17)

	tests := []struct {
		name   string
		source string
		noaa   bool
		want   string
	}{
		{name: "default", source: goes, want: "G16-FD-VIS-1773502205.png"},
		{name: "noaa 48 char", source: "/in/" + goes, noaa: true, want: strings.Repeat("a", 31) + "073153005000.png"},
		{name: "himawari", source: "IMG_DK01IR3_201705190350_002", noaa: true, want: "IMG_DK01IR3_202603141530_000.png"},
		{name: "noaa fallback", source: "short.lrit", noaa: true, want: "G16-FD-VIS-1773502205.png"},
		{name: "noaa without source", noaa: true, want: "G16-FD-VIS-1773502205.png"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := workflow.OutputName("G16", "FD", "VIS", ts, tc.source, tc.noaa); got != tc.want {
				t.Fatalf("OutputName = %q, want %q", got, tc.want)
			}
		})
	}
}
