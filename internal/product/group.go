package product

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DataTimeout is the age after which a group is flushed as complete.
	DataTimeout = 15 * time.Minute
	// MarkAfter is the age after which an incomplete group is reported stalled.
	MarkAfter = 13 * time.Minute
	// GroupLifetime is the age after which a group is purged outright.
	GroupLifetime = time.Hour

	unknownLabel = "Unknown"
)

// Group aggregates the channels of one observation.
type Group struct {
	Key                GroupKey
	SatelliteName      string
	RegionName         string
	SatelliteLongitude float64
	FrameTime          time.Time

	Visible     *ChannelBuffer
	Infrared    *ChannelBuffer
	WaterVapour *ChannelBuffer
	Other       map[string]*ChannelBuffer

	IsProcessed            bool
	IsFalseColorProcessed  bool
	IsVisibleProcessed     bool
	IsInfraredProcessed    bool
	IsWaterVapourProcessed bool

	CropImage         bool
	HasNavigationData bool

	FallBackColumnOffset        int
	FallBackLineOffset          int
	FallBackColumnScalingFactor float64
	FallBackLineScalingFactor   float64

	RetryCount int
	Failed     bool
	// Stalled is set once an incomplete group has been reported past MarkAfter.
	Stalled bool

	Created time.Time
	// Code disambiguates groups that would otherwise print identically.
	Code string
}

// NewGroup returns an empty group created at now.
func NewGroup(key GroupKey, now time.Time) *Group {
	return &Group{
		Key:                  key,
		SatelliteName:        unknownLabel,
		RegionName:           unknownLabel,
		FrameTime:            now,
		Visible:              NewChannelBuffer("VIS"),
		Infrared:             NewChannelBuffer("IR"),
		WaterVapour:          NewChannelBuffer("WV"),
		Other:                make(map[string]*ChannelBuffer),
		FallBackColumnOffset: -1,
		FallBackLineOffset:   -1,
		Created:              now,
		Code:                 now.UTC().Format("20060102150405.000000000"),
	}
}

// Channel returns the buffer for a fixed pipeline, or nil for false colour
// and other products.
func (g *Group) Channel(p Pipeline) *ChannelBuffer {
	switch p {
	case PipelineVisible:
		return g.Visible
	case PipelineInfrared:
		return g.Infrared
	case PipelineWaterVapour:
		return g.WaterVapour
	default:
		return nil
	}
}

// OtherChannel returns the named other buffer, creating it on first use.
func (g *Group) OtherChannel(name string) *ChannelBuffer {
	if buf, ok := g.Other[name]; ok {
		return buf
	}
	buf := NewChannelBuffer(name)
	g.Other[name] = buf
	return buf
}

// SetProcessed marks a fixed pipeline processed. PipelineOther is derived
// from the other buffers and cannot be set directly.
func (g *Group) SetProcessed(p Pipeline) {
	switch p {
	case PipelineFalseColor:
		g.IsFalseColorProcessed = true
	case PipelineVisible:
		g.IsVisibleProcessed = true
	case PipelineInfrared:
		g.IsInfraredProcessed = true
	case PipelineWaterVapour:
		g.IsWaterVapourProcessed = true
	}
}

// IsOtherDataProcessed reports whether every other buffer is complete and
// delivered. A group without other buffers is trivially processed.
func (g *Group) IsOtherDataProcessed() bool {
	for _, buf := range g.Other {
		if !buf.IsComplete() || !buf.OK {
			return false
		}
	}
	return true
}

// IsComplete reports whether all fixed channels are complete and all other
// data is processed.
func (g *Group) IsComplete() bool {
	return g.Visible.IsComplete() &&
		g.Infrared.IsComplete() &&
		g.WaterVapour.IsComplete() &&
		g.IsOtherDataProcessed()
}

// State returns the processed flags as a PipelineState.
func (g *Group) State() PipelineState {
	return PipelineState{
		FalseColor:  g.IsFalseColorProcessed,
		Visible:     g.IsVisibleProcessed,
		Infrared:    g.IsInfraredProcessed,
		WaterVapour: g.IsWaterVapourProcessed,
		Other:       g.IsOtherDataProcessed(),
	}
}

// Age returns how long ago the group was created.
func (g *Group) Age(now time.Time) time.Duration {
	return now.Sub(g.Created)
}

// Timeout reports whether the group should be flushed.
func (g *Group) Timeout(now time.Time) bool { return g.Age(now) > DataTimeout }

// ReadyToMark reports whether an incomplete group should be reported.
func (g *Group) ReadyToMark(now time.Time) bool { return g.Age(now) > MarkAfter }

// GroupTimeout reports whether the group should be purged.
func (g *Group) GroupTimeout(now time.Time) bool { return g.Age(now) > GroupLifetime }

// ForceComplete marks every pipeline processed, including every other
// buffer.
func (g *Group) ForceComplete() {
	g.IsProcessed = true
	g.IsFalseColorProcessed = true
	g.IsVisibleProcessed = true
	g.IsInfraredProcessed = true
	g.IsWaterVapourProcessed = true
	for _, buf := range g.Other {
		buf.OK = true
	}
}

// Clone returns a deep copy.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Visible = g.Visible.Clone()
	out.Infrared = g.Infrared.Clone()
	out.WaterVapour = g.WaterVapour.Clone()
	out.Other = make(map[string]*ChannelBuffer, len(g.Other))
	for name, buf := range g.Other {
		out.Other[name] = buf.Clone()
	}
	return &out
}

func (g *Group) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", g.SatelliteName, g.RegionName, g.FrameTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, " vis=%s ir=%s wv=%s other=%d(%s)",
		progress(g.Visible), progress(g.Infrared), progress(g.WaterVapour),
		len(g.Other), completeLabel(g.IsOtherDataProcessed()))
	return b.String()
}

func progress(buf *ChannelBuffer) string {
	return fmt.Sprintf("%d/%d", len(buf.Segments), buf.MaxSegments)
}

func completeLabel(ok bool) string {
	if ok {
		return "complete"
	}
	return "incomplete"
}
