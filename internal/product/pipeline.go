package product

// Pipeline names one of the five product pipelines.
type Pipeline string

const (
	PipelineFalseColor  Pipeline = "false_color"
	PipelineVisible     Pipeline = "visible"
	PipelineInfrared    Pipeline = "infrared"
	PipelineWaterVapour Pipeline = "water_vapour"
	PipelineOther       Pipeline = "other"
)

// AllPipelines lists pipelines in scheduling order.
var AllPipelines = []Pipeline{
	PipelineVisible,
	PipelineInfrared,
	PipelineWaterVapour,
	PipelineFalseColor,
	PipelineOther,
}

// Tag returns the short label used in output filenames. Other products are
// tagged with their channel name instead.
func (p Pipeline) Tag() string {
	switch p {
	case PipelineFalseColor:
		return "FSCLR"
	case PipelineVisible:
		return "VIS"
	case PipelineInfrared:
		return "IR"
	case PipelineWaterVapour:
		return "WV"
	default:
		return ""
	}
}

// PipelineState holds one processed flag per pipeline.
type PipelineState struct {
	FalseColor  bool
	Visible     bool
	Infrared    bool
	WaterVapour bool
	Other       bool
}

// Get returns the flag for p.
func (s PipelineState) Get(p Pipeline) bool {
	switch p {
	case PipelineFalseColor:
		return s.FalseColor
	case PipelineVisible:
		return s.Visible
	case PipelineInfrared:
		return s.Infrared
	case PipelineWaterVapour:
		return s.WaterVapour
	case PipelineOther:
		return s.Other
	default:
		return false
	}
}

// Pipelines holds the enable flag of each pipeline.
type Pipelines PipelineState

// Enabled reports whether p is switched on.
func (e Pipelines) Enabled(p Pipeline) bool {
	return PipelineState(e).Get(p)
}

// Done reports whether p is disabled or processed in state.
func (e Pipelines) Done(p Pipeline, state PipelineState) bool {
	return !e.Enabled(p) || state.Get(p)
}

// Satisfied reports whether every enabled pipeline is processed in state.
// Disabled pipelines never block.
func (e Pipelines) Satisfied(state PipelineState) bool {
	for _, p := range AllPipelines {
		if !e.Done(p, state) {
			return false
		}
	}
	return true
}
