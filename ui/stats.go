package ui

import (
	"fmt"

	"github.com/pthm-cable/sph2d/telemetry"
)

// StatsPanel renders the latest frame statistics.
type StatsPanel struct {
	renderer *Renderer
	sections []SectionDescriptor
	x, y     int32
	width    int32
}

// NewStatsPanel creates a stats panel whose density bars span [0, densityMax].
func NewStatsPanel(x, y, width int32, densityMax float32) *StatsPanel {
	return &StatsPanel{
		renderer: NewRenderer(),
		sections: frameStatsSections(densityMax),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders stats inside a panel background.
func (s *StatsPanel) Draw(stats telemetry.FrameStats) {
	pad := s.renderer.Theme.Padding
	height := 2 * pad
	for _, sd := range s.sections {
		height += s.renderer.SectionHeight(sd)
	}
	s.renderer.DrawPanel(s.x, s.y, s.width, height)

	y := s.y + pad
	for _, sd := range s.sections {
		y = s.renderer.DrawSection(s.x+pad, y, sd, stats, s.width-2*pad)
	}
}

func frameStatsSections(densityMax float32) []SectionDescriptor {
	densityRange := FieldRange{Min: 0, Max: densityMax}
	return []SectionDescriptor{
		{
			Title: "Density",
			Fields: []FieldDescriptor{
				{Label: "mean", Widget: WidgetBar, Range: densityRange, Getter: statf(func(s telemetry.FrameStats) float64 { return s.DensityMean })},
				{Label: "p10", Widget: WidgetBar, Range: densityRange, Getter: statf(func(s telemetry.FrameStats) float64 { return s.DensityP10 })},
				{Label: "p50", Widget: WidgetBar, Range: densityRange, Getter: statf(func(s telemetry.FrameStats) float64 { return s.DensityP50 })},
				{Label: "p90", Widget: WidgetBar, Range: densityRange, Getter: statf(func(s telemetry.FrameStats) float64 { return s.DensityP90 })},
				{Label: "std", Widget: WidgetText, Format: "%.2f", Getter: statf(func(s telemetry.FrameStats) float64 { return s.DensityStd })},
				{Label: "near mean", Widget: WidgetText, Format: "%.2f", Getter: statf(func(s telemetry.FrameStats) float64 { return s.NearDensityMean })},
			},
		},
		{
			Title: "Motion",
			Fields: []FieldDescriptor{
				{Label: "speed mean", Widget: WidgetText, Format: "%.3f", Getter: statf(func(s telemetry.FrameStats) float64 { return s.SpeedMean })},
				{Label: "speed max", Widget: WidgetText, Format: "%.3f", Getter: statf(func(s telemetry.FrameStats) float64 { return s.SpeedMax })},
				{Label: "kinetic", Widget: WidgetText, Format: "%.1f", Getter: statf(func(s telemetry.FrameStats) float64 { return s.KineticEnergy })},
				{Label: "centroid", Widget: WidgetText, TextGetter: func(data any) string {
					s := data.(telemetry.FrameStats)
					return fmt.Sprintf("(%.2f, %.2f)", s.CentroidX, s.CentroidY)
				}},
			},
		},
	}
}

// statf adapts a FrameStats accessor to a descriptor getter.
func statf(fn func(telemetry.FrameStats) float64) func(any) float32 {
	return func(data any) float32 {
		return float32(fn(data.(telemetry.FrameStats)))
	}
}
