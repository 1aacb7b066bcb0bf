package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph2d/sph"
)

// paramSlider binds one slider to a field of sph.Params.
type paramSlider struct {
	label    string
	min, max float32
	field    func(p *sph.Params) *float32
}

// ParamsPanel edits the fluid parameters with sliders.
type ParamsPanel struct {
	renderer *Renderer
	sliders  []paramSlider
	x, y     int32
	width    int32
}

// NewParamsPanel creates a parameter panel.
func NewParamsPanel(x, y, width int32) *ParamsPanel {
	return &ParamsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		sliders: []paramSlider{
			{"gravity", -30, 30, func(p *sph.Params) *float32 { return &p.Gravity }},
			{"damping", 0, 1, func(p *sph.Params) *float32 { return &p.CollisionDamping }},
			{"radius", 0.05, 1.5, func(p *sph.Params) *float32 { return &p.SmoothingRadius }},
			{"target", 1, 200, func(p *sph.Params) *float32 { return &p.TargetDensity }},
			{"pressure", 0, 2000, func(p *sph.Params) *float32 { return &p.PressureMultiplier }},
			{"near", 0, 100, func(p *sph.Params) *float32 { return &p.NearPressureMultiplier }},
			{"mass", 0.1, 5, func(p *sph.Params) *float32 { return &p.ParticleMass }},
		},
	}
}

// SetPosition updates the panel position.
func (pp *ParamsPanel) SetPosition(x, y int32) {
	pp.x = x
	pp.y = y
}

// Draw renders the sliders for p and returns the edited copy and whether
// any slider moved.
func (pp *ParamsPanel) Draw(p sph.Params) (sph.Params, bool) {
	theme := pp.renderer.Theme
	rowH := theme.LineHeight + 6
	height := theme.Padding*2 + theme.LineHeight + rowH*int32(len(pp.sliders))
	pp.renderer.DrawPanel(pp.x, pp.y, pp.width, height)

	x := pp.x + theme.Padding
	y := pp.renderer.DrawSectionHeader(x, pp.y+theme.Padding, "Parameters")

	labelW := int32(70)
	valueW := int32(56)
	sliderW := pp.width - 2*theme.Padding - labelW - valueW

	changed := false
	for _, s := range pp.sliders {
		field := s.field(&p)
		rl.DrawText(s.label, x, y+2, theme.FontSize, theme.LabelColor)
		bounds := rl.Rectangle{X: float32(x + labelW), Y: float32(y), Width: float32(sliderW), Height: float32(theme.LineHeight)}
		v := gui.SliderBar(bounds, "", "", *field, s.min, s.max)
		if v != *field {
			*field = v
			changed = true
		}
		rl.DrawText(fmt.Sprintf("%.3g", *field), x+labelW+sliderW+6, y+2, theme.FontSize, theme.ValueColor)
		y += rowH
	}
	return p, changed
}
