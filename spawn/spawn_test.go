package spawn

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCountClamped(t *testing.T) {
	tests := []struct {
		count, max, want int
	}{
		{10, 0, 10},
		{10, 20, 10},
		{30, 20, 20},
		{-4, 20, 0},
	}
	for _, tt := range tests {
		l := Generate(Settings{Count: tt.count, MaxCount: tt.max, Spacing: 0.1})
		if l.Len() != tt.want || len(l.Velocities) != tt.want {
			t.Errorf("Generate(count=%d, max=%d) len = %d, want %d", tt.count, tt.max, l.Len(), tt.want)
		}
	}
}

func TestGridCentred(t *testing.T) {
	for _, n := range []int{1, 4, 9, 10, 17, 100} {
		s := Settings{Count: n, Spacing: 0.5, Center: mgl32.Vec2{3, -2}}
		l := Generate(s)

		var minP, maxP mgl32.Vec2 = l.Positions[0], l.Positions[0]
		for _, p := range l.Positions {
			minP = mgl32.Vec2{min(minP.X(), p.X()), min(minP.Y(), p.Y())}
			maxP = mgl32.Vec2{max(maxP.X(), p.X()), max(maxP.Y(), p.Y())}
		}
		cols := int(math.Ceil(math.Sqrt(float64(n))))
		wantWidth := float32(cols-1) * s.Spacing
		if got := maxP.X() - minP.X(); math.Abs(float64(got-wantWidth)) > 1e-4 {
			t.Errorf("n=%d width = %v, want %v", n, got, wantWidth)
		}
		// First row starts at the left edge of a grid centred on Center.x.
		left := s.Center.X() - wantWidth/2
		if math.Abs(float64(minP.X()-left)) > 1e-4 {
			t.Errorf("n=%d left edge = %v, want %v", n, minP.X(), left)
		}
		if maxP.Y() < s.Center.Y()-1e-4 && n > 1 {
			t.Errorf("n=%d grid lies entirely below centre", n)
		}
	}
}

func TestGridSquareIsSymmetric(t *testing.T) {
	l := Generate(Settings{Count: 16, Spacing: 1})
	var sum mgl32.Vec2
	for _, p := range l.Positions {
		sum = sum.Add(p)
	}
	if sum.Len() > 1e-5 {
		t.Errorf("centroid sum = %v, want 0", sum)
	}
}

func TestGridFoldsInsideSize(t *testing.T) {
	s := Settings{Count: 400, Spacing: 1, Size: mgl32.Vec2{4, 4}}
	for _, p := range Generate(s).Positions {
		if math.Abs(float64(p.X())) >= 4 || math.Abs(float64(p.Y())) >= 4 {
			t.Fatalf("position %v outside folded size", p)
		}
	}
}

func TestRandomWithinSize(t *testing.T) {
	s := Settings{Count: 1000, Random: true, Seed: 7, Center: mgl32.Vec2{1, 1}, Size: mgl32.Vec2{2, 4}}
	l := Generate(s)
	for _, p := range l.Positions {
		d := p.Sub(s.Center)
		if math.Abs(float64(d.X())) > 1 || math.Abs(float64(d.Y())) > 2 {
			t.Fatalf("position %v outside spawn area", p)
		}
	}
	again := Generate(s)
	for i := range l.Positions {
		if l.Positions[i] != again.Positions[i] {
			t.Fatal("random layout not reproducible for a fixed seed")
		}
	}
}

func TestInitialVelocity(t *testing.T) {
	v := mgl32.Vec2{0.5, -1}
	for _, random := range []bool{false, true} {
		for _, got := range Generate(Settings{Count: 5, Random: random, InitialVelocity: v, Spacing: 1}).Velocities {
			if got != v {
				t.Errorf("velocity = %v, want %v", got, v)
			}
		}
	}
}

func TestGeneratorRepeats(t *testing.T) {
	g := Generator{Settings: Settings{Count: 12, Random: true, Seed: 3, Size: mgl32.Vec2{1, 1}}}
	p1, _ := g.Generate()
	p2, _ := g.Generate()
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatal("generator output differs between calls")
		}
	}
}
