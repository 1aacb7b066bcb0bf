package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 0.01 }

func TestNew(t *testing.T) {
	cam := New(1280, 720, 16, 9)

	if cam.X != 0 || cam.Y != 0 {
		t.Errorf("expected camera at origin, got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
	// 16:9 world in a 16:9 viewport: 80 px per unit less the margin.
	if want := float32(80 * 0.95); !near(cam.Scale(), want) {
		t.Errorf("scale = %f, want %f", cam.Scale(), want)
	}
}

func TestOriginAtScreenCenter(t *testing.T) {
	cam := New(1280, 720, 17, 9)

	sx, sy := cam.WorldToScreen(0, 0)
	if !near(sx, 640) || !near(sy, 360) {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestYAxisPointsUp(t *testing.T) {
	cam := New(1280, 720, 17, 9)

	_, above := cam.WorldToScreen(0, 1)
	_, below := cam.WorldToScreen(0, -1)
	if above >= below {
		t.Errorf("world +y maps to screen y %f, -y to %f; want +y higher on screen", above, below)
	}
}

func TestWholeWorldVisibleAtZoomOne(t *testing.T) {
	cam := New(1280, 720, 17, 9)

	corners := [][2]float32{{-8.5, -4.5}, {8.5, 4.5}, {-8.5, 4.5}, {8.5, -4.5}}
	for _, c := range corners {
		sx, sy := cam.WorldToScreen(c[0], c[1])
		if sx < 0 || sx > 1280 || sy < 0 || sy > 720 {
			t.Errorf("corner %v maps off screen to (%f, %f)", c, sx, sy)
		}
		if !cam.IsVisible(c[0], c[1], 0) {
			t.Errorf("corner %v reported invisible", c)
		}
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720, 17, 9)
	cam.SetZoom(2)
	cam.Pan(50, -30)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},
		{100, 100},
		{1200, 600},
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestPanClampedToWorld(t *testing.T) {
	cam := New(1280, 720, 17, 9)
	cam.Pan(1e6, 1e6)
	if cam.X != 8.5 || cam.Y != -4.5 {
		t.Errorf("center = (%f, %f), want (8.5, -4.5)", cam.X, cam.Y)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720, 17, 9)

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("zoom = %f, want max %f", cam.Zoom, cam.MaxZoom)
	}
	cam.SetZoom(0.01)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("zoom = %f, want min %f", cam.Zoom, cam.MinZoom)
	}
	cam.Reset()
	if cam.Zoom != 1 || cam.X != 0 || cam.Y != 0 {
		t.Errorf("reset camera = %+v", cam)
	}
}

func TestResizeRefits(t *testing.T) {
	cam := New(1280, 720, 16, 9)
	before := cam.Scale()
	cam.Resize(640, 360)
	if !near(cam.Scale(), before/2) {
		t.Errorf("scale after halving viewport = %f, want %f", cam.Scale(), before/2)
	}
}

func TestWorldLength(t *testing.T) {
	cam := New(1280, 720, 16, 9)
	if got := cam.WorldLength(0.5); !near(got, cam.Scale()/2) {
		t.Errorf("WorldLength(0.5) = %f", got)
	}
}
