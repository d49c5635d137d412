package geometry

import "testing"

func TestCatmullRomEndpoints(t *testing.T) {
	p0, p1, p2, p3 := NewPoint2D(0, 0), NewPoint2D(10, 0), NewPoint2D(20, 10), NewPoint2D(30, 10)
	pts := CatmullRom(p0, p1, p2, p3, 8)
	if len(pts) != 9 {
		t.Fatalf("expected 9 points, got %d", len(pts))
	}
	if pts[0] != p1 || pts[len(pts)-1] != p2 {
		t.Errorf("curve must start at p1 and end at p2, got %v .. %v", pts[0], pts[len(pts)-1])
	}
}

func TestCatmullRomCollinear(t *testing.T) {
	pts := CatmullRom(NewPoint2D(0, 0), NewPoint2D(10, 0), NewPoint2D(20, 0), NewPoint2D(30, 0), 4)
	for i, p := range pts {
		if !nearly(p.Y, 0) {
			t.Errorf("point %d left the line: %v", i, p)
		}
		if i > 0 && p.X <= pts[i-1].X {
			t.Errorf("point %d does not advance: %v after %v", i, p, pts[i-1])
		}
	}
}

func TestSegmentsFor(t *testing.T) {
	if n := SegmentsFor(NewPoint2D(0, 0), NewPoint2D(0, 0), 4); n != 1 {
		t.Errorf("zero length: got %d", n)
	}
	if n := SegmentsFor(NewPoint2D(0, 0), NewPoint2D(10, 0), 4); n != 3 {
		t.Errorf("length 10 / 4: got %d", n)
	}
	if n := SegmentsFor(NewPoint2D(0, 0), NewPoint2D(10000, 0), 1); n != 64 {
		t.Errorf("expected cap of 64, got %d", n)
	}
}
