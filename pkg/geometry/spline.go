package geometry

import "gonum.org/v1/gonum/spatial/r2"

// CatmullRom samples the uniform Catmull-Rom segment running from p1 to p2,
// using p0 and p3 as the neighbouring control points. The returned slice
// holds steps+1 points and always starts at p1 and ends at p2.
func CatmullRom(p0, p1, p2, p3 Point2D, steps int) []Point2D {
	if steps < 1 {
		steps = 1
	}
	v0, v1, v2, v3 := p0.Vec(), p1.Vec(), p2.Vec(), p3.Vec()

	out := make([]Point2D, 0, steps+1)
	out = append(out, p1)
	for i := 1; i < steps; i++ {
		t := float64(i) / float64(steps)
		t2 := t * t
		t3 := t2 * t

		// 0.5 * (2p1 + (-p0+p2)t + (2p0-5p1+4p2-p3)t^2 + (-p0+3p1-3p2+p3)t^3)
		a := r2.Scale(2, v1)
		b := r2.Scale(t, r2.Sub(v2, v0))
		c := r2.Scale(t2, r2.Sub(r2.Add(r2.Scale(2, v0), r2.Scale(4, v2)), r2.Add(r2.Scale(5, v1), v3)))
		d := r2.Scale(t3, r2.Sub(r2.Add(r2.Scale(3, v1), v3), r2.Add(v0, r2.Scale(3, v2))))
		out = append(out, FromVec(r2.Scale(0.5, r2.Add(r2.Add(a, b), r2.Add(c, d)))))
	}
	return append(out, p2)
}

// SegmentsFor returns how many straight pieces a curve between two points
// should be split into so no piece is longer than maxLen.
func SegmentsFor(from, to Point2D, maxLen float64) int {
	if maxLen <= 0 {
		return 1
	}
	n := int(from.Distance(to)/maxLen) + 1
	if n > 64 {
		n = 64
	}
	return n
}
