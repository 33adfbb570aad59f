// Package freehand turns a sequence of input points into the outline polygon
// of a variable-width pen stroke.
package freehand

import "math"

// Point is an input sample. Pressure is in [0,1]; zero means "not reported".
type Point struct {
	X, Y     float64
	Pressure float64
}

type Vec struct {
	X, Y float64
}

type Options struct {
	Size             float64
	Thinning         float64
	Streamline       float64
	SimulatePressure bool
	CapSegments      int
}

// AnnotationOptions matches the pen used for image annotations.
var AnnotationOptions = Options{
	Size:             8,
	Thinning:         0,
	Streamline:       0,
	SimulatePressure: false,
	CapSegments:      8,
}

const minRadius = 0.01

// Outline returns a closed polygon (first vertex not repeated) around the
// stroke. A single sample, or a stroke that never moves, yields a dot.
func Outline(points []Point, opts Options) []Vec {
	if len(points) == 0 || opts.Size <= 0 {
		return nil
	}
	if opts.CapSegments <= 0 {
		opts.CapSegments = 8
	}

	samples := streamline(points, opts.Streamline)
	radii := strokeRadii(samples, opts)

	if len(samples) == 1 {
		return circle(samples[0], radii[0], opts.CapSegments*2)
	}

	n := len(samples)
	left := make([]Vec, n)
	right := make([]Vec, n)
	normals := make([]Vec, n)
	dirs := make([]Vec, n)

	for i := range samples {
		prev := samples[max(i-1, 0)]
		next := samples[min(i+1, n-1)]
		d := unit(Vec{next.X - prev.X, next.Y - prev.Y})
		dirs[i] = d
		normals[i] = Vec{-d.Y, d.X}
		p := Vec{samples[i].X, samples[i].Y}
		left[i] = add(p, scale(normals[i], radii[i]))
		right[i] = sub(p, scale(normals[i], radii[i]))
	}

	outline := make([]Vec, 0, 2*n+2*(opts.CapSegments+1))

	// Start cap sweeps from the right side, around the back, to the left side.
	start := Vec{samples[0].X, samples[0].Y}
	outline = append(outline, arc(start, scale(normals[0], -1), scale(dirs[0], -1), radii[0], opts.CapSegments)...)
	outline = append(outline, left[1:n-1]...)

	end := Vec{samples[n-1].X, samples[n-1].Y}
	outline = append(outline, arc(end, normals[n-1], dirs[n-1], radii[n-1], opts.CapSegments)...)
	for i := n - 2; i >= 1; i-- {
		outline = append(outline, right[i])
	}

	return outline
}

// streamline pulls every sample towards the previous one and drops samples
// that do not move.
func streamline(points []Point, amount float64) []Point {
	t := 0.15 + (1-clamp01(amount))*0.85
	out := make([]Point, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		prev := out[len(out)-1]
		q := Point{
			X:        prev.X + (p.X-prev.X)*t,
			Y:        prev.Y + (p.Y-prev.Y)*t,
			Pressure: p.Pressure,
		}
		if q.X == prev.X && q.Y == prev.Y {
			continue
		}
		out = append(out, q)
	}
	return out
}

func strokeRadii(samples []Point, opts Options) []float64 {
	radii := make([]float64, len(samples))
	pressure := 0.5
	if len(samples) > 0 && samples[0].Pressure > 0 {
		pressure = samples[0].Pressure
	}

	for i, s := range samples {
		if opts.Thinning == 0 {
			radii[i] = math.Max(opts.Size/2, minRadius)
			continue
		}

		if opts.SimulatePressure {
			if i > 0 {
				dist := math.Hypot(s.X-samples[i-1].X, s.Y-samples[i-1].Y)
				sp := math.Min(1, dist/opts.Size)
				rp := math.Min(1, 1-sp)
				pressure = math.Min(1, pressure+(rp-pressure)*sp*0.275)
			}
		} else if s.Pressure > 0 {
			pressure = s.Pressure
		}

		r := opts.Size * (0.5 - opts.Thinning*(0.5-pressure))
		radii[i] = math.Max(r, minRadius)
	}

	return radii
}

// arc returns segments+1 points on the half circle that starts at
// center+from*r and passes through center+through*r.
func arc(center, from, through Vec, r float64, segments int) []Vec {
	pts := make([]Vec, 0, segments+1)
	for k := 0; k <= segments; k++ {
		theta := math.Pi * float64(k) / float64(segments)
		v := add(scale(from, math.Cos(theta)), scale(through, math.Sin(theta)))
		pts = append(pts, add(center, scale(v, r)))
	}
	return pts
}

func circle(p Point, r float64, segments int) []Vec {
	pts := make([]Vec, 0, segments)
	for k := 0; k < segments; k++ {
		theta := 2 * math.Pi * float64(k) / float64(segments)
		pts = append(pts, Vec{p.X + r*math.Cos(theta), p.Y + r*math.Sin(theta)})
	}
	return pts
}

func unit(v Vec) Vec {
	l := math.Hypot(v.X, v.Y)
	if l == 0 {
		return Vec{1, 0}
	}
	return Vec{v.X / l, v.Y / l}
}

func add(a, b Vec) Vec           { return Vec{a.X + b.X, a.Y + b.Y} }
func sub(a, b Vec) Vec           { return Vec{a.X - b.X, a.Y - b.Y} }
func scale(v Vec, s float64) Vec { return Vec{v.X * s, v.Y * s} }

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
