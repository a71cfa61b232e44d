package graph

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// PathOptions selects the curve used for a link
type PathOptions struct {
	Bidirectional bool
	CrossCluster  bool

	// Center is the diagram center cross-cluster arcs bend away from
	Center r2.Vec

	BidirectionalOffset float64
	CrossClusterBend    float64
}

// DefaultPathOptions returns options with the default offsets
func DefaultPathOptions() PathOptions {
	return PathOptions{
		BidirectionalOffset: DefaultBidirectionalOffset,
		CrossClusterBend:    DefaultCrossClusterBend,
	}
}

// Path is a rendered link: a straight segment, or a quadratic curve when Curved
type Path struct {
	Start   r2.Vec
	Control r2.Vec
	End     r2.Vec
	Curved  bool
}

// LinkPath computes the path between two node circles. Endpoints sit on the
// circle boundaries. Bidirectional links bow perpendicular to the segment and
// cross-cluster links arc away from the diagram center.
func LinkPath(src, dst r2.Vec, srcRadius, dstRadius float64, opts PathOptions) Path {
	d := r2.Sub(dst, src)
	dist := r2.Norm(d)
	if dist == 0 || srcRadius+dstRadius >= dist {
		// overlapping circles: draw center to center
		return Path{Start: src, End: dst}
	}

	u := r2.Scale(1/dist, d)
	start := r2.Add(src, r2.Scale(srcRadius, u))
	end := r2.Sub(dst, r2.Scale(dstRadius, u))
	p := Path{Start: start, End: end}

	if !opts.Bidirectional && !opts.CrossCluster {
		return p
	}

	mid := r2.Scale(0.5, r2.Add(start, end))
	perp := r2.Vec{X: -u.Y, Y: u.X}
	control := mid

	if opts.Bidirectional {
		control = r2.Add(control, r2.Scale(opts.BidirectionalOffset, perp))
	}
	if opts.CrossCluster {
		outward := r2.Sub(mid, opts.Center)
		if n := r2.Norm(outward); n > 0 {
			outward = r2.Scale(1/n, outward)
		} else {
			outward = perp
		}
		segment := r2.Norm(r2.Sub(end, start))
		control = r2.Add(control, r2.Scale(opts.CrossClusterBend*segment, outward))
	}

	p.Control = control
	p.Curved = true
	return p
}

// SVG renders the path as an SVG path data string
func (p Path) SVG() string {
	if p.Curved {
		return fmt.Sprintf("M%.1f,%.1f Q%.1f,%.1f %.1f,%.1f",
			p.Start.X, p.Start.Y, p.Control.X, p.Control.Y, p.End.X, p.End.Y)
	}
	return fmt.Sprintf("M%.1f,%.1f L%.1f,%.1f", p.Start.X, p.Start.Y, p.End.X, p.End.Y)
}
