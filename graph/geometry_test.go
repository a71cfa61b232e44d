package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestLinkPath(t *testing.T) {
	src := r2.Vec{X: 0, Y: 0}
	dst := r2.Vec{X: 100, Y: 0}

	tests := []struct {
		name    string
		opts    func() PathOptions
		curved  bool
		control r2.Vec
	}{
		{
			name:   "straight",
			opts:   DefaultPathOptions,
			curved: false,
		},
		{
			name: "bidirectional bows perpendicular",
			opts: func() PathOptions {
				o := DefaultPathOptions()
				o.Bidirectional = true
				return o
			},
			curved:  true,
			control: r2.Vec{X: 50, Y: 18},
		},
		{
			name: "cross cluster bends away from center",
			opts: func() PathOptions {
				o := DefaultPathOptions()
				o.CrossCluster = true
				o.Center = r2.Vec{X: 50, Y: -100}
				return o
			},
			curved:  true,
			control: r2.Vec{X: 50, Y: 20},
		},
		{
			name: "both offsets add",
			opts: func() PathOptions {
				o := DefaultPathOptions()
				o.Bidirectional = true
				o.CrossCluster = true
				o.Center = r2.Vec{X: 50, Y: -100}
				return o
			},
			curved:  true,
			control: r2.Vec{X: 50, Y: 38},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LinkPath(src, dst, 10, 10, tt.opts())
			assert.InDelta(t, 10, p.Start.X, 1e-9)
			assert.InDelta(t, 90, p.End.X, 1e-9)
			assert.Equal(t, tt.curved, p.Curved)
			if tt.curved {
				assert.InDelta(t, tt.control.X, p.Control.X, 1e-9)
				assert.InDelta(t, tt.control.Y, p.Control.Y, 1e-9)
			}
		})
	}
}

func TestLinkPath_OverlappingCircles(t *testing.T) {
	src := r2.Vec{X: 0, Y: 0}
	dst := r2.Vec{X: 15, Y: 0}
	opts := DefaultPathOptions()
	opts.Bidirectional = true

	p := LinkPath(src, dst, 10, 10, opts)
	assert.Equal(t, src, p.Start)
	assert.Equal(t, dst, p.End)
	assert.False(t, p.Curved)
}

func TestLinkPath_CrossClusterThroughCenter(t *testing.T) {
	opts := DefaultPathOptions()
	opts.CrossCluster = true
	opts.Center = r2.Vec{X: 50, Y: 0}

	p := LinkPath(r2.Vec{X: 0, Y: 0}, r2.Vec{X: 100, Y: 0}, 10, 10, opts)
	assert.True(t, p.Curved)
	assert.InDelta(t, 20, p.Control.Y, 1e-9)
}

func TestPath_SVG(t *testing.T) {
	straight := Path{Start: r2.Vec{X: 10, Y: 0}, End: r2.Vec{X: 90, Y: 0}}
	assert.Equal(t, "M10.0,0.0 L90.0,0.0", straight.SVG())

	curved := Path{Start: r2.Vec{X: 10, Y: 0}, Control: r2.Vec{X: 50, Y: 18}, End: r2.Vec{X: 90, Y: 0}, Curved: true}
	assert.Equal(t, "M10.0,0.0 Q50.0,18.0 90.0,0.0", curved.SVG())
}

func TestCollectArrowTypes(t *testing.T) {
	infos := CollectArrowTypes([]SnapshotLink{
		{Arrow: ArrowBinds}, {Arrow: ArrowActivates}, {Arrow: ArrowBinds}, {Arrow: ArrowInhibits},
	})

	assert.Len(t, infos, 3)
	assert.Equal(t, ArrowBinds, infos[0].Arrow)
	assert.Equal(t, 2, infos[0].Count)
	assert.Equal(t, "binding", infos[0].Label)
	assert.Equal(t, ArrowActivates, infos[1].Arrow)
	assert.Equal(t, ArrowInhibits, infos[2].Arrow)
}
