package engine

import (
	"time"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/layout"
)

// Options configures an engine instance
type Options struct {
	Layout layout.Config

	// MaxDepth refuses expansion of nodes at or beyond this depth
	MaxDepth int
	// MaxKeep caps the interactors a pruned expansion asks for
	MaxKeep int

	FetchTimeout time.Duration

	// FrameRate caps position snapshots per second
	FrameRate int

	BidirectionalOffset float64
	CrossClusterBend    float64

	// ArrowContext forces a dual-track context for subgraph builds
	ArrowContext graph.ArrowContext
}

// DefaultOptions returns the stock engine options
func DefaultOptions() Options {
	return Options{
		Layout:              layout.DefaultConfig(),
		MaxDepth:            3,
		MaxKeep:             12,
		FetchTimeout:        120 * time.Second,
		FrameRate:           30,
		BidirectionalOffset: graph.DefaultBidirectionalOffset,
		CrossClusterBend:    graph.DefaultCrossClusterBend,
	}
}

// OptionsFromConfig maps am.toml settings onto engine options
func OptionsFromConfig(cfg *am.Config) Options {
	l := cfg.Layout
	s := cfg.Simulation
	return Options{
		Layout: layout.Config{
			Width:               l.Width,
			Height:              l.Height,
			MinClusterRadius:    l.MinClusterRadius,
			ArcLength:           l.ArcLength,
			DensityDivisor:      l.DensityDivisor,
			InnerFraction:       l.InnerFraction,
			SlotRingSpacing:     l.SlotRingSpacing,
			SlotsPerRing:        l.SlotsPerRing,
			NodeRadius:          l.NodeRadius,
			AnchorRadius:        l.AnchorRadius,
			RootRadius:          l.RootRadius,
			InitialAlpha:        s.InitialAlpha,
			ReheatAlpha:         s.ReheatAlpha,
			AlphaMin:            s.AlphaMin,
			AlphaDecay:          s.AlphaDecay,
			VelocityDecay:       s.VelocityDecay,
			LinkDistance:        s.LinkDistance,
			LinkStrength:        s.LinkStrength,
			ChargeStrength:      s.ChargeStrength,
			Theta:               s.Theta,
			CollisionPadding:    s.CollisionPadding,
			ContainmentStrength: s.ContainmentStrength,
			MediatorStrength:    s.MediatorStrength,
			MaxTicks:            s.MaxTicks,
		},
		MaxDepth:            cfg.Expansion.MaxDepth,
		MaxKeep:             cfg.Expansion.MaxKeep,
		FetchTimeout:        time.Duration(cfg.FetchTimeoutSeconds()) * time.Second,
		FrameRate:           cfg.Server.FrameRate,
		BidirectionalOffset: l.BidirectionalOffset,
		CrossClusterBend:    l.CrossClusterBend,
	}
}
