package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Config holds the geometry and physics parameters of a layout
type Config struct {
	Width  float64
	Height float64

	// Cluster radius: max(MinClusterRadius, n*ArcLength*(1+n/DensityDivisor)/2π)
	MinClusterRadius float64
	ArcLength        float64
	DensityDivisor   float64
	InnerFraction    float64

	SlotRingSpacing float64
	SlotsPerRing    int

	NodeRadius   float64
	AnchorRadius float64
	RootRadius   float64

	InitialAlpha  float64
	ReheatAlpha   float64
	AlphaMin      float64
	AlphaDecay    float64 // zero derives the decay from AlphaMin over 300 ticks
	VelocityDecay float64

	LinkDistance        float64
	LinkStrength        float64
	ChargeStrength      float64
	Theta               float64
	CollisionPadding    float64
	ContainmentStrength float64
	MediatorStrength    float64

	MaxTicks int
}

// DefaultConfig returns the stock layout parameters
func DefaultConfig() Config {
	return Config{
		Width:               1600,
		Height:              1200,
		MinClusterRadius:    300,
		ArcLength:           80,
		DensityDivisor:      12,
		InnerFraction:       0.35,
		SlotRingSpacing:     700,
		SlotsPerRing:        6,
		NodeRadius:          18,
		AnchorRadius:        28,
		RootRadius:          36,
		InitialAlpha:        1.0,
		ReheatAlpha:         0.3,
		AlphaMin:            0.001,
		VelocityDecay:       0.4,
		LinkDistance:        110,
		LinkStrength:        0.3,
		ChargeStrength:      -400,
		Theta:               0.8,
		CollisionPadding:    6,
		ContainmentStrength: 0.2,
		MediatorStrength:    0.05,
		MaxTicks:            1000,
	}
}

// Center returns the canvas center
func (c Config) Center() r2.Vec {
	return r2.Vec{X: c.Width / 2, Y: c.Height / 2}
}

// decay returns the per-tick alpha decay
func (c Config) decay() float64 {
	if c.AlphaDecay > 0 {
		return c.AlphaDecay
	}
	return 1 - math.Pow(c.AlphaMin, 1.0/300)
}

// ClusterRadius returns the containment radius for n members
func (c Config) ClusterRadius(n int) float64 {
	fn := float64(n)
	div := c.DensityDivisor
	if div <= 0 {
		div = 1
	}
	r := fn * c.ArcLength * (1 + fn/div) / (2 * math.Pi)
	return math.Max(c.MinClusterRadius, r)
}
