package am

import (
	"github.com/aryanzandi123/yesah/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	l := c.Layout
	if l.Width <= 0 || l.Height <= 0 {
		return errors.Newf("layout.width and layout.height must be > 0, got %vx%v", l.Width, l.Height)
	}
	if l.MinClusterRadius <= 0 {
		return errors.Newf("layout.min_cluster_radius must be > 0, got %v", l.MinClusterRadius)
	}
	if l.ArcLength <= 0 {
		return errors.Newf("layout.arc_length must be > 0, got %v", l.ArcLength)
	}
	if l.DensityDivisor <= 0 {
		return errors.Newf("layout.density_divisor must be > 0, got %v", l.DensityDivisor)
	}
	if l.InnerFraction < 0 || l.InnerFraction >= 1 {
		return errors.Newf("layout.inner_fraction must be in [0, 1), got %v", l.InnerFraction)
	}
	if l.SlotsPerRing <= 0 {
		return errors.Newf("layout.slots_per_ring must be > 0, got %d", l.SlotsPerRing)
	}

	s := c.Simulation
	if s.AlphaMin <= 0 || s.AlphaMin >= 1 {
		return errors.Newf("simulation.alpha_min must be in (0, 1), got %v", s.AlphaMin)
	}
	if s.ReheatAlpha <= s.AlphaMin || s.InitialAlpha <= s.AlphaMin {
		return errors.New("simulation.reheat_alpha and simulation.initial_alpha must exceed alpha_min")
	}
	if s.AlphaDecay < 0 || s.AlphaDecay >= 1 {
		return errors.Newf("simulation.alpha_decay must be in [0, 1), got %v", s.AlphaDecay)
	}
	if s.VelocityDecay < 0 || s.VelocityDecay >= 1 {
		return errors.Newf("simulation.velocity_decay must be in [0, 1), got %v", s.VelocityDecay)
	}
	if s.MaxTicks < 0 {
		return errors.Newf("simulation.max_ticks must be >= 0, got %d", s.MaxTicks)
	}

	// 0 disables the depth limit
	if c.Expansion.MaxDepth < 0 {
		return errors.Newf("expansion.max_depth must be >= 0, got %d", c.Expansion.MaxDepth)
	}
	if c.Expansion.MaxKeep < 0 || c.Expansion.HardMaxKeep < 0 {
		return errors.New("expansion.max_keep and expansion.hard_max_keep must be >= 0")
	}

	switch c.Provider.Kind {
	case ProviderHTTP:
		if c.Provider.BaseURL == "" {
			return errors.New("provider.base_url cannot be empty when provider.kind = \"http\"")
		}
	case ProviderDir:
		if c.Provider.Dir == "" {
			return errors.New("provider.dir cannot be empty when provider.kind = \"dir\"")
		}
	default:
		return errors.WithHint(
			errors.Newf("unknown provider.kind %q", c.Provider.Kind),
			"use \"http\" or \"dir\"")
	}

	if c.Server.FrameRate <= 0 {
		return errors.Newf("server.frame_rate must be > 0, got %d", c.Server.FrameRate)
	}
	if c.Server.CommandRate <= 0 || c.Server.CommandBurst <= 0 {
		return errors.Newf("server.command_rate and server.command_burst must be > 0, got %d and %d",
			c.Server.CommandRate, c.Server.CommandBurst)
	}

	return nil
}
