package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Layout
	v.SetDefault("layout.width", 1600.0)
	v.SetDefault("layout.height", 1200.0)
	v.SetDefault("layout.min_cluster_radius", 300.0)
	v.SetDefault("layout.arc_length", 80.0)
	v.SetDefault("layout.density_divisor", 12.0)
	v.SetDefault("layout.inner_fraction", 0.35)
	v.SetDefault("layout.slot_ring_spacing", 700.0)
	v.SetDefault("layout.slots_per_ring", 6)
	v.SetDefault("layout.node_radius", 18.0)
	v.SetDefault("layout.anchor_radius", 28.0)
	v.SetDefault("layout.root_radius", 36.0)
	v.SetDefault("layout.bidirectional_offset", 18.0)
	v.SetDefault("layout.cross_cluster_bend", 0.25)

	// Simulation
	v.SetDefault("simulation.initial_alpha", 1.0)
	v.SetDefault("simulation.reheat_alpha", 0.3)
	v.SetDefault("simulation.alpha_min", 0.001)
	v.SetDefault("simulation.alpha_decay", 0.0)
	v.SetDefault("simulation.velocity_decay", 0.4)
	v.SetDefault("simulation.link_distance", 110.0)
	v.SetDefault("simulation.link_strength", 0.3)
	v.SetDefault("simulation.charge_strength", -400.0)
	v.SetDefault("simulation.theta", 0.8)
	v.SetDefault("simulation.collision_padding", 6.0)
	v.SetDefault("simulation.containment_strength", 0.2)
	v.SetDefault("simulation.mediator_strength", 0.05)
	v.SetDefault("simulation.max_ticks", 1000)

	// Expansion
	v.SetDefault("expansion.max_depth", 3)
	v.SetDefault("expansion.max_keep", 12)
	v.SetDefault("expansion.hard_max_keep", 20)
	v.SetDefault("expansion.fetch_timeout_seconds", 120)
	v.SetDefault("expansion.poll_interval_ms", 1000)

	// Provider
	v.SetDefault("provider.kind", ProviderDir)
	v.SetDefault("provider.base_url", "http://localhost:5000")
	v.SetDefault("provider.dir", "cache")
	v.SetDefault("provider.cache_path", "")
	v.SetDefault("provider.cache_ttl_seconds", 86400)
	v.SetDefault("provider.allow_private_ips", true) // provider usually runs on localhost

	// Server
	v.SetDefault("server.addr", "127.0.0.1:8740")
	v.SetDefault("server.frame_rate", 30)
	v.SetDefault("server.command_rate", 60)
	v.SetDefault("server.command_burst", 20)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"http://127.0.0.1",
	})
}

// BindSensitiveEnvVars explicitly binds configuration that is commonly set from the environment
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("provider.base_url", "YESAH_PROVIDER_URL")
	_ = v.BindEnv("server.addr", "YESAH_ADDR")
}

// FetchTimeoutSeconds returns the fetch timeout, falling back to 120s
func (c *Config) FetchTimeoutSeconds() int {
	if c.Expansion.FetchTimeoutSeconds <= 0 {
		return 120
	}
	return c.Expansion.FetchTimeoutSeconds
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Provider: %s, MaxDepth: %d, MaxKeep: %d, Server: %s}",
		c.Provider.Kind, c.Expansion.MaxDepth, c.Expansion.MaxKeep, c.Server.Addr)
}
