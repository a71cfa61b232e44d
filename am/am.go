package am

// Config represents the yesah configuration, normally read from am.toml
type Config struct {
	Layout     LayoutConfig     `mapstructure:"layout" toml:"layout"`
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation"`
	Expansion  ExpansionConfig  `mapstructure:"expansion" toml:"expansion"`
	Provider   ProviderConfig   `mapstructure:"provider" toml:"provider"`
	Server     ServerConfig     `mapstructure:"server" toml:"server"`
}

// LayoutConfig configures cluster geometry and link rendering
type LayoutConfig struct {
	Width  float64 `mapstructure:"width" toml:"width"`
	Height float64 `mapstructure:"height" toml:"height"`

	// Cluster radius: max(min_cluster_radius, n*arc_length*(1+n/density_divisor)/2π)
	MinClusterRadius float64 `mapstructure:"min_cluster_radius" toml:"min_cluster_radius"`
	ArcLength        float64 `mapstructure:"arc_length" toml:"arc_length"`
	DensityDivisor   float64 `mapstructure:"density_divisor" toml:"density_divisor"`

	// Containment band is [inner_fraction*radius, radius]
	InnerFraction float64 `mapstructure:"inner_fraction" toml:"inner_fraction"`

	// Radial slots for new clusters around the root cluster
	SlotRingSpacing float64 `mapstructure:"slot_ring_spacing" toml:"slot_ring_spacing"`
	SlotsPerRing    int     `mapstructure:"slots_per_ring" toml:"slots_per_ring"`

	NodeRadius   float64 `mapstructure:"node_radius" toml:"node_radius"`
	AnchorRadius float64 `mapstructure:"anchor_radius" toml:"anchor_radius"`
	RootRadius   float64 `mapstructure:"root_radius" toml:"root_radius"`

	BidirectionalOffset float64 `mapstructure:"bidirectional_offset" toml:"bidirectional_offset"`
	CrossClusterBend    float64 `mapstructure:"cross_cluster_bend" toml:"cross_cluster_bend"`
}

// SimulationConfig configures the force simulation
type SimulationConfig struct {
	InitialAlpha  float64 `mapstructure:"initial_alpha" toml:"initial_alpha"`
	ReheatAlpha   float64 `mapstructure:"reheat_alpha" toml:"reheat_alpha"`
	AlphaMin      float64 `mapstructure:"alpha_min" toml:"alpha_min"`
	AlphaDecay    float64 `mapstructure:"alpha_decay" toml:"alpha_decay"` // 0 = derive from alpha_min over 300 ticks
	VelocityDecay float64 `mapstructure:"velocity_decay" toml:"velocity_decay"`

	LinkDistance        float64 `mapstructure:"link_distance" toml:"link_distance"`
	LinkStrength        float64 `mapstructure:"link_strength" toml:"link_strength"`
	ChargeStrength      float64 `mapstructure:"charge_strength" toml:"charge_strength"`
	Theta               float64 `mapstructure:"theta" toml:"theta"` // Barnes-Hut opening angle
	CollisionPadding    float64 `mapstructure:"collision_padding" toml:"collision_padding"`
	ContainmentStrength float64 `mapstructure:"containment_strength" toml:"containment_strength"`
	MediatorStrength    float64 `mapstructure:"mediator_strength" toml:"mediator_strength"`

	MaxTicks int `mapstructure:"max_ticks" toml:"max_ticks"` // headless runs stop here even if not settled
}

// ExpansionConfig configures expand/collapse behaviour
type ExpansionConfig struct {
	MaxDepth            int `mapstructure:"max_depth" toml:"max_depth"`
	MaxKeep             int `mapstructure:"max_keep" toml:"max_keep"`
	HardMaxKeep         int `mapstructure:"hard_max_keep" toml:"hard_max_keep"`
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"`
	PollIntervalMS      int `mapstructure:"poll_interval_ms" toml:"poll_interval_ms"`
}

// ProviderConfig selects where expansion subgraphs come from
type ProviderConfig struct {
	Kind            string `mapstructure:"kind" toml:"kind"` // "http" or "dir"
	BaseURL         string `mapstructure:"base_url" toml:"base_url"`
	Dir             string `mapstructure:"dir" toml:"dir"`
	CachePath       string `mapstructure:"cache_path" toml:"cache_path"` // empty = no cache
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
	AllowPrivateIPs bool   `mapstructure:"allow_private_ips" toml:"allow_private_ips"`
}

// ServerConfig configures the websocket frame server
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" toml:"addr"`
	FrameRate      int      `mapstructure:"frame_rate" toml:"frame_rate"`       // max frames per second per client
	CommandRate    int      `mapstructure:"command_rate" toml:"command_rate"`   // max commands per second per client
	CommandBurst   int      `mapstructure:"command_burst" toml:"command_burst"` // drag bursts above the rate
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// Provider kinds
const (
	ProviderHTTP = "http"
	ProviderDir  = "dir"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
