package layout

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/logger"
)

// State is the energy state of the simulation
type State int

const (
	StateIdle State = iota
	StateSettling
)

func (s State) String() string {
	if s == StateSettling {
		return "settling"
	}
	return "idle"
}

// SimLink is a link as the simulation sees it
type SimLink struct {
	ID       graph.LinkID
	Relation Relation
	Mediator string // declared mediator of an indirect link
}

type dragState struct {
	id        string
	anchor    bool
	wasPinned bool
}

// Simulation advances body positions under the layout forces. It is not safe
// for concurrent use; the owning engine drives it from one goroutine.
type Simulation struct {
	cfg      Config
	logger   *zap.SugaredLogger
	arena    *Arena
	clusters *ClusterManager
	links    []SimLink

	alpha       float64
	alphaTarget float64
	alphaDecay  float64
	state       State
	ticks       int // since the last reheat

	onSettle []func()

	drag *dragState

	particles []particle
}

// NewSimulation creates an idle simulation with an empty arena
func NewSimulation(cfg Config, log *zap.SugaredLogger) *Simulation {
	return &Simulation{
		cfg:        cfg,
		logger:     log.Named("layout.simulation"),
		arena:      NewArena(),
		clusters:   NewClusterManager(cfg),
		alphaDecay: cfg.decay(),
	}
}

// Arena returns the body arena
func (s *Simulation) Arena() *Arena { return s.arena }

// Clusters returns the cluster partition
func (s *Simulation) Clusters() *ClusterManager { return s.clusters }

// Config returns the layout parameters
func (s *Simulation) Config() Config { return s.cfg }

// Alpha returns the current energy
func (s *Simulation) Alpha() float64 { return s.alpha }

// State returns settling or idle
func (s *Simulation) State() State { return s.state }

// Ticks returns the ticks run since the last reheat
func (s *Simulation) Ticks() int { return s.ticks }

// Dragging returns the id being dragged, if any
func (s *Simulation) Dragging() (string, bool) {
	if s.drag == nil {
		return "", false
	}
	return s.drag.id, true
}

// SetLinks replaces the link set the forces act on
func (s *Simulation) SetLinks(links []SimLink) {
	s.links = links
}

// OnSettle registers fn to run every time the simulation goes idle
func (s *Simulation) OnSettle(fn func()) {
	s.onSettle = append(s.onSettle, fn)
}

// Reheat raises alpha to at least a and moves to settling
func (s *Simulation) Reheat(a float64) {
	if a > s.alpha {
		s.alpha = a
	}
	s.state = StateSettling
	s.ticks = 0
}

// Tick runs one step and reports whether the simulation is still settling
func (s *Simulation) Tick() bool {
	if s.state == StateIdle {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	s.ticks++

	s.applySprings()
	s.applyRepulsion()
	s.applyCollision()
	s.applyContainment()
	s.applyMediatorAttraction()
	s.integrate()

	if logger.ShouldLogTrace(logger.Verbosity) {
		s.logger.Debugw("tick", logger.FieldTick, s.ticks, logger.FieldAlpha, s.alpha)
	}

	if s.alpha < s.cfg.AlphaMin && s.alphaTarget < s.cfg.AlphaMin {
		s.settle()
		return false
	}
	return true
}

// Run ticks until idle or maxTicks, returning the ticks run
func (s *Simulation) Run(maxTicks int) int {
	n := 0
	for n < maxTicks && s.Tick() {
		n++
	}
	return n
}

func (s *Simulation) settle() {
	s.state = StateIdle
	s.logger.Debugw("Simulation settled",
		logger.FieldTick, s.ticks,
		logger.FieldNodeCount, s.arena.Len(),
		logger.FieldLinkCount, len(s.links))

	for _, fn := range s.onSettle {
		fn()
	}
}

// DragStart begins dragging a body. Dragging an anchor carries its cluster.
func (s *Simulation) DragStart(id string) error {
	b, ok := s.arena.Get(id)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "node %s", id)
	}
	if s.drag != nil {
		return errors.Wrapf(errors.ErrConflict, "already dragging %s", s.drag.id)
	}

	s.drag = &dragState{id: id, anchor: s.clusters.IsAnchor(id), wasPinned: b.Pinned}
	if !s.drag.anchor {
		s.arena.Pin(id, b.Pos)
	}
	s.alphaTarget = s.cfg.ReheatAlpha
	s.Reheat(s.cfg.ReheatAlpha)
	return nil
}

// DragTo moves the dragged body to pos
func (s *Simulation) DragTo(id string, pos r2.Vec) error {
	if s.drag == nil || s.drag.id != id {
		return errors.Wrapf(errors.ErrConflict, "%s is not being dragged", id)
	}
	if !s.drag.anchor {
		s.arena.Pin(id, pos)
		return nil
	}

	b, ok := s.arena.Get(id)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "node %s", id)
	}
	from := b.Pos
	if b.Pinned {
		from = b.Fixed
	}
	delta := r2.Sub(pos, from)
	c, ok := s.clusters.Get(id)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "cluster %s", id)
	}
	c.Center = r2.Add(c.Center, delta)
	for _, member := range c.Members() {
		mb, ok := s.arena.Get(member)
		if !ok {
			continue
		}
		mb.Pos = r2.Add(mb.Pos, delta)
		if mb.Pinned {
			mb.Fixed = r2.Add(mb.Fixed, delta)
		}
	}
	return nil
}

// DragEnd releases the dragged body and lets the layout settle
func (s *Simulation) DragEnd(id string) error {
	if s.drag == nil || s.drag.id != id {
		return errors.Wrapf(errors.ErrConflict, "%s is not being dragged", id)
	}
	if !s.drag.anchor && !s.drag.wasPinned {
		s.arena.Unpin(id)
	}
	s.drag = nil
	s.alphaTarget = 0
	s.Reheat(s.cfg.ReheatAlpha)
	return nil
}

// share splits a velocity change between two bodies, giving all of it to the
// free one when the other is pinned
func share(a, b *Body) (wa, wb float64) {
	switch {
	case a.Pinned && b.Pinned:
		return 0, 0
	case a.Pinned:
		return 0, 1
	case b.Pinned:
		return 1, 0
	}
	return 0.5, 0.5
}

func (s *Simulation) applySprings() {
	for _, l := range s.links {
		if l.Relation != RelationIntra {
			continue
		}
		i, ok1 := s.arena.Index(l.ID.Source)
		j, ok2 := s.arena.Index(l.ID.Target)
		if !ok1 || !ok2 {
			continue
		}
		src, tgt := s.arena.At(i), s.arena.At(j)

		d := r2.Sub(r2.Add(tgt.Pos, tgt.Vel), r2.Add(src.Pos, src.Vel))
		dist := r2.Norm(d)
		if dist == 0 {
			d, dist = r2.Vec{X: 1e-6}, 1e-6
		}
		d = r2.Scale((dist-s.cfg.LinkDistance)/dist*s.alpha*s.cfg.LinkStrength, d)

		ws, wt := share(src, tgt)
		src.Vel = r2.Add(src.Vel, r2.Scale(ws, d))
		tgt.Vel = r2.Sub(tgt.Vel, r2.Scale(wt, d))
	}
}

// particle adapts a body position to barneshut
type particle struct {
	pos r2.Vec
}

func (p *particle) Coord2() r2.Vec { return p.pos }
func (p *particle) Mass() float64  { return 1 }

func (s *Simulation) applyRepulsion() {
	n := s.arena.Len()
	if n < 2 || s.cfg.ChargeStrength == 0 {
		return
	}

	if cap(s.particles) < n {
		s.particles = make([]particle, n)
	}
	s.particles = s.particles[:n]
	ps := make([]barneshut.Particle2, n)
	seen := make(map[r2.Vec]bool, n)
	for i := 0; i < n; i++ {
		pos := s.arena.At(i).Pos
		// coincident particles cannot be separated by the quadtree
		for k := 1; seen[pos]; k++ {
			pos = r2.Add(pos, r2.Vec{X: 1e-3 * float64(k), Y: -1e-3 * float64(k)})
		}
		seen[pos] = true
		s.particles[i].pos = pos
		ps[i] = &s.particles[i]
	}

	charge := s.cfg.ChargeStrength * s.alpha
	force := func(_, _ barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		d2 := r2.Dot(v, v)
		if d2 < 1 {
			d2 = 1
		}
		return r2.Scale(charge*m2/d2, v)
	}

	plane, err := barneshut.NewPlane(ps)
	if err != nil {
		s.logger.Debugw("Barnes-Hut plane unavailable, using pairwise repulsion", logger.FieldError, err)
		s.repulsionNaive(ps, force)
		return
	}
	for i := 0; i < n; i++ {
		b := s.arena.At(i)
		if b.Pinned {
			continue
		}
		b.Vel = r2.Add(b.Vel, plane.ForceOn(ps[i], s.cfg.Theta, force))
	}
}

func (s *Simulation) repulsionNaive(ps []barneshut.Particle2, force barneshut.Force2) {
	for i := range ps {
		b := s.arena.At(i)
		if b.Pinned {
			continue
		}
		for j := range ps {
			if i == j {
				continue
			}
			v := r2.Sub(ps[j].Coord2(), ps[i].Coord2())
			b.Vel = r2.Add(b.Vel, force(ps[i], ps[j], 1, 1, v))
		}
	}
}

func (s *Simulation) collisionRadius(b *Body) float64 {
	return b.Radius + s.cfg.CollisionPadding
}

func (s *Simulation) applyCollision() {
	n := s.arena.Len()
	for i := 0; i < n; i++ {
		a := s.arena.At(i)
		ra := s.collisionRadius(a)
		for j := i + 1; j < n; j++ {
			b := s.arena.At(j)
			r := ra + s.collisionRadius(b)
			d := r2.Sub(r2.Add(b.Pos, b.Vel), r2.Add(a.Pos, a.Vel))
			dist := r2.Norm(d)
			if dist >= r {
				continue
			}
			if dist == 0 {
				d, dist = r2.Vec{X: 1e-6 * float64(j-i)}, 1e-6*float64(j-i)
			}
			push := r2.Scale((r-dist)/dist, d)
			wa, wb := share(a, b)
			a.Vel = r2.Sub(a.Vel, r2.Scale(wa, push))
			b.Vel = r2.Add(b.Vel, r2.Scale(wb, push))
		}
	}
}

func (s *Simulation) applyContainment() {
	strength := s.cfg.ContainmentStrength * s.alpha
	for _, c := range s.clusters.Clusters() {
		inner := s.cfg.InnerFraction * c.Radius
		for k, id := range c.Members() {
			if id == c.ID {
				continue
			}
			b, ok := s.arena.Get(id)
			if !ok || b.Pinned {
				continue
			}
			d := r2.Sub(b.Pos, c.Center)
			dist := r2.Norm(d)
			var u r2.Vec
			if dist == 0 {
				a := 2 * math.Pi * float64(k) / float64(c.Size())
				u = r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
			} else {
				u = r2.Scale(1/dist, d)
			}

			switch {
			case dist < inner:
				b.Vel = r2.Add(b.Vel, r2.Scale((inner-dist)*strength, u))
			case dist > c.Radius:
				b.Vel = r2.Sub(b.Vel, r2.Scale((dist-c.Radius)*strength*0.5, u))
			}
		}
	}
}

func (s *Simulation) applyMediatorAttraction() {
	strength := s.cfg.MediatorStrength * s.alpha
	if strength == 0 {
		return
	}
	for _, l := range s.links {
		if l.Mediator == "" || l.Mediator == l.ID.Target {
			continue
		}
		t, ok1 := s.arena.Get(l.ID.Target)
		m, ok2 := s.arena.Get(l.Mediator)
		if !ok1 || !ok2 || t.Pinned {
			continue
		}
		t.Vel = r2.Add(t.Vel, r2.Scale(strength, r2.Sub(m.Pos, t.Pos)))
	}
}

func (s *Simulation) integrate() {
	keep := 1 - s.cfg.VelocityDecay
	for i := 0; i < s.arena.Len(); i++ {
		b := s.arena.At(i)
		if b.Pinned {
			b.Pos = b.Fixed
			b.Vel = r2.Vec{}
			continue
		}
		b.Vel = r2.Scale(keep, b.Vel)
		b.Pos = r2.Add(b.Pos, b.Vel)
	}
}
