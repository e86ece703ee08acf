package readiness

import "sync/atomic"

// Gate withholds notifications until both the prober and the gateway have
// proven they work.
//
// The two signals behave differently: prober readiness follows the latest
// probe and flaps, gateway readiness latches on the first good fetch and
// later fetch failures do not clear it.
type Gate struct {
	prober  atomic.Bool
	gateway atomic.Bool
}

func New() *Gate { return &Gate{} }

func (g *Gate) SetProberActive(v bool) { g.prober.Store(v) }

func (g *Gate) MarkGatewayActive() { g.gateway.Store(true) }

func (g *Gate) ProberActive() bool { return g.prober.Load() }

func (g *Gate) GatewayActive() bool { return g.gateway.Load() }

func (g *Gate) Open() bool { return g.prober.Load() && g.gateway.Load() }

type Snapshot struct {
	ProberActive  bool `json:"prober_active"`
	GatewayActive bool `json:"gateway_active"`
	Open          bool `json:"open"`
}

func (g *Gate) Snapshot() Snapshot {
	p, gw := g.prober.Load(), g.gateway.Load()
	return Snapshot{ProberActive: p, GatewayActive: gw, Open: p && gw}
}
