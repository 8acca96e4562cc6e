package logic

// gate defers a continuation until the pending count for one (action,
// logic) pair reaches zero. It must be created before the pair publishes
// its first event.
type gate struct {
	state    pendingState
	order    ProcessOrder
	sub      Subscription
	resolved bool
	skip     bool
	err      error
	cont     func(skip bool, err error)
}

func newGate(m *Monitor, action *Action, owner string, order ProcessOrder) *gate {
	g := &gate{
		state: newPendingState(action, owner),
		order: order,
	}
	if order == ProcessOrderNone {
		return g
	}
	g.sub = m.observe(g.fold, g.fail)
	return g
}

func (g *gate) fold(evt Event) func() {
	if g.resolved {
		return nil
	}
	g.state = reducePending(g.state, evt, g.order)
	if !g.state.ready {
		return nil
	}
	return g.resolve(false, nil)
}

func (g *gate) fail(err error) {
	if run := g.resolve(true, err); run != nil {
		run()
	}
}

// resolve settles the gate and returns the continuation to run, if one was
// registered.
func (g *gate) resolve(skip bool, err error) func() {
	if g.resolved {
		return nil
	}
	g.resolved = true
	g.skip = skip
	g.err = err
	g.unsubscribe()

	cont := g.cont
	g.cont = nil
	if cont == nil {
		return nil
	}
	return func() { cont(skip, err) }
}

// executeWhenReady runs cont now if the gate is disabled or already
// resolved, otherwise once it resolves. Call it at most once.
func (g *gate) executeWhenReady(cont func(skip bool, err error)) {
	if g.order == ProcessOrderNone {
		cont(false, nil)
		return
	}
	if g.resolved {
		cont(g.skip, g.err)
		return
	}
	g.cont = cont
}

// stop resolves the gate early.
func (g *gate) stop(skip bool) {
	if run := g.resolve(skip, nil); run != nil {
		run()
	}
}

// dispose drops any pending continuation and detaches from the monitor.
func (g *gate) dispose() {
	g.cont = nil
	if !g.resolved {
		g.resolved = true
		g.skip = true
	}
	g.unsubscribe()
}

func (g *gate) unsubscribe() {
	if g.sub != nil {
		g.sub.Unsubscribe()
		g.sub = nil
	}
}
