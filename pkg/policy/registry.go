package policy

import (
	"sort"
)

// RegisterEngine binds engine to a check system URI. A later registration
// for the same system replaces the earlier one. Registration waits for
// running evaluations to finish.
func (m *Model) RegisterEngine(system string, engine CheckingEngine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[system]; exists {
		m.logger.Warn("replacing checking engine", "system", system)
	}
	m.engines[system] = engine
	m.logger.Debug("checking engine registered", "system", system)
}

// RegisterEngineFunc is RegisterEngine for a plain function.
func (m *Model) RegisterEngineFunc(system string, fn EngineFunc) {
	m.RegisterEngine(system, fn)
}

// UnregisterEngine removes the engine bound to system, if any.
func (m *Model) UnregisterEngine(system string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.engines, system)
}

// RegisterStartCallback adds a callback invoked before each rule.
func (m *Model) RegisterStartCallback(fn Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCallbacks = append(m.startCallbacks, fn)
}

// RegisterOutputCallback adds a callback invoked after each rule with its
// outcome.
func (m *Model) RegisterOutputCallback(fn Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputCallbacks = append(m.outputCallbacks, fn)
}

// Engine returns the engine registered for system.
func (m *Model) Engine(system string) (CheckingEngine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(system)
}

// Systems returns the registered system URIs, sorted.
func (m *Model) Systems() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	systems := make([]string, 0, len(m.engines))
	for s := range m.engines {
		systems = append(systems, s)
	}
	sort.Strings(systems)
	return systems
}

// lookupLocked requires m.mu to be held.
func (m *Model) lookupLocked(system string) (CheckingEngine, bool) {
	e, ok := m.engines[system]
	return e, ok
}

// notifyLocked requires m.mu to be held.
func (m *Model) notifyLocked(kind string, callbacks []Callback, msg *RuleMessage) {
	for _, fn := range callbacks {
		if err := fn(msg); err != nil {
			m.logger.Warn("rule callback failed",
				"callback", kind,
				"rule_id", msg.RuleID,
				"error", err,
			)
		}
	}
}
