package pipeline

import "context"

// Manager runs filters in their registration order and stops at the first
// verdict: either a violation or an explicit bypass. Order is policy, not an
// implementation detail; the caller decides it once at wiring time.
type Manager struct {
	filters []Filter
}

func NewManager(filters ...Filter) *Manager {
	return &Manager{filters: filters}
}

func (m *Manager) Process(ctx context.Context, payload Payload) (*Result, error) {
	for _, f := range m.filters {
		res, err := f.Process(ctx, payload)
		if err != nil {
			return nil, err
		}
		if res.Bypass {
			return Allowed(), nil
		}
		if !res.IsAllowed {
			return res, nil
		}
	}
	return Allowed(), nil
}
