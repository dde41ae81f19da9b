package publisher

import "sync/atomic"

// Generation is a monotonically increasing token identifying the input that
// is currently relevant. Only work stamped with the current generation may
// reach the view.
type Generation struct {
	n atomic.Uint64
}

// Next supersedes everything issued so far and returns the new generation.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current returns the latest generation.
func (g *Generation) Current() uint64 {
	return g.n.Load()
}

// IsCurrent reports whether gen has not been superseded.
func (g *Generation) IsCurrent(gen uint64) bool {
	return g.n.Load() == gen
}
