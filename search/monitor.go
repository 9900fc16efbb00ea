package search

import "github.com/poiesic/quaerit/core"

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(query string)
	QueryEmbedded(dimension int)
	CandidatesFetched(count int)
	FilterPassed(chunk *core.Chunk)
	FilterRejected(chunk *core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                {}
func (n *noopMonitor) QueryEmbedded(_ int)           {}
func (n *noopMonitor) CandidatesFetched(_ int)       {}
func (n *noopMonitor) FilterPassed(_ *core.Chunk)    {}
func (n *noopMonitor) FilterRejected(_ *core.Chunk)  {}
func (n *noopMonitor) Finish(_ []*core.SearchResult) {}
