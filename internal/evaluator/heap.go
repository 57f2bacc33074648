package evaluator

import "container/heap"

// pathHeap is a max-heap over scored paths.
type pathHeap []ScoredPath

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return h[i].Score > h[j].Score }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x interface{}) { *h = append(*h, x.(ScoredPath)) }
func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// take pops up to n best-scored paths in descending order.
func (h *pathHeap) take(n int) []ScoredPath {
	heap.Init(h)
	if n > h.Len() {
		n = h.Len()
	}
	out := make([]ScoredPath, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, heap.Pop(h).(ScoredPath))
	}
	return out
}
