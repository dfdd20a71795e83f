package compression

import (
	"container/heap"
	"sort"

	"github.com/chronos-tachyon/assert"
)

// treeNode is either a leafNode carrying one symbol or an internalNode that
// owns exactly two children and weighs the sum of their weights.
type treeNode interface {
	weight() uint64
	order() int
}

type leafNode struct {
	sym  rune
	freq uint64
	seq  int
}

type internalNode struct {
	freq  uint64
	seq   int
	left  treeNode
	right treeNode
}

func (n *leafNode) weight() uint64 { return n.freq }
func (n *leafNode) order() int     { return n.seq }

func (n *internalNode) weight() uint64 { return n.freq }
func (n *internalNode) order() int     { return n.seq }

// nodeHeap is a min-heap ordered by weight. Ties fall back to insertion
// sequence, so the same frequency table always builds the same tree no matter
// which process builds it.
type nodeHeap []treeNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].weight() != h[j].weight() {
		return h[i].weight() < h[j].weight()
	}
	return h[i].order() < h[j].order()
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(treeNode))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// buildTree merges leaves into a single Huffman tree by repeatedly joining
// the two lightest nodes; the first node popped becomes the left child.
// Leaves are seeded in ascending symbol order, which pins down the tie-break
// between equal frequencies. Returns nil for an empty table.
func buildTree(ft FrequencyTable) treeNode {
	if len(ft) == 0 {
		return nil
	}

	symbols := make([]rune, 0, len(ft))
	for sym := range ft {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	h := make(nodeHeap, 0, len(ft))
	seq := 0
	for _, sym := range symbols {
		h = append(h, &leafNode{sym: sym, freq: ft[sym], seq: seq})
		seq++
	}
	heap.Init(&h)

	for h.Len() > 1 {
		left := heap.Pop(&h).(treeNode)
		right := heap.Pop(&h).(treeNode)
		heap.Push(&h, &internalNode{
			freq:  left.weight() + right.weight(),
			seq:   seq,
			left:  left,
			right: right,
		})
		seq++
	}

	assert.Assertf(h.Len() == 1, "merge loop left %d nodes", h.Len())
	return h[0]
}
