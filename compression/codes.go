package compression

import "github.com/chronos-tachyon/assert"

// CodeTable holds the prefix-free bit codes derived from one Huffman tree:
// a forward map from symbol to code and its exact inverse for decoding.
type CodeTable struct {
	forward map[rune]string
	reverse map[string]rune
}

// NewCodeTable builds the code table for ft by walking the Huffman tree,
// appending "0" for a left edge and "1" for a right edge. An empty table
// yields an empty CodeTable. A table with a single symbol assigns it the
// fixed code "0": the lone leaf sits at depth zero, and an empty code could
// never be matched during decoding.
func NewCodeTable(ft FrequencyTable) *CodeTable {
	t := &CodeTable{
		forward: make(map[rune]string, len(ft)),
		reverse: make(map[string]rune, len(ft)),
	}

	root := buildTree(ft)
	if root == nil {
		return t
	}
	if leaf, ok := root.(*leafNode); ok {
		t.record(leaf.sym, "0")
		return t
	}
	t.walk(root, "")
	return t
}

func (t *CodeTable) walk(n treeNode, prefix string) {
	switch n := n.(type) {
	case *leafNode:
		t.record(n.sym, prefix)
	case *internalNode:
		assert.Assertf(n.left != nil && n.right != nil, "internal node %d missing a child", n.seq)
		t.walk(n.left, prefix+"0")
		t.walk(n.right, prefix+"1")
	}
}

func (t *CodeTable) record(sym rune, code string) {
	t.forward[sym] = code
	t.reverse[code] = sym
}

// Code returns the bit code assigned to sym.
func (t *CodeTable) Code(sym rune) (string, bool) {
	code, ok := t.forward[sym]
	return code, ok
}

// Symbol returns the symbol that a complete bit code decodes to.
func (t *CodeTable) Symbol(code string) (rune, bool) {
	sym, ok := t.reverse[code]
	return sym, ok
}

// Len reports how many symbols the table covers.
func (t *CodeTable) Len() int {
	return len(t.forward)
}
