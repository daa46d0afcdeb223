package propra

import (
	"io"
	"sort"
)

const (
	noNode = -1

	// a full binary tree over 256 symbols never has more nodes than this
	maxHuffmanNodes = 2*256 - 1
)

type huffmanNode struct {
	symbol byte
	leaf   bool
	weight int64 // -1 on trees read from a stream
	left   int32
	right  int32
	parent int32
}

// HuffmanTree is a code tree stored as an arena of nodes addressed by index
type HuffmanTree struct {
	nodes []huffmanNode
	root  int32
}

// BitPattern is the code of one symbol, right-aligned in Code
type BitPattern struct {
	Code   uint64
	Length uint8
}

func (t *HuffmanTree) add(n huffmanNode) int32 {
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

// BuildHuffmanTree builds a code tree from byte occurrence counts. Ties
// between equal weights go to the node encountered first.
func BuildHuffmanTree(freq *[256]uint64) (*HuffmanTree, error) {
	t := &HuffmanTree{root: noNode}
	var pending []int32
	for sym := 0; sym < 256; sym++ {
		if freq[sym] > 0 {
			pending = append(pending, t.add(huffmanNode{
				symbol: byte(sym), leaf: true, weight: int64(freq[sym]),
				left: noNode, right: noNode, parent: noNode,
			}))
		}
	}

	switch len(pending) {
	case 0:
		return nil, ErrExitCode(ExitCodeMalformedHeader, "huffman: no symbols to encode")
	case 1:
		// a lone leaf cannot be told apart from an empty tree on the wire
		pending = append(pending, t.add(huffmanNode{
			symbol: t.nodes[pending[0]].symbol + 1, leaf: true, weight: 0,
			left: noNode, right: noNode, parent: noNode,
		}))
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return t.nodes[pending[i]].weight < t.nodes[pending[j]].weight
	})

	for len(pending) > 1 {
		first, second := smallestTwo(t, pending)
		left, right := pending[first], pending[second]
		parent := t.add(huffmanNode{
			weight: t.nodes[left].weight + t.nodes[right].weight,
			left:   left, right: right, parent: noNode,
		})
		t.nodes[left].parent = parent
		t.nodes[right].parent = parent

		// drop the higher index first so the lower one stays valid
		hi, lo := first, second
		if lo > hi {
			hi, lo = lo, hi
		}
		pending = append(pending[:hi], pending[hi+1:]...)
		pending = append(pending[:lo], pending[lo+1:]...)
		pending = append(pending, parent)
	}
	t.root = pending[0]
	return t, nil
}

// smallestTwo returns the positions in pending of the two lightest nodes,
// preferring earlier positions on ties
func smallestTwo(t *HuffmanTree, pending []int32) (int, int) {
	first, second := -1, -1
	for i, id := range pending {
		w := t.nodes[id].weight
		switch {
		case first < 0 || w < t.nodes[pending[first]].weight:
			second = first
			first = i
		case second < 0 || w < t.nodes[pending[second]].weight:
			second = i
		}
	}
	return first, second
}

// WriteTo serializes the tree in preorder: 0 for an inner node, 1 followed
// by the 8-bit symbol for a leaf
func (t *HuffmanTree) WriteTo(w *BitWriter) error {
	stack := []int32{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if n.leaf {
			if err := w.WriteBits(1, 1); err != nil {
				return err
			}
			if err := w.WriteBits(uint32(n.symbol), 8); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteBits(0, 1); err != nil {
			return err
		}
		stack = append(stack, n.right, n.left)
	}
	return nil
}

// ReadHuffmanTree reconstructs a tree written by WriteTo. A tree made of a
// single leaf is accepted; every symbol it decodes is that leaf's symbol.
func ReadHuffmanTree(r *BitReader) (*HuffmanTree, error) {
	t := &HuffmanTree{root: noNode}

	readNode := func(parent int32) (int32, error) {
		bit, err := r.ReadBits(1)
		if err != nil {
			return noNode, treeError(err)
		}
		if len(t.nodes) >= maxHuffmanNodes {
			return noNode, ErrExitCode(ExitCodeMalformedHeader, "huffman: tree has too many nodes")
		}
		n := huffmanNode{weight: -1, left: noNode, right: noNode, parent: parent}
		if bit == 1 {
			sym, err := r.ReadBits(8)
			if err != nil {
				return noNode, treeError(err)
			}
			n.leaf = true
			n.symbol = byte(sym)
		}
		return t.add(n), nil
	}

	root, err := readNode(noNode)
	if err != nil {
		return nil, err
	}
	t.root = root
	if t.nodes[root].leaf {
		log.Warningf("huffman: tree consists of the single leaf %d", t.nodes[root].symbol)
		return t, nil
	}

	cur := root // inner node with a free child slot
	for {
		id, err := readNode(cur)
		if err != nil {
			return nil, err
		}
		if t.nodes[cur].left == noNode {
			t.nodes[cur].left = id
			if !t.nodes[id].leaf {
				cur = id
			}
			continue
		}
		t.nodes[cur].right = id
		if !t.nodes[id].leaf {
			cur = id
			continue
		}
		// climb to the nearest ancestor that still lacks a right child
		for t.nodes[cur].right != noNode {
			cur = t.nodes[cur].parent
			if cur == noNode {
				return t, nil
			}
		}
	}
}

func treeError(err error) error {
	if err == io.EOF {
		return errExitCodef(ExitCodePrematureEndOfStream, "huffman: stream ended inside the code tree")
	}
	return err
}

// Codes returns the bit pattern of every symbol; absent symbols have length 0
func (t *HuffmanTree) Codes() [256]BitPattern {
	var codes [256]BitPattern
	type entry struct {
		id     int32
		code   uint64
		length uint8
	}
	stack := []entry{{id: t.root}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[e.id]
		if n.leaf {
			codes[n.symbol] = BitPattern{Code: e.code, Length: e.length}
			continue
		}
		stack = append(stack,
			entry{id: n.right, code: e.code<<1 | 1, length: e.length + 1},
			entry{id: n.left, code: e.code << 1, length: e.length + 1})
	}
	return codes
}

// DecodeSymbol walks from the root to a leaf, one bit per branch
func (t *HuffmanTree) DecodeSymbol(r *BitReader) (byte, error) {
	id := t.root
	for !t.nodes[id].leaf {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, endOfStream(err)
		}
		if bit == 0 {
			id = t.nodes[id].left
		} else {
			id = t.nodes[id].right
		}
	}
	return t.nodes[id].symbol, nil
}
