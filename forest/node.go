/*
Package forest builds translation DAGs from Earley parse lists.

The output is a shared packed parse forest (SPPF): for an unambiguous
parse it degrades to a single tree; ambiguous grammars yield Alt chains
whose alternatives share common subtrees. Nodes representing the same
(nonterminal, input span) are constructed once and referenced from every
parent, so even exponentially ambiguous grammars produce a DAG of
polynomial size. A discussion of the approach may be found in "Parsing
Techniques" by Dick Grune and Ceriel J.H. Jacobs
(https://dickgrune.com/Books/PTAPG_2nd_Edition/), Section 3.7.3.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package forest

import (
	"fmt"
	"io"

	"github.com/npillmayer/schuko/tracing"

	"github.com/earley-go/yaep/arena"
)

// tracer traces with key 'yaep.forest'.
func tracer() tracing.Trace {
	return tracing.Select("yaep.forest")
}

// Kind discriminates the translation node variants.
type Kind int

// Translation node kinds.
const (
	Nil   Kind = iota // empty translation; singleton per parse
	Error             // error-recovery placeholder; singleton per parse
	Term              // input token
	Anode             // abstract node with named constructor and children
	Alt               // ambiguity fork: chain of alternatives
)

func (k Kind) String() string {
	switch k {
	case Nil:
		return "nil"
	case Error:
		return "error"
	case Term:
		return "term"
	case Anode:
		return "anode"
	case Alt:
		return "alt"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is one translation node. Which fields are meaningful depends on
// Kind: Term uses Code/Attr, Anode uses Name/Cost/Children, Alt uses
// Child/Next. Nodes form a DAG; identical subtrees are shared.
type Node struct {
	Kind     Kind
	Code     int         // Term: token code
	Attr     interface{} // Term: opaque attribute from the token reader
	Name     string      // Anode: constructor name
	Cost     int         // Anode: own cost, plus children when configured
	Children []*Node     // Anode
	Child    *Node       // Alt: this alternative
	Next     *Node       // Alt: remaining alternatives, or nil
}

// Alternatives flattens an Alt chain into its alternatives. For any other
// node it returns the node itself as the only element.
func Alternatives(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if n.Kind != Alt {
		return []*Node{n}
	}
	var alts []*Node
	for ; n != nil; n = n.Next {
		alts = append(alts, n.Child)
	}
	return alts
}

// NodeCost returns the cost of a node: Anodes carry their Cost field, an
// Alt chain the cost of its first alternative, all other kinds cost 0.
func NodeCost(n *Node) int {
	switch n.Kind {
	case Anode:
		return n.Cost
	case Alt:
		return NodeCost(n.Child)
	}
	return 0
}

func (n *Node) String() string {
	switch n.Kind {
	case Nil:
		return "()"
	case Error:
		return "<error>"
	case Term:
		return fmt.Sprintf("'%d'", n.Code)
	case Anode:
		s := n.Name + "["
		for i, c := range n.Children {
			if i > 0 {
				s += " "
			}
			s += c.String()
		}
		return s + "]"
	case Alt:
		s := "(alt"
		for _, a := range Alternatives(n) {
			s += " " + a.String()
		}
		return s + ")"
	}
	return "?"
}

// --- Node arena ------------------------------------------------------------

// Arena allocates translation nodes in slabs and releases them all at
// once. One arena per parse holds the scratch nodes; a caller-supplied
// arena keeps the resulting DAG alive after parse teardown. The embedded
// byte allocator serves callers that want to persist token attributes
// next to the nodes; Arena satisfies the arena.Allocator contract.
type Arena struct {
	slabs [][]Node
	used  int
	bytes *arena.Bump
}

const slabNodes = 256

// NewArena creates an empty node arena.
func NewArena() *Arena {
	return &Arena{bytes: arena.NewBump(0)}
}

// Alloc hands out a zeroed byte block from the arena's byte region.
func (ar *Arena) Alloc(n int) []byte {
	return ar.bytes.Alloc(n)
}

var _ arena.Allocator = (*Arena)(nil)

func (ar *Arena) alloc() *Node {
	if len(ar.slabs) == 0 || ar.used == slabNodes {
		ar.slabs = append(ar.slabs, make([]Node, slabNodes))
		ar.used = 0
	}
	slab := ar.slabs[len(ar.slabs)-1]
	n := &slab[ar.used]
	ar.used++
	return n
}

// FreeAll drops every node allocated from the arena. Nodes handed out
// before must not be used afterwards.
func (ar *Arena) FreeAll() {
	ar.slabs = nil
	ar.used = 0
	ar.bytes.FreeAll()
}

// --- Tree release ----------------------------------------------------------

// Free walks the DAG once and calls termFree for every Term node, giving
// the caller the chance to release attached attributes. Shared nodes are
// visited once.
func Free(root *Node, termFree func(code int, attr interface{})) {
	if root == nil {
		return
	}
	visited := make(map[*Node]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		switch n.Kind {
		case Term:
			if termFree != nil {
				termFree(n.Code, n.Attr)
			}
			n.Attr = nil
		case Anode:
			for _, c := range n.Children {
				walk(c)
			}
		case Alt:
			walk(n.Child)
			walk(n.Next)
		}
	}
	walk(root)
}

// --- GraphViz --------------------------------------------------------------

// ToGraphViz exports a translation DAG to an io.Writer in GraphViz DOT
// format.
func ToGraphViz(root *Node, w io.Writer) {
	io.WriteString(w, "digraph G {\n")
	io.WriteString(w, "node [fontname=\"Helvetica\",shape=box,fontsize=10];\n")
	ids := make(map[*Node]int)
	var visit func(n *Node) int
	visit = func(n *Node) int {
		if id, ok := ids[n]; ok {
			return id
		}
		id := len(ids)
		ids[n] = id
		label := n.Kind.String()
		switch n.Kind {
		case Term:
			label = fmt.Sprintf("'%d'", n.Code)
		case Anode:
			label = fmt.Sprintf("%s (%d)", n.Name, n.Cost)
		}
		fmt.Fprintf(w, "n%d [label=%q]\n", id, label)
		switch n.Kind {
		case Anode:
			for seq, c := range n.Children {
				cid := visit(c)
				fmt.Fprintf(w, "n%d -> n%d [label=%d]\n", id, cid, seq)
			}
		case Alt:
			for _, a := range Alternatives(n) {
				aid := visit(a)
				fmt.Fprintf(w, "n%d -> n%d [style=dashed]\n", id, aid)
			}
		}
		return id
	}
	if root != nil {
		visit(root)
	}
	io.WriteString(w, "}\n")
}
