package flow

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Version is stamped on flows created by the editor.
	Version = "0.1"

	// EntryNode is the name of the node seeded into every new flow.
	EntryNode = "entry"

	// End is the terminal transition target meaning "end of flow".
	End = "END"

	// FlowSuffix marks a transition target as a reference to another flow.
	FlowSuffix = ".flow.json"

	portPrefix = "out"
)

// Collection is the arena of flows keyed by name.
// Flows reachable from a Collection are treated as immutable: every edit
// returns a new Collection holding fresh clones of the flows it touched.
type Collection map[string]*Flow

// Flow represents a named conversation-flow graph.
type Flow struct {
	Version   string    `json:"version,omitempty"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	StartNode string    `json:"startNode"`
	CatchAll  *CatchAll `json:"catchAll,omitempty"`
	Nodes     []Node    `json:"nodes"`
	Links     []Link    `json:"links"`
}

// CatchAll is the default-transition block evaluated for every node of a flow.
type CatchAll struct {
	OnReceive []string     `json:"onReceive"`
	OnEnter   []string     `json:"onEnter"`
	Next      []Transition `json:"next"`
}

// Node represents a vertex of a flow.
// A nil OnReceive means the node does not wait for user input.
type Node struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	OnEnter      []string     `json:"onEnter"`
	OnReceive    []string     `json:"onReceive"`
	Next         []Transition `json:"next"`
	LastModified *time.Time   `json:"lastModified,omitempty"`
}

// Transition is an outgoing edge resolved by target name, not by node id.
type Transition struct {
	Condition string `json:"condition"`
	Node      string `json:"node"`
}

// Link is the diagram edge that visualizes the transition Next[i] of its
// source node, where i is addressed by SourcePort ("out0", "out1", ...).
// An empty Target is unresolved.
type Link struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	SourcePort string  `json:"sourcePort"`
	Points     []Point `json:"points,omitempty"`
}

// Point is a diagram coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Port returns the source port addressing transition slot i.
func Port(i int) string {
	return portPrefix + strconv.Itoa(i)
}

// PortIndex parses a source port back into a transition slot.
func PortIndex(port string) (int, bool) {
	if !strings.HasPrefix(port, portPrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(port, portPrefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// FlowReference returns the transition target that points at the named flow.
func FlowReference(name string) string {
	if strings.HasSuffix(name, FlowSuffix) {
		return name
	}
	return name + FlowSuffix
}

// IsFlowReference reports whether a transition target names another flow.
func IsFlowReference(target string) bool {
	return strings.HasSuffix(target, FlowSuffix)
}

// IsLiteralTarget reports whether a target is never resolved against the
// nodes of the owning flow.
func IsLiteralTarget(target string) bool {
	return target == End || IsFlowReference(target)
}

// Names returns the flow names in sorted order.
func (c Collection) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy returns a new map sharing the same flows.
func (c Collection) Copy() Collection {
	out := make(Collection, len(c))
	for name, f := range c {
		out[name] = f
	}
	return out
}

// Node returns the node with the given id, or nil.
func (f *Flow) Node(id string) *Node {
	if i := f.nodeIndex(id); i >= 0 {
		return &f.Nodes[i]
	}
	return nil
}

// NodeByName returns the node with the given name, or nil.
func (f *Flow) NodeByName(name string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].Name == name {
			return &f.Nodes[i]
		}
	}
	return nil
}

// NodeNames returns the node names in flow order.
func (f *Flow) NodeNames() []string {
	names := make([]string, len(f.Nodes))
	for i, n := range f.Nodes {
		names[i] = n.Name
	}
	return names
}

func (f *Flow) nodeIndex(id string) int {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the flow.
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	out := *f
	if f.CatchAll != nil {
		ca := f.CatchAll.Clone()
		out.CatchAll = &ca
	}
	if f.Nodes != nil {
		out.Nodes = make([]Node, len(f.Nodes))
		for i, n := range f.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if f.Links != nil {
		out.Links = make([]Link, len(f.Links))
		for i, l := range f.Links {
			out.Links[i] = l.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the catch-all block.
func (c CatchAll) Clone() CatchAll {
	return CatchAll{
		OnReceive: cloneStrings(c.OnReceive),
		OnEnter:   cloneStrings(c.OnEnter),
		Next:      cloneTransitions(c.Next),
	}
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.OnEnter = cloneStrings(n.OnEnter)
	out.OnReceive = cloneStrings(n.OnReceive)
	out.Next = cloneTransitions(n.Next)
	if n.LastModified != nil {
		t := *n.LastModified
		out.LastModified = &t
	}
	return out
}

// Clone returns a deep copy of the link.
func (l Link) Clone() Link {
	out := l
	if l.Points != nil {
		out.Points = append([]Point(nil), l.Points...)
	}
	return out
}

// nil stays nil: an absent list hashes differently from an empty one.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneTransitions(t []Transition) []Transition {
	if t == nil {
		return nil
	}
	return append([]Transition{}, t...)
}
