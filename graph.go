package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Overridable in tests.
var (
	now   = time.Now
	newID = uuid.NewString
)

// NodePatch holds the node fields an edit replaces. Nil fields are left
// unchanged; slices are copied, never retained. ClearOnReceive makes
// OnReceive absent, so the node no longer waits for input.
type NodePatch struct {
	Name      *string      `json:"name,omitempty"`
	X         *float64     `json:"x,omitempty"`
	Y         *float64     `json:"y,omitempty"`
	OnEnter   []string     `json:"onEnter,omitempty"`
	OnReceive []string     `json:"onReceive,omitempty"`
	Next      []Transition `json:"next,omitempty"`

	ClearOnReceive bool `json:"clearOnReceive,omitempty"`
}

// FlowPatch holds the flow-level fields an edit replaces.
// A non-nil Links recomputes every node's transitions from the links.
type FlowPatch struct {
	StartNode *string   `json:"startNode,omitempty"`
	CatchAll  *CatchAll `json:"catchAll,omitempty"`
	Links     []Link    `json:"links,omitempty"`
}

// NewFlow returns a flow seeded with a single entry node.
func NewFlow(name string) *Flow {
	return &Flow{
		Version:   Version,
		Name:      name,
		Location:  name,
		StartNode: EntryNode,
		CatchAll:  &CatchAll{},
		Links:     []Link{},
		Nodes: []Node{{
			ID:        newID(),
			Name:      EntryNode,
			X:         100,
			Y:         100,
			OnEnter:   []string{},
			OnReceive: nil,
			Next:      []Transition{},
		}},
	}
}

// CreateFlow adds an empty flow under a new name.
func (c Collection) CreateFlow(name string) (Collection, error) {
	if err := c.checkNewName(name); err != nil {
		return c, err
	}
	out := c.Copy()
	out[name] = NewFlow(name)
	return out, nil
}

// DeleteFlow removes a flow.
func (c Collection) DeleteFlow(name string) (Collection, error) {
	if _, ok := c[name]; !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, name)
	}
	out := c.Copy()
	delete(out, name)
	return out, nil
}

// DuplicateFlow deep-copies source under a new name. Every node gets a fresh
// id and links are remapped to the new ids; transitions need no rewrite
// since they reference nodes by name.
func (c Collection) DuplicateFlow(source, name string) (Collection, error) {
	src, ok := c[source]
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, source)
	}
	if err := c.checkNewName(name); err != nil {
		return c, err
	}

	dup := src.Clone()
	dup.Name = name
	dup.Location = name

	ids := make(map[string]string, len(dup.Nodes))
	for i := range dup.Nodes {
		id := newID()
		ids[dup.Nodes[i].ID] = id
		dup.Nodes[i].ID = id
	}
	for i := range dup.Links {
		l := &dup.Links[i]
		if id, ok := ids[l.Source]; ok {
			l.Source = id
		}
		if id, ok := ids[l.Target]; ok {
			l.Target = id
		}
	}

	out := c.Copy()
	out[name] = dup
	return out, nil
}

// RenameFlow gives a flow a new name and rewrites every transition, in any
// flow, that references it. Only typed transition targets are rewritten, and
// only on an exact match.
func (c Collection) RenameFlow(oldName, newName string) (Collection, error) {
	f, ok := c[oldName]
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, oldName)
	}
	if err := c.checkNewName(newName); err != nil {
		return c, err
	}

	from, to := FlowReference(oldName), FlowReference(newName)

	out := make(Collection, len(c))
	for name, other := range c {
		if name == oldName {
			continue
		}
		if references(other, from) {
			other = other.Clone()
			retarget(other, from, to)
		}
		out[name] = other
	}

	renamed := f.Clone()
	renamed.Name = newName
	renamed.Location = newName
	retarget(renamed, from, to)
	out[newName] = renamed

	return out, nil
}

// CreateNode appends a node built from the defaults with the patch applied
// over them, and returns its id.
func (c Collection) CreateNode(flowName string, p NodePatch) (Collection, string, error) {
	f, ok := c[flowName]
	if !ok {
		return c, "", fmt.Errorf("%w: %q", ErrFlowNotFound, flowName)
	}

	n := Node{
		ID:        newID(),
		Name:      defaultNodeName(f),
		OnEnter:   []string{},
		OnReceive: nil,
		Next:      []Transition{},
	}
	p.applyTo(&n)
	if err := checkNodeName(n.Name); err != nil {
		return c, "", err
	}
	if f.NodeByName(n.Name) != nil {
		return c, "", fmt.Errorf("%w: %q", ErrNodeExists, n.Name)
	}
	stamp(&n)

	f = f.Clone()
	f.Nodes = append(f.Nodes, n)
	syncLinks(f, n.ID)
	return c.with(flowName, f), n.ID, nil
}

// UpdateNode applies the patch to a node. Renaming a node moves the flow's
// start node and every transition that targeted the old name.
func (c Collection) UpdateNode(flowName, nodeID string, p NodePatch) (Collection, error) {
	f, ok := c[flowName]
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, flowName)
	}
	i := f.nodeIndex(nodeID)
	if i < 0 {
		return c, fmt.Errorf("%w: %q in flow %q", ErrNodeNotFound, nodeID, flowName)
	}

	oldName := f.Nodes[i].Name
	if p.Name != nil && *p.Name != oldName {
		if err := checkNodeName(*p.Name); err != nil {
			return c, err
		}
		if f.NodeByName(*p.Name) != nil {
			return c, fmt.Errorf("%w: %q", ErrNodeExists, *p.Name)
		}
	}

	f = f.Clone()
	n := &f.Nodes[i]
	p.applyTo(n)
	stamp(n)

	if n.Name != oldName {
		if f.StartNode == oldName {
			f.StartNode = n.Name
		}
		for j := range f.Nodes {
			if j == i {
				continue
			}
			renameTarget(f.Nodes[j].Next, oldName, n.Name)
		}
		if f.CatchAll != nil {
			renameTarget(f.CatchAll.Next, oldName, n.Name)
		}
	}
	if p.Next != nil {
		syncLinks(f, nodeID)
	}

	return c.with(flowName, f), nil
}

// RemoveNode deletes a node and the links drawn from it. Transitions in
// other nodes that still target the removed node are left dangling.
func (c Collection) RemoveNode(flowName, nodeID string) (Collection, error) {
	f, ok := c[flowName]
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, flowName)
	}
	i := f.nodeIndex(nodeID)
	if i < 0 {
		return c, fmt.Errorf("%w: %q in flow %q", ErrNodeNotFound, nodeID, flowName)
	}

	f = f.Clone()
	f.Nodes = append(f.Nodes[:i], f.Nodes[i+1:]...)
	links := f.Links[:0]
	for _, l := range f.Links {
		if l.Source != nodeID {
			links = append(links, l)
		}
	}
	f.Links = links

	return c.with(flowName, f), nil
}

// LinkNodes points transition slot index of the source node at target and
// updates the matching link in the same step.
func (c Collection) LinkNodes(flowName, nodeID string, index int, target string) (Collection, error) {
	f, ok := c[flowName]
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, flowName)
	}
	i := f.nodeIndex(nodeID)
	if i < 0 {
		return c, fmt.Errorf("%w: %q in flow %q", ErrNodeNotFound, nodeID, flowName)
	}
	if index < 0 || index >= len(f.Nodes[i].Next) {
		return c, fmt.Errorf("%w: slot %d of node %q", ErrTransitionNotFound, index, nodeID)
	}

	f = f.Clone()
	n := &f.Nodes[i]
	n.Next[index].Node = target
	stamp(n)
	syncLinks(f, nodeID)

	return c.with(flowName, f), nil
}

// PasteNode inserts a copy of n into the flow with a fresh id, a name that
// does not collide with its siblings and a reset position. It returns the
// id of the inserted node.
func (c Collection) PasteNode(flowName string, n Node) (Collection, string, error) {
	f, ok := c[flowName]
	if !ok {
		return c, "", fmt.Errorf("%w: %q", ErrFlowNotFound, flowName)
	}

	pasted := n.Clone()
	pasted.ID = newID()
	pasted.Name = CopyName(f.NodeNames(), n.Name)
	pasted.X, pasted.Y = 0, 0
	stamp(&pasted)

	f = f.Clone()
	f.Nodes = append(f.Nodes, pasted)
	syncLinks(f, pasted.ID)
	return c.with(flowName, f), pasted.ID, nil
}

// UpdateFlow applies flow-level fields. When the patch carries links, each
// node's transition slots are re-resolved from the link drawn from that
// slot; slots holding END or a flow reference keep their literal value.
func (c Collection) UpdateFlow(flowName string, p FlowPatch) (Collection, error) {
	f, ok := c[flowName]
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrFlowNotFound, flowName)
	}

	f = f.Clone()
	if p.StartNode != nil {
		f.StartNode = *p.StartNode
	}
	if p.CatchAll != nil {
		ca := p.CatchAll.Clone()
		f.CatchAll = &ca
	}
	if p.Links != nil {
		f.Links = make([]Link, len(p.Links))
		for i, l := range p.Links {
			f.Links[i] = l.Clone()
		}
		relink(f)
	}

	return c.with(flowName, f), nil
}

// CopyName returns the first of base-copy, base-copy-1, base-copy-2, ...
// that is not among siblings.
func CopyName(siblings []string, base string) string {
	used := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		used[s] = true
	}
	name := base + "-copy"
	if !used[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if !used[candidate] {
			return candidate
		}
	}
}

func (c Collection) checkNewName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty flow name", ErrInvalidName)
	}
	if _, ok := c[name]; ok {
		return fmt.Errorf("%w: %q", ErrFlowExists, name)
	}
	return nil
}

// checkNodeName rejects names a transition could not tell apart from END
// or a flow reference.
func checkNodeName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty node name", ErrInvalidName)
	}
	if IsLiteralTarget(name) {
		return fmt.Errorf("%w: node name %q is reserved for transition targets", ErrInvalidName, name)
	}
	return nil
}

func (c Collection) with(name string, f *Flow) Collection {
	out := c.Copy()
	out[name] = f
	return out
}

func (p NodePatch) applyTo(n *Node) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.OnEnter != nil {
		n.OnEnter = cloneStrings(p.OnEnter)
	}
	switch {
	case p.ClearOnReceive:
		n.OnReceive = nil
	case p.OnReceive != nil:
		n.OnReceive = cloneStrings(p.OnReceive)
	}
	if p.Next != nil {
		n.Next = cloneTransitions(p.Next)
	}
}

func defaultNodeName(f *Flow) string {
	for {
		name := "node-" + newID()[:4]
		if f.NodeByName(name) == nil {
			return name
		}
	}
}

func stamp(n *Node) {
	t := now()
	n.LastModified = &t
}

func renameTarget(next []Transition, from, to string) {
	for k := range next {
		if next[k].Node == from {
			next[k].Node = to
		}
	}
}

func references(f *Flow, ref string) bool {
	for _, n := range f.Nodes {
		for _, t := range n.Next {
			if t.Node == ref {
				return true
			}
		}
	}
	if f.CatchAll != nil {
		for _, t := range f.CatchAll.Next {
			if t.Node == ref {
				return true
			}
		}
	}
	return false
}

// retarget rewrites flow references in place; f must be a private clone.
func retarget(f *Flow, from, to string) {
	for i := range f.Nodes {
		renameTarget(f.Nodes[i].Next, from, to)
	}
	if f.CatchAll != nil {
		renameTarget(f.CatchAll.Next, from, to)
	}
}

// syncLinks makes the links drawn from nodeID mirror its transitions: one
// link per slot whose target resolves to a node of the flow, an unresolved
// link for a literal target, and none for a slot that no longer exists.
// Waypoints of surviving links are kept.
func syncLinks(f *Flow, nodeID string) {
	n := f.Node(nodeID)
	if n == nil {
		return
	}

	bySlot := make(map[int]Link)
	links := make([]Link, 0, len(f.Links))
	for _, l := range f.Links {
		if l.Source != nodeID {
			links = append(links, l)
			continue
		}
		if i, ok := PortIndex(l.SourcePort); ok && i < len(n.Next) {
			if _, dup := bySlot[i]; !dup {
				bySlot[i] = l
			}
		}
	}

	for i, t := range n.Next {
		l, had := bySlot[i]
		target := ""
		if dst := f.NodeByName(t.Node); dst != nil && !IsLiteralTarget(t.Node) {
			target = dst.ID
		}
		if !had && target == "" {
			continue
		}
		if !had {
			l = Link{Source: nodeID, SourcePort: Port(i)}
		}
		l.Target = target
		links = append(links, l)
	}

	f.Links = links
}

// relink recomputes every transition target from f.Links.
func relink(f *Flow) {
	for i := range f.Nodes {
		n := &f.Nodes[i]
		for slot := range n.Next {
			t := &n.Next[slot]
			if IsLiteralTarget(t.Node) {
				continue
			}
			t.Node = ""
			for _, l := range f.Links {
				if l.Source != n.ID {
					continue
				}
				if p, ok := PortIndex(l.SourcePort); !ok || p != slot {
					continue
				}
				if dst := f.Node(l.Target); dst != nil {
					t.Node = dst.Name
				}
				break
			}
		}
		stamp(n)
	}
}
