package flow

import (
	"encoding/binary"
	"sort"
	"strconv"

	"lukechampine.com/blake3"
)

// digestSize is the blake3 output length; 64 bits is plenty to tell an
// edited flow from its checkpoint.
const digestSize = 8

// Digest computes the content hash of a flow used for dirty detection.
// Nodes are visited sorted by id and links sorted by source, target, port
// and waypoints, so two flows that only differ in slice order hash
// identically. Last-modified
// stamps and the version field are not hashed.
//
// Digest is not a security hash.
func Digest(f *Flow) uint64 {
	d := digester{h: blake3.New(digestSize, nil)}

	d.str(f.Name)
	d.str(f.StartNode)

	if f.CatchAll != nil {
		d.actions(f.CatchAll.OnReceive)
		d.actions(f.CatchAll.OnEnter)
		d.transitions(f.CatchAll.Next)
	}

	nodes := make([]*Node, len(f.Nodes))
	for i := range f.Nodes {
		nodes[i] = &f.Nodes[i]
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		d.actions(n.OnReceive)
		d.actions(n.OnEnter)
		d.transitions(n.Next)
		d.str(n.ID)
		d.str(n.Name)
		d.num(n.X)
		d.num(n.Y)
	}

	links := make([]*Link, len(f.Links))
	for i := range f.Links {
		links[i] = &f.Links[i]
	}
	sort.Slice(links, func(i, j int) bool { return linkLess(links[i], links[j]) })
	for _, l := range links {
		d.str(l.Source)
		d.str(l.Target)
		// The port is part of the link identity: two links between the same
		// nodes from different slots are different edges.
		d.str(l.SourcePort)
		for _, p := range l.Points {
			d.num(p.X)
			d.num(p.Y)
		}
	}

	return binary.BigEndian.Uint64(d.h.Sum(nil))
}

// linkLess orders links by every hashed field so equal links are
// interchangeable and distinct links have a fixed order.
func linkLess(a, b *Link) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Target != b.Target {
		return a.Target < b.Target
	}
	if a.SourcePort != b.SourcePort {
		return a.SourcePort < b.SourcePort
	}
	for k := 0; k < len(a.Points) && k < len(b.Points); k++ {
		pa, pb := a.Points[k], b.Points[k]
		if pa.X != pb.X {
			return pa.X < pb.X
		}
		if pa.Y != pb.Y {
			return pa.Y < pb.Y
		}
	}
	return len(a.Points) < len(b.Points)
}

// DigestAll returns the digest of every flow keyed by flow name.
func DigestAll(c Collection) map[string]uint64 {
	out := make(map[string]uint64, len(c))
	for name, f := range c {
		if f == nil {
			continue
		}
		out[name] = Digest(f)
	}
	return out
}

type digester struct {
	h   *blake3.Hasher
	buf []byte
}

// Every field is terminated so that adjacent fields cannot run together.
func (d *digester) str(s string) {
	d.h.Write([]byte(s))
	d.h.Write([]byte{0})
}

func (d *digester) num(v float64) {
	d.buf = strconv.AppendFloat(d.buf[:0], v, 'g', -1, 64)
	d.buf = append(d.buf, 0)
	d.h.Write(d.buf)
}

func (d *digester) actions(a []string) {
	if a == nil {
		d.str("null")
		return
	}
	d.str("[")
	for _, s := range a {
		d.str(s)
	}
	d.str("]")
}

func (d *digester) transitions(t []Transition) {
	if t == nil {
		d.str("null")
		return
	}
	d.str("[")
	for _, tr := range t {
		d.str(tr.Node)
		d.str(tr.Condition)
	}
	d.str("]")
}
