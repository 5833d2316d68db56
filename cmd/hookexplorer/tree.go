package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joshuapare/hookkit/core/hdata"
	"github.com/joshuapare/hookkit/internal/logger"
	"github.com/joshuapare/hookkit/pkg/host"
)

const (
	maxListObjects = 500 // Objects shown per expanded list
	maxDepth       = 16  // Relation chains stop here
)

type nodeKind int

const (
	typeNode nodeKind = iota
	listNode
	objectNode
)

// node is one row of the tree: an hdata type, one of its lists, or an
// object reached through a list or a relation field.
type node struct {
	kind     nodeKind
	label    string
	detail   string
	typeName string
	typ      *hdata.Type
	list     string
	field    string // relation field leading to this object, if any
	obj      any

	parent   *node
	children []*node
	depth    int
	expanded bool
	loaded   bool
}

// key identifies a node across refreshes.
func (n *node) key() string {
	var seg string
	switch n.kind {
	case typeNode:
		seg = n.typeName
	case listNode:
		seg = "list:" + n.list
	case objectNode:
		seg = n.field + "@" + hdata.FormatAddr(n.obj)
	}
	if n.parent == nil {
		return seg
	}
	return n.parent.key() + "/" + seg
}

// hasChildren reports whether the node can be expanded.
func (n *node) hasChildren() bool {
	if n.loaded {
		return len(n.children) > 0
	}
	return n.kind != objectNode || n.depth < maxDepth
}

// tree holds the hdata hierarchy of a host and its flattened visible rows.
type tree struct {
	c      *host.Context
	roots  []*node
	rows   []*node
	cursor int
	offset int
	height int
}

func newTree(c *host.Context) *tree {
	t := &tree{c: c, height: 10}
	t.roots = t.rootNodes()
	t.flatten()
	return t
}

// rootNodes returns one node per hdata type a hook provides or the
// registry already holds.
func (t *tree) rootNodes() []*node {
	descs := t.c.Hooks().HdataDescriptions()
	for _, name := range t.c.Types().Materialized() {
		if _, ok := descs[name]; !ok {
			descs[name] = ""
		}
	}
	names := make([]string, 0, len(descs))
	for name := range descs {
		names = append(names, name)
	}
	slices.Sort(names)
	roots := make([]*node, 0, len(names))
	for _, name := range names {
		roots = append(roots, &node{kind: typeNode, label: name, detail: descs[name], typeName: name})
	}
	return roots
}

// load fills the children of n.
func (t *tree) load(n *node) error {
	if n.loaded {
		return nil
	}
	n.loaded = true
	n.children = nil
	w := t.c.Walker()

	switch n.kind {
	case typeNode:
		typ, ok := t.c.Types().Resolve(n.typeName)
		if !ok {
			return fmt.Errorf("hdata %q is not available", n.typeName)
		}
		n.typ = typ
		for _, name := range typ.ListNames() {
			n.children = append(n.children, &node{
				kind:     listNode,
				label:    name,
				typeName: n.typeName,
				typ:      typ,
				list:     name,
				parent:   n,
				depth:    n.depth + 1,
			})
		}

	case listNode:
		count := 0
		err := w.Walk(n.typ, n.list, func(obj any) bool {
			n.children = append(n.children, t.objectNode(n, n.typ, "", obj))
			count++
			return count < maxListObjects
		})
		if err != nil {
			logger.Warn("explorer list walk", "type", n.typeName, "list", n.list, "error", err)
			return err
		}

	case objectNode:
		if n.depth >= maxDepth {
			return nil
		}
		for _, name := range n.typ.FieldNames() {
			f, _ := n.typ.Field(name)
			if f.Type != hdata.TypePointer || f.Related == "" || f.IsArray() ||
				name == n.typ.Prev() || name == n.typ.Next() {
				continue
			}
			rt, obj, err := w.FollowRelation(n.typ, n.obj, name)
			if err != nil || obj == nil {
				continue
			}
			n.children = append(n.children, t.objectNode(n, rt, name, obj))
		}
	}
	return nil
}

func (t *tree) objectNode(parent *node, typ *hdata.Type, field string, obj any) *node {
	label := t.c.Handle(obj).String()
	if name := objectName(t.c, typ, obj); name != "" {
		label = name + "  " + label
	}
	if field != "" {
		label = field + " → " + label
	}
	return &node{
		kind:     objectNode,
		label:    label,
		typeName: typ.Name(),
		typ:      typ,
		field:    field,
		obj:      obj,
		parent:   parent,
		depth:    parent.depth + 1,
	}
}

// nameFields are tried in order to give objects a readable label.
var nameFields = []string{"full_name", "name", "description", "message", "text"}

func objectName(c *host.Context, typ *hdata.Type, obj any) string {
	for _, name := range nameFields {
		f, ok := typ.Field(name)
		if !ok || f.IsArray() {
			continue
		}
		if v, ok := c.Walker().GetField(typ, obj, name); ok && v.Str() != "" {
			return v.Str()
		}
	}
	return ""
}

// flatten rebuilds the visible rows from the expanded nodes.
func (t *tree) flatten() {
	t.rows = t.rows[:0]
	var walk func(nodes []*node)
	walk = func(nodes []*node) {
		for _, n := range nodes {
			t.rows = append(t.rows, n)
			if n.expanded {
				walk(n.children)
			}
		}
	}
	walk(t.roots)
	t.cursor = max(0, min(t.cursor, len(t.rows)-1))
	t.ensureVisible()
}

// Current returns the node under the cursor.
func (t *tree) Current() *node {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return nil
	}
	return t.rows[t.cursor]
}

// Move moves the cursor by delta rows, clamped to the tree.
func (t *tree) Move(delta int) {
	t.cursor = max(0, min(t.cursor+delta, len(t.rows)-1))
	t.ensureVisible()
}

// Expand loads and shows the children of the current node.
func (t *tree) Expand() error {
	n := t.Current()
	if n == nil || n.expanded {
		return nil
	}
	err := t.load(n)
	n.expanded = len(n.children) > 0
	t.flatten()
	return err
}

// Toggle expands or collapses the current node.
func (t *tree) Toggle() error {
	if n := t.Current(); n != nil && n.expanded {
		n.expanded = false
		t.flatten()
		return nil
	}
	return t.Expand()
}

// CollapseOrParent collapses the current node, or moves to its parent when
// it is already collapsed.
func (t *tree) CollapseOrParent() {
	n := t.Current()
	if n == nil {
		return
	}
	if n.expanded {
		n.expanded = false
		t.flatten()
		return
	}
	if n.parent != nil {
		if i := slices.Index(t.rows, n.parent); i >= 0 {
			t.cursor = i
			t.ensureVisible()
		}
	}
}

// SetHeight sets the number of visible rows.
func (t *tree) SetHeight(h int) {
	t.height = max(h, 1)
	t.ensureVisible()
}

func (t *tree) ensureVisible() {
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+t.height {
		t.offset = t.cursor - t.height + 1
	}
	t.offset = max(0, min(t.offset, len(t.rows)-t.height))
}

// Visible returns the rows inside the scroll window.
func (t *tree) Visible() []*node {
	end := min(t.offset+t.height, len(t.rows))
	return t.rows[t.offset:end]
}

// Refresh rebuilds the tree from the host, keeping expanded nodes and the
// cursor where the objects still exist.
func (t *tree) Refresh() {
	expanded := make(map[string]bool)
	var collect func(nodes []*node)
	collect = func(nodes []*node) {
		for _, n := range nodes {
			if n.expanded {
				expanded[n.key()] = true
				collect(n.children)
			}
		}
	}
	collect(t.roots)
	var cursorKey string
	if n := t.Current(); n != nil {
		cursorKey = n.key()
	}

	t.roots = t.rootNodes()
	var reopen func(nodes []*node)
	reopen = func(nodes []*node) {
		for _, n := range nodes {
			if !expanded[n.key()] {
				continue
			}
			_ = t.load(n)
			n.expanded = len(n.children) > 0
			reopen(n.children)
		}
	}
	reopen(t.roots)
	t.flatten()

	for i, n := range t.rows {
		if n.key() == cursorKey {
			t.cursor = i
			break
		}
	}
	t.ensureVisible()
}

// Path returns the current node as text a client could use: a type name,
// a "type:list" root or a "type:handle" root.
func (t *tree) Path() string {
	n := t.Current()
	if n == nil {
		return ""
	}
	switch n.kind {
	case listNode:
		return n.typeName + ":" + n.list
	case objectNode:
		return n.typeName + ":" + t.c.Handle(n.obj).String()
	}
	return n.typeName
}

// Breadcrumb returns the labels from the root to the current node.
func (t *tree) Breadcrumb() string {
	var parts []string
	for n := t.Current(); n != nil; n = n.parent {
		if n.kind == objectNode && n.field != "" {
			parts = append(parts, n.field)
			continue
		}
		parts = append(parts, n.label)
	}
	slices.Reverse(parts)
	return strings.Join(parts, " / ")
}
