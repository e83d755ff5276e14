package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/store"
)

func documentResponse(doc *store.Document) DocumentResponse {
	return DocumentResponse{Path: doc.Path, Version: doc.Version, Tree: renderNode(doc.Root)}
}

// renderNode flattens a committed tree into a JSON object: properties and
// children share the namespace, children rendered as nested objects in
// stored order.
func renderNode(root *doctree.NodeState) any {
	type task struct {
		node *doctree.NodeState
		out  map[string]any
	}
	if root == nil {
		return nil
	}
	rootOut := make(map[string]any)
	stack := []task{{node: root, out: rootOut}}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, name := range t.node.PropertyNames() {
			if v, ok := t.node.Property(name); ok {
				t.out[name] = renderValue(v)
			}
		}
		for _, name := range t.node.ChildNames() {
			childOut := make(map[string]any)
			t.out[name] = childOut
			stack = append(stack, task{node: t.node.Child(name), out: childOut})
		}
	}
	return rootOut
}

func renderValue(v doctree.Value) any {
	if v.IsArray() {
		raw, _ := v.Raw().([]any)
		out := make([]any, len(raw))
		for i, item := range raw {
			out[i] = renderScalar(item)
		}
		return out
	}
	return renderScalar(v.First())
}

func renderScalar(item any) any {
	switch x := item.(type) {
	case time.Time:
		return x.Format(doctree.DateFormat)
	case decimal.Decimal:
		return x.String()
	default:
		return item
	}
}
