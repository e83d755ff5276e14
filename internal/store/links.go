package store

import (
	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

const (
	linkComputed = "computedFrom"
	linkCopied   = "copiedFrom"
)

// answerLink records that one answer of a form derives its value from a
// source answer elsewhere. Repositories index these on save so propagation
// can find dependents without scanning every form.
type answerLink struct {
	formPath   string
	answerPath string // absolute
	sourcePath string // absolute
	kind       string
}

func answerLinks(formPath string, root *doctree.NodeState) []answerLink {
	var out []answerLink
	forms.WalkAnswers(root, func(rel string, answer *doctree.NodeState) {
		abs := formPath + "/" + rel
		if v, ok := answer.Property(forms.PropComputedFrom); ok {
			for _, item := range valueStrings(v) {
				out = append(out, answerLink{formPath: formPath, answerPath: abs, sourcePath: item, kind: linkComputed})
			}
		}
		if src := answer.StringProperty(forms.PropCopiedFrom); src != "" {
			out = append(out, answerLink{formPath: formPath, answerPath: abs, sourcePath: src, kind: linkCopied})
		}
	})
	return out
}

func valueStrings(v doctree.Value) []string {
	raw, ok := v.Raw().([]any)
	if !ok {
		if s, sok := v.AsString(); sok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, sok := item.(string); sok {
			out = append(out, s)
		}
	}
	return out
}
