package editors

import (
	"testing"

	"github.com/clinforms/clinforms/internal/doctree"
	"github.com/clinforms/clinforms/internal/forms"
)

func TestComputedEvaluatesFromSiblingAnswers(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/vitals"] = questionnaire("Vitals",
		question("weight", "double", nil),
		question("height", "double", nil),
		computedQuestion("bmi", "double", "@{weight} / (@{height:-1.8} * @{height:-1.8})"),
	)

	form := newForm("/Questionnaires/vitals", "/Subjects/p1")
	addAnswer(form, "a-weight", "q-weight", "DoubleAnswer", doctree.Double(70), true)
	addAnswer(form, "a-height", "q-height", "DoubleAnswer", doctree.Double(1.75), true)
	addAnswer(form, "a-bmi", "q-bmi", "DoubleAnswer", doctree.Value{}, false)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})

	v, ok := answerValue(t, snap, "a-bmi")
	if !ok {
		t.Fatal("bmi not evaluated")
	}
	want := 70.0 / (1.75 * 1.75)
	if v != want {
		t.Errorf("bmi = %v, want %v", v, want)
	}

	sources, _ := forms.NodeAt(snap, "a-bmi").Property(forms.PropComputedFrom)
	raw, _ := sources.Raw().([]any)
	if len(raw) != 2 || raw[0] != "/Forms/f1/a-weight" || raw[1] != "/Forms/f1/a-height" {
		t.Errorf("computedFrom = %v", raw)
	}
}

func TestComputedDefaultStandsInForMissingInput(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/vitals"] = questionnaire("Vitals",
		question("height", "double", nil),
		computedQuestion("doubled", "double", "@{height:-1.8} * 2"),
	)

	form := newForm("/Questionnaires/vitals", "/Subjects/p1")
	addAnswer(form, "a-height", "q-height", "DoubleAnswer", doctree.Value{}, false)
	addAnswer(form, "a-doubled", "q-doubled", "DoubleAnswer", doctree.Value{}, false)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})
	v, ok := answerValue(t, snap, "a-doubled")
	if !ok || v != 3.6 {
		t.Errorf("value = %v, %v", v, ok)
	}
}

func TestComputedMissingRequiredInputStaysUnanswered(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/vitals"] = questionnaire("Vitals",
		question("weight", "double", nil),
		question("height", "double", nil),
		computedQuestion("bmi", "double", "@{weight} / @{height}"),
	)

	form := newForm("/Questionnaires/vitals", "/Subjects/p1")
	addAnswer(form, "a-weight", "q-weight", "DoubleAnswer", doctree.Double(70), true)
	addAnswer(form, "a-height", "q-height", "DoubleAnswer", doctree.Value{}, false)
	addAnswer(form, "a-bmi", "q-bmi", "DoubleAnswer", doctree.Value{}, false)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})
	if _, ok := answerValue(t, snap, "a-bmi"); ok {
		t.Error("bmi evaluated despite a missing required input")
	}
}

func TestComputedDependenciesEvaluateFirst(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/chain"] = questionnaire("Chain",
		computedQuestion("a", "long", "@{b} + 1"),
		computedQuestion("b", "long", "@{c} + 1"),
		computedQuestion("c", "long", "2"),
	)

	form := newForm("/Questionnaires/chain", "/Subjects/p1")
	addAnswer(form, "a-a", "q-a", "LongAnswer", doctree.Value{}, false)
	addAnswer(form, "a-b", "q-b", "LongAnswer", doctree.Value{}, false)
	addAnswer(form, "a-c", "q-c", "LongAnswer", doctree.Value{}, false)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})

	for rel, want := range map[string]int64{"a-a": 4, "a-b": 3, "a-c": 2} {
		v, ok := answerValue(t, snap, rel)
		if !ok || v != want {
			t.Errorf("%s = %v (%v), want %d", rel, v, ok, want)
		}
	}
}

func TestComputedCycleLeavesSiblingsEvaluated(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/cyc"] = questionnaire("Cyclic",
		computedQuestion("x", "long", "@{y} + 1"),
		computedQuestion("y", "long", "@{x} + 1"),
		computedQuestion("z", "long", "5"),
	)

	form := newForm("/Questionnaires/cyc", "/Subjects/p1")
	addAnswer(form, "a-x", "q-x", "LongAnswer", doctree.Value{}, false)
	addAnswer(form, "a-y", "q-y", "LongAnswer", doctree.Value{}, false)
	addAnswer(form, "a-z", "q-z", "LongAnswer", doctree.Value{}, false)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})

	if _, ok := answerValue(t, snap, "a-x"); ok {
		t.Error("cyclic question x got a value")
	}
	if _, ok := answerValue(t, snap, "a-y"); ok {
		t.Error("cyclic question y got a value")
	}
	if v, ok := answerValue(t, snap, "a-z"); !ok || v != int64(5) {
		t.Errorf("sibling z = %v (%v), want 5", v, ok)
	}
}

func TestComputedAnsweredQuestionsAreLeftAlone(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/vitals"] = questionnaire("Vitals",
		computedQuestion("total", "long", "1 + 1"),
	)

	form := newForm("/Questionnaires/vitals", "/Subjects/p1")
	addAnswer(form, "a-total", "q-total", "LongAnswer", doctree.Long(99), true)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})
	if v, _ := answerValue(t, snap, "a-total"); v != int64(99) {
		t.Errorf("already answered value overwritten: %v", v)
	}
}

func TestComputedNullResultClearsValue(t *testing.T) {
	lk := newFakeLookup()
	lk.docs["/Questionnaires/vitals"] = questionnaire("Vitals",
		question("flag", "boolean", nil),
		computedQuestion("msg", "text", "@{flag:-false} ? 'on' : null"),
	)

	form := newForm("/Questionnaires/vitals", "/Subjects/p1")
	addAnswer(form, "a-flag", "q-flag", "BooleanAnswer", doctree.Bool(false), true)
	addAnswer(form, "a-msg", "q-msg", "TextAnswer", doctree.Value{}, false)

	snap := run(t, newTx(lk, "/Forms/f1"), form, ComputedProvider{})
	if _, ok := answerValue(t, snap, "a-msg"); ok {
		t.Error("null result should leave the question unanswered")
	}
}
