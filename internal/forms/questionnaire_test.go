package forms

import (
	"testing"

	"github.com/clinforms/clinforms/internal/doctree"
)

func TestIsComputedQuestionBothSpellings(t *testing.T) {
	byType := questionnaire("q", question("a", "computed", nil)).Child("a")
	if !IsComputedQuestion(byType) {
		t.Error("dataType=computed not recognized")
	}
	byMode := questionnaire("q", question("b", "double", map[string]doctree.Value{
		PropEntryMode: doctree.String(EntryModeComputed),
	})).Child("b")
	if !IsComputedQuestion(byMode) {
		t.Error("entryMode=computed not recognized")
	}
	plain := questionnaire("q", question("c", "double", nil)).Child("c")
	if IsComputedQuestion(plain) {
		t.Error("plain question misrecognized as computed")
	}
}

func TestExpectedInstances(t *testing.T) {
	plain := questionnaire("q", section("s", nil)).Child("s")
	if got := ExpectedInstances(plain); got != 1 {
		t.Errorf("plain section = %d", got)
	}

	recurrent := questionnaire("q", section("r", map[string]doctree.Value{
		PropRecurrent:       doctree.Bool(true),
		PropInitialInstance: doctree.Long(5),
	})).Child("r")
	if got := ExpectedInstances(recurrent); got != 5 {
		t.Errorf("recurrent section = %d", got)
	}

	noCount := questionnaire("q", section("r2", map[string]doctree.Value{
		PropRecurrent: doctree.Bool(true),
	})).Child("r2")
	if got := ExpectedInstances(noCount); got != 1 {
		t.Errorf("recurrent without count = %d", got)
	}

	zero := questionnaire("q", section("r3", map[string]doctree.Value{
		PropRecurrent:       doctree.Bool(true),
		PropInitialInstance: doctree.Long(0),
	})).Child("r3")
	if got := ExpectedInstances(zero); got != 1 {
		t.Errorf("recurrent with zero count = %d", got)
	}
}

func TestAnswerTypeFor(t *testing.T) {
	cases := []struct {
		dataType  string
		primary   string
		valueType doctree.Type
	}{
		{"long", "LongAnswer", doctree.TypeLong},
		{"double", "DoubleAnswer", doctree.TypeDouble},
		{"decimal", "DecimalAnswer", doctree.TypeDecimal},
		{"boolean", "BooleanAnswer", doctree.TypeBoolean},
		{"date", "DateAnswer", doctree.TypeDate},
		{"time", "TimeAnswer", doctree.TypeString},
		{"vocabulary", "VocabularyAnswer", doctree.TypeString},
		{"text", "TextAnswer", doctree.TypeString},
		{"", "TextAnswer", doctree.TypeString},
		{"chromosome", "ChromosomeAnswer", doctree.TypeString},
	}
	for _, c := range cases {
		q := questionnaire("q", question("x", c.dataType, nil)).Child("x")
		got := AnswerTypeFor(q)
		if got.PrimaryType != c.primary || got.ValueType != c.valueType {
			t.Errorf("dataType %q: got %v/%v, want %v/%v",
				c.dataType, got.PrimaryType, got.ValueType, c.primary, c.valueType)
		}
	}
}

func TestFindQuestionByIDAndName(t *testing.T) {
	q := questionnaire("q",
		section("outer", nil,
			section("inner", nil,
				question("deep", "text", nil),
			),
		),
		question("top", "long", nil),
	)

	if n := FindQuestionByID(q, "q-deep"); n == nil || TemplateID(n) != "q-deep" {
		t.Error("nested question not found by id")
	}
	if n := FindQuestionByName(q, "deep"); n == nil || TemplateID(n) != "q-deep" {
		t.Error("nested question not found by name")
	}
	if FindQuestionByID(q, "missing") != nil {
		t.Error("found a question that does not exist")
	}

	names := QuestionNames(q)
	if names["q-deep"] != "deep" || names["q-top"] != "top" {
		t.Errorf("QuestionNames = %v", names)
	}
}
