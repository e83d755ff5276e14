// Package forms defines the node-level semantics of questionnaires and
// forms: what makes a node a Form, an Answer or an AnswerSection, how
// template questions map to concrete answer node types, and how values are
// read uniformly from committed and staged nodes.
package forms

import (
	"strings"

	"github.com/clinforms/clinforms/internal/doctree"
)

// Property names shared by all document trees.
const (
	PropPrimaryType = "primaryType"
	PropSuperType   = "superType"
	PropCreated     = "created"
	PropCreatedBy   = "createdBy"
	PropStatusFlags = "statusFlags"

	// Template properties.
	PropID              = "id"
	PropTitle           = "title"
	PropDataType        = "dataType"
	PropEntryMode       = "entryMode"
	PropExpression      = "expression"
	PropMaxAnswers      = "maxAnswers"
	PropConditional     = "conditional"
	PropRecurrent       = "recurrent"
	PropInitialInstance = "initialNumberOfInstances"

	// Reference-question properties.
	PropRefQuestion          = "question"      // name of the referenced question
	PropRefQuestionnaire     = "questionnaire" // path of the referenced questionnaire
	PropConditionalProperty  = "conditionalProperty"
	PropConditionalOperator  = "conditionalOperator"
	PropConditionalValue     = "conditionalValue"
	PropConditionalFallback  = "conditionalFallback"

	// Form/answer properties.
	PropQuestionRef   = "question"      // answer → question template id
	PropSectionRef    = "section"       // answer section → section template id
	PropQuestionnaire = "questionnaire" // form → questionnaire document path
	PropSubject       = "subject"       // form → subject document path
	PropParent        = "parent"        // subject → parent subject path
	PropValue         = "value"
	PropNote          = "note"
	PropComputedFrom  = "computedFrom"
	PropCopiedFrom    = "copiedFrom"
	PropForm          = "form" // answer → owning form path backlink
)

// Primary node types.
const (
	TypeQuestionnaire = "Questionnaire"
	TypeSection       = "Section"
	TypeQuestion      = "Question"
	TypeForm          = "Form"
	TypeAnswerSection = "AnswerSection"
	TypeSubject       = "Subject"

	SuperTypeAnswer = "Answer"
)

// StatusFlagInvalidSource marks a reference answer whose source could not be
// resolved.
const StatusFlagInvalidSource = "INVALID_SOURCE"

// Entry modes for questions.
const (
	EntryModePlain     = "plain"
	EntryModeComputed  = "computed"
	EntryModeReference = "reference"
)

// AnswerType describes the concrete answer node type derived from a
// question's dataType.
type AnswerType struct {
	PrimaryType string
	ValueType   doctree.Type
}

// AnswerTypeFor maps a question's dataType to its answer node type. Unknown
// or absent data types map to text.
func AnswerTypeFor(question propertyReader) AnswerType {
	dataType := question.StringProperty(PropDataType)
	switch dataType {
	case "long":
		return AnswerType{PrimaryType: "LongAnswer", ValueType: doctree.TypeLong}
	case "double":
		return AnswerType{PrimaryType: "DoubleAnswer", ValueType: doctree.TypeDouble}
	case "decimal":
		return AnswerType{PrimaryType: "DecimalAnswer", ValueType: doctree.TypeDecimal}
	case "boolean":
		return AnswerType{PrimaryType: "BooleanAnswer", ValueType: doctree.TypeBoolean}
	case "date":
		return AnswerType{PrimaryType: "DateAnswer", ValueType: doctree.TypeDate}
	case "time":
		return AnswerType{PrimaryType: "TimeAnswer", ValueType: doctree.TypeString}
	case "vocabulary":
		return AnswerType{PrimaryType: "VocabularyAnswer", ValueType: doctree.TypeString}
	case "computed":
		return AnswerType{PrimaryType: "ComputedAnswer", ValueType: doctree.TypeString}
	case "identifier":
		return AnswerType{PrimaryType: "IdentifierAnswer", ValueType: doctree.TypeString}
	case "text", "":
		return AnswerType{PrimaryType: "TextAnswer", ValueType: doctree.TypeString}
	default:
		// Unknown types still get a named subtype but are stored as text.
		return AnswerType{PrimaryType: capitalize(dataType) + "Answer", ValueType: doctree.TypeString}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// propertyReader is the read surface shared by *doctree.NodeState and
// *doctree.Builder, letting the helpers below operate uniformly on committed
// and staged nodes.
type propertyReader interface {
	HasProperty(name string) bool
	Property(name string) (doctree.Value, bool)
	StringProperty(name string) string
}
