// Package model holds the typed, immutable questionnaire representation of
// spec.md §3, produced by internal/loader from a YAML document. Grounded
// on the teacher's internal/module (an immutable, already-validated unit
// handed downstream to linking/typechecking) generalized from AILANG
// modules to questionnaires.
package model

// Kind is an item's role, spec.md §3.
type Kind string

const (
	Question Kind = "Question"
	Comment  Kind = "Comment"
	Group    Kind = "Group"
)

// DomainKind distinguishes the four outcome-variable domains of spec.md §3.
type DomainKind string

const (
	DomainInteger DomainKind = "Integer"
	DomainEnum    DomainKind = "Enum"
	DomainBoolean DomainKind = "Boolean"
	DomainFree    DomainKind = "Free"
)

// DefaultIntLo and DefaultIntHi are the bounds an absent Integer domain
// takes on, per spec.md §3 ("defaults −2^31, 2^31−1 when absent").
const (
	DefaultIntLo int64 = -(1 << 31)
	DefaultIntHi int64 = (1 << 31) - 1
)

// Domain describes the legal values of a Question's outcome variable.
type Domain struct {
	Kind DomainKind

	// Integer / Enum-as-range bounds, inclusive.
	Lo, Hi int64

	// Enum carries explicit value labels; when non-empty the domain is
	// restricted to exactly these values rather than the [Lo,Hi] interval.
	EnumValues []int64
}

// Clause pairs an expression with its optional human-readable hint, the
// shape shared by preconditions and postconditions in spec.md §3/§6.
type Clause struct {
	Predicate string
	Hint      string
}

// Item is one questionnaire unit, spec.md §3.
type Item struct {
	ID     string
	Kind   Kind
	Domain Domain

	Precondition  []Clause
	Postcondition []Clause
	Code          string // optional post-response code fragment

	OriginIndex int // position in the source file
	BlockTitle  string
}

// HasOutcome reports whether i carries an outcome variable S_i.
func (i Item) HasOutcome() bool { return i.Kind == Question }

// Questionnaire holds the items I of Q = (I, B*, order) of spec.md §3. B*
// is built by internal/builder and the order by internal/depgraph
// (Graph.Order); neither is stored here.
type Questionnaire struct {
	Title    string
	CodeInit string
	Items    []Item
}

// ByID returns a lookup table from item id to item, used pervasively by
// the compiler, builder, and classifier.
func (q *Questionnaire) ByID() map[string]*Item {
	m := make(map[string]*Item, len(q.Items))
	for idx := range q.Items {
		m[q.Items[idx].ID] = &q.Items[idx]
	}
	return m
}
