// Package builder is the static builder of spec.md §4.2: it walks a
// loaded questionnaire once, in file order, assigning SSA versions to
// every write (codeInit and each item's code fragment) and lowering every
// precondition/postcondition into an solver.Term, while recording the
// set of cross-item dependency edges for internal/depgraph.
//
// Grounded on the teacher's internal/elaborate (the single orchestration
// pass that turns a parsed module into something type-checked and
// dependency-annotated, threading an environment forward through
// declarations) generalized from AILANG's let-bindings to questionnaire
// items and their code fragments.
package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qscopehq/qscope/internal/compiler"
	"github.com/qscopehq/qscope/internal/exprast"
	"github.com/qscopehq/qscope/internal/exprparse"
	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qerrors"
	"github.com/qscopehq/qscope/internal/qlog"
	"github.com/qscopehq/qscope/internal/solver"
)

// Edge is a dependency j -> i: i's predicate/postcondition/code reads j's
// outcome.
type Edge struct {
	From, To string
}

// CompiledItem is everything the builder produces for a single item.
type CompiledItem struct {
	Item *model.Item

	Pre  solver.Term // ⟦P_i⟧, true when empty
	Post solver.Term // ⟦Q_i⟧, true when empty
	HasPost bool

	OutcomeVar string // base (version 0) solver variable, set iff Item.HasOutcome()
	VisitedVar string // auxiliary boolean for `outcome is not None`

	RefOutcomes []string // deduplicated, self excluded

	Err *qerrors.ReportError // set iff this item failed to compile (per-item, recoverable per spec.md §7)
}

// Static is the builder's full output: the frozen B*, every item's
// compiled terms, and the raw edge set topology will consume.
type Static struct {
	Questionnaire *model.Questionnaire
	Items         map[string]*CompiledItem
	Order         []string // origin-index order of item ids

	Base        solver.Term               // B*
	BaseDomains map[string]solver.Interval // declared domains, keyed by solver variable name

	Edges []Edge

	FailedItems map[string]bool // items whose compilation produced Err
}

// Build runs the static builder over q. A structural compile failure
// (qerrors.IsStructural: SchemaError, DuplicateItemId, EmptyQuestionnaire,
// CycleDetected, UnresolvedIdentifier, UnsupportedExpression, EmptyDomain)
// aborts Build and is returned directly; a per-item failure (ParseError,
// UnknownFunction, UnknownIdentifier, TypeMismatch) is attached to the
// offending item's CompiledItem.Err and Build continues, per spec.md §7.
func Build(q *model.Questionnaire, logger qlog.Logger) (*Static, error) {
	if logger == nil {
		logger = qlog.Nop{}
	}
	b := &builderState{
		q:           q,
		logger:      logger,
		symtab:      map[string]symbol{},
		items:       map[string]*CompiledItem{},
		domains:     map[string]solver.Interval{},
		failed:      map[string]bool{},
	}
	return b.run()
}

type symbol struct {
	varName string
	kind    compiler.Kind
}

type builderState struct {
	q      *model.Questionnaire
	logger qlog.Logger

	symtab  map[string]symbol // name -> current SSA-live version
	version map[string]int    // name -> next version counter
	byID    map[string]*model.Item

	items       map[string]*CompiledItem
	order       []string
	domains     map[string]solver.Interval
	definitions []solver.Term // definitional equalities from SSA writes
	edges       []Edge
	failed      map[string]bool
}

func (b *builderState) run() (*Static, error) {
	items := append([]model.Item(nil), b.q.Items...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].OriginIndex < items[j].OriginIndex })

	b.version = map[string]int{}
	b.byID = b.q.ByID()

	// codeInit runs unconditionally before any item.
	if strings.TrimSpace(b.q.CodeInit) != "" {
		if err := b.processCodeBlock("$init", b.q.CodeInit, solver.True); err != nil {
			b.logger.Warnf("codeInit: %v", err)
		}
	}

	for idx := range items {
		it := items[idx]
		b.order = append(b.order, it.ID)
		b.compileItem(&items[idx])
	}

	// A structural compile failure (spec.md §7: "abort the whole analysis")
	// aborts Build itself rather than being demoted to a per-item record;
	// only the per-item kinds (ParseError, UnknownFunction, TypeMismatch,
	// SolverUndecided) are meant to survive into classify.Run. Checked in
	// origin-index order so the reported failure is deterministic.
	for _, id := range b.order {
		ci := b.items[id]
		if ci.Err != nil && qerrors.IsStructural(ci.Err.Rep.Kind) {
			return nil, ci.Err
		}
	}

	for id, ci := range b.items {
		if ci.Item.HasOutcome() {
			dom, ok := b.domains[ci.OutcomeVar]
			if ok && dom.Empty() {
				return nil, qerrors.New(qerrors.EmptyDomain, id, "declared domain is unsatisfiable", 0)
			}
		}
	}

	base := solver.Conjoin(append([]solver.Term{}, b.definitions...)...)

	return &Static{
		Questionnaire: b.q,
		Items:         b.items,
		Order:         b.order,
		Base:          base,
		BaseDomains:   b.domains,
		Edges:         b.edges,
		FailedItems:   b.failed,
	}, nil
}

func (b *builderState) compileItem(it *model.Item) {
	ci := &CompiledItem{Item: it}
	b.items[it.ID] = ci

	if it.HasOutcome() {
		ci.OutcomeVar = it.ID
		if _, declared := b.symtab[it.ID]; !declared {
			b.symtab[it.ID] = symbol{varName: it.ID, kind: domainKindToKind(it.Domain.Kind)}
			b.version[it.ID] = 0
		}
		b.domains[it.ID] = domainToInterval(it.Domain)
	}
	ci.VisitedVar = "visited_" + it.ID
	b.domains[ci.VisitedVar] = solver.BooleanDomain

	resolver := &itemResolver{b: b, self: it.ID}

	preTerm, preErr := b.compileClauses("P", it.ID, it.Precondition, resolver)
	if preErr != nil {
		ci.Err = preErr
		b.failed[it.ID] = true
		return
	}
	ci.Pre = preTerm

	if strings.TrimSpace(it.Code) != "" {
		if err := b.processCodeBlock(it.ID, it.Code, preTerm); err != nil {
			ci.Err = err
			b.failed[it.ID] = true
			return
		}
	}

	if len(it.Postcondition) > 0 {
		ci.HasPost = true
		postTerm, postErr := b.compileClauses("Q", it.ID, it.Postcondition, resolver)
		if postErr != nil {
			ci.Err = postErr
			b.failed[it.ID] = true
			return
		}
		ci.Post = postTerm
	} else {
		ci.Post = solver.True
	}

	refs := b.collectOutcomeRefs(it)
	ci.RefOutcomes = refs
	for _, dep := range refs {
		b.edges = append(b.edges, Edge{From: dep, To: it.ID})
	}
}

func (b *builderState) compileClauses(label, itemID string, clauses []model.Clause, resolver compiler.Resolver) (solver.Term, *qerrors.ReportError) {
	var terms []solver.Term
	for _, cl := range clauses {
		expr, err := exprparse.Parse(cl.Predicate)
		if err != nil {
			if pe, ok := err.(*exprparse.ParseError); ok {
				return nil, qerrors.New(qerrors.ParseError, itemID, pe.Message, pe.Offset)
			}
			return nil, qerrors.New(qerrors.ParseError, itemID, err.Error(), 0)
		}
		res, cerr := compiler.Compile(itemID, expr, resolver)
		if cerr != nil {
			re, _ := cerr.(*qerrors.ReportError)
			return nil, re
		}
		if res.Kind != compiler.KindBool {
			return nil, qerrors.New(qerrors.TypeMismatch, itemID, label+" clause must be boolean-valued", expr.Offset())
		}
		terms = append(terms, res.Term)
		terms = append(terms, res.Guards...)
	}
	return solver.Conjoin(terms...), nil
}

// processCodeBlock parses zero or more `name = expr` statements (one per
// non-blank line — spec.md §9 excludes loops and richer control flow, so
// a straight-line sequence of assignments is the entire surface) and
// updates the SSA symbol table.
func (b *builderState) processCodeBlock(itemID, code string, guard solver.Term) *qerrors.ReportError {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		assign, err := exprparse.ParseAssignment(line)
		if err != nil {
			if pe, ok := err.(*exprparse.ParseError); ok {
				return qerrors.New(qerrors.ParseError, itemID, pe.Message, pe.Offset)
			}
			return qerrors.New(qerrors.ParseError, itemID, err.Error(), 0)
		}
		resolver := &itemResolver{b: b, self: itemID}
		res, cerr := compiler.Compile(itemID, assign.RHS, resolver)
		if cerr != nil {
			re, _ := cerr.(*qerrors.ReportError)
			return re
		}
		b.writeLocal(assign.Name, res.Term, res.Kind, guard)
	}
	return nil
}

func (b *builderState) writeLocal(name string, rhs solver.Term, kind compiler.Kind, guard solver.Term) {
	prev, hadPrev := b.symtab[name]
	v := b.version[name]
	newVar := fmt.Sprintf("%s#%d", name, v+1)
	b.version[name] = v + 1

	newVarTerm := solver.Var{Name: newVar}
	if kind == compiler.KindBool {
		b.domains[newVar] = solver.BooleanDomain
	} else {
		b.domains[newVar] = solver.Interval{Lo: model_DefaultLo, Hi: model_DefaultHi}
	}

	if !hadPrev {
		// Initial declaration: unconditional.
		b.definitions = append(b.definitions, solver.Cmp{Op: "==", L: newVarTerm, R: rhs})
	} else {
		// Conditional reassignment, guarded by the enclosing
		// precondition, per spec.md §4.2's SSA discipline: join the
		// new value with the pre-fragment version.
		prevTerm := solver.Var{Name: prev.varName}
		whenTrue := solver.Or{Args: []solver.Term{solver.Not{X: guard}, solver.Cmp{Op: "==", L: newVarTerm, R: rhs}}}
		whenFalse := solver.Or{Args: []solver.Term{guard, solver.Cmp{Op: "==", L: newVarTerm, R: prevTerm}}}
		b.definitions = append(b.definitions, whenTrue, whenFalse)
	}
	b.symtab[name] = symbol{varName: newVar, kind: kind}
}

func (b *builderState) collectOutcomeRefs(it *model.Item) []string {
	seen := map[string]bool{}
	var out []string
	add := func(refs exprast.Refs) {
		for _, o := range refs.Outcomes {
			if o == it.ID || seen[o] {
				continue
			}
			seen[o] = true
			out = append(out, o)
		}
	}
	for _, cl := range it.Precondition {
		if e, err := exprparse.Parse(cl.Predicate); err == nil {
			add(exprast.Walk(e))
		}
	}
	for _, cl := range it.Postcondition {
		if e, err := exprparse.Parse(cl.Predicate); err == nil {
			add(exprast.Walk(e))
		}
	}
	for _, line := range strings.Split(it.Code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if a, err := exprparse.ParseAssignment(line); err == nil {
			add(exprast.Walk(a.RHS))
		}
	}
	sort.Strings(out)
	return out
}

const (
	model_DefaultLo = -(1 << 31)
	model_DefaultHi = (1 << 31) - 1
)

func domainKindToKind(dk model.DomainKind) compiler.Kind {
	if dk == model.DomainBoolean {
		return compiler.KindBool
	}
	return compiler.KindInt
}

func domainToInterval(d model.Domain) solver.Interval {
	switch d.Kind {
	case model.DomainBoolean:
		return solver.BooleanDomain
	case model.DomainEnum:
		lo, hi := d.Lo, d.Hi
		if len(d.EnumValues) > 0 {
			lo, hi = d.EnumValues[0], d.EnumValues[0]
			for _, v := range d.EnumValues {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
		}
		return solver.Interval{Lo: lo, Hi: hi, Allowed: d.EnumValues}
	case model.DomainFree:
		return solver.Interval{Lo: model.DefaultIntLo, Hi: model.DefaultIntHi}
	default: // Integer
		lo, hi := d.Lo, d.Hi
		if lo == 0 && hi == 0 {
			lo, hi = model.DefaultIntLo, model.DefaultIntHi
		}
		return solver.Interval{Lo: lo, Hi: hi}
	}
}

// itemResolver implements compiler.Resolver against the builder's shared
// SSA symbol table, scoped to the item currently being compiled.
type itemResolver struct {
	b    *builderState
	self string
}

func (r *itemResolver) Self() string { return r.self }

func (r *itemResolver) ResolveOutcome(itemID string) (string, model.DomainKind, bool) {
	item, ok := r.b.byID[itemID]
	if !ok || !item.HasOutcome() {
		return "", "", false
	}
	sym, ok := r.b.symtab[itemID]
	if !ok {
		return itemID, item.Domain.Kind, true
	}
	return sym.varName, item.Domain.Kind, true
}

func (r *itemResolver) ResolveLocal(name string) (string, compiler.Kind, bool) {
	sym, ok := r.b.symtab[name]
	if !ok {
		return "", 0, false
	}
	return sym.varName, sym.kind, true
}

func (r *itemResolver) Visited(itemID string) (string, bool) {
	if _, ok := r.b.byID[itemID]; !ok {
		return "", false
	}
	return "visited_" + itemID, true
}
