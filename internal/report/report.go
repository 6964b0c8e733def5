// Package report renders a classify.Report into the JSON document shape
// spec.md §6 defines, and derives the batch-validator exit code from it.
//
// Grounded on the teacher's cmd/ailang, which marshals its own diagnostic
// set through encoding/json for the `-json` output mode; qscope's report
// is always JSON (there's no separate machine/human split at this layer —
// cmd/qscope's human renderer consumes this same struct).
package report

import (
	"encoding/json"
	"sort"

	"github.com/qscopehq/qscope/internal/builder"
	"github.com/qscopehq/qscope/internal/classify"
	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qerrors"
)

// ItemReport is one entry of the "items" array in spec.md §6.
type ItemReport struct {
	ID      string            `json:"id"`
	Reach   *string           `json:"reach"`
	Post    *string           `json:"post"`
	Dead    bool              `json:"dead"`
	Witness map[string]any    `json:"witness"`
	Errors  []*qerrors.Report `json:"errors"`
}

// GlobalReport is the "global" object of spec.md §6.
type GlobalReport struct {
	Verdict  string            `json:"verdict"`
	Conflict []string          `json:"conflict"`
	Errors   []*qerrors.Report `json:"errors,omitempty"`
}

// Document is the full JSON report of spec.md §6.
type Document struct {
	Valid bool         `json:"valid"`
	Cycle []string     `json:"cycle"`
	Items []ItemReport `json:"items"`
	Global GlobalReport `json:"global"`
}

// FromClassify renders cr into the output document, looking up each
// item's declared domain kind in q so integer-witness values surface as
// JSON numbers and boolean ones as JSON booleans, per spec.md §6's
// `<int|bool>` witness value.
func FromClassify(q *model.Questionnaire, static *builder.Static, cr *classify.Report) *Document {
	byID := q.ByID()
	doc := &Document{
		Valid: cr.Global.Verdict == classify.Valid,
		Global: GlobalReport{
			Verdict:  string(cr.Global.Verdict),
			Conflict: cr.Global.Conflict,
			Errors:   cr.Global.Errors,
		},
	}

	for _, ir := range cr.Items {
		entry := ItemReport{ID: ir.ID, Dead: ir.Dead}
		if ir.Reach != "" {
			s := string(ir.Reach)
			entry.Reach = &s
		}
		if ir.Post != "" {
			s := string(ir.Post)
			entry.Post = &s
		}
		if ir.Witness != nil {
			entry.Witness = renderWitness(ir.Witness, byID, static)
		}
		for _, e := range ir.Errors {
			entry.Errors = append(entry.Errors, e)
		}
		doc.Items = append(doc.Items, entry)
	}

	return doc
}

// FromCycle renders the structural-error shape spec.md §6 uses when the
// topology check itself fails: no items were ever classified.
func FromCycle(path []string) *Document {
	return &Document{Valid: false, Cycle: path, Global: GlobalReport{Verdict: string(classify.Inconsistent)}}
}

func renderWitness(env map[string]int64, byID map[string]*model.Item, static *builder.Static) map[string]any {
	out := map[string]any{}
	for id, item := range byID {
		if !item.HasOutcome() {
			continue
		}
		ci, ok := static.Items[id]
		if !ok || ci.OutcomeVar == "" {
			continue
		}
		v, ok := env[ci.OutcomeVar]
		if !ok {
			continue
		}
		if item.Domain.Kind == model.DomainBoolean {
			out[id] = v != 0
		} else {
			out[id] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ToJSON renders doc deterministically: struct field order plus sorted
// map keys (encoding/json already sorts map[string]any keys).
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ExitCode derives the batch-validator exit code of spec.md §6.
func ExitCode(doc *Document) int {
	for _, it := range doc.Items {
		for _, e := range it.Errors {
			if qerrors.IsStructural(e.Kind) {
				return 1
			}
		}
	}
	if doc.Cycle != nil {
		return 2
	}
	anyBad := false
	for _, it := range doc.Items {
		if it.Reach != nil && *it.Reach == string(stringNever) {
			anyBad = true
		}
		if it.Post != nil && *it.Post == string(stringInfeasible) {
			anyBad = true
		}
		if it.Dead {
			anyBad = true
		}
	}
	if anyBad {
		return 3
	}
	if doc.Global.Verdict == string(classify.Inconsistent) {
		return 4
	}
	if doc.Global.Verdict == string(classify.GlobalUnknown) {
		return 5
	}
	for _, it := range doc.Items {
		for _, e := range it.Errors {
			if e.Kind == qerrors.SolverUndecided {
				return 5
			}
		}
	}
	return 0
}

const (
	stringNever      = classify.Never
	stringInfeasible = classify.Infeasible
)

// sortedIDs returns the ids of byID in lexical order, a stable item
// ordering distinct from Document.Items' classify-assigned order. Nothing
// in the package calls it.
func sortedIDs(byID map[string]*model.Item) []string {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
