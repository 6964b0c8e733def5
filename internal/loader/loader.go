// Package loader implements spec.md §4.7: parsing a YAML questionnaire
// document into the immutable internal/model representation, with the
// structural schema checks spec.md §7 assigns this layer
// (SchemaError, DuplicateItemId, EmptyQuestionnaire).
//
// Grounded on the teacher's internal/loader (cmd/ailang's module-file
// reader, which likewise turns a textual document into a typed,
// already-validated in-memory unit before anything downstream touches
// it) and its use of gopkg.in/yaml.v3 for decoding.
package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qerrors"
)

// supportedMajor is the only qmlVersion major this loader accepts; an
// absent qmlVersion is treated as this major, per spec.md §6 ("optional;
// reject unknown majors").
const supportedMajor = "1"

type document struct {
	QMLVersion    string       `yaml:"qmlVersion"`
	Questionnaire rawQuestion `yaml:"questionnaire"`
}

type rawQuestion struct {
	Title    string     `yaml:"title"`
	CodeInit string     `yaml:"codeInit"`
	Blocks   []rawBlock `yaml:"blocks"`
}

type rawBlock struct {
	ID    string    `yaml:"id"`
	Title string    `yaml:"title"`
	Items []rawItem `yaml:"items"`
}

type rawItem struct {
	ID            string        `yaml:"id"`
	Kind          string        `yaml:"kind"`
	Title         string        `yaml:"title"`
	Input         *rawInput     `yaml:"input"`
	Precondition  []rawClause   `yaml:"precondition"`
	Postcondition []rawClause   `yaml:"postcondition"`
	CodeBlock     string        `yaml:"codeBlock"`
}

type rawInput struct {
	Control string         `yaml:"control"`
	Min     *int64         `yaml:"min"`
	Max     *int64         `yaml:"max"`
	Step    *int64         `yaml:"step"`
	Labels  map[int64]string `yaml:"labels"`
	Options []rawOption    `yaml:"options"`
}

type rawOption struct {
	Value int64  `yaml:"value"`
	Label string `yaml:"label"`
}

type rawClause struct {
	Predicate string `yaml:"predicate"`
	Hint      string `yaml:"hint"`
}

// Load parses and schema-validates src, returning a *model.Questionnaire
// on success or a *qerrors.ReportError on any of spec.md §7's structural
// errors.
func Load(src []byte) (*model.Questionnaire, error) {
	var doc document
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, qerrors.New(qerrors.SchemaError, "", fmt.Sprintf("invalid YAML: %v", err), 0)
	}

	if doc.QMLVersion != "" && majorOf(doc.QMLVersion) != supportedMajor {
		return nil, qerrors.New(qerrors.SchemaError, "", fmt.Sprintf("unsupported qmlVersion %q", doc.QMLVersion), 0)
	}

	if len(doc.Questionnaire.Blocks) == 0 {
		return nil, qerrors.New(qerrors.EmptyQuestionnaire, "", "questionnaire has no blocks", 0)
	}

	q := &model.Questionnaire{
		Title:    doc.Questionnaire.Title,
		CodeInit: doc.Questionnaire.CodeInit,
	}

	seen := map[string]bool{}
	originIndex := 0
	anyItem := false
	for _, block := range doc.Questionnaire.Blocks {
		for _, ri := range block.Items {
			anyItem = true
			if ri.ID == "" {
				return nil, qerrors.New(qerrors.SchemaError, "", "item missing required field \"id\"", 0)
			}
			if seen[ri.ID] {
				return nil, qerrors.New(qerrors.DuplicateItemId, ri.ID, fmt.Sprintf("duplicate item id %q", ri.ID), 0)
			}
			seen[ri.ID] = true

			item, err := toModelItem(ri, block.Title, originIndex)
			if err != nil {
				return nil, err
			}
			q.Items = append(q.Items, item)
			originIndex++
		}
	}

	if !anyItem {
		return nil, qerrors.New(qerrors.EmptyQuestionnaire, "", "questionnaire has no items", 0)
	}

	return q, nil
}

func majorOf(v string) string {
	for i, r := range v {
		if r == '.' {
			return v[:i]
		}
	}
	return v
}

func toModelItem(ri rawItem, blockTitle string, originIndex int) (model.Item, error) {
	kind, err := toKind(ri)
	if err != nil {
		return model.Item{}, err
	}

	item := model.Item{
		ID:          ri.ID,
		Kind:        kind,
		OriginIndex: originIndex,
		BlockTitle:  blockTitle,
		Code:        ri.CodeBlock,
	}

	if kind == model.Question {
		if ri.Input == nil {
			return model.Item{}, qerrors.New(qerrors.SchemaError, ri.ID, "Question item missing required field \"input\"", 0)
		}
		dom, err := toDomain(ri.ID, ri.Input)
		if err != nil {
			return model.Item{}, err
		}
		item.Domain = dom
	}

	for _, c := range ri.Precondition {
		if c.Predicate == "" {
			return model.Item{}, qerrors.New(qerrors.SchemaError, ri.ID, "precondition clause missing required field \"predicate\"", 0)
		}
		item.Precondition = append(item.Precondition, model.Clause{Predicate: c.Predicate, Hint: c.Hint})
	}
	for _, c := range ri.Postcondition {
		if c.Predicate == "" {
			return model.Item{}, qerrors.New(qerrors.SchemaError, ri.ID, "postcondition clause missing required field \"predicate\"", 0)
		}
		item.Postcondition = append(item.Postcondition, model.Clause{Predicate: c.Predicate, Hint: c.Hint})
	}

	return item, nil
}

func toKind(ri rawItem) (model.Kind, error) {
	switch ri.Kind {
	case "Question":
		return model.Question, nil
	case "Comment":
		return model.Comment, nil
	case "Group":
		return model.Group, nil
	case "":
		return "", qerrors.New(qerrors.SchemaError, ri.ID, "item missing required field \"kind\"", 0)
	default:
		return "", qerrors.New(qerrors.SchemaError, ri.ID, fmt.Sprintf("unknown item kind %q", ri.Kind), 0)
	}
}

// toDomain derives a Question's domain per spec.md §4.7/§6: min/max for
// Editbox/Slider, labels/options for Radio/RadioButton, Free for an
// explicit "Free" control, defaulting per spec.md §3 when bounds are
// absent. A two-value {0,1} enum is additionally recognized as Boolean —
// the YAML surface has no dedicated checkbox control, so this is the most
// direct way to express a two-valued response without widening the
// Integer domain unnecessarily.
func toDomain(itemID string, in *rawInput) (model.Domain, error) {
	switch in.Control {
	case "Editbox", "Slider":
		lo, hi := model.DefaultIntLo, model.DefaultIntHi
		if in.Min != nil {
			lo = *in.Min
		}
		if in.Max != nil {
			hi = *in.Max
		}
		if lo > hi {
			return model.Domain{}, qerrors.New(qerrors.SchemaError, itemID, fmt.Sprintf("input.min (%d) exceeds input.max (%d)", lo, hi), 0)
		}
		return model.Domain{Kind: model.DomainInteger, Lo: lo, Hi: hi}, nil

	case "Radio":
		if len(in.Labels) == 0 {
			return model.Domain{}, qerrors.New(qerrors.SchemaError, itemID, "Radio control requires non-empty \"labels\"", 0)
		}
		var values []int64
		for v := range in.Labels {
			values = append(values, v)
		}
		return enumDomain(values), nil

	case "RadioButton":
		if len(in.Options) == 0 {
			return model.Domain{}, qerrors.New(qerrors.SchemaError, itemID, "RadioButton control requires non-empty \"options\"", 0)
		}
		var values []int64
		for _, o := range in.Options {
			values = append(values, o.Value)
		}
		return enumDomain(values), nil

	case "Free":
		return model.Domain{Kind: model.DomainFree}, nil

	case "":
		return model.Domain{}, qerrors.New(qerrors.SchemaError, itemID, "input missing required field \"control\"", 0)

	default:
		return model.Domain{}, qerrors.New(qerrors.SchemaError, itemID, fmt.Sprintf("unknown input control %q", in.Control), 0)
	}
}

func enumDomain(values []int64) model.Domain {
	sortInt64(values)
	if len(values) == 2 && values[0] == 0 && values[1] == 1 {
		return model.Domain{Kind: model.DomainBoolean, Lo: 0, Hi: 1}
	}
	return model.Domain{Kind: model.DomainEnum, EnumValues: values}
}

func sortInt64(v []int64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}
