package builder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qerrors"
	"github.com/qscopehq/qscope/internal/qlog"
	"github.com/qscopehq/qscope/internal/solver"
)

func questionItem(id string, domain model.Domain, origin int) model.Item {
	return model.Item{ID: id, Kind: model.Question, Domain: domain, OriginIndex: origin}
}

func TestBuild_EmptyClausesAreTrue(t *testing.T) {
	q := &model.Questionnaire{Items: []model.Item{
		questionItem("age", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 120}, 0),
	}}
	static, err := Build(q, qlog.Nop{})
	require.NoError(t, err)
	ci := static.Items["age"]
	require.Equal(t, solver.True, ci.Pre)
	require.Equal(t, solver.True, ci.Post)
	require.False(t, ci.HasPost)
}

func TestBuild_DependencyEdge(t *testing.T) {
	age := questionItem("age", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 120}, 0)
	exp := questionItem("experience", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 100}, 1)
	exp.Precondition = []model.Clause{{Predicate: "age.outcome >= 16"}}
	exp.Postcondition = []model.Clause{{Predicate: "experience.outcome <= age.outcome - 16"}}

	q := &model.Questionnaire{Items: []model.Item{age, exp}}
	static, err := Build(q, qlog.Nop{})
	require.NoError(t, err)

	require.Contains(t, static.Edges, Edge{From: "age", To: "experience"})
	require.Empty(t, static.FailedItems)
}

func TestBuild_SelfReferenceIsIllegal(t *testing.T) {
	bad := questionItem("q1", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 10}, 0)
	bad.Precondition = []model.Clause{{Predicate: "q1.outcome > 0"}}

	q := &model.Questionnaire{Items: []model.Item{bad}}
	_, err := Build(q, qlog.Nop{})
	require.Error(t, err, "a self-reference is UnresolvedIdentifier, a structural kind, and aborts Build per spec.md §7")
	rep, ok := qerrors.AsReport(err)
	require.True(t, ok)
	require.Equal(t, qerrors.UnresolvedIdentifier, rep.Kind)
	require.Equal(t, "q1", rep.ItemID)
}

func TestBuild_LocalReferencedBeforeAssignmentIsPerItemError(t *testing.T) {
	it := questionItem("q1", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 10}, 0)
	it.Code = "bonus = unset_local + 1"

	q := &model.Questionnaire{Items: []model.Item{it}}
	static, err := Build(q, qlog.Nop{})
	require.NoError(t, err, "an unknown code-fragment local is per-item, not structural, and must not abort Build")
	require.True(t, static.FailedItems["q1"])
	require.NotNil(t, static.Items["q1"].Err)
	require.Equal(t, qerrors.UnknownIdentifier, static.Items["q1"].Err.Rep.Kind)
}

func TestBuild_UnknownFunctionIsPerItemError(t *testing.T) {
	q1 := questionItem("q1", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 10}, 0)
	bad := questionItem("q2", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 10}, 1)
	bad.Precondition = []model.Clause{{Predicate: "undefined_function(q1.outcome)"}}

	q := &model.Questionnaire{Items: []model.Item{q1, bad}}
	static, err := Build(q, qlog.Nop{})
	require.NoError(t, err)
	require.True(t, static.FailedItems["q2"])
	require.False(t, static.FailedItems["q1"], "neighbors unaffected per spec.md S6")
}

func TestBuild_CodeFragmentSSAVersioning(t *testing.T) {
	it := questionItem("q1", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 10}, 0)
	it.Code = "bonus = 1\nbonus = bonus + 1"

	q := &model.Questionnaire{Items: []model.Item{it}}
	static, err := Build(q, qlog.Nop{})
	require.NoError(t, err)
	require.Nil(t, static.Items["q1"].Err)
	// Two writes to "bonus" should produce two distinct SSA-versioned
	// variables declared in BaseDomains.
	require.Contains(t, static.BaseDomains, "bonus#1")
	require.Contains(t, static.BaseDomains, "bonus#2")
}

func TestBuild_EmptyDomainIsStructuralError(t *testing.T) {
	it := questionItem("q1", model.Domain{Kind: model.DomainInteger, Lo: 10, Hi: 5}, 0)
	q := &model.Questionnaire{Items: []model.Item{it}}
	_, err := Build(q, qlog.Nop{})
	require.Error(t, err)
}

func TestBuild_VisitedVarDeclaredForEveryQuestion(t *testing.T) {
	it := questionItem("q1", model.Domain{Kind: model.DomainInteger, Lo: 0, Hi: 10}, 0)
	q := &model.Questionnaire{Items: []model.Item{it}}
	static, err := Build(q, qlog.Nop{})
	require.NoError(t, err)
	require.Equal(t, "visited_q1", static.Items["q1"].VisitedVar)
	require.Contains(t, static.BaseDomains, "visited_q1")
}
