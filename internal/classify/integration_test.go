package classify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qscopehq/qscope/internal/builder"
	"github.com/qscopehq/qscope/internal/classify"
	"github.com/qscopehq/qscope/internal/depgraph"
	"github.com/qscopehq/qscope/internal/loader"
	"github.com/qscopehq/qscope/internal/qerrors"
	"github.com/qscopehq/qscope/internal/qlog"
)

// runPipeline drives the full load -> build -> depgraph -> classify chain,
// mirroring what cmd/qscope's analyze does, for the literal scenarios of
// spec.md §8.
func runPipeline(t *testing.T, yamlDoc string) (*builder.Static, *depgraph.Graph, *classify.Report) {
	t.Helper()
	q, err := loader.Load([]byte(yamlDoc))
	require.NoError(t, err)

	static, err := builder.Build(q, qlog.Nop{})
	require.NoError(t, err)

	graph, err := depgraph.Build(context.Background(), static.Order, static.Edges)
	require.NoError(t, err)

	cr := classify.Run(context.Background(), static, graph, qlog.Nop{})
	return static, graph, cr
}

func itemResult(cr *classify.Report, id string) *classify.ItemResult {
	for i := range cr.Items {
		if cr.Items[i].ID == id {
			return &cr.Items[i]
		}
	}
	return nil
}

// S1 — basic linear survey: no predicates anywhere, every item ALWAYS/NONE,
// global VALID.
func TestS1_BasicLinearSurvey(t *testing.T) {
	doc := `
questionnaire:
  title: S1
  blocks:
    - id: b1
      items:
        - id: age
          kind: Question
          input: { control: Editbox, min: 0, max: 120 }
        - id: gender
          kind: Question
          input: { control: Radio, labels: { 1: "m", 2: "f", 3: "other" } }
        - id: comment
          kind: Comment
`
	_, _, cr := runPipeline(t, doc)
	require.Equal(t, classify.Valid, cr.Global.Verdict)
	for _, id := range []string{"age", "gender"} {
		r := itemResult(cr, id)
		require.Equal(t, classify.Always, r.Reach)
		require.Equal(t, classify.NonePost, r.Post)
		require.False(t, r.Dead)
	}
}

// S2 — conflicting postconditions on the same variable: rating1's
// postcondition is CONSTRAINING at L1, and the global formula is
// INCONSISTENT with rating1 in the conflict set. rating2's precondition
// already requires rating1 > 50, so its postcondition rating1 < 30 is
// INFEASIBLE at L1; L3 tests only rating2's precondition, which rating1's
// postcondition allows, so rating2 is not dead.
func TestS2_ConflictingPostconditions(t *testing.T) {
	doc := `
questionnaire:
  title: S2
  blocks:
    - id: b1
      items:
        - id: rating1
          kind: Question
          input: { control: Editbox, min: 0, max: 100 }
          postcondition:
            - predicate: "rating1.outcome > 50"
        - id: rating2
          kind: Question
          input: { control: Editbox, min: 0, max: 100 }
          precondition:
            - predicate: "rating1.outcome > 50"
          postcondition:
            - predicate: "rating1.outcome < 30"
`
	_, _, cr := runPipeline(t, doc)
	r1 := itemResult(cr, "rating1")
	require.Equal(t, classify.Constraining, r1.Post)
	require.Equal(t, classify.Inconsistent, cr.Global.Verdict)
	require.Contains(t, cr.Global.Conflict, "rating1")
}

// S3 — accumulated dead code: income >= 50000 then assistance gated on
// income < 30000. Assistance is CONDITIONAL/NONE at L1 but dead at L3.
func TestS3_AccumulatedDeadCode(t *testing.T) {
	doc := `
questionnaire:
  title: S3
  blocks:
    - id: b1
      items:
        - id: income
          kind: Question
          input: { control: Editbox, min: 0, max: 1000000 }
          postcondition:
            - predicate: "income.outcome >= 50000"
        - id: assistance
          kind: Question
          input: { control: Editbox, min: 0, max: 1000 }
          precondition:
            - predicate: "income.outcome < 30000"
`
	_, _, cr := runPipeline(t, doc)
	assistance := itemResult(cr, "assistance")
	require.Equal(t, classify.Conditional, assistance.Reach)
	require.Equal(t, classify.NonePost, assistance.Post)
	require.Equal(t, classify.Valid, cr.Global.Verdict)
	require.True(t, assistance.Dead, "S3: accumulated upstream constraint should kill this item")
}

// S4 — driving experience: experience gated on age >= 16 with postcondition
// experience <= age - 16. CONDITIONAL/CONSTRAINING, not dead, global VALID.
func TestS4_DrivingExperience(t *testing.T) {
	doc := `
questionnaire:
  title: S4
  blocks:
    - id: b1
      items:
        - id: age
          kind: Question
          input: { control: Editbox, min: 0, max: 120 }
        - id: experience
          kind: Question
          input: { control: Editbox, min: 0, max: 100 }
          precondition:
            - predicate: "age.outcome >= 16"
          postcondition:
            - predicate: "experience.outcome <= age.outcome - 16"
`
	_, _, cr := runPipeline(t, doc)
	exp := itemResult(cr, "experience")
	require.Equal(t, classify.Conditional, exp.Reach)
	require.Equal(t, classify.Constraining, exp.Post)
	require.False(t, exp.Dead)
	require.Equal(t, classify.Valid, cr.Global.Verdict)
}

// S5 — cycle A<-C, B<-A, C<-B surfaces as a structural CycleDetected error
// before classification ever runs; exercised directly against depgraph
// since that's the layer spec.md assigns the check to.
func TestS5_Cycle(t *testing.T) {
	doc := `
questionnaire:
  title: S5
  blocks:
    - id: b1
      items:
        - id: A
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
          precondition:
            - predicate: "C.outcome > 0"
        - id: B
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
          precondition:
            - predicate: "A.outcome > 0"
        - id: C
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
          precondition:
            - predicate: "B.outcome > 0"
`
	q, err := loader.Load([]byte(doc))
	require.NoError(t, err)
	static, err := builder.Build(q, qlog.Nop{})
	require.NoError(t, err)
	_, err = depgraph.Build(context.Background(), static.Order, static.Edges)
	require.Error(t, err)
	_, ok := err.(*depgraph.CycleError)
	require.True(t, ok)
}

// S6 — malformed predicate (unknown function) on one item: that item
// records an error and null reach/post; neighbors unaffected.
func TestS6_MalformedPredicateIsolated(t *testing.T) {
	doc := `
questionnaire:
  title: S6
  blocks:
    - id: b1
      items:
        - id: q_first
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
        - id: q_second
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
          precondition:
            - predicate: "undefined_function(q_first.outcome)"
        - id: q_third
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
          precondition:
            - predicate: "q_first.outcome > 0"
`
	_, _, cr := runPipeline(t, doc)
	bad := itemResult(cr, "q_second")
	require.NotEmpty(t, bad.Errors)
	require.Empty(t, bad.Reach)

	first := itemResult(cr, "q_first")
	require.Empty(t, first.Errors)
	require.Equal(t, classify.Always, first.Reach)

	third := itemResult(cr, "q_third")
	require.Empty(t, third.Errors)
	require.Equal(t, classify.Conditional, third.Reach)
}

// A cancellation observed between items (spec.md §5's cooperative
// preemption) stops the item loop early, skips Level 2/3 entirely, and
// returns whatever verdicts were already produced instead of panicking or
// running the rest of the pipeline against a half-torn-down context.
func TestRun_CooperativeCancellationReturnsPartialVerdicts(t *testing.T) {
	doc := `
questionnaire:
  title: cancel
  blocks:
    - id: b1
      items:
        - id: q1
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
        - id: q2
          kind: Question
          input: { control: Editbox, min: 0, max: 10 }
`
	q, err := loader.Load([]byte(doc))
	require.NoError(t, err)
	static, err := builder.Build(q, qlog.Nop{})
	require.NoError(t, err)
	graph, err := depgraph.Build(context.Background(), static.Order, static.Edges)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cr := classify.Run(ctx, static, graph, qlog.Nop{})
	require.True(t, cr.Cancelled)
	require.Empty(t, cr.Items, "no item should be classified once cancellation is observed before the loop starts")
	require.Equal(t, classify.GlobalUnknown, cr.Global.Verdict)
	require.NotEmpty(t, cr.Global.Errors)
	require.Equal(t, qerrors.Cancelled, cr.Global.Errors[0].Kind)
}
