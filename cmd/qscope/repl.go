package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/qscopehq/qscope/internal/builder"
	"github.com/qscopehq/qscope/internal/classify"
	"github.com/qscopehq/qscope/internal/depgraph"
	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qlog"
)

// runRepl is the interactive "explain" shell: given an already-classified
// questionnaire, it lets a user inspect why a given item got the verdict
// it did, without re-running the whole pipeline.
//
// Grounded on cmd/ailang's REPL mode (same package: readline-driven
// command loop over an already-built artifact), swapping AILANG's
// peterh/liner expression evaluator for a lookup against the static
// analysis results.
func runRepl(q *model.Questionnaire, static *builder.Static, graph *depgraph.Graph, cr *classify.Report, logger qlog.Logger) {
	byID := map[string]*classify.ItemResult{}
	for i := range cr.Items {
		byID[cr.Items[i].ID] = &cr.Items[i]
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("qscope explain shell — type 'help' for commands, 'quit' to exit")
	for {
		input, err := line.Prompt("qscope> ")
		if err != nil {
			return
		}
		line.AppendHistory(input)
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		fields := strings.Fields(input)
		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "list":
			listItems(cr)
		case "show":
			if len(fields) < 2 {
				fmt.Println("usage: show <item-id>")
				continue
			}
			showItem(fields[1], q, static, graph, byID)
		default:
			fmt.Println("unknown command:", fields[0], "(try 'help')")
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  list              list every item with its verdict
  show <item-id>    explain one item's classification in detail
  help              this message
  quit              leave the shell`)
}

func listItems(cr *classify.Report) {
	ids := make([]string, 0, len(cr.Items))
	byID := map[string]*classify.ItemResult{}
	for i := range cr.Items {
		ids = append(ids, cr.Items[i].ID)
		byID[cr.Items[i].ID] = &cr.Items[i]
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := byID[id]
		fmt.Printf("  %-24s reach=%-12s post=%-14s dead=%v\n", id, r.Reach, r.Post, r.Dead)
	}
}

func showItem(id string, q *model.Questionnaire, static *builder.Static, graph *depgraph.Graph, byID map[string]*classify.ItemResult) {
	r, ok := byID[id]
	if !ok {
		fmt.Println("no such item:", id)
		return
	}
	item := q.ByID()[id]
	if item == nil {
		fmt.Println("item present in report but not in questionnaire (internal inconsistency):", id)
		return
	}

	fmt.Printf("%s (%s)\n", id, item.Kind)
	for _, c := range item.Precondition {
		fmt.Println("  pre: ", c.Predicate)
	}
	for _, c := range item.Postcondition {
		fmt.Println("  post:", c.Predicate)
	}
	fmt.Println("  reach:      ", r.Reach)
	fmt.Println("  post-verdict:", r.Post)
	fmt.Println("  dead:       ", r.Dead)
	if r.Unobservable {
		fmt.Println("  (post is unobservable: item's reach is NEVER)")
	}
	if len(r.Witness) > 0 {
		fmt.Println("  witness:")
		keys := make([]string, 0, len(r.Witness))
		for k := range r.Witness {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s = %d\n", k, r.Witness[k])
		}
	}
	if ci, ok := static.Items[id]; ok && len(ci.RefOutcomes) > 0 {
		fmt.Println("  depends on:", ci.RefOutcomes)
	}
	if graph != nil {
		if preds := graph.Pred[id]; len(preds) > 0 {
			fmt.Println("  direct predecessors:", preds)
		}
		if succs := graph.Succ[id]; len(succs) > 0 {
			fmt.Println("  direct successors:  ", succs)
		}
	}
	for _, e := range r.Errors {
		fmt.Println("  error:", e.Kind, "-", e.Message)
	}
}
