package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/qscopehq/qscope/internal/report"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// printHuman renders doc as the colorized table cmd/ailang's own
// diagnostic printer uses: one line per record, severity-tinted.
func printHuman(doc *report.Document) {
	if doc.Cycle != nil {
		fmt.Println(red("cycle:"), doc.Cycle)
		return
	}

	for _, it := range doc.Items {
		reach := "-"
		if it.Reach != nil {
			reach = *it.Reach
		}
		post := "-"
		if it.Post != nil {
			post = *it.Post
		}
		line := fmt.Sprintf("%-24s reach=%-12s post=%-14s dead=%v", it.ID, tintReach(reach), tintPost(post), it.Dead)
		fmt.Println(line)
		for _, e := range it.Errors {
			fmt.Println("   ", red(string(e.Kind)+":"), e.Message)
		}
	}

	switch doc.Global.Verdict {
	case "VALID":
		fmt.Println(green("global: VALID"))
	case "INCONSISTENT":
		ids := append([]string(nil), doc.Global.Conflict...)
		sort.Strings(ids)
		fmt.Println(red("global: INCONSISTENT"), dim(fmt.Sprint(ids)))
	default:
		fmt.Println(yellow("global: " + doc.Global.Verdict))
	}
}

func tintReach(r string) string {
	switch r {
	case "NEVER":
		return red(r)
	case "CONDITIONAL":
		return yellow(r)
	default:
		return green(r)
	}
}

func tintPost(p string) string {
	switch p {
	case "INFEASIBLE":
		return red(p)
	case "CONSTRAINING", "UNDECIDED":
		return yellow(p)
	default:
		return green(p)
	}
}
