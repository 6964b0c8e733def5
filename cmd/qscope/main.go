// Command qscope is the batch validator and interactive explainer of
// spec.md §6: given a YAML questionnaire, it runs the full static-analysis
// pipeline (load -> build -> depgraph -> classify) and either prints a
// JSON report and exits with the code spec.md §6 defines, or drops into
// an interactive "explain" shell.
//
// Grounded on the teacher's cmd/ailang/main.go: stdlib flag parsing,
// fatih/color severity tinting, and the same "parse flags, then act on
// flag.Arg(0)" shape, where flag.Arg(0) is the questionnaire path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/qscopehq/qscope/internal/builder"
	"github.com/qscopehq/qscope/internal/classify"
	"github.com/qscopehq/qscope/internal/depgraph"
	"github.com/qscopehq/qscope/internal/loader"
	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qerrors"
	"github.com/qscopehq/qscope/internal/qlog"
	"github.com/qscopehq/qscope/internal/report"
)

const version = "0.1.0"

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		jsonFlag    = flag.Bool("json", false, "Print the report as JSON instead of a human-readable table")
		timeout     = flag.Duration("timeout", 10*time.Second, "Solver budget for this analysis run")
		replFlag    = flag.Bool("explain", false, "Drop into an interactive shell to explain individual item verdicts")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println("qscope", version)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: qscope [flags] <questionnaire.yaml>")
		os.Exit(1)
	}

	logger := qlog.NewStd(os.Stderr)
	path := flag.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		logger.Errorf("reading %s: %v", path, err)
		os.Exit(1)
	}

	q, static, graph, cr, doc, code := analyze(src, *timeout, logger)
	if code == 1 {
		printDoc(doc, *jsonFlag)
		os.Exit(1)
	}

	if *replFlag && cr != nil {
		runRepl(q, static, graph, cr, logger)
		return
	}

	printDoc(doc, *jsonFlag)
	os.Exit(code)
}

// analyze runs the full pipeline, returning whatever stage output was
// reached plus the rendered report and exit code.
func analyze(src []byte, timeout time.Duration, logger qlog.Logger) (*model.Questionnaire, *builder.Static, *depgraph.Graph, *classify.Report, *report.Document, int) {
	q, err := loader.Load(src)
	if err != nil {
		return nil, nil, nil, nil, structuralErrorDoc(err), 1
	}

	static, err := builder.Build(q, logger)
	if err != nil {
		return q, nil, nil, nil, structuralErrorDoc(err), 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	graph, err := depgraph.Build(ctx, static.Order, static.Edges)
	if err != nil {
		if ce, ok := err.(*depgraph.CycleError); ok {
			return q, static, nil, nil, report.FromCycle(ce.Path), 2
		}
		return q, static, nil, nil, structuralErrorDoc(err), 1
	}

	cr := classify.Run(ctx, static, graph, logger)
	doc := report.FromClassify(q, static, cr)
	return q, static, graph, cr, doc, report.ExitCode(doc)
}

func structuralErrorDoc(err error) *report.Document {
	d := &report.Document{Valid: false}
	d.Global.Verdict = "INCONSISTENT"
	if rep, ok := qerrors.AsReport(err); ok {
		d.Items = append(d.Items, report.ItemReport{ID: rep.ItemID, Errors: []*qerrors.Report{rep}})
	} else {
		d.Items = append(d.Items, report.ItemReport{Errors: []*qerrors.Report{{Kind: qerrors.SchemaError, Message: err.Error()}}})
	}
	return d
}

func printDoc(doc *report.Document, asJSON bool) {
	if doc == nil {
		return
	}
	if asJSON {
		b, err := doc.ToJSON()
		if err != nil {
			fmt.Fprintln(os.Stderr, "rendering report:", err)
			return
		}
		fmt.Println(string(b))
		return
	}
	printHuman(doc)
}
