package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/workflow"
)

type printer struct {
	w       io.Writer
	verbose bool
}

func newPrinter(w io.Writer, opts *RootOptions) *printer {
	return &printer{w: w, verbose: opts.Verbose}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) executionTable(executions []domain.Execution) error {
	if len(executions) == 0 {
		_, err := fmt.Fprintln(p.w, "No executions recorded.")
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTARTED\tDURATION")
	for i := range executions {
		e := &executions[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Name, e.Status, e.StartedAt.Format(time.RFC3339), duration(e))
	}
	return tw.Flush()
}

func (p *printer) trace(t *domain.ExecutionWithSteps) error {
	p.header(t.Execution)

	if len(t.Steps) == 0 {
		fmt.Fprintln(p.w, "\nNo steps recorded.")
		return nil
	}

	for i := range t.Steps {
		if err := p.step(i+1, &t.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) runResult(result *workflow.Result) error {
	p.header(result.Execution)
	_, err := fmt.Fprintf(p.w, "\nRecorded %d steps. Inspect with: xray executions show %s\n",
		len(result.Steps), result.Execution.ID)
	return err
}

func (p *printer) header(e *domain.Execution) {
	fmt.Fprintf(p.w, "Execution %s (%s)\n", e.ID, e.Name)
	if e.Description != "" {
		fmt.Fprintf(p.w, "  %s\n", e.Description)
	}
	fmt.Fprintf(p.w, "Status:   %s\n", e.Status)
	fmt.Fprintf(p.w, "Started:  %s\n", e.StartedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(p.w, "Duration: %s\n", duration(e))

	if len(e.Metadata) > 0 {
		fmt.Fprintln(p.w, "Metadata:")
		for _, k := range slices.Sorted(maps.Keys(e.Metadata)) {
			fmt.Fprintf(p.w, "  %s: %s\n", k, compact(e.Metadata[k]))
		}
	}
}

func (p *printer) step(n int, s *domain.Step) error {
	fmt.Fprintf(p.w, "\n[%d] %s (%s)", n, s.Name, s.StepType)
	if s.DurationMs != nil {
		fmt.Fprintf(p.w, " %dms", *s.DurationMs)
	}
	fmt.Fprintln(p.w)
	if s.Reasoning != "" {
		fmt.Fprintf(p.w, "    %s\n", s.Reasoning)
	}

	if p.verbose {
		fmt.Fprintf(p.w, "    input:  %s\n", compact(s.Input))
		fmt.Fprintf(p.w, "    output: %s\n", compact(s.Output))
	}

	if len(s.Evaluations) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "    ITEM\tLABEL\tRESULT\tSCORE\tNOTES")
	for _, ev := range s.Evaluations {
		result := "pass"
		if !ev.Passed {
			result = "FAIL"
		}
		score := "-"
		if ev.Score != nil {
			score = fmt.Sprintf("%.3f", *ev.Score)
		}
		fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\t%s\n", ev.ItemID, ev.ItemLabel, result, score, notes(ev))
	}
	return tw.Flush()
}

// notes lists the failed filters of an evaluation, or its reason
func notes(ev domain.Evaluation) string {
	var failed []string
	for _, f := range ev.Filters {
		if !f.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", f.FilterName, f.Detail))
		}
	}
	if len(failed) > 0 {
		return strings.Join(failed, "; ")
	}
	return ev.Reason
}

func duration(e *domain.Execution) string {
	if e.CompletedAt == nil {
		return "-"
	}
	return e.Duration().Round(time.Millisecond).String()
}

func compact(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
