// file: internal/cli/renderer.go
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/rodaine/table"

	"macro-resolver/internal/macro"
)

// Renderer prints tokens, scenarios and resolution results as tables or JSON
type Renderer struct {
	out    io.Writer
	marker string

	header    table.Formatter
	firstCol  table.Formatter
	highlight func(a ...interface{}) string
}

// NewRenderer writes to out. Occurrences of marker are highlighted in
// resolved text.
func NewRenderer(out io.Writer, marker string, noColor bool) *Renderer {
	if noColor {
		color.NoColor = true
	}
	return &Renderer{
		out:       out,
		marker:    marker,
		header:    color.New(color.FgGreen, color.Underline).SprintfFunc(),
		firstCol:  color.New(color.FgYellow).SprintfFunc(),
		highlight: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
}

func (r *Renderer) newTable(headers ...interface{}) table.Table {
	return table.New(headers...).
		WithWriter(r.out).
		WithHeaderFormatter(r.header).
		WithFirstColumnFormatter(r.firstCol)
}

// Highlight marks every unresolved marker in s
func (r *Renderer) Highlight(s string) string {
	if r.marker == "" || !strings.Contains(s, r.marker) {
		return s
	}
	return strings.ReplaceAll(s, r.marker, r.highlight(r.marker))
}

// JSON writes v indented
func (r *Renderer) JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

// Tokens lists extracted tokens in source order
func (r *Renderer) Tokens(tokens []macro.Token) {
	if len(tokens) == 0 {
		fmt.Fprintln(r.out, "no macros found")
		return
	}
	tbl := r.newTable("Offset", "Family", "Name", "Raw", "Details")
	for _, t := range tokens {
		tbl.AddRow(
			fmt.Sprintf("%d..%d", t.Start, t.End()),
			t.Family,
			t.Name,
			t.Raw,
			tokenDetails(t),
		)
	}
	tbl.Print()
}

func tokenDetails(t macro.Token) string {
	var parts []string
	if t.Index > 0 {
		parts = append(parts, "index="+strconv.Itoa(t.Index))
	}
	if t.HasContext {
		parts = append(parts, "context="+t.Context)
	}
	if t.Function != "" {
		host := t.Host
		if t.HostRef {
			host = "{HOST.HOST}"
		}
		parts = append(parts, fmt.Sprintf("host=%s key=%s fn=%s(%s)", host, t.Key, t.Function, t.Params))
	}
	return strings.Join(parts, " ")
}

// Scenarios lists the scenarios with their legal families
func (r *Renderer) Scenarios(scenarios []macro.Scenario) {
	tbl := r.newTable("Scenario", "Indexed", "Linked", "Families")
	for _, s := range scenarios {
		tbl.AddRow(s.String(), s.Indexed(), s.Linked(), s.Families().String())
	}
	tbl.Print()
}

// Records prints the resolved field of every record in the result
func (r *Renderer) Records(scenario macro.Scenario, res macro.RecordsResult) {
	switch {
	case len(res.Linked) > 0:
		tbl := r.newTable("Trigger", "Name", "Links")
		for _, l := range res.Linked {
			var links []string
			for _, f := range l.Fragments {
				if f.ItemID != "" {
					links = append(links, fmt.Sprintf("%s->item %s", f.Text, f.ItemID))
				}
			}
			tbl.AddRow(l.ID, r.Highlight(l.Description), strings.Join(links, ", "))
		}
		tbl.Print()

	case len(res.Triggers) > 0:
		tbl := r.newTable("Trigger", triggerColumn(scenario))
		for _, t := range res.Triggers {
			tbl.AddRow(t.ID, r.Highlight(triggerField(scenario, t.Description, t.Comments, t.URL, t.Expression)))
		}
		tbl.Print()

	case len(res.Items) > 0:
		tbl := r.newTable("Item", "Key", "Name")
		for _, it := range res.Items {
			tbl.AddRow(it.ID, r.Highlight(it.Key), r.Highlight(it.Name))
		}
		tbl.Print()

	case len(res.Graphs) > 0:
		tbl := r.newTable("Graph", "Name")
		for _, g := range res.Graphs {
			tbl.AddRow(g.ID, r.Highlight(g.Name))
		}
		tbl.Print()

	case len(res.MapElements) > 0:
		tbl := r.newTable("Element", "Host", "Label")
		for _, e := range res.MapElements {
			tbl.AddRow(e.ID, e.HostID, r.Highlight(e.Label))
		}
		tbl.Print()

	default:
		fmt.Fprintf(r.out, "no %s records in input\n", scenario)
	}
}

func triggerColumn(s macro.Scenario) string {
	switch s {
	case macro.ScenarioTriggerDescription:
		return "Description"
	case macro.ScenarioTriggerURL:
		return "URL"
	case macro.ScenarioTriggerExpression:
		return "Expression"
	}
	return "Name"
}

func triggerField(s macro.Scenario, name, comments, url, expression string) string {
	switch s {
	case macro.ScenarioTriggerDescription:
		return comments
	case macro.ScenarioTriggerURL:
		return url
	case macro.ScenarioTriggerExpression:
		return expression
	}
	return name
}
