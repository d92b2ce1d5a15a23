package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	smartobjects "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"
)

const maxCellWidth = 50

// Printer renders command results in one of the supported formats.
type Printer struct {
	w      io.Writer
	format string
}

func NewPrinter(w io.Writer, format string) (*Printer, error) {
	switch format {
	case "json", "yaml", "table":
		return &Printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Print writes data in the printer's format
func (p *Printer) Print(data any) error {
	switch p.format {
	case "json":
		return p.json(data)
	case "yaml":
		return p.yaml(data)
	default:
		return p.table(data)
	}
}

// Success prints a confirmation line. It is skipped for machine readable
// formats so their output stays parseable.
func (p *Printer) Success(format string, args ...any) {
	if p.format != "table" {
		return
	}
	fmt.Fprintf(p.w, "✓ "+format+"\n", args...)
}

func (p *Printer) json(data any) error {
	encoder := json.NewEncoder(p.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// yaml goes through the JSON encoding so keys keep their wire names.
func (p *Printer) yaml(data any) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(p.w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(generic)
}

func (p *Printer) table(data any) error {
	switch v := data.(type) {
	case []*smartobjects.Dataset:
		return p.datasetsTable(v)
	case *smartobjects.Dataset:
		return p.datasetTable(v)
	case *smartobjects.IngestionResult:
		return p.ingestionTable(v)
	case string:
		_, err := fmt.Fprintln(p.w, v)
		return err
	default:
		// Fallback to JSON if we can't determine how to print as table
		return p.json(data)
	}
}

func (p *Printer) datasetsTable(datasets []*smartobjects.Dataset) error {
	if len(datasets) == 0 {
		fmt.Fprintln(p.w, "No datasets found.")
		return nil
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tDISPLAY NAME\tFIELDS\tVERSION\tMODIFIED AT")
	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			ds.Key, truncate(ds.DisplayName), len(ds.Fields), ds.Version, formatTime(ds.ModifiedAt))
	}
	return w.Flush()
}

func (p *Printer) datasetTable(ds *smartobjects.Dataset) error {
	w := tabwriter.NewWriter(p.w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Key:\t%s\n", ds.Key)
	fmt.Fprintf(w, "Display name:\t%s\n", ds.DisplayName)
	fmt.Fprintf(w, "Description:\t%s\n", truncate(ds.Description))
	fmt.Fprintf(w, "Version:\t%d\n", ds.Version)
	fmt.Fprintf(w, "Generation:\t%d\n", ds.DatasetGeneration)
	fmt.Fprintf(w, "Created:\t%s by %s\n", formatTime(ds.CreatedAt), ds.CreatedBy)
	fmt.Fprintf(w, "Modified:\t%s by %s\n", formatTime(ds.ModifiedAt), ds.ModifiedBy)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(ds.Fields) == 0 {
		return nil
	}
	fmt.Fprintln(p.w)
	w = tabwriter.NewWriter(p.w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tDISPLAY NAME\tALIASES")
	for _, f := range ds.Fields {
		if f == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Key, f.Type, truncate(f.DisplayName), formatList(f.Aliases))
	}
	return w.Flush()
}

func (p *Printer) ingestionTable(result *smartobjects.IngestionResult) error {
	if len(result.Results) == 0 {
		fmt.Fprintln(p.w, "No row results.")
		return nil
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "INDEX\tRESULT\tMESSAGE")
	for _, r := range result.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.Index, r.Result, truncate(r.Message))
	}
	return w.Flush()
}

func truncate(s string) string {
	if len(s) > maxCellWidth {
		return s[:maxCellWidth-3] + "..."
	}
	return s
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return truncate("[" + strings.Join(items, ", ") + "]")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// toGeneric converts v to plain maps and slices through its JSON form.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
