package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/thoas/go-funk"
	"sigs.k8s.io/yaml"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"

	// analysis column width in table output
	maxAnalysisWidth = 80
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

func validateOutput(output string) error {
	if len(output) > 0 && !funk.ContainsString(legalOutputTypes, output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func printObject(out io.Writer, v any, output string) error {
	var (
		marshalled []byte
		err        error
	)
	switch output {
	case jsonFormat:
		marshalled, err = json.Marshal(v)
	case yamlFormat:
		marshalled, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
	if err != nil {
		return fmt.Errorf("marshalling resource: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s\n", strings.TrimRight(string(marshalled), "\n"))
	return err
}

func printResults(out io.Writer, rs *model.ResultSet, output string) error {
	if output != "" {
		return printObject(out, rs, output)
	}

	w := tabwriter.NewWriter(out, 0, 8, 1, '\t', 0)
	fmt.Fprintln(w, "INDEX\tCV NAME\tTHREAD ID\tANALYSIS")
	for i, item := range rs.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, item.Name, item.ThreadID, firstLine(item.Analysis))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if rs.Summary != nil {
		fmt.Fprintf(out, "\nSummary:\n%s\n", *rs.Summary)
	}
	return nil
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if len(s) > maxAnalysisWidth {
		return s[:maxAnalysisWidth-3] + "..."
	}
	return s
}
