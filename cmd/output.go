package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/model"
)

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatCompanies(out io.Writer, recs []model.CompanyRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tCOMPANY\tCATEGORY\tOVERALL\tE\tS\tG\tSAPA")
	_, _ = fmt.Fprintln(w, "----\t-------\t--------\t-------\t-\t-\t-\t----")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%g\n",
			r.Slug, truncate(r.CompanyName, 30), r.Category,
			r.OverallScore, r.EScore, r.SScore, r.GScore, r.SAPAViolations,
		)
	}
	_ = w.Flush()
}

func formatImportResult(out io.Writer, res *model.ImportResult, dryRun bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintln(w, "-------\t------\t------")
	for _, item := range res.Results {
		status, detail := "ok", item.ID
		if !item.Success {
			status, detail = "failed", item.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(item.Company, 30), status, detail)
	}
	_ = w.Flush()

	verb := "Imported"
	if dryRun {
		verb = "Validated (dry run)"
	}
	_, _ = fmt.Fprintf(out, "\n%s %d of %d companies, %d failed. Run %s\n",
		verb, res.Successful, res.Total, res.Failed, res.RunID)
}

func formatImportRuns(out io.Writer, runs []model.ImportRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tFORMAT\tDRY_RUN\tTOTAL\tOK\tFAILED\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t-----\t--\t------\t-------\t--------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID), truncate(r.Source, 40), r.Format, r.DryRun,
			r.Total, r.Successful, r.Failed,
			r.StartedAt.UTC().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatMetrics(out io.Writer, ms []model.MetricRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tMETRIC\tSCORE\tSOURCE")
	_, _ = fmt.Fprintln(w, "--------\t------\t-----\t------")
	for _, m := range ms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", m.Category, truncate(m.Name, 40), m.Score, truncate(m.Source, 40))
	}
	_ = w.Flush()
}
