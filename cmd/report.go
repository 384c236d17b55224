package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/narrative"
	"github.com/sells-group/esg-cli/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <slug>",
	Short: "Render a company ESG report as Markdown or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		withAnalysis, _ := cmd.Flags().GetBool("analysis")

		mode := "query"
		if withAnalysis {
			mode = "analyze"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		var svc *narrative.Service
		if withAnalysis {
			svc = initNarrative()
		}

		return withCompanies(ctx, func(companies *company.Service) error {
			if outPath == "" || outPath == "-" {
				return runReport(ctx, cmd.OutOrStdout(), companies, svc, args[0], format)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", outPath)
			}
			if err := runReport(ctx, f, companies, svc, args[0], format); err != nil {
				f.Close() //nolint:errcheck
				return err
			}
			zap.L().Info("report written", zap.String("path", outPath))
			return eris.Wrapf(f.Close(), "close %s", outPath)
		})
	},
}

// runReport renders one company. A nil narrative service renders without
// analysis blocks.
func runReport(ctx context.Context, out io.Writer, companies *company.Service, svc *narrative.Service, slug, format string) error {
	renderer, err := report.New(format, nil)
	if err != nil {
		return err
	}
	rec, err := companies.Get(ctx, slug)
	if err != nil {
		return err
	}
	var blocks map[string]string
	if svc != nil {
		peers, err := companies.List(ctx)
		if err != nil {
			return err
		}
		blocks = svc.Analyze(ctx, rec, peers).Blocks()
	}
	return renderer.Render(out, rec, blocks)
}

func init() {
	reportCmd.Flags().String("format", report.FormatMarkdown, "md or xlsx")
	reportCmd.Flags().String("out", "", "output file (default stdout)")
	reportCmd.Flags().Bool("analysis", false, "include AI analyses")
	rootCmd.AddCommand(reportCmd)
}
