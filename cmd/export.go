package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export company records as JSON, YAML or CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			recs, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				return report.Export(cmd.OutOrStdout(), recs, format)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", outPath)
			}
			if err := report.Export(f, recs, format); err != nil {
				f.Close() //nolint:errcheck
				return err
			}
			zap.L().Info("export written", zap.String("path", outPath), zap.Int("companies", len(recs)))
			return eris.Wrapf(f.Close(), "close %s", outPath)
		})
	},
}

func init() {
	exportCmd.Flags().String("format", report.ExportJSON, "json, yaml or csv")
	exportCmd.Flags().String("out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
