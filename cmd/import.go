package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/fetcher"
	"github.com/sells-group/esg-cli/internal/importer"
	"github.com/sells-group/esg-cli/internal/model"
)

type importOptions struct {
	DryRun     bool
	Charset    string
	SheetName  string
	SheetIndex int
	JSON       bool
}

var importOpts importOptions

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import ESG scores into the store",
	Long:  "Reads a score sheet or JSON payload from a local path, http(s):// or ftp:// URL and upserts one record per company.",
}

func newImportFormatCmd(format model.ImportFormat, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(format) + " <location>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runImport(cmd.Context(), cmd.OutOrStdout(), format, args[0], importOpts)
			return err
		},
	}
}

func runImport(ctx context.Context, out io.Writer, format model.ImportFormat, location string, opts importOptions) (*model.ImportResult, error) {
	if err := cfg.Validate("import"); err != nil {
		return nil, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	opener := fetcher.NewOpener(fetcher.Options{
		Timeout:   cfg.Fetch.Timeout(),
		UserAgent: cfg.Fetch.UserAgent,
	})
	imp := importer.New(st, importer.Options{DryRun: opts.DryRun})

	charset := opts.Charset
	if charset == "" {
		charset = cfg.Fetch.Charset
	}

	var res *model.ImportResult
	switch format {
	case model.FormatCSV:
		text, err := opener.ReadText(ctx, location, charset)
		if err != nil {
			return nil, err
		}
		res, err = imp.ImportCSV(ctx, location, text)
		if err != nil {
			return nil, eris.Wrap(err, "import csv")
		}
	case model.FormatJSON:
		text, err := opener.ReadText(ctx, location, charset)
		if err != nil {
			return nil, err
		}
		res, err = imp.ImportJSON(ctx, location, []byte(text))
		if err != nil {
			return nil, eris.Wrap(err, "import json")
		}
	case model.FormatXLSX:
		rows, err := opener.ReadRows(ctx, location, fetcher.XLSXOptions{SheetName: opts.SheetName, SheetIndex: opts.SheetIndex})
		if err != nil {
			return nil, err
		}
		res, err = imp.ImportXLSX(ctx, location, rows)
		if err != nil {
			return nil, eris.Wrap(err, "import xlsx")
		}
	default:
		return nil, eris.Errorf("unsupported import format: %s", format)
	}

	zap.L().Info("import complete",
		zap.String("source", location),
		zap.String("format", string(format)),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
	)
	if opts.JSON {
		return res, printJSON(out, res)
	}
	formatImportResult(out, res, opts.DryRun)
	return res, nil
}

func init() {
	f := importCmd.PersistentFlags()
	f.BoolVar(&importOpts.DryRun, "dry-run", false, "run the pipeline without writing records")
	f.StringVar(&importOpts.Charset, "charset", "", "source charset when no BOM is present (default from config)")
	f.StringVar(&importOpts.SheetName, "sheet", "", "xlsx sheet name (overrides --sheet-index)")
	f.IntVar(&importOpts.SheetIndex, "sheet-index", 0, "xlsx sheet index")
	f.BoolVar(&importOpts.JSON, "json", false, "print the import result as JSON")

	importCmd.AddCommand(
		newImportFormatCmd(model.FormatCSV, "Import a CSV score sheet"),
		newImportFormatCmd(model.FormatJSON, "Import a JSON array of company records"),
		newImportFormatCmd(model.FormatXLSX, "Import a score sheet from an XLSX workbook"),
	)
	rootCmd.AddCommand(importCmd)
}
