package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List recent import runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("query"); err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListImports(ctx, limit)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No import runs found.")
			return nil
		}
		formatImportRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	importsCmd.Flags().Int("limit", 20, "max runs to show")
	importsCmd.Flags().Bool("json", false, "print runs as JSON")
	rootCmd.AddCommand(importsCmd)
}
