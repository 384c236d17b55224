package main

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/model"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Query stored company records",
}

// withCompanies opens the store and runs fn against a company service.
func withCompanies(ctx context.Context, fn func(*company.Service) error) error {
	if err := cfg.Validate("query"); err != nil {
		return err
	}
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(company.NewService(st, nil))
}

func printCompanies(out io.Writer, flags *pflag.FlagSet, recs []model.CompanyRecord) error {
	if asJSON, _ := flags.GetBool("json"); asJSON {
		if recs == nil {
			recs = []model.CompanyRecord{}
		}
		return printJSON(out, recs)
	}
	formatCompanies(out, recs)
	return nil
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies by overall score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			recs, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			return printCompanies(cmd.OutOrStdout(), cmd.Flags(), recs)
		})
	},
}

var companiesGetCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Show one company record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			rec, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

var companiesSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find companies whose name contains term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			recs, err := svc.SearchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCompanies(cmd.OutOrStdout(), cmd.Flags(), recs)
		})
	},
}

var companiesFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter and sort companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := filterFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			recs, err := svc.Filter(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printCompanies(cmd.OutOrStdout(), cmd.Flags(), recs)
		})
	},
}

// filterFromFlags reads filter options. Score bounds and the violations
// filter only apply when their flags are set.
func filterFromFlags(flags *pflag.FlagSet) (company.FilterOptions, error) {
	var opts company.FilterOptions
	opts.Search, _ = flags.GetString("search")
	opts.Category, _ = flags.GetString("category")
	sortBy, _ := flags.GetString("sort")
	opts.SortBy = company.ParseSortBy(sortBy)

	if flags.Changed("min-score") {
		v, _ := flags.GetFloat64("min-score")
		opts.MinScore = &v
	}
	if flags.Changed("max-score") {
		v, _ := flags.GetFloat64("max-score")
		opts.MaxScore = &v
	}
	if raw, _ := flags.GetString("has-violations"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, eris.Errorf("--has-violations must be true or false, got %q", raw)
		}
		opts.HasViolations = &v
	}
	return opts, nil
}

var companiesCategoryCmd = &cobra.Command{
	Use:   "category <name>",
	Short: "List companies in one business category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			recs, err := svc.ByCategory(cmd.Context(), model.BusinessCategory(args[0]))
			if err != nil {
				return err
			}
			return printCompanies(cmd.OutOrStdout(), cmd.Flags(), recs)
		})
	},
}

var companiesMetricsCmd = &cobra.Command{
	Use:   "metrics <slug>",
	Short: "Show a company's metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			ctx := cmd.Context()
			if detailed, _ := cmd.Flags().GetBool("detailed"); detailed {
				d, err := svc.DetailedMetrics(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), d)
			}
			ms, err := svc.AllMetrics(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), ms)
			}
			formatMetrics(cmd.OutOrStdout(), ms)
			return nil
		})
	},
}

var companiesSearchMetricsCmd = &cobra.Command{
	Use:   "search-metrics <term>",
	Short: "Find metrics across companies by name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _ := cmd.Flags().GetString("esg-category")
		return withCompanies(cmd.Context(), func(svc *company.Service) error {
			matches, err := svc.SearchMetrics(cmd.Context(), args[0], model.ESGCategory(cat))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), matches)
		})
	},
}

func init() {
	companiesCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	f := companiesFilterCmd.Flags()
	f.String("search", "", "company name substring")
	f.String("category", "", "business category (all for any)")
	f.Float64("min-score", 0, "minimum overall score")
	f.Float64("max-score", 100, "maximum overall score")
	f.String("has-violations", "", "true or false to filter on SAPA violations")
	f.String("sort", string(company.SortScoreDesc), "score-desc, score-asc, name-asc, name-desc, violations-asc or violations-desc")

	companiesMetricsCmd.Flags().Bool("detailed", false, "group metrics by ESG category")
	companiesSearchMetricsCmd.Flags().String("esg-category", "", "Environmental, Social, Governance or Other")

	companiesCmd.AddCommand(
		companiesListCmd,
		companiesGetCmd,
		companiesSearchCmd,
		companiesFilterCmd,
		companiesCategoryCmd,
		companiesMetricsCmd,
		companiesSearchMetricsCmd,
	)
	rootCmd.AddCommand(companiesCmd)
}
