package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/esg-cli/internal/company"
	"github.com/sells-group/esg-cli/internal/narrative"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [slug]",
	Short: "Generate AI analyses of a company's ESG scores",
	Long:  "Runs the score explanation, peer comparison and investment recommendation for a company. Failed analyses print a placeholder.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		svc := initNarrative()

		if ping, _ := cmd.Flags().GetBool("test-connection"); ping {
			return printResult(cmd.OutOrStdout(), "Connection test", svc.TestConnection(ctx))
		}
		if len(args) == 0 {
			return eris.New("analyze requires a company slug (or --test-connection)")
		}
		kind, _ := cmd.Flags().GetString("kind")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withCompanies(ctx, func(companies *company.Service) error {
			return runAnalyze(ctx, cmd.OutOrStdout(), companies, svc, args[0], kind, asJSON)
		})
	},
}

func runAnalyze(ctx context.Context, out io.Writer, companies *company.Service, svc *narrative.Service, slug, kind string, asJSON bool) error {
	rec, err := companies.Get(ctx, slug)
	if err != nil {
		return err
	}
	if kind == narrative.KindExplain {
		return emit(out, asJSON, "Score explanation", svc.ExplainScore(ctx, rec))
	}
	peers, err := companies.List(ctx)
	if err != nil {
		return err
	}
	switch kind {
	case "", "all":
		a := svc.Analyze(ctx, rec, peers)
		if asJSON {
			return printJSON(out, a)
		}
		_, _ = fmt.Fprintf(out, "%s: rank %d of %d, industry average %.1f, leader %s\n\n",
			a.Company, a.Peers.Rank, a.Peers.Count, a.Peers.Average, a.Peers.Leader)
		for _, r := range []struct {
			title string
			res   narrative.Result
		}{
			{"Score explanation", a.Explanation},
			{"Peer comparison", a.Comparison},
			{"Investment recommendation", a.Recommendation},
		} {
			if err := printResult(out, r.title, r.res); err != nil {
				return err
			}
		}
		return nil
	case narrative.KindCompare:
		return emit(out, asJSON, "Peer comparison", svc.ComparePeers(ctx, rec, peers))
	case narrative.KindRecommend:
		return emit(out, asJSON, "Investment recommendation", svc.RecommendInvestment(ctx, rec, peers))
	default:
		return eris.Errorf("unknown analysis kind: %s", kind)
	}
}

func emit(out io.Writer, asJSON bool, title string, res narrative.Result) error {
	if asJSON {
		return printJSON(out, res)
	}
	return printResult(out, title, res)
}

func printResult(out io.Writer, title string, res narrative.Result) error {
	status := ""
	if !res.Success {
		status = " (unavailable)"
	}
	_, err := fmt.Fprintf(out, "== %s%s ==\n%s\n\n", title, status, res.Text)
	return eris.Wrap(err, "write analysis")
}

func init() {
	analyzeCmd.Flags().String("kind", "all", "explain, compare, recommend or all")
	analyzeCmd.Flags().Bool("test-connection", false, "check API credentials and exit")
	analyzeCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
