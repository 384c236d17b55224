package narrative

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/esg-cli/internal/esg"
	"github.com/sells-group/esg-cli/internal/model"
)

const systemPrompt = `You are an ESG (Environmental, Social, Governance) analyst covering South Korean construction companies.

Rules:
- Base the analysis only on the figures provided
- Keep the tone professional and suitable for investors
- Write 150-200 words of plain prose without headings`

const connectionPrompt = "Hello, please respond with 'ESG AI Service is working correctly' if you can read this."

// PeerStats places a company among its peers.
type PeerStats struct {
	Average     float64 `json:"industryAverage"`
	Leader      string  `json:"leader"`
	LeaderScore float64 `json:"leaderScore"`
	Rank        int     `json:"rank"`
	Count       int     `json:"count"`
}

// ComputePeerStats ranks c by overall score among peers. The company is added
// to the peer set when its slug is not already present. Ties keep slug order.
func ComputePeerStats(c *model.CompanyRecord, peers []model.CompanyRecord) PeerStats {
	set := make([]model.CompanyRecord, 0, len(peers)+1)
	found := false
	for _, p := range peers {
		if p.Slug == c.Slug {
			found = true
		}
		set = append(set, p)
	}
	if !found {
		set = append(set, *c)
	}

	sort.SliceStable(set, func(i, j int) bool {
		if set[i].OverallScore != set[j].OverallScore {
			return set[i].OverallScore > set[j].OverallScore
		}
		return set[i].Slug < set[j].Slug
	})

	var sum float64
	stats := PeerStats{Count: len(set)}
	for i, p := range set {
		sum += p.OverallScore
		if p.Slug == c.Slug {
			stats.Rank = i + 1
		}
	}
	stats.Average = esg.Round1(sum / float64(len(set)))
	stats.Leader = set[0].CompanyName
	stats.LeaderScore = set[0].OverallScore
	return stats
}

func formatScore(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func scoreLine(c *model.CompanyRecord) string {
	return fmt.Sprintf("Overall %s (E:%s, S:%s, G:%s)",
		formatScore(c.OverallScore), formatScore(c.EScore), formatScore(c.SScore), formatScore(c.GScore))
}

// ExplainPrompt asks why the company received its scores.
func ExplainPrompt(c *model.CompanyRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this company's ESG performance:\n")
	fmt.Fprintf(&sb, "- Company: %s\n", c.CompanyName)
	fmt.Fprintf(&sb, "- Business category: %s\n", c.Category)
	fmt.Fprintf(&sb, "- Overall ESG Score: %s\n", formatScore(c.OverallScore))
	fmt.Fprintf(&sb, "- Environmental Score: %s\n", formatScore(c.EScore))
	fmt.Fprintf(&sb, "- Social Score: %s\n", formatScore(c.SScore))
	fmt.Fprintf(&sb, "- Governance Score: %s\n", formatScore(c.GScore))
	fmt.Fprintf(&sb, "- SAPA Violations: %s\n", formatScore(c.SAPAViolations))

	if top := topMetrics(c, 5); len(top) > 0 {
		sb.WriteString("\nHighest scoring metrics:\n")
		for _, m := range top {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", m.Name, m.Category, formatScore(m.Score))
		}
	}

	sb.WriteString(`
Explain:
1. Why this company received these specific ESG scores
2. Key strengths and areas for improvement
3. How the SAPA violations (if any) impact the overall assessment
4. Industry context for the South Korean construction sector`)
	return sb.String()
}

// ComparePrompt positions the company against its peers.
func ComparePrompt(c *model.CompanyRecord, stats PeerStats) string {
	return fmt.Sprintf(`Compare this company with its peers.

Target Company:
- %s: %s

Industry Context:
- Industry Average: %s
- Industry Leader: %s with score %s
- Company Ranking: #%d out of %d

Cover:
1. How this company performs vs the industry average and leaders
2. Specific ESG areas where it excels or lags behind peers
3. Competitive positioning in the Korean construction market
4. Key differentiators compared to top performers`,
		c.CompanyName, scoreLine(c),
		formatScore(stats.Average),
		stats.Leader, formatScore(stats.LeaderScore),
		stats.Rank, stats.Count,
	)
}

// RecommendPrompt asks for an ESG investment thesis.
func RecommendPrompt(c *model.CompanyRecord, stats PeerStats) string {
	return fmt.Sprintf(`Act as an investment advisor specializing in ESG-focused investments.

Company Profile:
- %s
- ESG Score: %s
- SAPA Violations: %s
- Industry Ranking: #%d of %d

Include:
1. ESG investment thesis (Buy/Hold/Avoid with reasoning)
2. Key ESG risks and opportunities
3. Alignment with sustainable investment criteria
4. Regulatory compliance outlook in South Korea
5. Timeline for potential ESG improvements`,
		c.CompanyName, scoreLine(c), formatScore(c.SAPAViolations), stats.Rank, stats.Count,
	)
}

func topMetrics(c *model.CompanyRecord, n int) []model.MetricRecord {
	ms := make([]model.MetricRecord, len(c.AllMetrics))
	copy(ms, c.AllMetrics)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Score > ms[j].Score })
	if len(ms) > n {
		ms = ms[:n]
	}
	return ms
}
