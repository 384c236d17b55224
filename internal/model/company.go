package model

import "time"

// ESGCategory is the Environmental/Social/Governance bucket a metric belongs to.
type ESGCategory string

const (
	Environmental ESGCategory = "Environmental"
	Social        ESGCategory = "Social"
	Governance    ESGCategory = "Governance"
	OtherESG      ESGCategory = "Other"
)

// ESGCategories lists the categories in detailed-metrics order.
var ESGCategories = []ESGCategory{Environmental, Social, Governance, OtherESG}

// BusinessCategory is the line of business inferred from a company name.
type BusinessCategory string

const (
	Construction   BusinessCategory = "Construction"
	Residential    BusinessCategory = "Residential"
	Commercial     BusinessCategory = "Commercial"
	Infrastructure BusinessCategory = "Infrastructure"
	Energy         BusinessCategory = "Energy"
	OtherBusiness  BusinessCategory = "Other"
)

// Data source labels stamped on imported records.
const (
	SourceCSV  = "CSV Import"
	SourceXLSX = "XLSX Import"
	SourceJSON = "JSON Import"
)

// MetricRecord is a single scored piece of ESG evidence.
type MetricRecord struct {
	Name             string      `json:"name" yaml:"name"`
	Score            float64     `json:"score" yaml:"score"`
	Description      string      `json:"description" yaml:"description"`
	Source           string      `json:"source" yaml:"source"`
	SourceURL        string      `json:"sourceUrl" yaml:"sourceUrl"`
	Evidence         string      `json:"evidence" yaml:"evidence"`
	Category         ESGCategory `json:"category" yaml:"category"`
	OriginalCategory string      `json:"originalCategory" yaml:"originalCategory"`
}

// DetailedMetrics partitions a company's metrics by ESG category.
type DetailedMetrics struct {
	Environmental []MetricRecord `json:"environmental" yaml:"environmental"`
	Social        []MetricRecord `json:"social" yaml:"social"`
	Governance    []MetricRecord `json:"governance" yaml:"governance"`
	Other         []MetricRecord `json:"other" yaml:"other"`
}

// Bucket returns the slice for the given category.
func (d *DetailedMetrics) Bucket(c ESGCategory) []MetricRecord {
	switch c {
	case Environmental:
		return d.Environmental
	case Social:
		return d.Social
	case Governance:
		return d.Governance
	default:
		return d.Other
	}
}

// Add appends m to the bucket named by its category.
func (d *DetailedMetrics) Add(m MetricRecord) {
	switch m.Category {
	case Environmental:
		d.Environmental = append(d.Environmental, m)
	case Social:
		d.Social = append(d.Social, m)
	case Governance:
		d.Governance = append(d.Governance, m)
	default:
		d.Other = append(d.Other, m)
	}
}

// CompanyRecord is the persisted per-company document, keyed by Slug.
type CompanyRecord struct {
	CompanyName    string           `json:"companyName" yaml:"companyName"`
	Slug           string           `json:"slug" yaml:"slug"`
	OverallScore   float64          `json:"overallScore" yaml:"overallScore"`
	EScore         float64          `json:"e_score" yaml:"e_score"`
	SScore         float64          `json:"s_score" yaml:"s_score"`
	GScore         float64          `json:"g_score" yaml:"g_score"`
	ETotalScore    float64          `json:"e_total_score" yaml:"e_total_score"`
	STotalScore    float64          `json:"s_total_score" yaml:"s_total_score"`
	GTotalScore    float64          `json:"g_total_score" yaml:"g_total_score"`
	Category       BusinessCategory `json:"category" yaml:"category"`
	SAPAViolations float64          `json:"sapaViolations" yaml:"sapaViolations"`
	Profit         float64          `json:"profit" yaml:"profit"`
	Emissions      float64          `json:"emissions" yaml:"emissions"`

	DetailedMetrics DetailedMetrics `json:"detailedMetrics" yaml:"detailedMetrics"`
	AllMetrics      []MetricRecord  `json:"allMetrics" yaml:"allMetrics"`

	LastUpdated time.Time `json:"lastUpdated" yaml:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	ImportedAt  time.Time `json:"importedAt" yaml:"importedAt"`
	DataSource  string    `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
}

// ScoreFor returns the aggregated score for an ESG category. Other has no
// aggregated score and returns 0.
func (c *CompanyRecord) ScoreFor(cat ESGCategory) float64 {
	switch cat {
	case Environmental:
		return c.EScore
	case Social:
		return c.SScore
	case Governance:
		return c.GScore
	default:
		return 0
	}
}
