// Package audit defines core types shared across subsystems.
package audit

import (
	"time"
)

// Status represents the lifecycle state of an audit.
type Status string

// Audit status values persisted in the record store. Completed and failed
// are terminal: once written, no later stage may change them.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Tier is the subscription tier that gates report content.
type Tier string

// Subscription tiers. Lookup failures always degrade to TierFree.
const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Job is the ephemeral queued payload for one audit run.
type Job struct {
	AuditID    string `json:"audit_id"`
	WebsiteURL string `json:"website_url"`
	UserEmail  string `json:"user_email"`
	UserID     string `json:"user_id,omitempty"`
	Attempt    int    `json:"attempt"`
}

// Record is the durable audit row keyed by AuditID.
type Record struct {
	AuditID          string     `json:"audit_id"`
	WebsiteURL       string     `json:"website_url"`
	Status           Status     `json:"status"`
	OverallScore     *int       `json:"overall_score"`
	PerformanceScore *int       `json:"performance_score"`
	SEOScore         *int       `json:"seo_score"`
	ConversionScore  *int       `json:"conversion_score"`
	BrandingScore    *int       `json:"branding_score"`
	PresenceScore    *int       `json:"presence_score"`
	ReportPDFURL     *string    `json:"report_pdf_url"`
	RawData          []byte     `json:"raw_data,omitempty"`
	UserID           *string    `json:"user_id"`
	RequestedEmail   string     `json:"requested_email"`
	ErrorText        string     `json:"error_text,omitempty"`
	EmailSentAt      *time.Time `json:"email_sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Category identifies one of the five scoring categories.
type Category string

// Scoring categories, each weighted 1/5 in the overall score.
const (
	CategoryPerformance Category = "performance"
	CategorySEO         Category = "seo"
	CategoryConversion  Category = "conversion"
	CategoryBranding    Category = "branding"
	CategoryPresence    Category = "presence"
)

// Categories lists the five categories in report order.
func Categories() []Category {
	return []Category{
		CategoryPerformance,
		CategorySEO,
		CategoryConversion,
		CategoryBranding,
		CategoryPresence,
	}
}

// CheckKind identifies a single analyzer check. Guidance lookups in the
// report renderer are keyed by these values.
type CheckKind string

// Analyzer check identifiers.
const (
	CheckPageSpeed       CheckKind = "page_speed"
	CheckHTTPS           CheckKind = "https"
	CheckTitleTag        CheckKind = "title_tag"
	CheckMetaDescription CheckKind = "meta_description"
	CheckSingleH1        CheckKind = "single_h1"
	CheckImageAltText    CheckKind = "image_alt_text"
	CheckSitemap         CheckKind = "sitemap"
	CheckCallToAction    CheckKind = "call_to_action"
	CheckFormPresence    CheckKind = "form_presence"
	CheckTrustElements   CheckKind = "trust_elements"
	CheckContactMethod   CheckKind = "contact_method"
	CheckLogoPresence    CheckKind = "logo_presence"
	CheckBrandConsistent CheckKind = "brand_consistency"
	CheckProDomain       CheckKind = "professional_domain"
	CheckVisualHierarchy CheckKind = "visual_hierarchy"
	CheckSocialLinks     CheckKind = "social_links"
	CheckGoogleBusiness  CheckKind = "google_business"
	CheckContentPresence CheckKind = "content_presence"
)

// CheckResult is the outcome of a single check within one audit run.
type CheckResult struct {
	Kind     CheckKind `json:"kind"`
	Passed   bool      `json:"passed"`
	Score    int       `json:"score"`
	Weight   float64   `json:"weight"`
	Evidence string    `json:"evidence,omitempty"`
}

// CategoryResult holds one category's checks and its aggregated score.
type CategoryResult struct {
	Category Category      `json:"category"`
	Score    int           `json:"score"`
	Checks   []CheckResult `json:"checks"`
}

// FailedChecks returns the checks that did not pass, in declaration order.
func (c CategoryResult) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, chk := range c.Checks {
		if !chk.Passed {
			failed = append(failed, chk)
		}
	}
	return failed
}

// Analysis is the full result of analyzing one page. HTMLSnapshot is kept
// apart from the structured check data so the renderer and debuggers never
// have to slice an opaque blob.
type Analysis struct {
	FinalURL     string           `json:"final_url"`
	Categories   []CategoryResult `json:"categories"`
	OverallScore int              `json:"overall_score"`
	HTMLSnapshot string           `json:"html_snapshot,omitempty"`
	AnalyzedAt   time.Time        `json:"analyzed_at"`
}

// CategoryScore returns the score for the named category, or 0 if absent.
func (a Analysis) CategoryScore(cat Category) int {
	for _, c := range a.Categories {
		if c.Category == cat {
			return c.Score
		}
	}
	return 0
}

// FailedChecks returns every failed check across all categories.
func (a Analysis) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, c := range a.Categories {
		failed = append(failed, c.FailedChecks()...)
	}
	return failed
}

// Page is a fetched page handed to the analyzers. FinalURL is the
// post-redirect URL; all downstream domain checks use it, never the
// submitted URL.
type Page struct {
	HTML     string
	FinalURL string
	Duration time.Duration
}

// StatusView is the poller-facing projection of a Record.
type StatusView struct {
	Status       Status  `json:"status"`
	OverallScore *int    `json:"overall_score"`
	ReportPDFURL *string `json:"report_pdf_url"`
}
