// Package report renders audit results into a branded PDF.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
)

// Config controls report branding and output.
type Config struct {
	BrandName string
	SiteURL   string
	UpsellURL string
	// DisableCompression emits uncompressed content streams so tests can
	// assert on the raw output.
	DisableCompression bool
}

// Renderer builds A4 report PDFs. Free-tier reports carry scores and an
// upgrade prompt; pro reports add detailed findings for every failed check.
type Renderer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Renderer.
func New(cfg Config, logger *zap.Logger) *Renderer {
	if cfg.BrandName == "" {
		cfg.BrandName = "GradeKit"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{cfg: cfg, logger: logger}
}

var categoryLabels = map[audit.Category]string{
	audit.CategoryPerformance: "Performance",
	audit.CategorySEO:         "SEO",
	audit.CategoryConversion:  "Conversion",
	audit.CategoryBranding:    "Branding",
	audit.CategoryPresence:    "Online Presence",
}

// Render implements audit.Renderer.
func (r *Renderer) Render(websiteURL string, analysis audit.Analysis, tier audit.Tier) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	if r.cfg.DisableCompression {
		pdf.SetCompression(false)
	}
	pdf.SetTitle(fmt.Sprintf("%s Website Audit", r.cfg.BrandName), true)
	if !analysis.AnalyzedAt.IsZero() {
		// A pinned creation date keeps renders byte-identical for the same
		// analysis, which is what content-addressed storage paths rely on.
		pdf.SetCreationDate(analysis.AnalyzedAt)
		pdf.SetModificationDate(analysis.AnalyzedAt)
	}
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(130, 130, 130)
		footer := r.cfg.BrandName
		if r.cfg.SiteURL != "" {
			footer = fmt.Sprintf("%s  |  %s", r.cfg.BrandName, r.cfg.SiteURL)
		}
		pdf.CellFormat(0, 10, fmt.Sprintf("%s  |  Page %d", footer, pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r.writeHeader(pdf, websiteURL, analysis, tier)
	r.writeOverall(pdf, analysis)
	r.writeCategories(pdf, analysis)

	switch tier {
	case audit.TierPro:
		r.writeFindings(pdf, analysis)
	default:
		r.writeUpsell(pdf)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeHeader(pdf *fpdf.Fpdf, websiteURL string, analysis audit.Analysis, tier audit.Tier) {
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 12, fmt.Sprintf("%s Website Audit", r.cfg.BrandName), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(75, 85, 99)
	pdf.CellFormat(0, 6, websiteURL, "", 1, "L", false, 0, "")
	if !analysis.AnalyzedAt.IsZero() {
		pdf.CellFormat(0, 6, analysis.AnalyzedAt.Format("January 2, 2006"), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, tierLabel(tier), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func tierLabel(tier audit.Tier) string {
	if tier == audit.TierPro {
		return "Pro Report"
	}
	return "Free Report"
}

func (r *Renderer) writeOverall(pdf *fpdf.Fpdf, analysis audit.Analysis) {
	red, green, blue := scoreColor(analysis.OverallScore)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, "Overall Score", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 40)
	pdf.SetTextColor(red, green, blue)
	pdf.CellFormat(0, 18, fmt.Sprintf("%d / 100", analysis.OverallScore), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(55, 65, 81)
	pdf.MultiCell(0, 5.5, overallNarrative(analysis.OverallScore), "", "L", false)
	pdf.Ln(5)
}

func (r *Renderer) writeCategories(pdf *fpdf.Fpdf, analysis audit.Analysis) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, "Category Scores", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	const barWidth = 110.0
	for _, cat := range analysis.Categories {
		label := categoryLabels[cat.Category]
		if label == "" {
			label = string(cat.Category)
		}
		red, green, blue := scoreColor(cat.Score)

		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(31, 41, 55)
		pdf.CellFormat(45, 8, label, "", 0, "L", false, 0, "")

		// Track then filled portion of the score bar.
		x, y := pdf.GetX(), pdf.GetY()
		pdf.SetFillColor(229, 231, 235)
		pdf.Rect(x, y+2, barWidth, 4, "F")
		pdf.SetFillColor(red, green, blue)
		pdf.Rect(x, y+2, barWidth*float64(cat.Score)/100, 4, "F")
		pdf.SetX(x + barWidth + 4)

		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(red, green, blue)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d", cat.Score), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) writeFindings(pdf *fpdf.Fpdf, analysis audit.Analysis) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, "Detailed Findings", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	failed := analysis.FailedChecks()
	if len(failed) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(22, 163, 74)
		pdf.MultiCell(0, 5.5,
			"Every check passed. Your website is in excellent shape; keep content fresh to stay there.",
			"", "L", false)
		return
	}

	for _, check := range failed {
		g, ok := GuidanceFor(check.Kind)
		if !ok {
			r.logger.Warn("no guidance entry for failed check, skipping",
				zap.String("check", string(check.Kind)))
			continue
		}

		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(185, 28, 28)
		pdf.CellFormat(0, 7, g.Title, "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(55, 65, 81)
		if g.Why != "" {
			pdf.MultiCell(0, 5, "Why it matters: "+g.Why, "", "L", false)
		}
		if g.Fix != "" {
			pdf.MultiCell(0, 5, "How to fix it: "+g.Fix, "", "L", false)
		}
		if check.Evidence != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(107, 114, 128)
			pdf.MultiCell(0, 5, "Found: "+check.Evidence, "", "L", false)
		}
		pdf.Ln(3)
	}
}

func (r *Renderer) writeUpsell(pdf *fpdf.Fpdf) {
	pdf.Ln(4)
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetFillColor(239, 246, 255)
	pdf.Rect(x, y, 190, 30, "F")

	pdf.SetXY(x+6, y+5)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(0, 7, "Want the full picture?", "", 1, "L", false, 0, "")

	pdf.SetX(x + 6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(55, 65, 81)
	upsell := "Upgrade to Pro for detailed findings and step-by-step fixes for every failed check."
	if r.cfg.UpsellURL != "" {
		upsell += " Visit " + r.cfg.UpsellURL + " to upgrade."
	}
	pdf.MultiCell(178, 5, upsell, "", "L", false)
}

// scoreColor maps a 0-100 score to the report's traffic-light palette.
func scoreColor(score int) (int, int, int) {
	switch {
	case score >= 80:
		return 22, 163, 74
	case score >= 50:
		return 217, 119, 6
	default:
		return 220, 38, 38
	}
}

func overallNarrative(score int) string {
	switch {
	case score >= 80:
		return "Strong. Your website does most things right, and closing the remaining gaps would put it in the top tier."
	case score >= 50:
		return "Solid, with room to grow. A handful of fixes would noticeably improve how customers and search engines see your site."
	default:
		return "Needs urgent attention. Your website is missing the basics that customers and search engines expect."
	}
}
