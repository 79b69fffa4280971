package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"

	"github.com/songzhibin97/deepdive/internal/models"
)

const (
	timestampLayout = "20060102_150405"
	footerLayout    = "2006-01-02 15:04:05"

	pageWidth  = 180.0 // A4 minus 15mm margins
	lineHeight = 6.0
	rowHeight  = 8.0
)

type rgb struct{ r, g, b int }

var (
	headerBlue  = rgb{0x34, 0x98, 0xdb}
	headerGreen = rgb{0x2e, 0xcc, 0x71}
	headerGrey  = rgb{0x80, 0x80, 0x80}
	totalOrange = rgb{0xf3, 0x9c, 0x12}
	headingInk  = rgb{0x2c, 0x3e, 0x50}

	riskColors = map[models.RiskLevel]rgb{
		models.RiskGreen:  {0x27, 0xae, 0x60},
		models.RiskYellow: {0xf1, 0xc4, 0x0f},
		models.RiskRed:    {0xc0, 0x39, 0x2b},
	}
)

// PDFRenderer draws reports with the core PDF fonts.
type PDFRenderer struct {
	now func() time.Time
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{now: time.Now}
}

// ReportFilename names a single project report.
func ReportFilename(projectName string, at time.Time) string {
	name := strings.ReplaceAll(strings.TrimSpace(projectName), " ", "_")
	name = strings.NewReplacer("/", "", `\`, "", "..", "").Replace(name)
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s_%s.pdf", name, at.Format(timestampLayout))
}

// ComparisonFilename names a comparison report.
func ComparisonFilename(at time.Time) string {
	return fmt.Sprintf("comparison_%s.pdf", at.Format(timestampLayout))
}

// Render implements Renderer
func (r *PDFRenderer) Render(report *models.AnalysisReport) (string, []byte, error) {
	now := r.now()
	project := report.ProjectData

	doc := newDocument("DeepDive AI Research Report")
	doc.title("DeepDive AI Research Report")
	doc.subtitle(project.ProjectName)

	doc.heading("Executive Summary")
	doc.paragraph(report.ExecutiveSummary)

	doc.heading("Key Metrics")
	metrics := project.TokenMetrics
	doc.table(headerBlue, []float64{90, 90}, []string{"Metric", "Value"}, [][]string{
		{"Price", fmt.Sprintf("$%.4f", models.FloatOr(metrics.Price, 0))},
		{"Market Cap", usd(metrics.MarketCap)},
		{"24h Volume", usd(metrics.Volume24h)},
		{"FDV", usd(metrics.FullyDilutedValuation)},
		{"TVL", usd(project.ProtocolMetrics.TVL)},
	}, nil)

	doc.heading("Analysis Scores")
	scores := report.Scores
	doc.table(headerGreen, []float64{90, 90}, []string{"Category", "Score"}, [][]string{
		{"Team Credibility", fmt.Sprintf("%d/10", scores.TeamCredibility)},
		{"Product-Market Fit", fmt.Sprintf("%d/10", scores.ProductMarketFit)},
		{"Tokenomics Health", fmt.Sprintf("%d/10", scores.TokenomicsHealth)},
		{"Community Strength", fmt.Sprintf("%d/10", scores.CommunityStrength)},
		{"Technical Development", fmt.Sprintf("%d/10", scores.TechnicalDevelopment)},
		{"TOTAL", fmt.Sprintf("%d/50", scores.Total)},
	}, &totalOrange)

	doc.heading("Risk Assessment")
	doc.riskLevel(report.RiskFlags.Level)
	if len(report.RiskFlags.Flags) > 0 {
		doc.paragraph("Risk Flags:")
		doc.bullets("•", report.RiskFlags.Flags)
	}

	doc.pdf.AddPage()
	doc.heading("Investment Thesis")
	doc.label("Bull Case:")
	doc.bullets("+", report.InvestmentThesis.BullCase)
	doc.label("Bear Case:")
	doc.bullets("-", report.InvestmentThesis.BearCase)
	doc.label("Recommendation:")
	doc.paragraph(report.InvestmentThesis.Recommendation)

	doc.footer(now)

	content, err := doc.bytes()
	if err != nil {
		return "", nil, err
	}
	return ReportFilename(project.ProjectName, now), content, nil
}

// RenderComparison implements Renderer
func (r *PDFRenderer) RenderComparison(report *models.ComparisonReport) (string, []byte, error) {
	now := r.now()

	doc := newDocument("Project Comparison Report")
	doc.title("Project Comparison Report")

	if len(report.Projects) > 0 {
		rows := make([][]string, 0, len(report.Projects))
		for _, p := range report.Projects {
			rows = append(rows, []string{
				p.ProjectData.ProjectName,
				fmt.Sprintf("%d/50", p.Scores.Total),
				strings.ToUpper(string(p.RiskFlags.Level)),
				p.InvestmentThesis.Recommendation,
			})
		}
		doc.table(headerGrey, []float64{50, 35, 35, 60}, []string{"Project", "Score", "Risk", "Recommendation"}, rows, nil)
	}

	if len(report.Failed) > 0 {
		doc.paragraph(fmt.Sprintf("Analyzed %d of %d projects. Not included: %s",
			report.Succeeded, report.Requested, strings.Join(report.Failed, ", ")))
	}

	doc.heading("Comparative Analysis")
	doc.paragraph(report.ComparativeSummary)

	doc.footer(now)

	content, err := doc.bytes()
	if err != nil {
		return "", nil, err
	}
	return ComparisonFilename(now), content, nil
}

func usd(v *float64) string {
	return "$" + humanize.Comma(int64(math.Round(models.FloatOr(v, 0))))
}

// document wraps fpdf with the few layout primitives reports need.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(title, true)
	pdf.SetAuthor("DeepDive AI", true)
	pdf.AddPage()

	// 核心字体仅支持 cp1252
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) title(text string) {
	d.pdf.SetFont("Helvetica", "B", 22)
	d.pdf.SetTextColor(0x1a, 0x1a, 0x1a)
	d.pdf.CellFormat(pageWidth, 12, d.tr(text), "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) subtitle(text string) {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.CellFormat(pageWidth, 10, d.tr(text), "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) heading(text string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.SetTextColor(headingInk.r, headingInk.g, headingInk.b)
	d.pdf.CellFormat(pageWidth, 9, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *document) label(text string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(pageWidth, lineHeight, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.MultiCell(pageWidth, lineHeight, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
}

func (d *document) bullets(marker string, items []string) {
	d.pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		d.pdf.MultiCell(pageWidth, lineHeight, d.tr(marker+" "+item), "", "L", false)
	}
	d.pdf.Ln(2)
}

func (d *document) riskLevel(level models.RiskLevel) {
	c, ok := riskColors[level]
	if !ok {
		c = headerGrey
	}
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.SetTextColor(c.r, c.g, c.b)
	d.pdf.CellFormat(pageWidth, rowHeight, d.tr("Risk Level: "+strings.ToUpper(string(level))), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

// table draws a bordered grid; the last row is highlighted when lastFill is set.
func (d *document) table(header rgb, widths []float64, columns []string, rows [][]string, lastFill *rgb) {
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.SetFillColor(header.r, header.g, header.b)
	d.pdf.SetTextColor(0xf5, 0xf5, 0xf5)
	for i, col := range columns {
		d.pdf.CellFormat(widths[i], rowHeight, d.tr(col), "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		fill := false
		d.pdf.SetFont("Helvetica", "", 11)
		if lastFill != nil && i == len(rows)-1 {
			d.pdf.SetFont("Helvetica", "B", 11)
			d.pdf.SetFillColor(lastFill.r, lastFill.g, lastFill.b)
			fill = true
		}
		for j, cell := range row {
			d.pdf.CellFormat(widths[j], rowHeight, d.tr(cell), "1", 0, "L", fill, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) footer(at time.Time) {
	d.pdf.Ln(10)
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(0x80, 0x80, 0x80)
	d.pdf.CellFormat(pageWidth, lineHeight, "Generated by DeepDive AI | "+at.Format(footerLayout), "", 1, "L", false, 0, "")
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
