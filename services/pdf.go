package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFData collects everything the exported comparison report needs.
type PDFData struct {
	Profile  Profile
	TripType string
	Report   *ComparisonReport
}

// ReportPDF renders comparison reports. The built-in PDF core fonts cannot
// draw CJK text, so the leg summary section is only included when a UTF-8
// TTF font file is configured; the numeric/status sections render either way.
type ReportPDF struct {
	cjkFontPath string
}

func NewReportPDF(cjkFontPath string) *ReportPDF {
	return &ReportPDF{cjkFontPath: cjkFontPath}
}

// GeneratePDFBytes renders the report and returns raw bytes (no filesystem
// involved; callers persist them).
func (g *ReportPDF) GeneratePDFBytes(data PDFData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	textFont := "Helvetica"
	cjkOK := false
	if g.cjkFontPath != "" {
		pdf.AddUTF8Font("cjk", "", g.cjkFontPath)
		if pdf.Err() {
			pdf.ClearError()
		} else {
			textFont = "cjk"
			cjkOK = true
		}
	}

	// ── Header bar ───────────────────────────────────────────
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(100, 10, "TripCompare", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, "Rail vs Flight Comparison Report", "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)

	sectionHeader := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 8, "  "+title, "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont(textFont, "", 10)
		pdf.CellFormat(115, 7, value, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}

	// ── Trip overview ────────────────────────────────────────
	sectionHeader("Trip Overview")
	if cjkOK {
		row("Route", fmt.Sprintf("%s → %s", data.Profile.DepartCity, data.Profile.Destination))
	} else {
		row("Route", routeCodes(data))
	}
	row("Trip type", data.TripType)
	row("Departure date", data.Profile.DepartureDate)
	if data.Profile.ReturnDate != "" {
		row("Return date", data.Profile.ReturnDate)
	}
	row("Generated", time.Now().UTC().Format("02 Jan 2006, 15:04 UTC"))
	pdf.Ln(4)

	legSection := func(title string, leg *LegOutcome) {
		if leg == nil {
			return
		}
		sectionHeader(title)
		row("Date", leg.Query.Date)
		if leg.Rail != nil {
			row("Rail status", providerStatus(leg.Rail))
			if leg.Rail.TrainSummary != nil && leg.Rail.TrainSummary.MinPrice != nil {
				row("Rail min price", fmt.Sprintf("CNY %.0f", *leg.Rail.TrainSummary.MinPrice))
			}
		}
		if leg.Flight != nil {
			row("Flight status", providerStatus(leg.Flight))
			if leg.Flight.Flight != nil && leg.Flight.Flight.Summary.MinPrice != nil {
				row("Flight min price", fmt.Sprintf("CNY %d", *leg.Flight.Flight.Summary.MinPrice))
			}
		}
		if cjkOK {
			pdf.Ln(1)
			pdf.SetFont(textFont, "", 9)
			pdf.SetTextColor(40, 40, 40)
			pdf.MultiCell(170, 4.5, leg.SummaryText, "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(4)
	}

	legSection("Outbound Leg", data.Report.Outbound)
	legSection("Return Leg", data.Report.Inbound)

	// ── Footer ───────────────────────────────────────────────
	pdf.SetY(-22)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 8,
		"Generated by TripCompare · Prices and availability come from live provider data and change quickly",
		"", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// routeCodes falls back to IATA codes when the configured fonts cannot
// render the city names themselves.
func routeCodes(data PDFData) string {
	r := NewLocationResolver()
	dep, ok1 := r.ToIATACityCode(data.Profile.DepartCity)
	arr, ok2 := r.ToIATACityCode(data.Profile.Destination)
	if !ok1 {
		dep = "???"
	}
	if !ok2 {
		arr = "???"
	}
	return dep + " -> " + arr
}

func providerStatus(r *ProviderResult) string {
	if !r.OK {
		return "failed: " + r.ErrorDetail()
	}
	n := r.ItemCount()
	if n == 0 {
		return "ok, no results"
	}
	return fmt.Sprintf("ok, %d result(s)", n)
}
