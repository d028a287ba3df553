package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tripcompare/database"
	"tripcompare/services"

	"github.com/gin-gonic/gin"
)

type ReportResponse struct {
	ReportID     string               `json:"report_id"`
	ComparisonID string               `json:"comparison_id"`
	Text         string               `json:"text"`
	Outbound     *services.LegOutcome `json:"outbound,omitempty"`
	Inbound      *services.LegOutcome `json:"inbound,omitempty"`
	HasPDF       bool                 `json:"has_pdf"`
}

// Report returns a previously stored comparison report.
func (h *Handler) Report(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing report ID"})
		return
	}

	report, err := database.GetReport(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	c.JSON(http.StatusOK, reportResponse(report))
}

// ReportByComparison returns the latest report stored for a comparison.
func (h *Handler) ReportByComparison(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing comparison ID"})
		return
	}

	report, err := database.GetReportByComparisonID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report for this comparison"})
		return
	}

	c.JSON(http.StatusOK, reportResponse(report))
}

func reportResponse(report *database.Report) ReportResponse {
	resp := ReportResponse{
		ReportID:     report.ID,
		ComparisonID: report.ComparisonID,
		Text:         report.MergedText,
		HasPDF:       len(report.PDFData) > 0,
	}
	if leg := decodeLeg(report.OutboundJSON); leg != nil {
		resp.Outbound = leg
	}
	if leg := decodeLeg(report.InboundJSON); leg != nil {
		resp.Inbound = leg
	}
	return resp
}

// decodeLeg tolerates empty, "null" and malformed stored JSON.
func decodeLeg(raw string) *services.LegOutcome {
	if raw == "" || raw == "null" {
		return nil
	}
	var leg services.LegOutcome
	if err := json.Unmarshal([]byte(raw), &leg); err != nil {
		return nil
	}
	return &leg
}

// renderPDF rebuilds a ComparisonReport from storage and renders it.
func (h *Handler) renderPDF(report *database.Report) ([]byte, error) {
	comparison, err := database.GetComparison(report.ComparisonID)
	if err != nil {
		return nil, err
	}

	rebuilt := &services.ComparisonReport{
		OK:       true,
		Text:     report.MergedText,
		TripType: comparison.TripType,
	}
	rebuilt.Outbound = decodeLeg(report.OutboundJSON)
	if leg := decodeLeg(report.InboundJSON); leg != nil {
		rebuilt.Inbound = leg
		rebuilt.HasInbound = true
	}

	pdfBytes, err := h.pdf.GeneratePDFBytes(services.PDFData{
		Profile: services.Profile{
			DepartCity:    comparison.DepartCity,
			Destination:   comparison.Destination,
			DepartureDate: comparison.DepartureDate,
			ReturnDate:    comparison.ReturnDate,
		},
		TripType: comparison.TripType,
		Report:   rebuilt,
	})
	if err != nil {
		return nil, err
	}

	if err := database.UpdateReportPDF(report.ID, pdfBytes); err != nil {
		log.Printf("⚠️  Failed to cache generated PDF for report %s: %v", report.ID, err)
	}
	return pdfBytes, nil
}
