package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"tripcompare/database"
	"tripcompare/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Planner is the planning seam so handler tests can swap in a fake.
type Planner interface {
	Plan(ctx context.Context, profile services.Profile, tripType string) *services.ComparisonReport
}

// Handler carries the injected collaborators for all API routes.
type Handler struct {
	planner Planner
	pdf     *services.ReportPDF
}

func New(planner Planner, pdf *services.ReportPDF) *Handler {
	return &Handler{planner: planner, pdf: pdf}
}

type CompareRequest struct {
	DepartCity    string  `json:"depart_city"`
	Destination   string  `json:"destination"`
	DepartureDate string  `json:"departure_date"`
	ReturnDate    string  `json:"return_date"`
	TripType      string  `json:"trip_type"`
	People        int     `json:"people"`
	Days          int     `json:"days"`
	BudgetCNY     float64 `json:"budget_cny"`
	Preferences   string  `json:"preferences"`
}

type CompareResponse struct {
	services.ComparisonReport
	ComparisonID string `json:"comparison_id,omitempty"`
	ReportID     string `json:"report_id,omitempty"`
}

// Compare runs the full comparison for one trip and persists the result.
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if req.TripType == "" {
		req.TripType = services.TripRoundtrip
	}

	profile := services.Profile{
		DepartCity:    req.DepartCity,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		People:        req.People,
		Days:          req.Days,
		BudgetCNY:     req.BudgetCNY,
		Preferences:   req.Preferences,
	}

	report := h.planner.Plan(c.Request.Context(), profile, req.TripType)
	if !report.OK {
		c.JSON(http.StatusBadRequest, CompareResponse{ComparisonReport: *report})
		return
	}

	// ── Persist ───────────────────────────────────────────────────────────────
	comparisonID := uuid.New().String()
	if err := database.SaveComparison(&database.Comparison{
		ID:            comparisonID,
		DepartCity:    req.DepartCity,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		TripType:      report.TripType,
	}); err != nil {
		log.Printf("❌ Failed to save comparison: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save comparison"})
		return
	}

	outboundJSON, _ := json.Marshal(report.Outbound)
	inboundJSON := []byte("null")
	if report.Inbound != nil {
		inboundJSON, _ = json.Marshal(report.Inbound)
	}

	reportID := uuid.New().String()
	if err := database.SaveReport(&database.Report{
		ID:           reportID,
		ComparisonID: comparisonID,
		OutboundJSON: string(outboundJSON),
		InboundJSON:  string(inboundJSON),
		MergedText:   report.Text,
	}); err != nil {
		log.Printf("❌ Failed to save report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save report"})
		return
	}

	log.Printf("✅ Comparison %s completed (%s, inbound=%v)", comparisonID, report.TripType, report.HasInbound)

	c.JSON(http.StatusOK, CompareResponse{
		ComparisonReport: *report,
		ComparisonID:     comparisonID,
		ReportID:         reportID,
	})
}
