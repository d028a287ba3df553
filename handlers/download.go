package handlers

import (
	"log"
	"net/http"

	"tripcompare/database"

	"github.com/gin-gonic/gin"
)

// Download serves the PDF for a report, rendering and caching it on first
// request.
func (h *Handler) Download(c *gin.Context) {
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

	pdfData := report.PDFData
	if len(pdfData) == 0 {
		pdfData, err = h.renderPDF(report)
		if err != nil {
			log.Printf("❌ PDF generation failed for report %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
			return
		}
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment; filename=tripcompare-report.pdf")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfData)
}

// Health reports process and database status.
func (h *Handler) Health(c *gin.Context) {
	db := database.DB
	dbStatus := "ok"
	if db == nil {
		dbStatus = "not initialized"
	} else if err := db.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "TripCompare API",
		"database": dbStatus,
	})
}
