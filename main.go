package main

import (
	"log"
	"os"
	"strings"
	"time"

	"tripcompare/database"
	"tripcompare/handlers"
	"tripcompare/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (ignored in production where env vars are set directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using environment variables")
	}

	database.InitDB()

	// Provider clients. Both providers speak the same JSON-RPC tool protocol.
	railMCP := services.NewMCPClient(os.Getenv("RAIL_MCP_URL"), nil)
	flightMCP := services.NewMCPClient(os.Getenv("FLIGHT_MCP_URL"), nil)
	if os.Getenv("RAIL_MCP_URL") == "" {
		log.Println("⚠️  RAIL_MCP_URL not set — rail queries will fail until configured")
	}
	if os.Getenv("FLIGHT_MCP_URL") == "" {
		log.Println("⚠️  FLIGHT_MCP_URL not set — flight queries will fail until configured")
	}

	resolver := services.NewLocationResolver()
	rail := services.NewRailClient(railMCP)
	flight := services.NewFlightClient(flightMCP, resolver)

	summarizer := services.NewOpenAISummarizer(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Println("⚠️  OPENAI_API_KEY not set — summaries will report analysis failure")
	} else {
		log.Println("✅ Summarizer initialized")
	}

	orchestrator := services.NewOrchestrator(rail, flight, summarizer)
	planner := services.NewPlanner(orchestrator)
	pdf := services.NewReportPDF(os.Getenv("PDF_CJK_FONT"))

	h := handlers.New(planner, pdf)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	// CORS — allow configured frontend origins
	frontendURLs := os.Getenv("FRONTEND_URL")
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if frontendURLs != "" {
		for _, u := range strings.Split(frontendURLs, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Routes
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/compare", h.Compare)
		api.GET("/report/:id", h.Report)
		api.GET("/comparison/:id/report", h.ReportByComparison)
		api.GET("/download/:id", h.Download)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 TripCompare backend starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
