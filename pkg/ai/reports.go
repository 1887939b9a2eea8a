package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/datx24/storefront/pkg/models"
	"github.com/datx24/storefront/pkg/stats"
)

type AIReportResponse struct {
	Status      string     `json:"status"`
	Data        ReportData `json:"data"`
	GeneratedAt time.Time  `json:"generated_at"`
	AIEnabled   bool       `json:"ai_enabled"`
}

type ReportData struct {
	RawData    interface{} `json:"raw_data"`
	AIInsights string      `json:"ai_insights,omitempty"`
	Summary    string      `json:"summary"`
	Error      string      `json:"error,omitempty"`
}

// GenerateStatisticsReport narrates dashboard statistics. The raw statistics are
// always returned; a failed completion only fills Data.Error.
func (s *Service) GenerateStatisticsReport(ctx context.Context, st *stats.Statistics) *AIReportResponse {
	response := s.newReport(st, "Order statistics retrieved successfully")
	if !s.IsEnabled() {
		response.Data.Summary = "Raw order statistics (AI insights unavailable)"
		return response
	}

	insights, err := s.generateCompletion(ctx, StatisticsSystemPrompt, formatStatisticsPrompt(st))
	if err != nil {
		response.Data.Error = "AI analysis failed: " + err.Error()
		return response
	}
	response.Data.AIInsights = insights
	response.Data.Summary = "AI-generated order insights and recommendations"
	return response
}

// GenerateCategoryReport comments on the price positioning of one category page.
func (s *Service) GenerateCategoryReport(ctx context.Context, listing *models.CategoryProducts, priceRange *models.PriceRange) *AIReportResponse {
	raw := map[string]interface{}{
		"category":    listing.Category,
		"price_range": priceRange,
		"products":    listing.Products,
		"pagination":  listing.Pagination,
	}
	response := s.newReport(raw, "Category data retrieved successfully")
	if !s.IsEnabled() {
		response.Data.Summary = "Raw category data (AI insights unavailable)"
		return response
	}

	insights, err := s.generateCompletion(ctx, CategoryPricingSystemPrompt, formatCategoryPrompt(raw))
	if err != nil {
		response.Data.Error = "AI analysis failed: " + err.Error()
		return response
	}
	response.Data.AIInsights = insights
	response.Data.Summary = "AI-generated category pricing insights"
	return response
}

func (s *Service) newReport(raw interface{}, summary string) *AIReportResponse {
	return &AIReportResponse{
		Status:      "success",
		GeneratedAt: time.Now(),
		AIEnabled:   s.IsEnabled(),
		Data: ReportData{
			RawData: raw,
			Summary: summary,
		},
	}
}

// formatStatisticsPrompt leaves out recent orders, which carry customer contact details.
func formatStatisticsPrompt(st *stats.Statistics) string {
	payload := struct {
		StartDate    string                        `json:"start_date"`
		EndDate      string                        `json:"end_date"`
		TotalOrders  int                           `json:"total_orders"`
		TotalRevenue int64                         `json:"total_revenue"`
		AverageOrder int64                         `json:"average_order_value"`
		ByStatus     map[string]stats.StatusBucket `json:"by_status"`
		Daily        []stats.DailyBucket           `json:"daily"`
	}{st.StartDate, st.EndDate, st.TotalOrders, st.TotalRevenue, st.AverageOrder, st.ByStatus, st.Daily}

	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	return fmt.Sprintf(`Analyze the following order statistics from %s to %s:

%s`, st.StartDate, st.EndDate, string(jsonData))
}

func formatCategoryPrompt(raw map[string]interface{}) string {
	jsonData, _ := json.MarshalIndent(raw, "", "  ")
	return fmt.Sprintf(`Review the following category listing:

%s`, string(jsonData))
}
