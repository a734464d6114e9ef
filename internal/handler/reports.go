package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ekhaya-pos/api/internal/analytics"
	"github.com/ekhaya-pos/api/internal/database"
	"github.com/go-chi/chi/v5"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetOrderStats(ctx context.Context, arg database.GetOrderStatsParams) (database.GetOrderStatsRow, error)
	GetPopularItems(ctx context.Context, limit int32) ([]database.GetPopularItemsRow, error)
	GetSalesByCategory(ctx context.Context) ([]database.GetSalesByCategoryRow, error)
	GetPeakHours(ctx context.Context, limit int32) ([]database.GetPeakHoursRow, error)
	GetDailySeries(ctx context.Context, arg database.GetDailySeriesParams) ([]database.GetDailySeriesRow, error)
}

// Recommender produces stock recommendations from sales history.
// Satisfied by *analytics.DemandPredictor.
type Recommender interface {
	Recommendations(ctx context.Context) (analytics.Recommendations, error)
}

// ReportHandler handles admin reporting and analytics endpoints.
type ReportHandler struct {
	store     ReportStore
	predictor Recommender
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore, predictor Recommender) *ReportHandler {
	return &ReportHandler{store: store, predictor: predictor}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// The router mounts this group admin-only.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/daily", h.DailyStats)
	r.Get("/reports/monthly", h.MonthlyStats)
	r.Get("/reports/popular-items", h.PopularItems)
	r.Get("/reports/category-sales", h.CategorySales)
	r.Get("/reports/peak-hours", h.PeakHours)
	r.Get("/reports/trends", h.Trends)
	r.Get("/analytics/recommendations", h.Recommendations)
}

// --- Response types ---

type orderStatsResponse struct {
	TotalOrders     int64  `json:"total_orders"`
	TotalRevenue    string `json:"total_revenue"`
	AvgOrderValue   string `json:"avg_order_value"`
	CompletedOrders int64  `json:"completed_orders"`
	PendingOrders   int64  `json:"pending_orders"`
}

type popularItemResponse struct {
	Name          string `json:"name"`
	TotalQuantity int64  `json:"total_quantity"`
}

type categorySalesResponse struct {
	Category   string `json:"category"`
	TotalSales string `json:"total_sales"`
	TotalItems int64  `json:"total_items"`
}

type peakHourResponse struct {
	Hour       int32  `json:"hour"`
	OrderCount int64  `json:"order_count"`
	Revenue    string `json:"revenue"`
}

type dailySeriesResponse struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	Revenue    string `json:"revenue"`
}

// --- Handlers ---

// DailyStats handles GET /reports/daily. Covers today, midnight to midnight
// in server time.
func (h *ReportHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	h.writeStats(w, r, start, start.AddDate(0, 0, 1))
}

// MonthlyStats handles GET /reports/monthly. Covers the current calendar
// month.
func (h *ReportHandler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	h.writeStats(w, r, start, start.AddDate(0, 1, 0))
}

func (h *ReportHandler) writeStats(w http.ResponseWriter, r *http.Request, start, end time.Time) {
	stats, err := h.store.GetOrderStats(r.Context(), database.GetOrderStatsParams{
		Start: start,
		End:   end,
	})
	if err != nil {
		log.Printf("ERROR: failed to fetch order stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderStatsResponse{
		TotalOrders:     stats.TotalOrders,
		TotalRevenue:    numericToString(stats.TotalRevenue),
		AvgOrderValue:   numericToString(stats.AvgOrderValue),
		CompletedOrders: stats.CompletedOrders,
		PendingOrders:   stats.PendingOrders,
	})
}

// PopularItems handles GET /reports/popular-items?limit=N.
func (h *ReportHandler) PopularItems(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 5)

	items, err := h.store.GetPopularItems(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: failed to fetch popular items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]popularItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, popularItemResponse{
			Name:          item.MenuItemName,
			TotalQuantity: item.TotalQuantity,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CategorySales handles GET /reports/category-sales.
func (h *ReportHandler) CategorySales(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.GetSalesByCategory(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to fetch category sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categorySalesResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categorySalesResponse{
			Category:   c.Category,
			TotalSales: numericToString(c.TotalSales),
			TotalItems: c.TotalItems,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PeakHours handles GET /reports/peak-hours?limit=N.
func (h *ReportHandler) PeakHours(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 5)

	hours, err := h.store.GetPeakHours(r.Context(), limit)
	if err != nil {
		log.Printf("ERROR: failed to fetch peak hours: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]peakHourResponse, 0, len(hours))
	for _, hr := range hours {
		resp = append(resp, peakHourResponse{
			Hour:       hr.Hour,
			OrderCount: hr.OrderCount,
			Revenue:    numericToString(hr.Revenue),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Trends handles GET /reports/trends?days=N. Returns a per-day order count
// and revenue series for the last N days (default 30).
func (h *ReportHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid days"})
			return
		}
		days = parsed
	}

	end := time.Now()
	series, err := h.store.GetDailySeries(r.Context(), database.GetDailySeriesParams{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	})
	if err != nil {
		log.Printf("ERROR: failed to fetch daily series: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySeriesResponse, 0, len(series))
	for _, day := range series {
		resp = append(resp, dailySeriesResponse{
			Date:       day.Day.Format("2006-01-02"),
			OrderCount: day.OrderCount,
			Revenue:    numericToString(day.Revenue),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Recommendations handles GET /analytics/recommendations.
func (h *ReportHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.predictor.Recommendations(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to compute recommendations: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// --- Helpers ---

func parseLimit(r *http.Request, fallback int32) int32 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || limit <= 0 {
		return fallback
	}
	return int32(limit)
}
