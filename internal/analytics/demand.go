// Package analytics derives stock recommendations from historical sales.
//
// The demand baseline is a per-category average of sold quantities,
// preferring samples from the same weekday as the request so weekend and
// weekday trade are not blended together.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/enum"
	"github.com/montanaflynn/stats"
)

// minSamples is the minimum number of sold lines before predictions are
// considered meaningful.
const minSamples = 10

// SampleStore provides historical sale samples.
// Satisfied by *database.Queries.
type SampleStore interface {
	ListSaleSamples(ctx context.Context) ([]database.ListSaleSamplesRow, error)
}

// CategoryRecommendation is the predicted demand and suggested stock level
// for one menu category.
type CategoryRecommendation struct {
	PredictedDemand int    `json:"predicted_demand"`
	Recommendation  string `json:"recommendation"`
}

// Recommendations is the full analytics response.
type Recommendations struct {
	Message         string                            `json:"message"`
	Recommendations map[string]CategoryRecommendation `json:"recommendations"`
}

// DemandPredictor computes per-category demand baselines from completed
// orders.
type DemandPredictor struct {
	store SampleStore
	now   func() time.Time // swappable for tests
}

// NewDemandPredictor creates a DemandPredictor backed by the given store.
func NewDemandPredictor(store SampleStore) *DemandPredictor {
	return &DemandPredictor{store: store, now: time.Now}
}

// Recommendations returns stock suggestions for every category. With fewer
// than minSamples sold lines it returns an empty recommendation set and a
// message saying more data is needed.
func (p *DemandPredictor) Recommendations(ctx context.Context) (Recommendations, error) {
	samples, err := p.store.ListSaleSamples(ctx)
	if err != nil {
		return Recommendations{}, fmt.Errorf("list sale samples: %w", err)
	}

	if len(samples) < minSamples {
		return Recommendations{
			Message:         "Not enough order data yet. Complete more orders to unlock recommendations.",
			Recommendations: map[string]CategoryRecommendation{},
		}, nil
	}

	dayOfWeek := int32(p.now().Weekday())

	recs := make(map[string]CategoryRecommendation)
	for _, category := range []string{enum.CategoryMeat, enum.CategorySides, enum.CategoryDrinks} {
		predicted := predictDemand(samples, category, dayOfWeek)
		recs[category] = CategoryRecommendation{
			PredictedDemand: predicted,
			Recommendation:  fmt.Sprintf("Stock at least %d items for peak hours", predicted*2),
		}
	}

	return Recommendations{
		Message:         "Recommendations based on historical sales data",
		Recommendations: recs,
	}, nil
}

// predictDemand averages sold quantities for a category, preferring samples
// from the given weekday and falling back to the category's whole history
// when that weekday has none.
func predictDemand(samples []database.ListSaleSamplesRow, category string, dayOfWeek int32) int {
	var sameDay, allDays []float64
	for _, s := range samples {
		if s.Category != category {
			continue
		}
		allDays = append(allDays, float64(s.Quantity))
		if s.DayOfWeek == dayOfWeek {
			sameDay = append(sameDay, float64(s.Quantity))
		}
	}

	pool := sameDay
	if len(pool) == 0 {
		pool = allDays
	}
	if len(pool) == 0 {
		return 0
	}

	mean, err := stats.Mean(pool)
	if err != nil {
		return 0
	}
	predicted := int(math.Round(mean))
	if predicted < 0 {
		return 0
	}
	return predicted
}
