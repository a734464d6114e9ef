package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const getOrderStats = `
SELECT COUNT(*),
       COALESCE(SUM(total), 0),
       COALESCE(AVG(total), 0),
       COUNT(*) FILTER (WHERE status = 'ready'),
       COUNT(*) FILTER (WHERE status = 'pending')
FROM orders
WHERE created_at >= $1 AND created_at < $2
`

type GetOrderStatsParams struct {
	Start time.Time
	End   time.Time
}

type GetOrderStatsRow struct {
	TotalOrders     int64
	TotalRevenue    pgtype.Numeric
	AvgOrderValue   pgtype.Numeric
	CompletedOrders int64
	PendingOrders   int64
}

func (q *Queries) GetOrderStats(ctx context.Context, arg GetOrderStatsParams) (GetOrderStatsRow, error) {
	var r GetOrderStatsRow
	err := q.db.QueryRow(ctx, getOrderStats, arg.Start, arg.End).Scan(
		&r.TotalOrders, &r.TotalRevenue, &r.AvgOrderValue, &r.CompletedOrders, &r.PendingOrders)
	return r, err
}

const getPopularItems = `
SELECT menu_item_name, SUM(quantity) AS total_quantity
FROM order_items
GROUP BY menu_item_name
ORDER BY total_quantity DESC
LIMIT $1
`

type GetPopularItemsRow struct {
	MenuItemName  string
	TotalQuantity int64
}

func (q *Queries) GetPopularItems(ctx context.Context, limit int32) ([]GetPopularItemsRow, error) {
	rows, err := q.db.Query(ctx, getPopularItems, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetPopularItemsRow
	for rows.Next() {
		var r GetPopularItemsRow
		if err := rows.Scan(&r.MenuItemName, &r.TotalQuantity); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getSalesByCategory = `
SELECT mi.category,
       COALESCE(SUM(oi.quantity * oi.price), 0) AS total_sales,
       COALESCE(SUM(oi.quantity), 0) AS total_items
FROM order_items oi
JOIN menu_items mi ON oi.menu_item_id = mi.id
GROUP BY mi.category
ORDER BY total_sales DESC
`

type GetSalesByCategoryRow struct {
	Category   string
	TotalSales pgtype.Numeric
	TotalItems int64
}

func (q *Queries) GetSalesByCategory(ctx context.Context) ([]GetSalesByCategoryRow, error) {
	rows, err := q.db.Query(ctx, getSalesByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []GetSalesByCategoryRow
	for rows.Next() {
		var r GetSalesByCategoryRow
		if err := rows.Scan(&r.Category, &r.TotalSales, &r.TotalItems); err != nil {
			return nil, err
		}
		categories = append(categories, r)
	}
	return categories, rows.Err()
}

const getPeakHours = `
SELECT EXTRACT(HOUR FROM created_at)::int AS hour,
       COUNT(*) AS order_count,
       COALESCE(SUM(total), 0) AS revenue
FROM orders
WHERE status = 'ready'
GROUP BY hour
ORDER BY order_count DESC
LIMIT $1
`

type GetPeakHoursRow struct {
	Hour       int32
	OrderCount int64
	Revenue    pgtype.Numeric
}

func (q *Queries) GetPeakHours(ctx context.Context, limit int32) ([]GetPeakHoursRow, error) {
	rows, err := q.db.Query(ctx, getPeakHours, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []GetPeakHoursRow
	for rows.Next() {
		var r GetPeakHoursRow
		if err := rows.Scan(&r.Hour, &r.OrderCount, &r.Revenue); err != nil {
			return nil, err
		}
		hours = append(hours, r)
	}
	return hours, rows.Err()
}

const getDailySeries = `
SELECT created_at::date AS day,
       COUNT(*) AS order_count,
       COALESCE(SUM(total), 0) AS revenue
FROM orders
WHERE created_at >= $1 AND created_at < $2
GROUP BY day
ORDER BY day
`

type GetDailySeriesParams struct {
	Start time.Time
	End   time.Time
}

type GetDailySeriesRow struct {
	Day        time.Time
	OrderCount int64
	Revenue    pgtype.Numeric
}

func (q *Queries) GetDailySeries(ctx context.Context, arg GetDailySeriesParams) ([]GetDailySeriesRow, error) {
	rows, err := q.db.Query(ctx, getDailySeries, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []GetDailySeriesRow
	for rows.Next() {
		var r GetDailySeriesRow
		if err := rows.Scan(&r.Day, &r.OrderCount, &r.Revenue); err != nil {
			return nil, err
		}
		series = append(series, r)
	}
	return series, rows.Err()
}

const listSaleSamples = `
SELECT mi.category,
       oi.quantity,
       EXTRACT(DOW FROM o.created_at)::int AS day_of_week,
       EXTRACT(HOUR FROM o.created_at)::int AS hour_of_day
FROM order_items oi
JOIN orders o ON oi.order_id = o.id
JOIN menu_items mi ON oi.menu_item_id = mi.id
WHERE o.status = 'ready'
`

type ListSaleSamplesRow struct {
	Category  string
	Quantity  int32
	DayOfWeek int32
	HourOfDay int32
}

// ListSaleSamples feeds the demand baseline: one row per sold line of a
// completed order, with when it was sold.
func (q *Queries) ListSaleSamples(ctx context.Context) ([]ListSaleSamplesRow, error) {
	rows, err := q.db.Query(ctx, listSaleSamples)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []ListSaleSamplesRow
	for rows.Next() {
		var r ListSaleSamplesRow
		if err := rows.Scan(&r.Category, &r.Quantity, &r.DayOfWeek, &r.HourOfDay); err != nil {
			return nil, err
		}
		samples = append(samples, r)
	}
	return samples, rows.Err()
}
