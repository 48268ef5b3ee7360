package domain

import "time"

// View-models produced by the analytics aggregator. All money values are in
// minor currency units; all computations are deterministic given the same
// transaction log and wallet snapshot.

// RevenuePoint is one calendar day of purchase revenue. Days without
// purchases are emitted with zero values so the series has no gaps.
type RevenuePoint struct {
	Date         string `json:"date"` // YYYY-MM-DD, UTC
	Revenue      int64  `json:"revenue"`
	Transactions int    `json:"transactions"`
}

// BalanceBucket is one fixed range of the wallet-balance histogram.
type BalanceBucket struct {
	Range      string `json:"range"`
	Count      int    `json:"count"`
	AvgBalance int64  `json:"avg_balance"`
}

// VendorStat aggregates purchase activity for a single vendor.
type VendorStat struct {
	Name         string `json:"name"`
	Revenue      int64  `json:"revenue"`
	Transactions int    `json:"transactions"`
	UniqueUsers  int    `json:"unique_users"`
}

// HeatmapCell counts purchases for one (weekday, hour) slot inside
// business hours. Every slot is emitted even when the count is zero.
type HeatmapCell struct {
	Day   string `json:"day"` // short weekday name, Sunday first
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
}

// UserBehavior holds window-level engagement metrics. TotalDistributed is
// an approximation (current balances plus window spend), not a ledger of
// actual top-ups.
type UserBehavior struct {
	TotalDistributed int64   `json:"total_distributed"`
	TotalSpent       int64   `json:"total_spent"`
	RemainingBalance int64   `json:"remaining_balance"`
	ActiveUsers      int     `json:"active_users"`
	RetentionRate    float64 `json:"retention_rate"` // percent, one decimal
}

// SpendingTier is one usage-intensity category of the spending-pattern
// heuristic.
type SpendingTier struct {
	Category   string `json:"category"`
	Users      int    `json:"users"`
	Percentage int    `json:"percentage"` // share of all wallets
}

// AnalyticsReport bundles every aggregate the dashboards consume.
type AnalyticsReport struct {
	RevenueOverTime    []RevenuePoint  `json:"revenue_over_time"`
	WalletDistribution []BalanceBucket `json:"wallet_distribution"`
	TopVendorsRanking  []VendorStat    `json:"top_vendors_ranking"`
	ActivityHeatmap    []HeatmapCell   `json:"activity_heatmap"`
	UserBehavior       UserBehavior    `json:"user_behavior"`
	SpendingPatterns   []SpendingTier  `json:"spending_patterns"`
}

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalWallets       int           `json:"total_wallets"`
	ActiveWallets      int           `json:"active_wallets"`
	TotalBalance       int64         `json:"total_balance"`
	DailyPurchaseCount int           `json:"daily_purchase_count"`
	WeeklyRevenue      int64         `json:"weekly_revenue"`
	TopVendors         []VendorStat  `json:"top_vendors"`
	RecentTransactions []Transaction `json:"recent_transactions"`
	GeneratedAt        time.Time     `json:"generated_at"`
}
