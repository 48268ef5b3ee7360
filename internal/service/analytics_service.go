package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"campus-meal-wallet/config"
	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultWindowDays  = 30
	topVendorLimit     = 5
	recentTxLimit      = 10
	businessHoursFrom  = 8
	businessHoursUntil = 20
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var balanceRanges = []struct {
	min, max int64
	label    string
}{
	{0, 5_000, "$0-5K"},
	{5_000, 15_000, "$5K-15K"},
	{15_000, 30_000, "$15K-30K"},
	{30_000, 50_000, "$30K-50K"},
	{50_000, math.MaxInt64, "$50K+"},
}

// AnalyticsServiceImpl derives reporting aggregates from a wallet snapshot
// and the transaction log. It only reads, so it can run against an
// eventually-consistent replica without blocking the ledger.
type AnalyticsServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	cfg        config.AnalyticsConfig
	log        zerolog.Logger
}

func NewAnalyticsService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	cfg config.AnalyticsConfig,
	log zerolog.Logger,
) *AnalyticsServiceImpl {
	return &AnalyticsServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		cfg:        cfg,
		log:        log,
	}
}

// GetAnalytics computes the six dashboard aggregates over a window of
// windowDays calendar days ending today (UTC).
func (s *AnalyticsServiceImpl) GetAnalytics(ctx context.Context, windowDays int) (*domain.AnalyticsReport, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	now := timeNow()
	cutoff := now.AddDate(0, 0, -windowDays)

	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("list wallets: %w", err))
	}
	txns, err := s.txRepo.Query(ctx, ports.TransactionFilter{From: &cutoff})
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("query transactions: %w", err))
	}

	report := &domain.AnalyticsReport{
		RevenueOverTime:    revenueOverTime(txns, now, windowDays),
		WalletDistribution: walletDistribution(wallets),
		TopVendorsRanking:  topVendors(txns, true),
		ActivityHeatmap:    activityHeatmap(txns),
		UserBehavior:       userBehavior(wallets, txns),
		SpendingPatterns:   s.spendingPatterns(wallets, txns),
	}

	s.log.Debug().
		Int("window_days", windowDays).
		Int("wallets", len(wallets)).
		Int("transactions", len(txns)).
		Msg("analytics report computed")

	return report, nil
}

// GetDashboardStats computes the admin landing-page summary over the full
// transaction log.
func (s *AnalyticsServiceImpl) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := timeNow()

	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("list wallets: %w", err))
	}
	txns, err := s.txRepo.Query(ctx, ports.TransactionFilter{})
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("query transactions: %w", err))
	}

	stats := &domain.DashboardStats{
		TotalWallets: len(wallets),
		TopVendors:   topVendors(txns, false),
		GeneratedAt:  now,
	}
	for _, w := range wallets {
		stats.TotalBalance += w.Balance
		if w.IsActive() {
			stats.ActiveWallets++
		}
	}

	today := now.Format("2006-01-02")
	weekAgo := now.AddDate(0, 0, -7)
	for _, t := range txns {
		if !t.IsPurchase() {
			continue
		}
		if t.Timestamp.UTC().Format("2006-01-02") == today {
			stats.DailyPurchaseCount++
		}
		if !t.Timestamp.Before(weekAgo) {
			stats.WeeklyRevenue += -t.Amount
		}
	}

	// Newest first for the activity feed.
	recent := make([]domain.Transaction, len(txns))
	copy(recent, txns)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > recentTxLimit {
		recent = recent[:recentTxLimit]
	}
	stats.RecentTransactions = recent

	return stats, nil
}

// revenueOverTime builds a gap-free daily series: one point per calendar
// day, oldest first, zero-valued when nothing was sold.
func revenueOverTime(txns []domain.Transaction, now time.Time, windowDays int) []domain.RevenuePoint {
	type bucket struct {
		revenue int64
		count   int
	}
	byDay := make(map[string]*bucket)
	for _, t := range txns {
		if !t.IsPurchase() {
			continue
		}
		day := t.Timestamp.UTC().Format("2006-01-02")
		b := byDay[day]
		if b == nil {
			b = &bucket{}
			byDay[day] = b
		}
		b.revenue += -t.Amount
		b.count++
	}

	series := make([]domain.RevenuePoint, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		point := domain.RevenuePoint{Date: day}
		if b := byDay[day]; b != nil {
			point.Revenue = b.revenue
			point.Transactions = b.count
		}
		series = append(series, point)
	}
	return series
}

// walletDistribution buckets current balances into the fixed histogram
// ranges. Every range is emitted, empty ones with zero values.
func walletDistribution(wallets []domain.Wallet) []domain.BalanceBucket {
	buckets := make([]domain.BalanceBucket, 0, len(balanceRanges))
	for _, r := range balanceRanges {
		var count int
		var sum int64
		for _, w := range wallets {
			if w.Balance >= r.min && w.Balance < r.max {
				count++
				sum += w.Balance
			}
		}
		b := domain.BalanceBucket{Range: r.label, Count: count}
		if count > 0 {
			b.AvgBalance = sum / int64(count)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// topVendors ranks vendors by purchase revenue, descending, top five.
// Vendors without revenue are dropped. Unique-user counts are only
// meaningful inside an analytics window, so the dashboard variant skips
// them.
func topVendors(txns []domain.Transaction, withUniqueUsers bool) []domain.VendorStat {
	type agg struct {
		revenue int64
		count   int
		users   map[string]struct{}
	}
	byVendor := make(map[string]*agg)
	for _, t := range txns {
		if !t.IsPurchase() || t.Vendor == "" {
			continue
		}
		a := byVendor[t.Vendor]
		if a == nil {
			a = &agg{users: make(map[string]struct{})}
			byVendor[t.Vendor] = a
		}
		a.revenue += -t.Amount
		a.count++
		a.users[t.WalletID] = struct{}{}
	}

	stats := make([]domain.VendorStat, 0, len(byVendor))
	for name, a := range byVendor {
		if a.revenue <= 0 {
			continue
		}
		stat := domain.VendorStat{Name: name, Revenue: a.revenue, Transactions: a.count}
		if withUniqueUsers {
			stat.UniqueUsers = len(a.users)
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Revenue != stats[j].Revenue {
			return stats[i].Revenue > stats[j].Revenue
		}
		return stats[i].Name < stats[j].Name
	})
	if len(stats) > topVendorLimit {
		stats = stats[:topVendorLimit]
	}
	return stats
}

// activityHeatmap counts purchases per (weekday, business hour) slot. All
// 7x12 slots are emitted so the rendering side never interpolates.
func activityHeatmap(txns []domain.Transaction) []domain.HeatmapCell {
	var counts [7][24]int
	for _, t := range txns {
		if !t.IsPurchase() {
			continue
		}
		ts := t.Timestamp.UTC()
		counts[int(ts.Weekday())][ts.Hour()]++
	}

	cells := make([]domain.HeatmapCell, 0, 7*(businessHoursUntil-businessHoursFrom))
	for day := 0; day < 7; day++ {
		for hour := businessHoursFrom; hour < businessHoursUntil; hour++ {
			cells = append(cells, domain.HeatmapCell{
				Day:   weekdayLabels[day],
				Hour:  hour,
				Count: counts[day][hour],
			})
		}
	}
	return cells
}

// userBehavior computes window-level engagement metrics. TotalDistributed
// approximates issued funds as current balances plus window spend;
// RetentionRate is the share of purchasing wallets that came back for a
// second purchase.
func userBehavior(wallets []domain.Wallet, txns []domain.Transaction) domain.UserBehavior {
	var behavior domain.UserBehavior
	for _, w := range wallets {
		behavior.RemainingBalance += w.Balance
	}

	purchaseCounts := make(map[string]int)
	for _, t := range txns {
		if !t.IsPurchase() {
			continue
		}
		behavior.TotalSpent += -t.Amount
		purchaseCounts[t.WalletID]++
	}

	behavior.TotalDistributed = behavior.RemainingBalance + behavior.TotalSpent
	behavior.ActiveUsers = len(purchaseCounts)

	if behavior.ActiveUsers > 0 {
		repeat := 0
		for _, n := range purchaseCounts {
			if n > 1 {
				repeat++
			}
		}
		rate := float64(repeat) / float64(behavior.ActiveUsers) * 100
		behavior.RetentionRate = math.Round(rate*10) / 10
	}
	return behavior
}

// spendingPatterns sorts wallets into usage-intensity tiers. The usage
// percentage is a heuristic: window spend over an estimated opening
// balance, dampened for high current balances and boosted for nearly
// drained ones. Tunables live in config so operators can recalibrate
// without a release. Empty tiers are dropped.
func (s *AnalyticsServiceImpl) spendingPatterns(wallets []domain.Wallet, txns []domain.Transaction) []domain.SpendingTier {
	spentByWallet := make(map[string]int64)
	for _, t := range txns {
		if t.IsPurchase() {
			spentByWallet[t.WalletID] += -t.Amount
		}
	}

	var frequent, regular, occasional, inactive int
	for _, w := range wallets {
		usage := s.usagePercentage(w.Balance, spentByWallet[w.ID])
		switch {
		case usage >= s.cfg.FrequentThreshold:
			frequent++
		case usage >= s.cfg.RegularThreshold:
			regular++
		case usage >= s.cfg.OccasionalThreshold:
			occasional++
		default:
			inactive++
		}
	}

	total := len(wallets)
	if total == 0 {
		total = 1
	}
	tiers := []domain.SpendingTier{
		{Category: "Frequent Users", Users: frequent},
		{Category: "Regular Users", Users: regular},
		{Category: "Occasional Users", Users: occasional},
		{Category: "Inactive Users", Users: inactive},
	}
	out := make([]domain.SpendingTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.Users == 0 {
			continue
		}
		tier.Percentage = int(math.Round(float64(tier.Users) / float64(total) * 100))
		out = append(out, tier)
	}
	return out
}

func (s *AnalyticsServiceImpl) usagePercentage(balance, spent int64) float64 {
	if spent == 0 {
		return 0
	}
	reference := balance + spent
	if reference < s.cfg.MinReferenceBalance {
		reference = s.cfg.MinReferenceBalance
	}
	usage := float64(spent) / float64(reference) * 100

	switch {
	case balance > s.cfg.HighBalanceCutoff:
		usage = math.Min(usage*s.cfg.HighBalanceDamping, s.cfg.HighBalanceUsageCap)
	case balance < s.cfg.LowBalanceCutoff:
		usage = math.Min(usage*s.cfg.LowBalanceBoost, s.cfg.LowBalanceUsageCap)
	}
	return math.Round(math.Min(usage, 100))
}
