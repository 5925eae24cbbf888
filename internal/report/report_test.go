package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zaypos/backend/internal/domain"
)

func TestBuildNetsBothChannels(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	sales := []domain.Sale{
		{Total: 1000, Profit: 400, PaymentType: domain.PaymentCash, NetCash: 1000, NetKPay: 0, CreatedAt: day1},
		{Total: 1000, Profit: 300, PaymentType: domain.PaymentCashWithKPayChange, NetCash: 1500, NetKPay: -500, CreatedAt: day1},
		{Total: 2000, Profit: 700, PaymentType: domain.PaymentKPay, NetCash: 0, NetKPay: 2000, CreatedAt: day2},
	}

	rep := Build(sales, nil, nil)

	require.Equal(t, 3, rep.Sales)
	require.Equal(t, domain.Money(4000), rep.Total)
	require.Equal(t, domain.Money(1400), rep.Profit)
	require.Equal(t, domain.Money(2500), rep.NetCash)
	require.Equal(t, domain.Money(1500), rep.NetKPay)
	require.Equal(t, rep.Total, rep.NetCash+rep.NetKPay, "net deltas reconstitute total kept")

	require.Len(t, rep.ByPayment, 3)
	require.Len(t, rep.DailyTotals, 2)
	require.Equal(t, "2026-03-01", rep.DailyTotals[0].Date)
	require.Equal(t, domain.Money(-500), rep.DailyTotals[0].NetKPay, "negative KPay delta must not be clamped")
}

func TestBuildEmptyRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)

	rep := Build(nil, &from, &to)

	require.Equal(t, "2026-01-01", rep.From)
	require.Equal(t, "2026-01-07", rep.To)
	require.Zero(t, rep.Sales)
	require.Empty(t, rep.ByPayment)
}
