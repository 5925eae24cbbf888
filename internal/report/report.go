// Package report turns raw sale records into the balance and payment
// summaries the admin overview renders. Pure computation; callers fetch.
package report

import (
	"sort"
	"time"

	"zaypos/backend/internal/domain"
)

// Build nets a slice of sales into a BalanceReport. Summing NetCash and
// NetKPay per sale is classification-independent, so records from before the
// CASH_WITH_KPAY_CHANGE type was introduced aggregate identically; they only
// show up as separate rows in the per-type breakdown.
func Build(sales []domain.Sale, from, to *time.Time) domain.BalanceReport {
	rep := domain.BalanceReport{
		Sales:       len(sales),
		ByPayment:   make([]domain.PaymentTypeSummary, 0, 4),
		DailyTotals: make([]domain.DailyBucket, 0, 32),
	}
	if from != nil {
		rep.From = from.UTC().Format("2006-01-02")
	}
	if to != nil {
		rep.To = to.UTC().Format("2006-01-02")
	}

	byType := make(map[domain.PaymentType]*domain.PaymentTypeSummary)
	byDay := make(map[string]*domain.DailyBucket)

	for _, sale := range sales {
		rep.Total += sale.Total
		rep.Profit += sale.Profit
		rep.NetCash += sale.NetCash
		rep.NetKPay += sale.NetKPay

		ts, ok := byType[sale.PaymentType]
		if !ok {
			ts = &domain.PaymentTypeSummary{PaymentType: sale.PaymentType}
			byType[sale.PaymentType] = ts
		}
		ts.Sales++
		ts.Total += sale.Total

		day := sale.CreatedAt.UTC().Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = &domain.DailyBucket{Date: day}
			byDay[day] = bucket
		}
		bucket.Total += sale.Total
		bucket.Profit += sale.Profit
		bucket.NetCash += sale.NetCash
		bucket.NetKPay += sale.NetKPay
	}

	for _, ts := range byType {
		rep.ByPayment = append(rep.ByPayment, *ts)
	}
	sort.Slice(rep.ByPayment, func(i, j int) bool {
		if rep.ByPayment[i].Total == rep.ByPayment[j].Total {
			return rep.ByPayment[i].PaymentType < rep.ByPayment[j].PaymentType
		}
		return rep.ByPayment[i].Total > rep.ByPayment[j].Total
	})

	for _, bucket := range byDay {
		rep.DailyTotals = append(rep.DailyTotals, *bucket)
	}
	sort.Slice(rep.DailyTotals, func(i, j int) bool {
		return rep.DailyTotals[i].Date < rep.DailyTotals[j].Date
	})

	return rep
}
