// Package settlement computes how a checkout's tender nets against the cash
// drawer and the KPay balance. Compute is pure and cheap enough to run on
// every tender keystroke.
package settlement

import "zaypos/backend/internal/domain"

// Input is one snapshot of the payment form. ChangeChannel is only consulted
// when the computed change is positive.
type Input struct {
	TotalDue      domain.Money
	CashTendered  domain.Money
	KPayTendered  domain.Money
	ChangeChannel domain.ChangeChannel
}

// Outcome is fully derived from Input and never mutated afterwards.
//
// When Sufficient is false, Change holds the negative shortfall for display
// and the remaining fields are advisory only; confirmation must be blocked by
// the caller. When Sufficient holds, NetCash+NetKPay always equals TotalDue.
type Outcome struct {
	TotalDue      domain.Money         `json:"total_due"`
	TotalReceived domain.Money         `json:"total_received"`
	Change        domain.Money         `json:"change"`
	Sufficient    bool                 `json:"sufficient"`
	NetCash       domain.Money         `json:"net_cash"`
	NetKPay       domain.Money         `json:"net_kpay"`
	PaymentType   domain.PaymentType   `json:"payment_type"`
	CashTendered  domain.Money         `json:"cash_tendered"`
	KPayTendered  domain.Money         `json:"kpay_tendered"`
	ChangeChannel domain.ChangeChannel `json:"change_channel,omitempty"`
}

// Compute settles a checkout. Change is subtracted from the selected channel,
// which is allowed to push that channel's net delta negative: tendering only
// cash while returning change via KPay records a KPay payout with no matching
// receipt, and that must survive persistence unclamped.
func Compute(in Input) Outcome {
	out := Outcome{
		TotalDue:      in.TotalDue,
		TotalReceived: in.CashTendered + in.KPayTendered,
		CashTendered:  in.CashTendered,
		KPayTendered:  in.KPayTendered,
		NetCash:       in.CashTendered,
		NetKPay:       in.KPayTendered,
	}
	out.Change = out.TotalReceived - in.TotalDue
	out.Sufficient = out.Change >= 0

	if out.Sufficient && out.Change > 0 {
		out.ChangeChannel = in.ChangeChannel
		if out.ChangeChannel == "" {
			out.ChangeChannel = domain.ChangeViaCash
		}
		switch out.ChangeChannel {
		case domain.ChangeViaKPay:
			out.NetKPay -= out.Change
		default:
			out.NetCash -= out.Change
		}
	}

	out.PaymentType = classify(in.CashTendered, in.KPayTendered, out.Change, out.ChangeChannel)
	return out
}

// classify orders its checks deliberately: MIXED wins over both the pure-KPay
// and the cash-with-KPay-change cases.
func classify(cash, kpay, change domain.Money, channel domain.ChangeChannel) domain.PaymentType {
	switch {
	case cash > 0 && kpay > 0:
		return domain.PaymentMixed
	case kpay > 0:
		return domain.PaymentKPay
	case cash > 0 && change > 0 && channel == domain.ChangeViaKPay:
		// Paid cash, change sent via KPay. Reporting needs this distinct
		// from a plain cash sale.
		return domain.PaymentCashWithKPayChange
	default:
		return domain.PaymentCash
	}
}

// DefaultChangeChannel reproduces the earlier tender-splitting behaviour: the
// channel that tendered more absorbs the change, cash winning ties. Feeding
// it into Compute yields the legacy split-only settlement as a special case.
func DefaultChangeChannel(cashTendered, kpayTendered domain.Money) domain.ChangeChannel {
	if kpayTendered > cashTendered {
		return domain.ChangeViaKPay
	}
	return domain.ChangeViaCash
}
