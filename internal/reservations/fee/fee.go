package fee

import (
	"math"
	"time"

	"communa/pkg/model"
)

// Fee tiers are keyed on whole days remaining before the event:
// floor(hours / 24). A reservation 6 days and 23 hours out is in the
// late tier, one at exactly 7 days is in the admin-fee tier.
const (
	FreeCancellationDays  = 14
	AdminCancellationDays = 7
	FreeModificationDays  = 7
)

// Defaults applied when an amenity's fee policy is missing or malformed.
const (
	DefaultAdminFee            = 50.0
	DefaultAdditionalChangeFee = 25.0
	DefaultLateFeeType         = model.LateFeeForfeit
)

// CancellationResult is the financial outcome of cancelling a reservation.
// Fee + Refund always equals the reservation's fee + deposit snapshot.
type CancellationResult struct {
	Fee    float64
	Refund float64
	Reason string
}

// ModificationResult is the financial outcome of accepting a proposed change.
type ModificationResult struct {
	Fee    float64
	Reason string
}

// DaysUntil returns the number of whole days between now and the event
// start. Negative when the event has already begun.
func DaysUntil(now, eventStart time.Time) int {
	return int(math.Floor(eventStart.Sub(now).Hours() / 24))
}

// Cancellation computes the cancellation fee against the reservation's
// financial snapshot using the amenity's current policy. A nil policy
// degrades to the defaults instead of failing the cancellation.
func Cancellation(now, eventStart time.Time, totalFee, totalDeposit float64, policy *model.CancellationPolicy) CancellationResult {
	paid := totalFee + totalDeposit
	p := normalizeCancellationPolicy(policy)

	if !p.Enabled {
		return CancellationResult{
			Fee:    0,
			Refund: paid,
			Reason: "cancellation fees are disabled for this amenity",
		}
	}

	days := DaysUntil(now, eventStart)

	switch {
	case days > FreeCancellationDays:
		return CancellationResult{
			Fee:    0,
			Refund: paid,
			Reason: "cancelled more than 14 days before the event",
		}

	case days >= AdminCancellationDays:
		charge := math.Min(p.AdminFee, paid)
		return CancellationResult{
			Fee:    charge,
			Refund: paid - charge,
			Reason: "administrative fee for cancellation within 14 days of the event",
		}

	default:
		if p.LateFeeType == model.LateFeeFixed {
			charge := math.Min(p.LateFee, paid)
			return CancellationResult{
				Fee:    charge,
				Refund: paid - charge,
				Reason: "late cancellation fee within 7 days of the event",
			}
		}
		return CancellationResult{
			Fee:    paid,
			Refund: 0,
			Reason: "fee and deposit forfeited for cancellation within 7 days of the event",
		}
	}
}

// Modification computes the fee for accepting a proposed date change.
// priorChanges counts previously accepted changes on the reservation.
// A nil policy degrades to the defaults.
func Modification(now, eventStart time.Time, priorChanges int, policy *model.ModificationPolicy) ModificationResult {
	p := normalizeModificationPolicy(policy)

	if !p.Enabled {
		return ModificationResult{
			Fee:    0,
			Reason: "modification fees are disabled for this amenity",
		}
	}

	if priorChanges == 0 && DaysUntil(now, eventStart) > FreeModificationDays {
		return ModificationResult{
			Fee:    0,
			Reason: "first change more than 7 days before the event is free",
		}
	}

	return ModificationResult{
		Fee:    p.AdditionalChangeFee,
		Reason: "change fee applied",
	}
}

// normalizeCancellationPolicy degrades a missing policy or malformed
// fields to the hard-coded defaults rather than failing the cancellation.
func normalizeCancellationPolicy(policy *model.CancellationPolicy) model.CancellationPolicy {
	if policy == nil {
		return model.CancellationPolicy{
			Enabled:     true,
			AdminFee:    DefaultAdminFee,
			LateFeeType: DefaultLateFeeType,
		}
	}

	p := *policy
	if p.AdminFee < 0 || math.IsNaN(p.AdminFee) || math.IsInf(p.AdminFee, 0) {
		p.AdminFee = DefaultAdminFee
	}
	if p.LateFee < 0 || math.IsNaN(p.LateFee) || math.IsInf(p.LateFee, 0) {
		p.LateFee = 0
	}
	switch p.LateFeeType {
	case model.LateFeeForfeit, model.LateFeeFixed:
	default:
		p.LateFeeType = DefaultLateFeeType
	}
	return p
}

func normalizeModificationPolicy(policy *model.ModificationPolicy) model.ModificationPolicy {
	if policy == nil {
		return model.ModificationPolicy{
			Enabled:             true,
			AdditionalChangeFee: DefaultAdditionalChangeFee,
		}
	}

	p := *policy
	if p.AdditionalChangeFee < 0 || math.IsNaN(p.AdditionalChangeFee) || math.IsInf(p.AdditionalChangeFee, 0) {
		p.AdditionalChangeFee = DefaultAdditionalChangeFee
	}
	return p
}
