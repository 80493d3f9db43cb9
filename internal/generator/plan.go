package generator

import (
	"fmt"
	"math"
)

// Plan is the payee mix derived from a target record count.
type Plan struct {
	Records             int
	Payees              int
	MicroPayees         int
	NearThresholdPayees int
	LargePayees         int
}

// DerivePlan searches for a payee mix whose segment bounds can absorb the
// requested record count. It aims for roughly 24 transactions per payee so
// that most payees land below the reporting threshold.
func DerivePlan(rec int) (Plan, error) {
	const targetAvg = 24.0

	payees := int(math.Ceil(float64(rec) / targetAvg))
	if payees < 1 {
		payees = 1
	}

	for attempts := 0; attempts < 10_000; attempts++ {
		micro, near, large := ratioCounts(payees, rec)
		minTotal, maxTotal := recordBounds(payees, micro, near, large)

		if rec < minTotal {
			if payees == 1 {
				break
			}
			payees--
			continue
		}
		if rec > maxTotal {
			payees++
			continue
		}

		return Plan{
			Records:             rec,
			Payees:              payees,
			MicroPayees:         micro,
			NearThresholdPayees: near,
			LargePayees:         large,
		}, nil
	}
	return Plan{}, fmt.Errorf("could not derive a valid payee mix for the requested scale")
}

func ratioCounts(payees, rec int) (micro, near, large int) {
	const (
		microRatio             = 0.25
		nearRatio              = 0.10
		overThresholdPerRecord = 0.0025 // 250 per 100k records
	)

	micro = int(math.Round(float64(payees) * microRatio))
	near = int(math.Round(float64(payees) * nearRatio))
	large = int(math.Round(float64(rec) * overThresholdPerRecord))
	if large > payees {
		large = payees
	}

	for micro+near+large > payees {
		switch {
		case micro > 0:
			micro--
		case near > 0:
			near--
		case large > 0:
			large--
		default:
			return micro, near, large
		}
	}
	return micro, near, large
}

func recordBounds(payees, micro, near, large int) (minTotal, maxTotal int) {
	remaining := payees - (micro + near + large)
	if remaining < 0 {
		remaining = 0
	}
	small := remaining / 2
	mid := remaining - small
	nearBelow := near / 2
	nearAbove := near - nearBelow

	minTotal = micro*segmentMicro.minTx +
		small*segmentSmall.minTx +
		mid*segmentMid.minTx +
		nearBelow*segmentNearBelow.minTx +
		nearAbove*segmentNearAbove.minTx +
		large*segmentLarge.minTx
	maxTotal = micro*segmentMicro.maxTx +
		small*segmentSmall.maxTx +
		mid*segmentMid.maxTx +
		nearBelow*segmentNearBelow.maxTx +
		nearAbove*segmentNearAbove.maxTx +
		large*segmentLarge.maxTx
	return minTotal, maxTotal
}
