package market

import (
	"math"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

const (
	rsiPeriod       = 14
	srWindow        = 20
	maWindow        = 30
	highVolumeFloor = 1e9
	neutralRSI      = 50
	overboughtRSI   = 70
	oversoldRSI     = 30
)

// RSI computes the relative strength index over the last period steps of a
// price series. Returns the neutral midpoint when the series is too short.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return neutralRSI
	}

	var gain, loss float64

	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gain += change
		} else {
			loss += -change
		}
	}

	if loss == 0 {
		return 100
	}

	rs := gain / loss

	return math.Round((100-100/(1+rs))*10) / 10
}

// SupportResistance estimates the nearest support and resistance from the
// extrema of the last 20 periods.
func SupportResistance(prices []float64) (support, resistance float64) {
	if len(prices) == 0 {
		return 0, 0
	}

	window := prices
	if len(window) > srWindow {
		window = window[len(window)-srWindow:]
	}

	support, resistance = window[0], window[0]

	for _, p := range window[1:] {
		if p < support {
			support = p
		}

		if p > resistance {
			resistance = p
		}
	}

	return support, resistance
}

// AboveMA reports whether the current price sits above the trailing moving
// average of the series. Returns false when the series is too short.
func AboveMA(prices []float64, current float64, window int) bool {
	if len(prices) < window {
		return false
	}

	var sum float64
	for _, p := range prices[len(prices)-window:] {
		sum += p
	}

	return current > sum/float64(window)
}

// ComputeSignal scores 24h momentum, volume band, RSI zone and the moving
// average position into a trading bias.
func ComputeSignal(pctChange24h, volume24h, rsi float64, aboveMA bool) domain.Signal {
	var score int

	switch {
	case pctChange24h > 10:
		score += 3
	case pctChange24h > 5:
		score += 2
	case pctChange24h > 0:
		score++
	case pctChange24h > -5:
		score--
	default:
		score -= 2
	}

	if volume24h > highVolumeFloor {
		score++
	}

	switch {
	case rsi > overboughtRSI:
		score--
	case rsi < oversoldRSI:
		score++
	}

	if aboveMA {
		score++
	} else {
		score--
	}

	switch {
	case score >= 4:
		return domain.SignalBuy
	case score >= 2:
		return domain.SignalHold
	case score >= 0:
		return domain.SignalWatch
	case score >= -2:
		return domain.SignalHold
	default:
		return domain.SignalSell
	}
}
