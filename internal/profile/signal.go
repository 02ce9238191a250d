package profile

import (
	"fmt"

	"github.com/vp-back/pkg/models"
)

// EvaluateSignal derives a mean-reversion signal from the last candle of a
// window and the profile's value area:
//
//   - LONG when the candle pierced VAL intrabar but closed back above it
//     (failed breakdown); stop at the candle low.
//   - SHORT when the candle pierced VAH intrabar but closed back below it
//     (failed breakout); stop at the candle high.
//   - WAIT otherwise, and whenever no usable profile exists.
//
// LONG is checked first. The take-profit is the entry moved by riskReward
// times the stop distance.
func EvaluateSignal(window []models.Candle, vp *models.VolumeProfile, riskReward float64) (*models.Signal, error) {
	if riskReward <= 0 {
		return nil, fmt.Errorf("%w: risk/reward must be > 0, got %g", models.ErrInvalidParameter, riskReward)
	}
	if len(window) == 0 {
		return nil, models.ErrEmptyWindow
	}

	last := window[len(window)-1]

	sig := &models.Signal{
		Symbol:    last.Symbol,
		Kind:      models.SignalWait,
		Timestamp: last.Timestamp,
	}

	if vp == nil || len(vp.Bins) == 0 {
		return sig, nil
	}

	sig.POC = vp.POC
	sig.VAH = vp.VAH
	sig.VAL = vp.VAL

	switch {
	case last.Low < vp.VAL && last.Close > vp.VAL:
		sig.Kind = models.SignalLong
		sig.Entry = last.Close
		sig.StopLoss = last.Low
		risk := last.Close - sig.StopLoss
		sig.TakeProfit = last.Close + risk*riskReward

	case last.High > vp.VAH && last.Close < vp.VAH:
		sig.Kind = models.SignalShort
		sig.Entry = last.Close
		sig.StopLoss = last.High
		risk := sig.StopLoss - last.Close
		sig.TakeProfit = last.Close - risk*riskReward
	}

	return sig, nil
}
