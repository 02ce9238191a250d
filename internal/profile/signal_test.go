package profile

import (
	"testing"

	"github.com/vp-back/pkg/models"
)

func profileWith(val, poc, vah float64) *models.VolumeProfile {
	return &models.VolumeProfile{
		Bins: binsOf(1, 2, 3),
		POC:  poc,
		VAH:  vah,
		VAL:  val,
	}
}

func TestEvaluateSignal_Long(t *testing.T) {
	// Failed breakdown: the candle pierced VAL=100 intrabar but closed
	// back above it.
	vp := profileWith(100, 150, 200)
	window := []models.Candle{makeCandle(98, 105, 101, 10, 0)}

	sig, err := EvaluateSignal(window, vp, 2.0)
	if err != nil {
		t.Fatalf("EvaluateSignal failed: %v", err)
	}

	if sig.Kind != models.SignalLong {
		t.Fatalf("expected LONG, got %s", sig.Kind)
	}
	assertClose(t, "entry", sig.Entry, 101, 1e-9)
	assertClose(t, "stop loss", sig.StopLoss, 98, 1e-9)
	// risk = 101-98 = 3, tp = 101 + 3*2 = 107
	assertClose(t, "take profit", sig.TakeProfit, 107, 1e-9)
}

func TestEvaluateSignal_Short(t *testing.T) {
	// Failed breakout: the candle pierced VAH=200 intrabar but closed
	// back below it.
	vp := profileWith(100, 150, 200)
	window := []models.Candle{makeCandle(190, 205, 198, 10, 0)}

	sig, err := EvaluateSignal(window, vp, 2.0)
	if err != nil {
		t.Fatalf("EvaluateSignal failed: %v", err)
	}

	if sig.Kind != models.SignalShort {
		t.Fatalf("expected SHORT, got %s", sig.Kind)
	}
	assertClose(t, "entry", sig.Entry, 198, 1e-9)
	assertClose(t, "stop loss", sig.StopLoss, 205, 1e-9)
	// risk = 205-198 = 7, tp = 198 - 7*2 = 184
	assertClose(t, "take profit", sig.TakeProfit, 184, 1e-9)
}

func TestEvaluateSignal_Wait(t *testing.T) {
	// Candle entirely inside the value area.
	vp := profileWith(100, 150, 200)
	window := []models.Candle{makeCandle(110, 190, 150, 10, 0)}

	sig, err := EvaluateSignal(window, vp, 2.0)
	if err != nil {
		t.Fatalf("EvaluateSignal failed: %v", err)
	}

	if sig.Kind != models.SignalWait {
		t.Fatalf("expected WAIT, got %s", sig.Kind)
	}
	if sig.Entry != 0 || sig.StopLoss != 0 || sig.TakeProfit != 0 {
		t.Errorf("WAIT must carry no entry/stop/target, got %+v", sig)
	}
	if sig.Actionable() {
		t.Error("WAIT signal must not be actionable")
	}
}

func TestEvaluateSignal_LongWinsWhenBothConditionsHold(t *testing.T) {
	// A candle spanning a narrow value area and closing inside it
	// satisfies both piercing conditions; LONG is evaluated first.
	vp := profileWith(150, 151, 152)
	window := []models.Candle{makeCandle(140, 160, 151, 10, 0)}

	sig, err := EvaluateSignal(window, vp, 2.0)
	if err != nil {
		t.Fatalf("EvaluateSignal failed: %v", err)
	}
	if sig.Kind != models.SignalLong {
		t.Errorf("expected LONG to win, got %s", sig.Kind)
	}
}

func TestEvaluateSignal_NoProfileMeansWait(t *testing.T) {
	window := []models.Candle{makeCandle(98, 105, 101, 10, 0)}

	for _, vp := range []*models.VolumeProfile{nil, {Bins: nil}} {
		sig, err := EvaluateSignal(window, vp, 2.0)
		if err != nil {
			t.Fatalf("EvaluateSignal failed: %v", err)
		}
		if sig.Kind != models.SignalWait {
			t.Errorf("expected WAIT without a profile, got %s", sig.Kind)
		}
	}
}

func TestEvaluateSignal_InvalidRiskReward(t *testing.T) {
	vp := profileWith(100, 150, 200)
	window := []models.Candle{makeCandle(98, 105, 101, 10, 0)}

	for _, rr := range []float64{0, -1} {
		if _, err := EvaluateSignal(window, vp, rr); err == nil {
			t.Errorf("riskReward=%g: expected error, got nil", rr)
		}
	}
}

func TestEvaluateSignal_EmptyWindow(t *testing.T) {
	vp := profileWith(100, 150, 200)
	if _, err := EvaluateSignal(nil, vp, 2.0); err != models.ErrEmptyWindow {
		t.Fatalf("expected ErrEmptyWindow, got %v", err)
	}
}
