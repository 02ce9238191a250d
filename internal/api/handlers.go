package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/vp-back/internal/profile"
	"github.com/vp-back/pkg/config"
	"github.com/vp-back/pkg/models"
)

// computeParams are the per-request overrides for profile computation
type computeParams struct {
	windowLength int
	opts         profile.Options
	overridden   bool
}

// parseComputeParams reads bins, va, rr and limit query parameters,
// falling back to the configured defaults.
func parseComputeParams(r *http.Request, cfg *config.ProfileConfig) (computeParams, error) {
	p := computeParams{
		windowLength: cfg.WindowLength,
		opts: profile.Options{
			BinCount:   cfg.BinCount,
			VAFraction: cfg.VAFraction,
			RiskReward: cfg.RiskReward,
		},
	}

	q := r.URL.Query()

	if v := q.Get("bins"); v != "" {
		bins, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid bins parameter: %q", v)
		}
		p.opts.BinCount = bins
		p.overridden = true
	}

	if v := q.Get("va"); v != "" {
		va, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid va parameter: %q", v)
		}
		p.opts.VAFraction = va
		p.overridden = true
	}

	if v := q.Get("rr"); v != "" {
		rr, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid rr parameter: %q", v)
		}
		p.opts.RiskReward = rr
		p.overridden = true
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid limit parameter: %q", v)
		}
		if limit < config.MinWindowLength || limit > config.MaxWindowLength {
			return p, fmt.Errorf("limit must be between %d and %d", config.MinWindowLength, config.MaxWindowLength)
		}
		p.windowLength = limit
		p.overridden = true
	}

	if err := p.opts.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

// symbolsCacheKey holds the registry response for a short TTL so that
// list requests do not hit MySQL on every poll.
const symbolsCacheKey = "symbols:registry"

// handleGetSymbols returns the tracked symbols
func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	// Prefer the database registry when available
	if s.mysqlDB != nil {
		var symbols []*models.SymbolInfo
		if hit, err := s.redisCache.GetJSON(r.Context(), symbolsCacheKey, &symbols); err == nil && hit {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"symbols": symbols,
				"count":   len(symbols),
			})
			return
		}

		symbols, err := s.mysqlDB.GetSymbols(r.Context())
		if err == nil && len(symbols) > 0 {
			if cacheErr := s.redisCache.SetJSON(r.Context(), symbolsCacheKey, symbols, time.Minute); cacheErr != nil {
				s.logger.WithError(cacheErr).Debug("Failed to cache symbol registry")
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"symbols": symbols,
				"count":   len(symbols),
			})
			return
		}
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load symbols from database")
		}
	}

	tracked := s.calculator.Symbols()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": tracked,
		"count":   len(tracked),
	})
}

// handleGetCandles returns the candle window used for profile computation
func (s *Server) handleGetCandles(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	params, err := parseComputeParams(r, &s.cfg.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candles, err := s.redisCache.GetCandles(r.Context(), symbol, s.cfg.Profile.Interval)
	if err != nil || len(candles) < params.windowLength {
		candles, err = s.calculator.FetchWindow(r.Context(), symbol, params.windowLength)
		if err != nil {
			s.handleComputeError(w, symbol, err)
			return
		}
	}

	if len(candles) > params.windowLength {
		candles = candles[len(candles)-params.windowLength:]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":   symbol,
		"interval": s.cfg.Profile.Interval,
		"candles":  candles,
		"count":    len(candles),
	})
}

// handleGetProfile returns the volume profile for a symbol
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	params, err := parseComputeParams(r, &s.cfg.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.overridden {
		vp, _, err := s.calculator.ComputeWith(r.Context(), symbol, params.windowLength, params.opts)
		if err != nil {
			s.handleComputeError(w, symbol, err)
			return
		}
		writeJSON(w, http.StatusOK, vp)
		return
	}

	vp, err := s.calculator.GetProfile(r.Context(), symbol)
	if err != nil {
		s.handleComputeError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, vp)
}

// handleGetSignal returns the current trade signal for a symbol
func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	params, err := parseComputeParams(r, &s.cfg.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.overridden {
		_, sig, err := s.calculator.ComputeWith(r.Context(), symbol, params.windowLength, params.opts)
		if err != nil {
			s.handleComputeError(w, symbol, err)
			return
		}
		writeJSON(w, http.StatusOK, sig)
		return
	}

	sig, err := s.calculator.GetSignal(r.Context(), symbol)
	if err != nil {
		s.handleComputeError(w, symbol, err)
		return
	}

	writeJSON(w, http.StatusOK, sig)
}

// handleGetLevelHistory returns historical POC/VAH/VAL levels for a symbol
func (s *Server) handleGetLevelHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if s.influxDB == nil {
		writeError(w, http.StatusServiceUnavailable, "level history not available")
		return
	}

	to := time.Now().UTC()
	from := to.Add(-7 * 24 * time.Hour)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		to = t
	}

	levels, err := s.influxDB.GetLevelHistory(r.Context(), symbol, s.cfg.Profile.Interval, from, to)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load level history")
		writeError(w, http.StatusInternalServerError, "failed to load level history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"levels": levels,
		"count":  len(levels),
	})
}

// handleComputeError maps domain errors to HTTP status codes
func (s *Server) handleComputeError(w http.ResponseWriter, symbol string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNoData), errors.Is(err, models.ErrEmptyWindow):
		writeError(w, http.StatusNotFound, fmt.Sprintf("no data for symbol %s", symbol))
	default:
		s.logger.WithError(err).WithField("symbol", symbol).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
