package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/onnwee/paperscape-layout/internal/apierr"
	"github.com/onnwee/paperscape-layout/internal/cache"
	"github.com/onnwee/paperscape-layout/internal/errs"
	"github.com/onnwee/paperscape-layout/internal/logger"
	"github.com/onnwee/paperscape-layout/internal/middleware"
	"github.com/onnwee/paperscape-layout/internal/server"
)

// LayoutHandler exposes server.Engine's core operations over HTTP,
// following the teacher's *db.Queries-backed handler constructor pattern
// (NewHandler(q) -> methods) with the engine in place of the query object.
type LayoutHandler struct {
	engine    *server.Engine
	cache     cache.Cache
	validator middleware.SanitizeInput
}

// NewLayoutHandler wires a LayoutHandler around a running Engine. c may be
// nil, in which case Snapshot always recomputes (matching the teacher's
// handlers when no cache.Cache is configured).
func NewLayoutHandler(engine *server.Engine, c cache.Cache) *LayoutHandler {
	return &LayoutHandler{engine: engine, cache: c}
}

type rangeRequest struct {
	IDStart   int64 `json:"id_start"`
	IDEnd     int64 `json:"id_end"`
	AgeWeaken bool  `json:"age_weaken"`
}

type rangeResponse struct {
	NumPapers         int `json:"num_papers"`
	NumCoarserLayouts int `json:"num_coarser_layouts"`
	NumFinerLayouts   int `json:"num_finer_layouts"`
}

// SelectRange handles POST /api/v1/layout/range.
func (h *LayoutHandler) SelectRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.validator.ValidateIDRange(req.IDStart, req.IDEnd); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id_start/id_end", err.Error()))
		return
	}

	sel, err := h.engine.SelectRange(r.Context(), req.IDStart, req.IDEnd, req.AgeWeaken)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rangeResponse{
		NumPapers:         sel.NumPapers,
		NumCoarserLayouts: sel.NumCoarserLayouts,
		NumFinerLayouts:   sel.NumFinerLayouts,
	})
}

type iterateRequest struct {
	HoldStillID int64 `json:"hold_still_id"`
	Boost       bool  `json:"boost"`
}

type iterateResponse struct {
	Converged bool    `json:"converged"`
	Energy    float64 `json:"energy"`
	XSD       float64 `json:"x_sd"`
	YSD       float64 `json:"y_sd"`
}

// Iterate handles POST /api/v1/layout/iterate.
func (h *LayoutHandler) Iterate(w http.ResponseWriter, r *http.Request) {
	var req iterateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}
	}

	result, err := h.engine.Iterate(r.Context(), req.HoldStillID, req.Boost)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, iterateResponse{
		Converged: result.Converged,
		Energy:    result.Energy,
		XSD:       result.XSD,
		YSD:       result.YSD,
	})
}

// Snapshot handles GET /api/v1/layout/snapshot. The response is cached
// under a key derived from the engine's generation counter (bumped by
// every mutating call), so repeated polling between Iterate calls skips
// re-marshaling the same positions, following the teacher's
// internal/api/handlers/version.go cache-then-fetch pattern.
func (h *LayoutHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		key := fmt.Sprintf("layout:snapshot:%d", h.engine.Generation())
		if cached, found := h.cache.Get(key); found {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write(cached)
			return
		}

		points, err := h.engine.Snapshot(r.Context())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		data, err := json.Marshal(points)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("failed to serialize snapshot"))
			return
		}
		h.cache.Set(key, data, 0)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "MISS")
		_, _ = w.Write(data)
		return
	}

	points, err := h.engine.Snapshot(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// Coarsen handles POST /api/v1/layout/coarsen.
func (h *LayoutHandler) Coarsen(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Coarsen(r.Context()); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Refine handles POST /api/v1/layout/refine.
func (h *LayoutHandler) Refine(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refine(r.Context()); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type joltRequest struct {
	Amount float64 `json:"amount"`
}

// Jolt handles POST /api/v1/layout/jolt.
func (h *LayoutHandler) Jolt(w http.ResponseWriter, r *http.Request) {
	var req joltRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.engine.Jolt(r.Context(), req.Amount); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rotateRequest struct {
	Angle float64 `json:"angle"`
}

// Rotate handles POST /api/v1/layout/rotate.
func (h *LayoutHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.engine.Rotate(r.Context(), req.Angle); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Flip handles POST /api/v1/layout/flip.
func (h *LayoutHandler) Flip(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.FlipX(r.Context()); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ToggleCloseRepulsion handles POST /api/v1/layout/toggle/close-repulsion.
func (h *LayoutHandler) ToggleCloseRepulsion(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ToggleDoCloseRepulsion(r.Context()); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ToggleUseRefFreq handles POST /api/v1/layout/toggle/use-ref-freq.
func (h *LayoutHandler) ToggleUseRefFreq(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ToggleUseRefFreq(r.Context()); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ToggleTred handles POST /api/v1/layout/toggle/tred.
func (h *LayoutHandler) ToggleTred(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ToggleDoTred(r.Context()); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adjustFactorRequest struct {
	Factor float64 `json:"factor"`
}

// AdjustAntiGravity handles POST /api/v1/layout/adjust/anti-gravity.
func (h *LayoutHandler) AdjustAntiGravity(w http.ResponseWriter, r *http.Request) {
	var req adjustFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.engine.AdjustAntiGravity(r.Context(), req.Factor); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AdjustLinkStrength handles POST /api/v1/layout/adjust/link-strength.
func (h *LayoutHandler) AdjustLinkStrength(w http.ResponseWriter, r *http.Request) {
	var req adjustFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.engine.AdjustLinkStrength(r.Context(), req.Factor); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adjustCloseRepulsionRequest struct {
	AFactor float64 `json:"a_factor"`
	BFactor float64 `json:"b_factor"`
}

// AdjustCloseRepulsion handles POST /api/v1/layout/adjust/close-repulsion.
func (h *LayoutHandler) AdjustCloseRepulsion(w http.ResponseWriter, r *http.Request) {
	var req adjustCloseRepulsionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.engine.AdjustCloseRepulsion(r.Context(), req.AFactor, req.BFactor); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adjustCloseRepulsion2Request struct {
	CFactor float64 `json:"c_factor"`
	DDelta  float64 `json:"d_delta"`
}

// AdjustCloseRepulsion2 handles POST /api/v1/layout/adjust/close-repulsion2.
func (h *LayoutHandler) AdjustCloseRepulsion2(w http.ResponseWriter, r *http.Request) {
	var req adjustCloseRepulsion2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	if err := h.engine.AdjustCloseRepulsion2(r.Context(), req.CFactor, req.DDelta); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeEngineError translates an errs.Error (or the "no selection yet"
// sentinel) from the core into the matching structured apierr response.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := err.(*errs.Error)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(err.Error()))
		return
	}
	switch e.Kind {
	case errs.InvalidRange:
		apierr.WriteErrorWithContext(w, r, apierr.LayoutInvalidRange(e.Msg))
	case errs.Degenerate:
		apierr.WriteErrorWithContext(w, r, apierr.LayoutDegenerate(e.Msg))
	case errs.Overflow:
		apierr.WriteErrorWithContext(w, r, apierr.LayoutOverflow(e.Msg))
	default:
		apierr.WriteErrorWithContext(w, r, apierr.LayoutNotSelected())
	}
}
