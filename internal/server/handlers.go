package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/miwake/internal/extract"
	"github.com/hyperjump/miwake/internal/history"
	"github.com/hyperjump/miwake/internal/imaging"
	"github.com/hyperjump/miwake/internal/models"
	"github.com/hyperjump/miwake/internal/store"
)

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req models.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = s.cfg.Extract.DefaultMethod
	}
	extractor, ok := s.extractors.Get(method)
	if !ok {
		s.logger.Warn("classify request with unsupported method", zap.String("method", method))
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported method %q (supported: %s)", method, strings.Join(s.extractors.Methods(), ", ")))
		return
	}
	if len(req.Images) == 0 {
		s.respondError(w, http.StatusBadRequest, "images field missing or empty")
		return
	}

	st := s.store.Load()
	s.logger.Debug("classify request",
		zap.String("method", method),
		zap.Int("images", len(req.Images)),
		zap.Int("store_records", st.Len()))

	results := make(models.ClassifyResponse, len(req.Images))
	for imageID, encoded := range req.Images {
		pred, err := s.classifyOne(r, st, extractor, method, imageID, encoded)
		if err != nil {
			s.logger.Error("classification failed",
				zap.String("image_id", imageID),
				zap.String("method", method),
				zap.Error(err))
			if errors.Is(err, models.ErrRequestParams) {
				s.respondError(w, http.StatusBadRequest, err.Error())
			} else {
				s.respondError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		results[imageID] = pred
	}

	s.respondJSON(w, http.StatusOK, results)
}

// classifyOne decodes, embeds, and classifies a single request image.
// Caller mistakes (bad base64, undecodable bytes) wrap
// models.ErrRequestParams; extraction and search failures come back as
// internal errors. Every error names the offending image id.
func (s *Server) classifyOne(r *http.Request, st *store.Store, extractor extract.Extractor, method, imageID, encoded string) (models.Prediction, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: image %q: invalid base64", models.ErrRequestParams, imageID)
	}
	img, err := imaging.Decode(buf)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%w: image %q: undecodable image", models.ErrRequestParams, imageID)
	}
	vec, err := extractor.Extract(r.Context(), img)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("image %q: %w", imageID, err)
	}
	class, score, err := s.classifier.Classify(vec, st, method)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("image %q: %w", imageID, err)
	}
	s.recordHistory(r, imageID, method, class, score)
	return models.Prediction{Class: class, Score: fmt.Sprintf("%.3f", score)}, nil
}

// recordHistory writes the decision to the audit log. Best-effort: a write
// failure is logged and never fails the request.
func (s *Server) recordHistory(r *http.Request, imageID, method, class string, score float64) {
	if s.history == nil {
		return
	}
	entry := &history.Entry{ImageID: imageID, Method: method, Class: class, Score: score}
	if err := s.history.Record(r.Context(), entry); err != nil {
		s.logger.Warn("history record failed", zap.String("image_id", imageID), zap.Error(err))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.store.Load()
	resp := map[string]interface{}{
		"store_records":         st.Len(),
		"store_methods":         st.Methods(),
		"store_fingerprint":     st.Fingerprint(),
		"index_cache_size":      s.classifier.CacheSize(),
		"extract_methods":       s.extractors.Methods(),
		"default_method":        s.cfg.Extract.DefaultMethod,
		"recommended_threshold": s.cfg.Classify.RecommendedThreshold,
	}
	if s.history != nil {
		if n, err := s.history.Count(r.Context()); err == nil {
			resp["history_records"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
