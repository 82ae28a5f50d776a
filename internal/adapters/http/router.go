package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/insight-assistant/internal/core/ports"
	"github.com/kirillkom/insight-assistant/internal/observability/metrics"
)

type Router struct {
	answerer ports.QuestionAnswerer
	metrics  *metrics.PipelineMetrics
	service  string
}

func NewRouter(answerer ports.QuestionAnswerer, pipelineMetrics *metrics.PipelineMetrics, service string) *Router {
	return &Router{
		answerer: answerer,
		metrics:  pipelineMetrics,
		service:  service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordQuestion(rt.service, "error", 0)
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		status := "ok"
		if answer.Degraded {
			status = "degraded"
		}
		rt.metrics.RecordQuestion(rt.service, status, len(answer.Evidence))
		rt.metrics.RecordStage(rt.service, "ask", time.Since(start))
		for _, degradation := range answer.Notes {
			rt.metrics.RecordDegradation(rt.service, string(degradation.Backend))
		}
	}

	writeJSON(w, http.StatusOK, answer)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
