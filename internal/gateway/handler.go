// Package gateway is the public edge. Marketplace routes pass through to
// the API service; the weather and crop-diagnosis routes front external
// providers so mobile clients talk to a single host.
package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	apiProxy       *ServiceProxy
	weatherProxy   *ServiceProxy
	diagnosisProxy *ServiceProxy
	logger         *slog.Logger
}

func NewHandler(apiProxy, weatherProxy, diagnosisProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		apiProxy:       apiProxy,
		weatherProxy:   weatherProxy,
		diagnosisProxy: diagnosisProxy,
		logger:         logger,
	}
}

// HandleAPI forwards marketplace traffic unchanged. The API service does its
// own routing; the gateway only strips nothing and adds nothing.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.apiProxy, r.URL.Path)
}

func (h *Handler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	path := strings.Replace(r.URL.Path, "/weather/", "/v1/forecast/", 1)
	h.proxyRequest(w, r, h.weatherProxy, path)
}

func (h *Handler) HandleDiagnosis(w http.ResponseWriter, r *http.Request) {
	path := strings.Replace(r.URL.Path, "/diagnosis/", "/v1/identify/", 1)
	h.proxyRequest(w, r, h.diagnosisProxy, path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
