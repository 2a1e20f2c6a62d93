package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_HandleAPI(t *testing.T) {
	t.Run("forwards path, query and identity headers", func(t *testing.T) {
		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders" {
				t.Errorf("expected /orders, got %s", r.URL.Path)
			}
			if r.URL.RawQuery != "status=pending" {
				t.Errorf("expected status=pending, got %s", r.URL.RawQuery)
			}
			if r.Header.Get("X-User-ID") != "buyer-1" {
				t.Errorf("expected X-User-ID forwarded, got %q", r.Header.Get("X-User-ID"))
			}
			if r.Header.Get("X-User-Role") != "buyer" {
				t.Errorf("expected X-User-Role forwarded, got %q", r.Header.Get("X-User-Role"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[{"id":"1"}]`))
		}))
		defer apiServer.Close()

		handler := NewHandler(
			NewServiceProxy(apiServer.URL, apiServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/orders?status=pending", nil)
		req.Header.Set("X-User-ID", "buyer-1")
		req.Header.Set("X-User-Role", "buyer")
		rec := httptest.NewRecorder()

		handler.HandleAPI(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Body.String() != `[{"id":"1"}]` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("forwards POST body", func(t *testing.T) {
		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"shipping_city":"Nouakchott"}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer apiServer.Close()

		handler := NewHandler(
			NewServiceProxy(apiServer.URL, apiServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"shipping_city":"Nouakchott"}`))
		rec := httptest.NewRecorder()

		handler.HandleAPI(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when the API service is unreachable", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		handler.HandleAPI(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" {
			t.Errorf("expected 'service unavailable', got %s", resp["error"])
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"illegal transition"}`))
		}))
		defer apiServer.Close()

		handler := NewHandler(
			NewServiceProxy(apiServer.URL, apiServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodPost, "/orders/1/transition", nil)
		rec := httptest.NewRecorder()

		handler.HandleAPI(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleWeather(t *testing.T) {
	t.Run("rewrites prefix for the weather provider", func(t *testing.T) {
		weatherServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/forecast/nouakchott" {
				t.Errorf("expected /v1/forecast/nouakchott, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"temp_c":34}`))
		}))
		defer weatherServer.Close()

		handler := NewHandler(
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy(weatherServer.URL, weatherServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/weather/nouakchott", nil)
		rec := httptest.NewRecorder()

		handler.HandleWeather(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when the provider is down", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/weather/nouakchott", nil)
		rec := httptest.NewRecorder()

		handler.HandleWeather(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleDiagnosis(t *testing.T) {
	diagnosisServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/identify/tomato" {
			t.Errorf("expected /v1/identify/tomato, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer diagnosisServer.Close()

	handler := NewHandler(
		NewServiceProxy("http://unused", http.DefaultClient),
		NewServiceProxy("http://unused", http.DefaultClient),
		NewServiceProxy(diagnosisServer.URL, diagnosisServer.Client()),
		discardLogger(),
	)

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/tomato", nil)
	rec := httptest.NewRecorder()

	handler.HandleDiagnosis(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}
