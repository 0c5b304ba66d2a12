package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"motoroute/pkg/rules"
	"motoroute/pkg/testfixture"
)

func TestHandleRouteSuccess(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{NumNodes: 12})

	body := `{"start":{"lat":1,"lng":1},"finish":{"lat":7,"lng":7}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}

	var resp RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Routes) == 0 {
		t.Fatalf("expected at least one route")
	}
	if len(resp.Routes[0].Segments) == 0 {
		t.Errorf("expected the first route to have segments")
	}
}

func TestHandleRouteInvalidJSON(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{})

	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteMissingContentType(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{})

	body := `{"start":{"lat":1,"lng":1},"finish":{"lat":7,"lng":7}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteOutOfBounds(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{})

	body := `{"start":{"lat":91,"lng":1},"finish":{"lat":7,"lng":7}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRoutePointTooFar(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{})

	body := `{"start":{"lat":60,"lng":60},"finish":{"lat":7,"lng":7}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

// Mesh1Graph's 11-12 way is a separate component with no line to the
// rest of the mesh, so routing from it to point 7 can never succeed.
func TestHandleRouteNoRoute(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{})

	body := `{"start":{"lat":11,"lng":11},"finish":{"lat":7,"lng":7}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404. body: %s", w.Code, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	g := testfixture.Mesh1Graph()
	h := NewHandlers(g, rules.Default(), StatsResponse{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	g := testfixture.Mesh1Graph()
	stats := StatsResponse{NumNodes: 12, NumLines: 20, NumRules: 0}
	h := NewHandlers(g, rules.Default(), stats)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.NumNodes != 12 {
		t.Errorf("NumNodes = %d, want 12", resp.NumNodes)
	}
}
