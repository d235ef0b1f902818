package override

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fairplayhq/nilguard/internal/decision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(svc *Service) *gin.Engine {
	r := gin.New()
	h := NewHandler(svc)
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterProtectedRoutes(api)
	return r
}

func applyBody(status, justification string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"newStatus":     status,
		"justification": justification,
		"officerId":     "off_0123456789ab",
		"officerName":   "Dana Reyes",
	})
	return b
}

func TestApplyOverrideEndpoint(t *testing.T) {
	env := newTestEnv(t)
	dealID := env.dealWithStatus(t, decision.StatusRed)
	r := newTestRouter(env.service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/deals/"+dealID+"/overrides",
		bytes.NewReader(applyBody("green", validJustification)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Override *Override `json:"override"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Override.NewStatus != decision.StatusGreen {
		t.Errorf("Expected green override, got %s", resp.Override.NewStatus)
	}
}

func TestApplyOverrideEndpoint_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	redDeal := env.dealWithStatus(t, decision.StatusRed)
	greenDeal := env.dealWithStatus(t, decision.StatusGreen)
	r := newTestRouter(env.service)

	tests := []struct {
		name     string
		dealID   string
		body     []byte
		wantCode int
		wantErr  string
	}{
		{"red target", redDeal, applyBody("red", validJustification), http.StatusBadRequest, "invalid_target_status"},
		{"short justification", redDeal, applyBody("green", "nope"), http.StatusBadRequest, "justification_too_short"},
		{"green deal", greenDeal, applyBody("green", validJustification), http.StatusConflict, "not_overridable"},
		{"missing deal", "deal_missing0000", applyBody("green", validJustification), http.StatusNotFound, "deal_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/deals/"+tt.dealID+"/overrides", bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			var resp map[string]interface{}
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp["error"] != tt.wantErr {
				t.Errorf("Expected error %q, got %v", tt.wantErr, resp["error"])
			}
		})
	}
}

func TestListOverridesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	dealID := env.dealWithStatus(t, decision.StatusRed)
	r := newTestRouter(env.service)

	// Empty history
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/deals/"+dealID+"/overrides", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	if _, err := env.service.Apply(req.Context(), dealID, ApplyRequest{
		NewStatus:     decision.StatusYellow,
		Justification: validJustification,
		OfficerID:     "off_0123456789ab",
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("GET", "/api/v1/deals/"+dealID+"/overrides", nil)
	r.ServeHTTP(w2, req2)

	var resp struct {
		Overrides []*Override `json:"overrides"`
		Count     int         `json:"count"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("Expected 1 override, got %d", resp.Count)
	}
}

func TestGetActiveOverrideEndpoint_NoneActive(t *testing.T) {
	env := newTestEnv(t)
	dealID := env.dealWithStatus(t, decision.StatusRed)
	r := newTestRouter(env.service)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/deals/"+dealID+"/overrides/active", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
