package bulk

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
	h.RegisterProtectedRoutes(api)
	return r
}

func TestBulkEndpoint(t *testing.T) {
	env := newTestEnv(t)
	red := env.dealWithStatus(t, decision.StatusRed)
	green := env.dealWithStatus(t, decision.StatusGreen)
	r := newTestRouter(env.service)

	body, _ := json.Marshal(map[string]interface{}{
		"itemIds": []string{red, green},
		"action":  "approve",
		"params": map[string]interface{}{
			"justification": validJustification,
			"officerId":     "off_0123456789ab",
			"officerName":   "Dana Reyes",
		},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/bulk", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Result *Result `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Result.Succeeded) != 1 || resp.Result.Succeeded[0] != red {
		t.Errorf("Expected succeeded [%s], got %v", red, resp.Result.Succeeded)
	}
	if resp.Result.Failed[green] != "NotOverridable" {
		t.Errorf("Expected NotOverridable for %s, got %v", green, resp.Result.Failed)
	}
}

func TestBulkEndpoint_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	r := newTestRouter(env.service)

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
		wantErr  string
	}{
		{
			"unknown action",
			map[string]interface{}{"itemIds": []string{"deal_x"}, "action": "escalate"},
			http.StatusBadRequest, "invalid_action",
		},
		{
			"empty batch",
			map[string]interface{}{"itemIds": []string{}, "action": "approve"},
			http.StatusBadRequest, "empty_batch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/bulk", bytes.NewReader(body))
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
