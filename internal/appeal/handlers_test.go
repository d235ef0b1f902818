package appeal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
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

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestFileAppealEndpoint(t *testing.T) {
	env := newTestEnv(t)
	dealID := env.redDeal(t)
	r := newTestRouter(env.service)

	w := postJSON(r, "/api/v1/deals/"+dealID+"/appeals", map[string]interface{}{
		"athleteId": "ath_0123456789ab",
		"reason":    "The flagged terms were renegotiated before signing.",
		"documents": []string{"doc_contract_v2.pdf"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// A second filing conflicts
	w2 := postJSON(r, "/api/v1/deals/"+dealID+"/appeals", map[string]interface{}{
		"athleteId": "ath_0123456789ab",
		"reason":    "Still disagree.",
	})
	if w2.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w2.Code)
	}
	var resp map[string]interface{}
	json.Unmarshal(w2.Body.Bytes(), &resp)
	if resp["error"] != "appeal_already_open" {
		t.Errorf("Expected appeal_already_open, got %v", resp["error"])
	}
}

func TestResolveAppealEndpoint_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	dealID := env.redDeal(t)
	r := newTestRouter(env.service)

	a, err := env.service.File(httptest.NewRequest("GET", "/", nil).Context(), dealID, fileRequest())
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}

	w := postJSON(r, "/api/v1/appeals/"+a.ID+"/resolve", map[string]interface{}{
		"resolution": "modified",
		"officerId":  "off_0123456789ab",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "new_decision_required" {
		t.Errorf("Expected new_decision_required, got %v", resp["error"])
	}

	w2 := postJSON(r, "/api/v1/appeals/"+a.ID+"/resolve", map[string]interface{}{
		"resolution":  "reversed",
		"newDecision": "approved",
		"officerId":   "off_0123456789ab",
	})
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := postJSON(r, "/api/v1/appeals/"+a.ID+"/resolve", map[string]interface{}{
		"resolution": "upheld",
		"officerId":  "off_0123456789ab",
	})
	if w3.Code != http.StatusConflict {
		t.Errorf("Expected 409 for re-resolve, got %d", w3.Code)
	}
}

func TestQueueEndpoint(t *testing.T) {
	env := newTestEnv(t)
	r := newTestRouter(env.service)

	dealID := env.redDeal(t)
	if _, err := env.service.File(httptest.NewRequest("GET", "/", nil).Context(), dealID, fileRequest()); err != nil {
		t.Fatalf("File failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/appeals/queue", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Queue struct {
			Items     []json.RawMessage `json:"items"`
			Submitted int               `json:"submitted"`
		} `json:"queue"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Queue.Items) != 1 || resp.Queue.Submitted != 1 {
		t.Errorf("Expected 1 queued appeal, got %d", len(resp.Queue.Items))
	}
}
