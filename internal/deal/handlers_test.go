package deal

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

func TestCreateDealEndpoint(t *testing.T) {
	svc, _ := newTestService(nil, nil, nil)
	r := newTestRouter(svc)

	body, _ := json.Marshal(map[string]interface{}{
		"athleteId":    "ath_0123456789ab",
		"counterparty": "Shoe Brand",
		"amount":       12000,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/deals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Deal *Deal `json:"deal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Deal.ID == "" || resp.Deal.AutomatedStatus != "pending" {
		t.Errorf("Unexpected deal: %+v", resp.Deal)
	}
}

func TestCreateDealEndpoint_MissingFields(t *testing.T) {
	svc, _ := newTestService(nil, nil, nil)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/deals", bytes.NewReader([]byte(`{"athleteId":"ath_1"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestGetDealEndpoint_NotFound(t *testing.T) {
	svc, _ := newTestService(nil, nil, nil)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/deals/deal_missing0000", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetStatusEndpoint(t *testing.T) {
	svc, _ := newTestService(nil, nil, nil)
	d := createTestDeal(t, svc, 5000)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/deals/"+d.ID+"/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["effectiveStatus"] != "pending" {
		t.Errorf("Expected pending, got %v", resp["effectiveStatus"])
	}
	if resp["openItem"] != true {
		t.Errorf("Expected open item, got %v", resp["openItem"])
	}
}

func TestRecordScoreEndpoint(t *testing.T) {
	svc, _ := newTestService(nil, nil, nil)
	d := createTestDeal(t, svc, 5000)
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/deals/"+d.ID+"/score",
		bytes.NewReader([]byte(`{"score": 65}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Deal *View `json:"deal"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Deal.EffectiveStatus != "yellow" {
		t.Errorf("Expected yellow, got %s", resp.Deal.EffectiveStatus)
	}
}

func TestListDealsEndpoint_Pagination(t *testing.T) {
	svc, _ := newTestService(nil, nil, nil)
	for i := 0; i < 5; i++ {
		createTestDeal(t, svc, 1000)
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/deals?limit=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Deals      []*View `json:"deals"`
		Count      int     `json:"count"`
		NextCursor string  `json:"nextCursor"`
		HasMore    bool    `json:"hasMore"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 2 || !resp.HasMore || resp.NextCursor == "" {
		t.Errorf("Expected paginated first page, got count=%d hasMore=%v", resp.Count, resp.HasMore)
	}

	// Walk to the next page
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest("GET", "/api/v1/deals?limit=10&cursor="+resp.NextCursor, nil)
	r.ServeHTTP(w2, req2)

	var resp2 struct {
		Deals   []*View `json:"deals"`
		HasMore bool    `json:"hasMore"`
	}
	json.Unmarshal(w2.Body.Bytes(), &resp2)
	if len(resp2.Deals) != 3 || resp2.HasMore {
		t.Errorf("Expected final page of 3, got %d hasMore=%v", len(resp2.Deals), resp2.HasMore)
	}
}
