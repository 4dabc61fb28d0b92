package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func agencyRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAgencyHandler()
	router := gin.New()
	router.GET("/api/agencies", handler.List)
	router.GET("/api/agencies/:symbol", handler.Lookup)
	return router
}

func TestAgencyList(t *testing.T) {
	w := httptest.NewRecorder()
	agencyRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agencies", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Agencies []struct {
			Key string `json:"key"`
		} `json:"agencies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Agencies) == 0 {
		t.Fatal("expected a non-empty registry")
	}
	if resp.Agencies[0].Key != "OU" {
		t.Errorf("expected OU first, got %s", resp.Agencies[0].Key)
	}
}

func TestAgencyLookup(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		found    bool
		fullName string
	}{
		{"exact key", "OU", true, "Orthodox Union"},
		{"partial match", "OU%20Pareve", true, "Orthodox Union"},
		{"miss", "Ninguno", false, ""},
	}

	router := agencyRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agencies/"+tt.symbol, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}

			var resp struct {
				Found  bool `json:"found"`
				Agency struct {
					FullName string `json:"full_name"`
				} `json:"agency"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Found != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, resp.Found)
			}
			if tt.found && resp.Agency.FullName != tt.fullName {
				t.Errorf("expected %q, got %q", tt.fullName, resp.Agency.FullName)
			}
		})
	}
}
