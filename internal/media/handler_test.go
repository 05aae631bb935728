package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"mediatrakker/internal/storage/memory"
	"mediatrakker/pkg/models"
)

func TestGetByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.New()
	rec, _, err := store.Media().InsertIfAbsent(context.Background(), models.MediaRecord{
		ExternalID: "550", Type: models.TypeMovie, Title: "Fight Club",
	})
	if err != nil {
		t.Fatal(err)
	}

	router := gin.New()
	NewHandler(store.Media()).RegisterRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/media/"+rec.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got models.MediaWire
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != rec.ID || got.Title != "Fight Club" || got.MediaType != models.TypeMovie {
		t.Errorf("got %+v", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/media/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing id: status = %d, want 404", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "media item not found" {
		t.Errorf("error = %q", resp["error"])
	}
}
