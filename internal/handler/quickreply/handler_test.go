package quickreply

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/quickreply"
)

func TestListQuickReplies(t *testing.T) {
	r := chi.NewRouter()
	New(quickreply.NewMemoryStore(quickreply.Seed())).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/quick-replies", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got []quickreply.QuickReply
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 4 || got[3].ID != "hours" || got[3].Label != "⏰ Jam Buka" {
		t.Fatalf("unexpected quick replies: %+v", got)
	}
}
