package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	"github.com/yungbote/fabricator/internal/platform/ctxutil"
)

func TestRespondDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", domainagg.Validation("op", "bad id"), http.StatusBadRequest, "validation", "op: bad id (validation)"},
		{"not found", domainagg.NotFound("op", "gone"), http.StatusNotFound, "not_found", "op: gone (not_found)"},
		{"privilege", domainagg.Privilege("op", "no"), http.StatusUnprocessableEntity, "privilege", "op: no (privilege)"},
		{"fatal hides detail", domainagg.Fatal("op", errors.New("disk on fire")), http.StatusInternalServerError, "fatal", "Internal Server Error"},
		{"uncoded", errors.New("boom"), http.StatusInternalServerError, "internal", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{RequestID: "r-1"}))

			RespondDomainError(c, tt.err)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tt.code || env.Error.Message != tt.message || env.Error.RequestID != "r-1" {
				t.Fatalf("body = %+v", env.Error)
			}
		})
	}
}
