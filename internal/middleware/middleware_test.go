package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
	"github.com/yigit/transcriptgpa/internal/pkg/auth"
)

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		SessionTokenExp: time.Hour,
		TokenIssuer:     "transcriptgpa-test",
	})
}

func TestSessionAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtService := newJWT()
	mw := NewAuthMiddleware(jwtService)

	r := gin.New()
	r.GET("/transcripts/:id", mw.SessionAuth("id"), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextSessionID).(uuid.UUID).String())
	})

	own := uuid.New()
	token, _, err := jwtService.GenerateSessionToken(own)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/transcripts/" + own.String(), "", http.StatusUnauthorized},
		{"garbage token", "/transcripts/" + own.String(), "Bearer a.b.c", http.StatusUnauthorized},
		{"other session", "/transcripts/" + uuid.NewString(), "Bearer " + token, http.StatusForbidden},
		{"own session", "/transcripts/" + own.String(), "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status: want=%d got=%d body=%s", tt.status, w.Code, w.Body.String())
			}
			if tt.status == http.StatusOK && w.Body.String() != own.String() {
				t.Fatalf("context session: want=%s got=%s", own, w.Body.String())
			}
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"wrapped not found", fmt.Errorf("loading: %w", apperrors.ErrSessionNotFound), http.StatusNotFound},
		{"custom record", apperrors.NewCustomError(apperrors.ErrRecordNotFound, "no course record at index 9"), http.StatusNotFound},
		{"invalid record", apperrors.ErrInvalidRecord, http.StatusUnprocessableEntity},
		{"bad request", apperrors.NewBadRequestError("invalid limit"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
			HandleAPIError(c, tt.err)
			if w.Code != tt.status {
				t.Fatalf("status: want=%d got=%d", tt.status, w.Code)
			}
		})
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LimitBody(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	for body, want := range map[string]int{"short": http.StatusOK, "definitely too long": http.StatusRequestEntityTooLarge} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if w.Code != want {
			t.Fatalf("body %q: want=%d got=%d", body, want, w.Code)
		}
	}
}
