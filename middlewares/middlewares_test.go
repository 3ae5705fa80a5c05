package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"urbanconnect-be/models"
	"urbanconnect-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, role models.Role) string {
	t.Helper()
	tok, err := utils.GenerateToken(utils.Claims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   string(role),
		Name:   "Tester",
	}, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func router() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware("secret"), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentActor(c).Name)
	})
	r.GET("/admin", AuthMiddleware("secret"), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/limited", AuthMiddleware("secret"), IssueRateLimiter(nil, "issue-limit", 1), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{"no token", "/me", "", "", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc.def.ghi", "", http.StatusUnauthorized},
		{"bearer", "/me", "Bearer " + token(t, models.RoleCitizen), "", http.StatusOK},
		{"cookie", "/me", "", token(t, models.RoleCitizen), http.StatusOK},
		{"citizen on admin route", "/admin", "Bearer " + token(t, models.RoleCitizen), "", http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + token(t, models.RoleAdmin), "", http.StatusNoContent},
	}
	r := router()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestWrongSecretRejected(t *testing.T) {
	tok, _ := utils.GenerateToken(utils.Claims{UserID: primitive.NewObjectID().Hex()}, "other", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	r := router()
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, models.RoleCitizen))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
}
