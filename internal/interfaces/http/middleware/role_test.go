package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetrent/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRoleTestRouter(role string, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if role != "" {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.JWTRoleKey, role)
			c.Next()
		})
	}
	r.GET("/guarded", guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	t.Run("allows matching role", func(t *testing.T) {
		r := newRoleTestRouter("admin", middleware.RequireAdmin())
		assert.Equal(t, http.StatusOK, doGet(r, "/guarded", nil).Code)
	})

	t.Run("rejects other role with 403", func(t *testing.T) {
		r := newRoleTestRouter("driver", middleware.RequireAdmin())
		w := doGet(r, "/guarded", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})

	t.Run("rejects missing role with 401", func(t *testing.T) {
		r := newRoleTestRouter("", middleware.RequireDriver())
		assert.Equal(t, http.StatusUnauthorized, doGet(r, "/guarded", nil).Code)
	})

	t.Run("accepts any of several roles", func(t *testing.T) {
		r := newRoleTestRouter("driver", middleware.RequireRole("admin", "driver"))
		assert.Equal(t, http.StatusOK, doGet(r, "/guarded", nil).Code)
	})
}

func TestCronSecret(t *testing.T) {
	t.Run("accepts correct secret", func(t *testing.T) {
		r := newRoleTestRouter("", middleware.CronSecret("s3cr3t"))
		w := doGet(r, "/guarded", map[string]string{"X-Cron-Secret": "s3cr3t"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		r := newRoleTestRouter("", middleware.CronSecret("s3cr3t"))
		w := doGet(r, "/guarded", map[string]string{"X-Cron-Secret": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		r := newRoleTestRouter("", middleware.CronSecret("s3cr3t"))
		assert.Equal(t, http.StatusUnauthorized, doGet(r, "/guarded", nil).Code)
	})

	t.Run("empty configured secret closes the endpoint", func(t *testing.T) {
		r := newRoleTestRouter("", middleware.CronSecret(""))
		w := doGet(r, "/guarded", map[string]string{"X-Cron-Secret": ""})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
