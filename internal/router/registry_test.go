package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRegistryMountsModulesUnderPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(gin.New(), "")
	reg.Use(func(c *gin.Context) { c.Set("mw", "applied") })
	reg.Add(ModuleFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("mw")) })
	}))
	reg.RegisterAll()

	w := httptest.NewRecorder()
	reg.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "applied" {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	reg.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"route not found"`) {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}
}
