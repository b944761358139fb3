package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sittichok/user-service/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     any    `json:"error"`
	RequestID string `json:"request_id"`
}

func authRouter(jwt *helpers.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", Auth(jwt), func(c *gin.Context) {
		uid, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": uid, "role": c.GetString(CtxRoleKey)})
	})
	return r
}

func TestAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("secret")
	valid, _, err := jwt.GenerateAccessToken(7, "member")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stale := jwt.WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) })
	expired, _, err := stale.GenerateAccessToken(7, "member")
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}
	forged, _, _ := helpers.NewJWTManager("other").GenerateAccessToken(7, "admin")

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing access token"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "missing access token"},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, "invalid access token"},
		{"forged", "Bearer " + forged, http.StatusUnauthorized, "invalid access token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "access token expired"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
	}

	r := authRouter(jwt)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusOK {
				var body struct {
					ID   int64  `json:"id"`
					Role string `json:"role"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.ID != 7 || body.Role != "member" {
					t.Fatalf("claims in context = %+v", body)
				}
				return
			}
			var env envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Success || env.Message != tt.message {
				t.Fatalf("envelope = %+v, want message %q", env, tt.message)
			}
			if env.RequestID == "" {
				t.Fatal("request_id missing from error envelope")
			}
		})
	}
}

func TestAuthExpiredAndInvalidAreDistinct(t *testing.T) {
	jwt := helpers.NewJWTManager("secret")
	expired, _, _ := jwt.WithClock(func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }).GenerateAccessToken(1, "member")

	r := authRouter(jwt)
	codes := map[string]any{}
	for name, tok := range map[string]string{"expired": expired, "invalid": expired + "x"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var env envelope
		_ = json.Unmarshal(w.Body.Bytes(), &env)
		codes[name] = env.Error
	}
	if codes["expired"] != "expired_token" || codes["invalid"] != "invalid_token" {
		t.Fatalf("error codes = %v", codes)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	incoming := uuid.NewString()
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"generated when absent", "", false},
		{"reused when valid", incoming, true},
		{"replaced when malformed", "abc; drop", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got != w.Body.String() {
				t.Fatalf("header %q != context %q", got, w.Body.String())
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("request id %q is not a uuid", got)
			}
			if tt.reuse != (got == tt.header) {
				t.Fatalf("got %q, incoming %q, reuse=%v", got, tt.header, tt.reuse)
			}
		})
	}
}

func TestRealIPAndKeys(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x/:id", func(c *gin.Context) {
		c.Set(CtxUserIDKey, int64(42))
		c.JSON(http.StatusOK, gin.H{
			"ip":      c.GetString("real_ip"),
			"ip_key":  KeyByIP()(c),
			"path":    KeyByIPAndPath()(c),
			"user":    KeyByUserID()(c),
			"private": AllowPrivateIP()(c),
		})
	})

	tests := []struct {
		name    string
		headers map[string]string
		ip      string
		private bool
	}{
		{"cloudflare header wins", map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.9", false},
		{"left-most forwarded", map[string]string{"X-Forwarded-For": "10.0.0.5, 198.51.100.1"}, "10.0.0.5", true},
		{"bad header ignored", map[string]string{"CF-Connecting-IP": "nope"}, "192.0.2.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			var body struct {
				IP      string `json:"ip"`
				IPKey   string `json:"ip_key"`
				Path    string `json:"path"`
				User    string `json:"user"`
				Private bool   `json:"private"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.IP != tt.ip {
				t.Fatalf("ip = %q, want %q", body.IP, tt.ip)
			}
			if body.IPKey != "rl:ip:"+tt.ip {
				t.Fatalf("ip key = %q", body.IPKey)
			}
			if body.Path != "rl:path:/x/:id:ip:"+tt.ip {
				t.Fatalf("path key = %q", body.Path)
			}
			if body.User != "rl:user:42" {
				t.Fatalf("user key = %q", body.User)
			}
			if body.Private != tt.private {
				t.Fatalf("private = %v, want %v", body.Private, tt.private)
			}
		})
	}
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
}
