package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timada-org/todo/internal/api"
)

var secret = []byte("test-secret")

func hmacKeyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}

	return secret, nil
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	return token
}

func TestAuth(t *testing.T) {
	f := newFixture(t, func(o *api.Options) {
		o.Auth = api.NewAuthWithKeyfunc(hmacKeyfunc, nil)
	})

	request := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		return rec
	}

	t.Run("valid token", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})

		rec := request("Bearer " + token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		for name, header := range map[string]string{
			"missing":    "",
			"not bearer": "Basic " + sign(t, jwt.MapClaims{"sub": "user-1"}),
			"no token":   "Bearer",
			"garbage":    "Bearer abc.def.ghi",
			"expired":    "Bearer " + sign(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}),
			"no subject": "Bearer " + sign(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		} {
			rec := request(header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
			assert.Contains(t, rec.Body.String(), `"status":"failure"`, name)
		}
	})

	t.Run("student routes stay open", func(t *testing.T) {
		code, _ := f.do(t, http.MethodGet, "/2123689/list", "")
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		assert.Nil(t, api.NewRateLimiter(0, 10, nil))
	})

	t.Run("per client buckets", func(t *testing.T) {
		limiter := api.NewRateLimiter(0.001, 1, nil)

		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))

		limiter.Cleanup(0)
		assert.True(t, limiter.Allow("a"))
	})

	t.Run("too many requests", func(t *testing.T) {
		f := newFixture(t, func(o *api.Options) {
			o.Limiter = api.NewRateLimiter(0.001, 1, nil)
		})

		code, _ := f.do(t, http.MethodGet, "/api/list", "")
		assert.Equal(t, http.StatusOK, code)

		code, b := f.do(t, http.MethodGet, "/api/list", "")
		assert.Equal(t, http.StatusTooManyRequests, code)
		assert.Equal(t, "failure", b.Status)
	})
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/list", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 21)

	req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
	req.Header.Set("X-Request-ID", "abc")

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	f := newFixture(t, func(o *api.Options) {
		o.Registry = registry
	})

	f.do(t, http.MethodGet, "/api/list", "")
	f.do(t, http.MethodGet, "/0000000/list", "")
	f.do(t, http.MethodGet, "/nowhere", "")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.True(t, strings.Contains(out, `todo_http_requests_total{op="api_list",status="200"} 1`), out)
	assert.True(t, strings.Contains(out, `todo_http_requests_total{op="student_list",status="401"} 1`), out)
	assert.True(t, strings.Contains(out, `todo_http_requests_total{op="unmatched",status="404"} 1`), out)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/add", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
