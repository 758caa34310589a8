package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mauv0809/strategium/internal/notifier"
	"github.com/stretchr/testify/assert"
)

func TestChain_AppliesInOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("first"), tag("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestParamsMiddleware_DryRun(t *testing.T) {
	tests := map[string]bool{
		"/leagues?dry_run=true":  true,
		"/leagues?dry_run=false": false,
		"/leagues":               false,
	}
	for target, want := range tests {
		t.Run(target, func(t *testing.T) {
			var got bool
			h := paramsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = notifier.IsDryRun(r.Context())
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, want, got)
		})
	}
}
