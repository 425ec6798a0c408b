package latency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestHTTPSource_PingMillis(t *testing.T) {
	playerID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping/"+playerID.String() {
			t.Errorf("path = %s, want /ping/%s", r.URL.Path, playerID)
		}
		w.Write([]byte(`{"ping_millis": 73}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL + "/ping/")
	ping, err := src.PingMillis(context.Background(), playerID)
	if err != nil {
		t.Fatalf("PingMillis() error = %v", err)
	}
	if ping != 73 {
		t.Errorf("ping = %d, want 73", ping)
	}
}

func TestHTTPSource_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown player", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	if _, err := src.PingMillis(context.Background(), uuid.New()); err == nil {
		t.Error("expected error on 404")
	}
}
