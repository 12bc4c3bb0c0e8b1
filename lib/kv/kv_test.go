package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("get missing", func(t *testing.T) {
		_, found, err := store.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if found {
			t.Error("expected missing key")
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if ok, err := store.Set(ctx, "purchases:a@example.com", "[]"); err != nil || !ok {
			t.Fatalf("set: (%v, %v)", ok, err)
		}
		value, found, err := store.Get(ctx, "purchases:a@example.com")
		if err != nil || !found {
			t.Fatalf("get: (%v, %v)", found, err)
		}
		if value != "[]" {
			t.Errorf("got %q, want []", value)
		}
	})

	t.Run("keys by prefix", func(t *testing.T) {
		_, _ = store.Set(ctx, "purchases:b@example.com", "[]")
		_, _ = store.Set(ctx, "issued_keys", "[]")

		keys, err := store.Keys(ctx, "purchases:")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		sort.Strings(keys)
		want := []string{"purchases:a@example.com", "purchases:b@example.com"}
		if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
			t.Errorf("got %v, want %v", keys, want)
		}
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = store.Set(ctx, fmt.Sprintf("k%d", i), "v")
			}(i)
		}
		wg.Wait()
		keys, _ := store.Keys(ctx, "k")
		if len(keys) != 32 {
			t.Errorf("got %d keys, want 32", len(keys))
		}
	})
}

// fakeRESTService mimics the Upstash-style HTTP surface:
// GET /get/<key>, POST /set/<key>, GET /keys/<pattern>
func fakeRESTService(t *testing.T, data map[string]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		op, arg := parts[0], parts[1]

		mu.Lock()
		defer mu.Unlock()
		switch op {
		case "get":
			value, found := data[arg]
			if !found {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": nil})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"result": value})
		case "set":
			var body struct {
				Value string `json:"value"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			data[arg] = body.Value
			_ = json.NewEncoder(w).Encode(map[string]string{"result": "OK"})
		case "keys":
			prefix := strings.TrimSuffix(arg, "*")
			var keys []string
			for k := range data {
				if strings.HasPrefix(k, prefix) {
					keys = append(keys, k)
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": keys})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRESTStore(t *testing.T) {
	ctx := context.Background()
	data := map[string]string{"issued_keys": `["AAAA-BBBB"]`}
	srv := fakeRESTService(t, data)
	defer srv.Close()

	store := NewRESTStore(srv.URL, "secret-token")

	t.Run("get existing", func(t *testing.T) {
		value, found, err := store.Get(ctx, "issued_keys")
		if err != nil || !found {
			t.Fatalf("get: (%v, %v)", found, err)
		}
		if value != `["AAAA-BBBB"]` {
			t.Errorf("got %q", value)
		}
	})

	t.Run("get missing yields not found", func(t *testing.T) {
		_, found, err := store.Get(ctx, "absent")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if found {
			t.Error("expected missing key")
		}
	})

	t.Run("set round trip with escaping", func(t *testing.T) {
		key := "purchases:weird user@example.com"
		if ok, err := store.Set(ctx, key, "[]"); err != nil || !ok {
			t.Fatalf("set: (%v, %v)", ok, err)
		}
		value, found, err := store.Get(ctx, key)
		if err != nil || !found || value != "[]" {
			t.Errorf("round trip failed: (%q, %v, %v)", value, found, err)
		}
	})

	t.Run("keys by prefix", func(t *testing.T) {
		keys, err := store.Keys(ctx, "issued")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 1 || keys[0] != "issued_keys" {
			t.Errorf("got %v", keys)
		}
	})

	t.Run("bad credential is a backend error", func(t *testing.T) {
		wrong := NewRESTStore(srv.URL, "nope")
		_, _, err := wrong.Get(ctx, "issued_keys")
		if err == nil {
			t.Fatal("expected an error")
		}
		if !IsUnavailable(err) {
			t.Errorf("expected a backend-unavailable error, got %v", err)
		}
	})
}

func TestRESTStoreDown(t *testing.T) {
	srv := fakeRESTService(t, map[string]string{})
	srv.Close() // immediately, the store must see a dead backend

	store := NewRESTStore(srv.URL, "secret-token")
	_, _, err := store.Get(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected an error from a dead backend")
	}
	if !IsUnavailable(err) {
		t.Errorf("expected a backend-unavailable error, got %v", err)
	}
}
