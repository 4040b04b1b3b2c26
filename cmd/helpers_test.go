package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/habedi/petcli/config"
)

const (
	testUsername = "alice"
	testPassword = "secret1"
	pageSize     = 2
	photoContent = "hello world"
)

// fakeAPI is an in-memory PetCare server.
type fakeAPI struct {
	mu        sync.Mutex
	access    string
	refresh   string
	issued    int
	refreshes int
	animals   []map[string]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		animals: []map[string]any{
			{"id": 1, "tutor": 7, "name": "Rex", "species": "dog", "breed": "Beagle", "age": 3, "photo": "/media/animals/rex.jpg"},
			{"id": 2, "tutor": 7, "name": "Mia", "species": "cat", "breed": nil, "age": nil, "photo": nil},
			{"id": 3, "tutor": 7, "name": "Rexona", "species": "dog", "breed": nil, "age": 9, "photo": nil},
		},
	}
}

// expireAccess invalidates the current access token but keeps the refresh
// token valid.
func (f *fakeAPI) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "revoked"
}

// revokeSession invalidates both tokens.
func (f *fakeAPI) revokeSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "revoked"
	f.refresh = "revoked"
}

func (f *fakeAPI) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access != "" && r.Header.Get("Authorization") == "Bearer "+f.access
}

func (f *fakeAPI) router() chi.Router {
	r := chi.NewRouter()

	r.Post("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != testUsername || creds["password"] != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		f.mu.Lock()
		f.issued++
		f.access = "acc-" + strconv.Itoa(f.issued)
		f.refresh = "ref-" + strconv.Itoa(f.issued)
		tokens := map[string]string{"access": f.access, "refresh": f.refresh}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, tokens)
	})

	r.Post("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshes++
		if body["refresh"] == "" || body["refresh"] != f.refresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		f.issued++
		f.access = "acc-" + strconv.Itoa(f.issued)
		writeJSON(w, http.StatusOK, map[string]string{"access": f.access})
	})

	r.Post("/api/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] == testUsername {
			writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 8, "username": body["username"], "name": body["name"], "email": body["email"]})
	})

	r.Get("/media/animals/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte(photoContent))
	})

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !f.authorized(r) {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
					return
				}
				next.ServeHTTP(w, r)
			})
		})

		r.Get("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": testUsername, "name": "Alice Doe", "email": "alice@example.com"})
		})

		r.Get("/api/animals/", func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page < 1 {
				page = 1
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			start := (page - 1) * pageSize
			if start > len(f.animals) {
				writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Invalid page."})
				return
			}
			end := min(start+pageSize, len(f.animals))
			var next *string
			if end < len(f.animals) {
				link := fmt.Sprintf("http://%s/api/animals/?page=%d", r.Host, page+1)
				next = &link
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"count":    len(f.animals),
				"next":     next,
				"previous": nil,
				"results":  f.animals[start:end],
			})
		})

		r.Get("/api/animals/{id}/", func(w http.ResponseWriter, r *http.Request) {
			if a := f.find(chi.URLParam(r, "id")); a != nil {
				writeJSON(w, http.StatusOK, a)
				return
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		})

		r.Patch("/api/animals/{id}/", func(w http.ResponseWriter, r *http.Request) {
			var changes map[string]any
			if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
				return
			}
			id := chi.URLParam(r, "id")
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, a := range f.animals {
				if fmt.Sprint(a["id"]) == id {
					for k, v := range changes {
						a[k] = v
					}
					writeJSON(w, http.StatusOK, a)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		})

		r.Delete("/api/animals/{id}/", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, a := range f.animals {
				if fmt.Sprint(a["id"]) == id {
					f.animals = append(f.animals[:i], f.animals[i+1:]...)
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		})
	})

	return r
}

func (f *fakeAPI) find(id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.animals {
		if fmt.Sprint(a["id"]) == id {
			return a
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cliEnv is a fake server plus a database path shared by successive runs.
type cliEnv struct {
	api    *fakeAPI
	srv    *httptest.Server
	dbPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)
	return &cliEnv{api: api, srv: srv, dbPath: filepath.Join(t.TempDir(), "petcli.db")}
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// run executes one CLI invocation with stdin as input.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	a := newApp(config.Config{APIURL: e.srv.URL, DBPath: e.dbPath, HTTPTimeout: 5 * time.Second})
	defer a.close()

	rootCmd := createRootCmd(a)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	code := run(context.Background(), rootCmd, a)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// login runs 'petcli login' and fails the test unless it succeeds.
func (e *cliEnv) login(t *testing.T) {
	t.Helper()
	res := e.run(t, testPassword+"\n", "login", "--username", testUsername)
	if res.code != 0 {
		t.Fatalf("login failed with code %d: %s", res.code, res.stderr)
	}
}
