package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pbserver/internal/backup"
	"pbserver/internal/identity"
	"pbserver/internal/storage"
	"pbserver/internal/testutil"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) (*Server, *storage.MemoryStorage, *testutil.StubClock) {
	t.Helper()

	clock := testutil.FixedClock()
	idx := testutil.NewTestIndex(t, clock)
	store := storage.NewMemoryStorage("/mem")
	service := backup.NewService(idx, store, backup.NewNopLogger(), clock)
	ident := &identity.Identity{ServerID: "test-server-id", APIKey: testAPIKey}

	return New(service, ident, "TestServer", backup.NewNopLogger()), store, clock
}

func doJSON(t *testing.T, s *Server, method, path, apiKey string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func uploadRequest(t *testing.T, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fields["filename"])
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	for k, v := range fields {
		if k == "filename" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("writing field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-API-Key", testAPIKey)
	return req
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	s, _, _ := newTestServer(t)

	// No API key: health must answer before pairing.
	resp := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		ServerID string `json:"server_id"`
	}
	decodeBody(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("status = %s, want ok", body.Status)
	}
	if body.Version != APIVersion {
		t.Errorf("version = %s, want %s", body.Version, APIVersion)
	}
	if body.ServerID != "test-server-id" {
		t.Errorf("server_id = %s, want test-server-id", body.ServerID)
	}
}

func TestServer_Auth(t *testing.T) {
	s, _, _ := newTestServer(t)

	t.Run("missing key", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodGet, "/api/files/stats", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decodeBody(t, resp, &body)
		if body.Error.Code != "API_KEY_REQUIRED" {
			t.Errorf("code = %s, want API_KEY_REQUIRED", body.Error.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodGet, "/api/files/stats", "nope", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decodeBody(t, resp, &body)
		if body.Error.Code != "API_KEY_INVALID" {
			t.Errorf("code = %s, want API_KEY_INVALID", body.Error.Code)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		resp := doJSON(t, s, http.MethodGet, "/api/files/stats", testAPIKey, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestServer_Upload(t *testing.T) {
	t.Run("accepts a new file", func(t *testing.T) {
		s, store, _ := newTestServer(t)

		content := []byte("fresh photo bytes")
		req := uploadRequest(t, content, map[string]string{
			"filename":  "sunset.jpg",
			"file_hash": testutil.SHA256Hex(content),
			"mime_type": "image/jpeg",
		})

		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		var body uploadResponse
		decodeBody(t, resp, &body)
		if body.Status != "success" {
			t.Errorf("status = %s, want success", body.Status)
		}
		if body.Hash != testutil.SHA256Hex(content) {
			t.Errorf("hash = %s, want %s", body.Hash, testutil.SHA256Hex(content))
		}
		if body.Path != "Photos/2024/03/sunset.jpg" {
			t.Errorf("path = %s, want Photos/2024/03/sunset.jpg", body.Path)
		}

		stored, ok := store.Read(body.Path)
		if !ok || !bytes.Equal(stored, content) {
			t.Error("stored content does not match upload")
		}
	})

	t.Run("same content twice reports exists", func(t *testing.T) {
		s, _, _ := newTestServer(t)

		content := []byte("already seen")
		for i, wantStatus := range []string{"success", "exists"} {
			req := uploadRequest(t, content, map[string]string{
				"filename":  "dup.jpg",
				"file_hash": testutil.SHA256Hex(content),
				"mime_type": "image/jpeg",
			})
			resp, err := s.App().Test(req, -1)
			if err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("request %d: status = %d, want 200", i, resp.StatusCode)
			}
			var body uploadResponse
			decodeBody(t, resp, &body)
			if body.Status != wantStatus {
				t.Errorf("request %d: status = %s, want %s", i, body.Status, wantStatus)
			}
		}
	})

	t.Run("hash mismatch is rejected", func(t *testing.T) {
		s, store, _ := newTestServer(t)

		req := uploadRequest(t, []byte("actual bytes"), map[string]string{
			"filename":  "bad.jpg",
			"file_hash": strings.Repeat("0", 64),
			"mime_type": "image/jpeg",
		})
		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		decodeBody(t, resp, &body)
		if body.Error.Code != "HASH_MISMATCH" {
			t.Errorf("code = %s, want HASH_MISMATCH", body.Error.Code)
		}

		summary, err := store.UsageSummary()
		if err != nil {
			t.Fatalf("UsageSummary() error = %v", err)
		}
		if summary.FileCount != 0 {
			t.Errorf("rejected upload left %d files in storage", summary.FileCount)
		}
	})

	t.Run("missing hash is rejected", func(t *testing.T) {
		s, _, _ := newTestServer(t)

		req := uploadRequest(t, []byte("data"), map[string]string{"filename": "x.jpg"})
		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("missing file is rejected", func(t *testing.T) {
		s, _, _ := newTestServer(t)

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("file_hash", strings.Repeat("a", 64)); err != nil {
			t.Fatalf("writing field: %v", err)
		}
		w.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("X-API-Key", testAPIKey)

		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("source tag routes to its folder", func(t *testing.T) {
		s, _, _ := newTestServer(t)

		content := []byte("forwarded meme")
		req := uploadRequest(t, content, map[string]string{
			"filename":   "meme.jpg",
			"file_hash":  testutil.SHA256Hex(content),
			"mime_type":  "image/jpeg",
			"source":     "whatsapp",
			"date_taken": "1718000000000",
		})
		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		var body uploadResponse
		decodeBody(t, resp, &body)
		if !strings.HasPrefix(body.Path, "WhatsApp/2024/06/") {
			t.Errorf("path = %s, want WhatsApp/2024/06/ prefix", body.Path)
		}
	})
}

func TestServer_Check(t *testing.T) {
	s, _, _ := newTestServer(t)

	content := []byte("known content")
	known := testutil.SHA256Hex(content)
	req := uploadRequest(t, content, map[string]string{
		"filename":  "known.jpg",
		"file_hash": known,
		"mime_type": "image/jpeg",
	})
	if _, err := s.App().Test(req, -1); err != nil {
		t.Fatalf("seeding upload failed: %v", err)
	}

	resp := doJSON(t, s, http.MethodPost, "/api/files/check", testAPIKey,
		checkRequest{Hashes: []string{"absent1", known, "absent2"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body checkResponse
	decodeBody(t, resp, &body)
	if len(body.Existing) != 1 || body.Existing[0] != known {
		t.Errorf("existing = %v, want [%s]", body.Existing, known)
	}
	if len(body.Missing) != 2 || body.Missing[0] != "absent1" || body.Missing[1] != "absent2" {
		t.Errorf("missing = %v, want [absent1 absent2] in request order", body.Missing)
	}
}

func TestServer_Stats(t *testing.T) {
	s, _, clock := newTestServer(t)

	first := []byte("counted bytes")
	second := []byte("more counted bytes")
	for i, content := range [][]byte{first, second} {
		req := uploadRequest(t, content, map[string]string{
			"filename":  fmt.Sprintf("counted_%d.jpg", i),
			"file_hash": testutil.SHA256Hex(content),
			"mime_type": "image/jpeg",
		})
		if _, err := s.App().Test(req, -1); err != nil {
			t.Fatalf("seeding upload %d failed: %v", i, err)
		}
		clock.Advance(time.Hour)
	}

	resp := doJSON(t, s, http.MethodGet, "/api/files/stats", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body statsResponse
	decodeBody(t, resp, &body)
	if body.TotalFiles != 2 {
		t.Errorf("total_files = %d, want 2", body.TotalFiles)
	}
	wantBytes := int64(len(first) + len(second))
	if body.TotalSizeBytes != wantBytes {
		t.Errorf("total_size_bytes = %d, want %d", body.TotalSizeBytes, wantBytes)
	}
	if body.TotalSizeHuman == "" {
		t.Error("total_size_human not set")
	}
	if body.FirstBackup == nil || body.LastBackup == nil {
		t.Fatal("backup timestamps not set")
	}
	if !body.FirstBackup.Before(*body.LastBackup) {
		t.Errorf("first_backup %v not before last_backup %v", body.FirstBackup, body.LastBackup)
	}
}

func TestServer_Status(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := doJSON(t, s, http.MethodGet, "/api/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body statusResponse
	decodeBody(t, resp, &body)
	if body.Status != "ok" {
		t.Errorf("status = %s, want ok", body.Status)
	}
	if body.APIVersion != APIVersion {
		t.Errorf("api_version = %s, want %s", body.APIVersion, APIVersion)
	}
}

func TestServer_Root(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp := doJSON(t, s, http.MethodGet, "/", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !bytes.Contains(body, []byte("TestServer")) {
		t.Errorf("root response %s does not name the service", body)
	}
}
