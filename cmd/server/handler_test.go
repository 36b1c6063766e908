package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"sehlabs.com/history/internal/store"
	"sehlabs.com/history/internal/version"
)

func makeTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.MakeShardedStore()
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(makeHandler(db, zaptest.NewLogger(t)))
	t.Cleanup(server.Close)
	return server
}

func sendRequest(t *testing.T, method, target string, form url.Values) *http.Response {
	t.Helper()
	var body *strings.Reader
	if form != nil && method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	} else {
		if form != nil {
			target += "?" + form.Encode()
		}
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatal(err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func confirmStatus(t *testing.T, resp *http.Response, statusCode int) {
	t.Helper()
	if want, got := statusCode, resp.StatusCode; want != got {
		t.Fatalf("%s %s status: want %d, got %d", resp.Request.Method, resp.Request.URL, want, got)
	}
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

// postHistory creates node 5 at 10 and modifies it at 20, then deletes it at 30.
func postHistory(t *testing.T, entityURL string) {
	t.Helper()
	resp := sendRequest(t, http.MethodPost, entityURL, url.Values{
		"version":   {"1"},
		"changeset": {"11"},
		"timestamp": {"10"},
		"user":      {"alice"},
		"tag":       {"amenity=cafe", "name=Corner"},
	})
	confirmStatus(t, resp, http.StatusCreated)
	created := decodeBody[versionResponse](t, resp)
	if want, got := "Corner", created.Tags["name"]; want != got {
		t.Errorf("created tag: want %q, got %q", want, got)
	}
	resp = sendRequest(t, http.MethodPost, entityURL, url.Values{
		"version":   {"2"},
		"timestamp": {"1970-01-01T00:00:20Z"},
	})
	confirmStatus(t, resp, http.StatusCreated)
	resp = sendRequest(t, http.MethodDelete, entityURL, url.Values{
		"changeset": {"13"},
		"timestamp": {"30"},
	})
	confirmStatus(t, resp, http.StatusOK)
	tomb := decodeBody[versionResponse](t, resp)
	if tomb.Visible {
		t.Error("deleted version visible: want false, got true")
	}
	if want, got := uint32(3), tomb.Version; want != got {
		t.Errorf("deleted version: want %d, got %d", want, got)
	}
}

func TestGetWindows(t *testing.T) {
	server := makeTestServer(t)
	entityURL := server.URL + "/entity/node/5"
	postHistory(t, entityURL)

	resp := sendRequest(t, http.MethodGet, entityURL, nil)
	confirmStatus(t, resp, http.StatusOK)
	windows := decodeBody[[]windowResponse](t, resp)
	if want, got := 3, len(windows); want != got {
		t.Fatalf("window count: want %d, got %d", want, got)
	}
	if first := windows[0]; !first.First || first.Last || first.End == nil || *first.End != 20 {
		t.Errorf("first window: got %+v", first)
	}
	if last := windows[2]; last.First || !last.Last || last.End != nil || last.Visible {
		t.Errorf("last window: got %+v", last)
	}
	if want, got := "alice", windows[0].User; want != got {
		t.Errorf("user: want %q, got %q", want, got)
	}
}

func TestGetWindowAt(t *testing.T) {
	server := makeTestServer(t)
	entityURL := server.URL + "/entity/n/5"
	postHistory(t, entityURL)

	for _, tc := range []struct {
		at      string
		version uint32
		visible bool
	}{
		{"15", 1, true},
		{"25", 2, true},
		{"1970-01-01T00:00:35Z", 3, false},
	} {
		resp := sendRequest(t, http.MethodGet, entityURL, url.Values{"at": {tc.at}})
		confirmStatus(t, resp, http.StatusOK)
		w := decodeBody[windowResponse](t, resp)
		if want, got := tc.version, w.Version; want != got {
			t.Errorf("version at %s: want %d, got %d", tc.at, want, got)
		}
		if w.VisibleAt == nil || *w.VisibleAt != tc.visible {
			t.Errorf("visible at %s: want %t, got %v", tc.at, tc.visible, w.VisibleAt)
		}
	}
	confirmStatus(t, sendRequest(t, http.MethodGet, entityURL, url.Values{"at": {"5"}}), http.StatusNotFound)
	confirmStatus(t, sendRequest(t, http.MethodGet, entityURL, url.Values{"at": {"soon"}}), http.StatusBadRequest)
}

func TestGetWindowsBetween(t *testing.T) {
	server := makeTestServer(t)
	entityURL := server.URL + "/entity/node/5"
	postHistory(t, entityURL)

	resp := sendRequest(t, http.MethodGet, entityURL, url.Values{"from": {"15"}, "to": {"25"}})
	confirmStatus(t, resp, http.StatusOK)
	windows := decodeBody[[]windowResponse](t, resp)
	if want, got := 2, len(windows); want != got {
		t.Fatalf("window count: want %d, got %d", want, got)
	}
	if want, got := version.Timestamp(10), windows[0].Start; want != got {
		t.Errorf("start: want %s, got %s", want, got)
	}
	confirmStatus(t, sendRequest(t, http.MethodGet, entityURL, url.Values{"from": {"25"}, "to": {"15"}}), http.StatusBadRequest)
	confirmStatus(t, sendRequest(t, http.MethodGet, entityURL, url.Values{"from": {"25"}}), http.StatusBadRequest)
}

func TestWriteConflicts(t *testing.T) {
	server := makeTestServer(t)
	entityURL := server.URL + "/entity/way/8"
	confirmStatus(t, sendRequest(t, http.MethodDelete, entityURL, url.Values{"timestamp": {"5"}}), http.StatusNotFound)
	confirmStatus(t, sendRequest(t, http.MethodPost, entityURL, url.Values{"version": {"2"}, "timestamp": {"10"}}), http.StatusCreated)
	confirmStatus(t, sendRequest(t, http.MethodPost, entityURL, url.Values{"version": {"2"}, "timestamp": {"12"}}), http.StatusConflict)
	confirmStatus(t, sendRequest(t, http.MethodPost, entityURL, url.Values{"version": {"3"}, "timestamp": {"9"}}), http.StatusConflict)
	confirmStatus(t, sendRequest(t, http.MethodDelete, entityURL, url.Values{"timestamp": {"20"}}), http.StatusOK)
	confirmStatus(t, sendRequest(t, http.MethodDelete, entityURL, url.Values{"timestamp": {"21"}}), http.StatusGone)
}

func TestMalformedRequests(t *testing.T) {
	server := makeTestServer(t)
	for _, tc := range []struct {
		method, path string
		form         url.Values
		statusCode   int
	}{
		{http.MethodGet, "/entity/", nil, http.StatusBadRequest},
		{http.MethodGet, "/entity/area/1", nil, http.StatusBadRequest},
		{http.MethodGet, "/entity/node/x", nil, http.StatusBadRequest},
		{http.MethodGet, "/entity/node/404", nil, http.StatusNotFound},
		{http.MethodPost, "/entity/node/1", url.Values{"timestamp": {"10"}}, http.StatusBadRequest},
		{http.MethodPost, "/entity/node/1", url.Values{"version": {"1"}}, http.StatusBadRequest},
		{http.MethodPost, "/entity/node/1", url.Values{"version": {"-1"}, "timestamp": {"10"}}, http.StatusBadRequest},
		{http.MethodPost, "/entity/node/1", url.Values{"version": {"1"}, "timestamp": {"10"}, "tag": {"novalue"}}, http.StatusBadRequest},
		{http.MethodDelete, "/entity/node/1", nil, http.StatusBadRequest},
		{http.MethodPut, "/entity/node/1", nil, http.StatusMethodNotAllowed},
	} {
		resp := sendRequest(t, tc.method, server.URL+tc.path, tc.form)
		if want, got := tc.statusCode, resp.StatusCode; want != got {
			t.Errorf("%s %s: want status %d, got %d", tc.method, tc.path, want, got)
		}
	}
}
