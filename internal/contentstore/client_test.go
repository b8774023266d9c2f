package contentstore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckURL_ExistsTrue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contents/check_url", r.URL.Path)
		var req checkURLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "https://example.com/a", req.URL)
		_ = json.NewEncoder(w).Encode(checkURLResponse{Exists: true})
	}))
	defer srv.Close()

	c := New(srv.URL)
	exists, err := c.CheckURL(t.Context(), "https://example.com/a")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestCheckURL_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.CheckURL(t.Context(), "https://example.com/a")
	require.Error(t, err)
}

func TestInsert_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contents", r.URL.Path)
		var in InsertContent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "cid-1", in.ContentID)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Insert(t.Context(), InsertContent{URL: "https://example.com/a", ContentID: "cid-1"})
	require.NoError(t, err)
}
