package mockapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

func TestBackend_RequiresToken(t *testing.T) {
	b := Seed()
	b.RequireToken("tok")
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/user/get-user/u-reader")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Unauthorized", body["message"])

	// categories are public
	cats, err := http.Get(srv.URL + "/category/all-category")
	require.NoError(t, err)
	defer cats.Body.Close()
	assert.Equal(t, http.StatusOK, cats.StatusCode)
}

func TestBackend_UpdateRejectsBadData(t *testing.T) {
	b := Seed()
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("data", "not json"))
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/user/update-user/u-reader", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, b.Updates())
	u, _ := b.User("u-reader")
	assert.Equal(t, "Ada Reader", u.Name)
}

func TestBackend_HoldAndFail(t *testing.T) {
	b := New()
	b.SetCategories(sdk.CategoryEntry{ID: "1", Name: "Tech", Slug: "tech"})
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	release := b.Hold(EndpointCategories)
	done := make(chan int, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/category/all-category")
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case <-done:
		t.Fatal("held request completed early")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	assert.Equal(t, http.StatusOK, <-done)

	b.Fail(EndpointCategories, Failure{Status: http.StatusServiceUnavailable})
	resp, err := http.Get(srv.URL + "/category/all-category")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
