package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignExcludesKeyAndFile(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "api_key": "key", "folder": "receipts", "file": "x"})

	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=receipts&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		assert.Equal(t, "receipts", r.FormValue("folder"))
		assert.Equal(t, "20210001_receipt", r.FormValue("public_id"))
		assert.Equal(t, "true", r.FormValue("overwrite"))
		assert.NotEmpty(t, r.FormValue("signature"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "20210001_receipt.png", hdr.Filename)
		assert.Equal(t, []byte("png-bytes"), data)

		_, _ = w.Write([]byte(`{"public_id":"receipts/abc","secure_url":"https://res.cloudinary.com/demo/abc.png"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "receipts")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.Upload(context.Background(), []byte("png-bytes"), "20210001_receipt.png")
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/abc.png", url)
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.Upload(context.Background(), []byte("x"), "r.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = c.Upload(context.Background(), nil, "r.png")
	assert.Error(t, err)
}

func TestPublicID(t *testing.T) {
	assert.Equal(t, "20210001_receipt", publicID("20210001_receipt.jpg"))
	assert.Equal(t, "scan", publicID("dir/scan.webp"))
	assert.Equal(t, "", publicID(""))
}
