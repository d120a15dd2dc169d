package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	t.Parallel()
	s, app := newTestServer(t)

	user := createTestUser(t, s, "uploader", false)
	token := authToken(t, s, user.ID)

	t.Run("Accepted file gets a uuid name", func(t *testing.T) {
		buf, contentType := multipartUpload(t, "notes.pdf", []byte("%PDF-1.4 fake"))

		req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Data struct {
				Filename string `json:"filename"`
				FileURL  string `json:"file_url"`
			} `json:"data"`
		}
		decodeBody(t, resp, &body)

		assert.True(t, strings.HasSuffix(body.Data.Filename, ".pdf"))
		assert.NotContains(t, body.Data.Filename, "notes", "original name must not leak into storage")
		assert.Contains(t, body.Data.FileURL, "/uploads/"+body.Data.Filename)

		saved, err := os.ReadFile(filepath.Join(s.config.UploadDir, body.Data.Filename))
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4 fake"), saved)
	})

	t.Run("Disallowed extension rejected", func(t *testing.T) {
		buf, contentType := multipartUpload(t, "malware.exe", []byte{0x4d, 0x5a})

		req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Missing file rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
