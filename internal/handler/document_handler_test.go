package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medvault/internal/model"
)

func TestIsPDFUpload(t *testing.T) {
	assert.True(t, isPDFUpload("labs.pdf", "application/pdf"))
	assert.True(t, isPDFUpload("LABS.PDF", "application/octet-stream"))
	assert.True(t, isPDFUpload("weird-name", "application/pdf"))
	assert.False(t, isPDFUpload("photo.png", "image/png"))
	assert.False(t, isPDFUpload("report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
}

func TestAnalyzeDocumentRejectsNonPDFUpload(t *testing.T) {
	f := newHandlerFixture(t)

	analyzed := false
	f.analyzer.AnalyzeFunc = func(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error) {
		analyzed = true
		return nil, fmt.Errorf("analyzer must not run for rejected uploads")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a pdf"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/analyze", &buf)
	req.Header.Set(echo.HeaderContentType, form.FormDataContentType())
	for _, cookie := range f.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()

	require.NoError(t, f.documents.AnalyzeDocument(f.e.NewContext(req, rec)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only PDF files are supported")
	assert.False(t, analyzed)
	assert.Zero(t, f.store.Len())
}

func TestDeleteRecordsAcceptsBothKeySpellings(t *testing.T) {
	f := newHandlerFixture(t)

	first := f.seedRecord(t, f.user.ID, "a.pdf")
	second := f.seedRecord(t, f.user.ID, "b.pdf")

	cases := []struct {
		name   string
		body   string
		record *model.HealthRecord
	}{
		{"camelCase", fmt.Sprintf(`{"recordIds":[%q]}`, first.ID), first},
		{"snake_case", fmt.Sprintf(`{"record_ids":[%q]}`, second.ID), second},
	}
	for _, tc := range cases {
		c, rec := f.jsonContext(http.MethodPost, "/api/documents/delete", tc.body, f.cookies)
		require.NoError(t, f.documents.DeleteRecords(c))

		assert.Equal(t, http.StatusOK, rec.Code, tc.name)
		_, err := f.recordRepo.FindByID(context.Background(), tc.record.ID)
		assert.Error(t, err, tc.name)
	}
}
