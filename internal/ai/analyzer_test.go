package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medvault/internal/logger"
	"medvault/internal/model"
)

func analyzerServer(t *testing.T, toolInput string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, extractionToolName, req.ToolChoice.Name)

		resp := map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "tool_use", "name": extractionToolName, "input": json.RawMessage(toolInput)},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testAnalyzer(baseURL string) *Analyzer {
	return NewAnalyzerWithBaseURL("test-key", "test-model", baseURL, logger.NewWithWriter(io.Discard))
}

func TestAnalyzeSuccess(t *testing.T) {
	server := analyzerServer(t, `{
		"status": "success",
		"record_type": "lab_report",
		"record_name": "Complete Blood Count",
		"display_name": "CBC March 2024",
		"summary": "Normal blood count results.",
		"doctor_name": "Dr. Silva",
		"date": "2024-03-15"
	}`)
	defer server.Close()

	analysis, err := testAnalyzer(server.URL).Analyze(context.Background(), []byte("%PDF-1.4 fake"), "en")

	require.NoError(t, err)
	assert.True(t, analysis.Succeeded())
	assert.Equal(t, "lab_report", analysis.RecordType)
	assert.Equal(t, "CBC March 2024", analysis.DisplayName)
	assert.Equal(t, "Dr. Silva", analysis.DoctorName)
}

func TestAnalyzeErrorResult(t *testing.T) {
	server := analyzerServer(t, `{
		"status": "error",
		"error_type": "encrypted_pdf",
		"error_message": "The document is password protected."
	}`)
	defer server.Close()

	analysis, err := testAnalyzer(server.URL).Analyze(context.Background(), []byte("%PDF"), "en")

	require.NoError(t, err)
	assert.False(t, analysis.Succeeded())
	assert.Equal(t, model.ErrKindEncryptedPDF, analysis.ErrorType)
}

func TestAnalyzeUnknownErrorKindDegrades(t *testing.T) {
	server := analyzerServer(t, `{"status":"error","error_type":"weird_new_kind","error_message":"?"}`)
	defer server.Close()

	analysis, err := testAnalyzer(server.URL).Analyze(context.Background(), []byte("%PDF"), "en")

	require.NoError(t, err)
	assert.Equal(t, model.ErrKindUnknown, analysis.ErrorType)
}

func TestAnalyzeMissingRequiredFieldsDegrades(t *testing.T) {
	// success without a summary violates the result contract
	server := analyzerServer(t, `{"status":"success","record_type":"lab_report","record_name":"CBC"}`)
	defer server.Close()

	analysis, err := testAnalyzer(server.URL).Analyze(context.Background(), []byte("%PDF"), "en")

	require.NoError(t, err)
	assert.False(t, analysis.Succeeded())
	assert.Equal(t, model.ErrKindUnknown, analysis.ErrorType)
}

func TestAnalyzeNoToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":[{"type":"text","text":"I cannot analyze this."}]}`)
	}))
	defer server.Close()

	analysis, err := testAnalyzer(server.URL).Analyze(context.Background(), []byte("%PDF"), "en")

	require.NoError(t, err)
	assert.False(t, analysis.Succeeded())
	assert.Equal(t, model.ErrKindUnknown, analysis.ErrorType)
}

func TestAnalyzeAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"type":"api_error","message":"overloaded"}}`)
	}))
	defer server.Close()

	_, err := testAnalyzer(server.URL).Analyze(context.Background(), []byte("%PDF"), "en")
	assert.Error(t, err)
}
