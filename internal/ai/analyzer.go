package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medvault/internal/logger"
	"medvault/internal/model"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	extractionToolName      = "record_medical_document"
)

// Analyzer extracts structured health record fields from a PDF using the
// Anthropic Messages API with a forced tool call, so the reply is always a
// machine-readable tool input rather than prose.
type Analyzer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewAnalyzer(apiKey, model string, timeout time.Duration, logger *logger.Logger) *Analyzer {
	return &Analyzer{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultAnthropicBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NewAnalyzerWithBaseURL points the analyzer at a different endpoint, used
// in tests.
func NewAnalyzerWithBaseURL(apiKey, model, baseURL string, logger *logger.Logger) *Analyzer {
	return &Analyzer{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type messagesRequest struct {
	Model      string          `json:"model"`
	MaxTokens  int             `json:"max_tokens"`
	Tools      []anthropicTool `json:"tools"`
	ToolChoice toolChoice      `json:"tool_choice"`
	Messages   []message       `json:"messages"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []responseBlock `json:"content"`
	Error   *apiError       `json:"error,omitempty"`
}

type responseBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var extractionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"status": {"type": "string", "enum": ["success", "error"]},
		"error_type": {"type": "string", "enum": ["not_medical_document", "encrypted_pdf", "unreadable_content", "unsupported_language", "empty_document", "unknown"]},
		"error_message": {"type": "string"},
		"record_type": {"type": "string", "enum": ["lab_report", "imaging", "prescription", "discharge_summary", "consultation_note", "vaccination_record", "referral", "invoice", "other"]},
		"record_subtype": {"type": "string"},
		"record_name": {"type": "string"},
		"display_name": {"type": "string"},
		"summary": {"type": "string"},
		"doctor_name": {"type": "string"},
		"date": {"type": "string"}
	},
	"required": ["status"]
}`)

func analysisPrompt(language string) string {
	return fmt.Sprintf(`Analyze the attached PDF. If it is a personal medical document, extract its
fields and report status "success". Otherwise report status "error" with the
matching error_type. record_type values stay in English; write record_name,
display_name, and summary in the language with code %q. Dates use
YYYY-MM-DD, dropping unknown parts (YYYY-MM or YYYY).`, language)
}

// Analyze submits one PDF for extraction. Model-level failures (not a
// medical document, encrypted, unreadable) come back as error-status
// results; only transport and protocol problems surface as Go errors.
func (a *Analyzer) Analyze(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error) {
	if language == "" {
		language = "en"
	}

	reqBody := messagesRequest{
		Model:     a.model,
		MaxTokens: 1024,
		Tools: []anthropicTool{{
			Name:        extractionToolName,
			Description: "Record the analysis outcome for one medical document.",
			InputSchema: extractionSchema,
		}},
		ToolChoice: toolChoice{Type: "tool", Name: extractionToolName},
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "document",
					Source: &documentSource{
						Type:      "base64",
						MediaType: "application/pdf",
						Data:      base64.StdEncoding.EncodeToString(pdf),
					},
				},
				{Type: "text", Text: analysisPrompt(language)},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("analysis API error: %s", parsed.Error.Message)
	}

	for _, block := range parsed.Content {
		if block.Type == "tool_use" && block.Name == extractionToolName {
			return decodeAnalysis(block.Input), nil
		}
	}

	a.logger.Warn("Analysis response contained no tool call")
	return model.AnalysisError(model.ErrKindUnknown, "model returned no extraction result"), nil
}

// decodeAnalysis validates the tool input against the result contract:
// success results must carry the required fields, error results a known
// error kind. Anything else degrades to an unknown-kind error result.
func decodeAnalysis(input json.RawMessage) *model.DocumentAnalysis {
	var analysis model.DocumentAnalysis
	if err := json.Unmarshal(input, &analysis); err != nil {
		return model.AnalysisError(model.ErrKindUnknown, "malformed extraction result")
	}

	switch analysis.Status {
	case model.AnalysisStatusSuccess:
		if analysis.RecordType == "" || analysis.RecordName == "" || analysis.Summary == "" {
			return model.AnalysisError(model.ErrKindUnknown, "extraction result missing required fields")
		}
		return &analysis
	case model.AnalysisStatusError:
		if !knownErrorKind(analysis.ErrorType) {
			analysis.ErrorType = model.ErrKindUnknown
		}
		if analysis.ErrorMessage == "" {
			analysis.ErrorMessage = "document could not be analyzed"
		}
		return &analysis
	default:
		return model.AnalysisError(model.ErrKindUnknown, "extraction result missing status")
	}
}

func knownErrorKind(kind string) bool {
	switch kind {
	case model.ErrKindNotMedical, model.ErrKindEncryptedPDF, model.ErrKindUnreadableContent,
		model.ErrKindUnsupportedLanguage, model.ErrKindEmptyDocument, model.ErrKindUnknown:
		return true
	}
	return false
}
