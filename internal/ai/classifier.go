package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"medvault/internal/logger"
	"medvault/internal/model"
)

// chatCompleter is the slice of the OpenAI client the classifier needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Classifier screens emails for medical content in two passes: a cheap
// batch screen over subjects, then a full-content pass over the survivors.
type Classifier struct {
	client    chatCompleter
	model     string
	batchSize int
	Threshold float64
	logger    *logger.Logger
}

func NewClassifier(apiKey, model string, batchSize int, threshold float64, logger *logger.Logger) *Classifier {
	return &Classifier{
		client:    openai.NewClient(apiKey),
		model:     model,
		batchSize: batchSize,
		Threshold: threshold,
		logger:    logger,
	}
}

// NewClassifierWithClient injects the completion client, used in tests.
func NewClassifierWithClient(client chatCompleter, model string, batchSize int, threshold float64, logger *logger.Logger) *Classifier {
	return &Classifier{
		client:    client,
		model:     model,
		batchSize: batchSize,
		Threshold: threshold,
		logger:    logger,
	}
}

// ClassifyThreshold is the confidence cutoff applied to this instance's
// verdicts.
func (c *Classifier) ClassifyThreshold() float64 {
	return c.Threshold
}

type classificationResult struct {
	Results []model.EmailClassification `json:"results"`
}

const screenSystemPrompt = `You classify email subjects. For each entry decide whether the email
likely relates to personal medical care: lab results, imaging, prescriptions,
doctor visits, hospital stays, vaccinations, or medical invoices.
Respond with JSON: {"results":[{"id":"...","is_medical":true,"confidence":0.0}]}.
Return one result per input id, using the ids exactly as given.`

// ScreenSubjects classifies subjects in fixed-size batches, issued
// sequentially. Results are correlated by id; a batch whose response does
// not cover every input id exactly once fails the whole operation.
func (c *Classifier) ScreenSubjects(ctx context.Context, emails []model.EmailSummary) ([]model.EmailClassification, error) {
	var all []model.EmailClassification

	for start := 0; start < len(emails); start += c.batchSize {
		end := start + c.batchSize
		if end > len(emails) {
			end = len(emails)
		}
		batch := emails[start:end]

		results, err := c.screenBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("subject screening batch failed: %w", err)
		}
		all = append(all, results...)
	}

	return all, nil
}

func (c *Classifier) screenBatch(ctx context.Context, batch []model.EmailSummary) ([]model.EmailClassification, error) {
	var input strings.Builder
	for _, email := range batch {
		input.WriteString(fmt.Sprintf("id: %s\nsubject: %s\n\n", email.ID, email.Subject))
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: screenSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: input.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	parsed, err := parseClassifications(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return matchByID(batch, parsed)
}

// matchByID orders parsed results by input position and rejects responses
// that drop, duplicate, or invent ids.
func matchByID(batch []model.EmailSummary, parsed []model.EmailClassification) ([]model.EmailClassification, error) {
	byID := make(map[string]model.EmailClassification, len(parsed))
	for _, result := range parsed {
		if _, dup := byID[result.ID]; dup {
			return nil, fmt.Errorf("duplicate id %q in classification response", result.ID)
		}
		byID[result.ID] = result
	}
	if len(byID) != len(batch) {
		return nil, fmt.Errorf("classification response covered %d of %d emails", len(byID), len(batch))
	}

	ordered := make([]model.EmailClassification, 0, len(batch))
	for _, email := range batch {
		result, ok := byID[email.ID]
		if !ok {
			return nil, fmt.Errorf("classification response missing id %q", email.ID)
		}
		ordered = append(ordered, result)
	}
	return ordered, nil
}

const contentSystemPrompt = `You classify emails. For each entry decide whether the email concerns
the recipient's personal medical care, based on its subject and snippet.
Marketing, newsletters, and appointment ads are not medical.
Respond with JSON: {"results":[{"id":"...","is_medical":true,"confidence":0.0,"category":"..."}]}.
Return one result per input id, using the ids exactly as given.`

// ClassifyContent runs the full-content pass over screened candidates.
// A transport failure degrades to a conservative non-medical verdict per
// email rather than aborting the scan; a successful call that yields no
// usable results is an error.
func (c *Classifier) ClassifyContent(ctx context.Context, emails []model.EmailContent) ([]model.EmailClassification, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	var input strings.Builder
	for _, email := range emails {
		input.WriteString(fmt.Sprintf("id: %s\nsubject: %s\nsnippet: %s\n\n", email.ID, email.Subject, email.Snippet))
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: contentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: input.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("Content classification call failed, falling back to non-medical:", err)
		return fallbackClassifications(emails), nil
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	parsed, err := parseClassifications(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("content classification returned no results")
	}

	byID := make(map[string]model.EmailClassification, len(parsed))
	for _, result := range parsed {
		byID[result.ID] = result
	}

	ordered := make([]model.EmailClassification, 0, len(emails))
	for _, email := range emails {
		if result, ok := byID[email.ID]; ok {
			ordered = append(ordered, result)
		} else {
			ordered = append(ordered, fallbackClassification(email.ID))
		}
	}
	return ordered, nil
}

func fallbackClassification(id string) model.EmailClassification {
	return model.EmailClassification{ID: id, IsMedical: false, Confidence: 0.5}
}

func fallbackClassifications(emails []model.EmailContent) []model.EmailClassification {
	results := make([]model.EmailClassification, 0, len(emails))
	for _, email := range emails {
		results = append(results, fallbackClassification(email.ID))
	}
	return results
}

// parseClassifications tolerates models that wrap JSON in a code fence.
func parseClassifications(content string) ([]model.EmailClassification, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start > 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var result classificationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}
	return result.Results, nil
}
