package model

import "time"

// AttachmentRef points into the mail provider's attachment store.
// Content is fetched lazily and never cached locally.
type AttachmentRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

// EmailMessage is the decoded form of one provider message. It is built
// once, classified, and discarded unless its attachments turn out medical.
type EmailMessage struct {
	ID          string          `json:"id"`
	Subject     string          `json:"subject"`
	From        string          `json:"from"`
	Date        time.Time       `json:"date"`
	Body        string          `json:"body"`
	Attachments []AttachmentRef `json:"attachments"`
}

// EmailSummary is the minimal input for batch subject-only screening.
type EmailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}

// EmailContent carries richer context for full-content classification.
type EmailContent struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// EmailClassification is the model's verdict for one email, correlated by ID.
// Confidence is model-reported and uncalibrated; IsMedical is the model's
// own decision boundary. Callers choosing a confidence cutoff use
// Medical with an explicit per-classifier threshold.
type EmailClassification struct {
	ID         string  `json:"id"`
	IsMedical  bool    `json:"is_medical"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category,omitempty"`
}

// Medical reports whether this email should be treated as medical at the
// given confidence threshold.
func (c EmailClassification) Medical(threshold float64) bool {
	return c.IsMedical && c.Confidence >= threshold
}
