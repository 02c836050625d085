package ai

import (
	"context"

	"medvault/internal/model"
)

// MockClassifier is a configurable stand-in used in tests.
type MockClassifier struct {
	ScreenSubjectsFunc  func(ctx context.Context, emails []model.EmailSummary) ([]model.EmailClassification, error)
	ClassifyContentFunc func(ctx context.Context, emails []model.EmailContent) ([]model.EmailClassification, error)
	ThresholdValue      float64
}

func (m *MockClassifier) ScreenSubjects(ctx context.Context, emails []model.EmailSummary) ([]model.EmailClassification, error) {
	if m.ScreenSubjectsFunc != nil {
		return m.ScreenSubjectsFunc(ctx, emails)
	}
	results := make([]model.EmailClassification, 0, len(emails))
	for _, email := range emails {
		results = append(results, model.EmailClassification{ID: email.ID, IsMedical: true, Confidence: 1})
	}
	return results, nil
}

func (m *MockClassifier) ClassifyContent(ctx context.Context, emails []model.EmailContent) ([]model.EmailClassification, error) {
	if m.ClassifyContentFunc != nil {
		return m.ClassifyContentFunc(ctx, emails)
	}
	results := make([]model.EmailClassification, 0, len(emails))
	for _, email := range emails {
		results = append(results, model.EmailClassification{ID: email.ID, IsMedical: true, Confidence: 1})
	}
	return results, nil
}

func (m *MockClassifier) ClassifyThreshold() float64 {
	return m.ThresholdValue
}

// MockAnalyzer is a configurable stand-in used in tests.
type MockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error)
}

func (m *MockAnalyzer) Analyze(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, pdf, language)
	}
	return &model.DocumentAnalysis{
		Status:     model.AnalysisStatusSuccess,
		RecordType: "lab_report",
		RecordName: "Blood Panel",
		Summary:    "Routine blood panel results.",
	}, nil
}
