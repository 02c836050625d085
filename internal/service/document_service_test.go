package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medvault/internal/ai"
	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository/memory"
	"medvault/internal/storage"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard)
}

func successAnalysis() *model.DocumentAnalysis {
	return &model.DocumentAnalysis{
		Status:     model.AnalysisStatusSuccess,
		RecordType: "lab_report",
		RecordName: "Blood Panel",
		Summary:    "Routine blood panel results.",
	}
}

func TestAnalyzeAndStoreSuccess(t *testing.T) {
	recordRepo := memory.NewMemoryHealthRecordRepository()
	store := storage.NewMockStore()
	svc := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())

	record, analysis, err := svc.AnalyzeAndStore(context.Background(), "user-1", "Exámenes.pdf", []byte("%PDF"), "es")

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, analysis.Succeeded())
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "Exámenes.pdf", record.OriginalName)
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Has(record.StoragePath))

	stored, err := recordRepo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.RecordName, stored.RecordName)
}

func TestAnalyzeAndStoreRejectionPersistsNothing(t *testing.T) {
	recordRepo := memory.NewMemoryHealthRecordRepository()
	store := storage.NewMockStore()
	analyzer := &ai.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error) {
			return model.AnalysisError(model.ErrKindNotMedical, "This is a shopping receipt."), nil
		},
	}
	svc := NewDocumentService(recordRepo, analyzer, store, testLogger())

	record, analysis, err := svc.AnalyzeAndStore(context.Background(), "user-1", "receipt.pdf", []byte("%PDF"), "en")

	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, model.ErrKindNotMedical, analysis.ErrorType)
	assert.Equal(t, 0, store.Len())

	records, _ := recordRepo.FindByUserID(context.Background(), "user-1")
	assert.Empty(t, records)
}

type failingRecordRepo struct {
	*memory.MemoryHealthRecordRepository
}

func (r *failingRecordRepo) Create(ctx context.Context, record *model.HealthRecord) error {
	return errors.New("insert failed")
}

func TestAnalyzeAndStoreCompensatesFailedInsert(t *testing.T) {
	recordRepo := &failingRecordRepo{memory.NewMemoryHealthRecordRepository()}
	store := storage.NewMockStore()
	svc := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())

	_, _, err := svc.AnalyzeAndStore(context.Background(), "user-1", "labs.pdf", []byte("%PDF"), "en")

	assert.Error(t, err)
	// The uploaded object must not be left orphaned
	assert.Equal(t, 0, store.Len())
}

func TestAnalyzeAndStoreAnalyzerFailure(t *testing.T) {
	store := storage.NewMockStore()
	analyzer := &ai.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error) {
			return nil, errors.New("api unreachable")
		},
	}
	svc := NewDocumentService(memory.NewMemoryHealthRecordRepository(), analyzer, store, testLogger())

	_, _, err := svc.AnalyzeAndStore(context.Background(), "user-1", "labs.pdf", []byte("%PDF"), "en")

	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func seedRecord(t *testing.T, repo *memory.MemoryHealthRecordRepository, store *storage.MockStore, userID string) *model.HealthRecord {
	t.Helper()
	record := model.NewHealthRecord(userID, "key-"+userID, "labs.pdf", successAnalysis())
	record.StoragePath = userID + "/" + record.ID + ".pdf"
	require.NoError(t, repo.Create(context.Background(), record))
	require.NoError(t, store.Upload(context.Background(), record.StoragePath, []byte("%PDF"), "application/pdf"))
	return record
}

func TestUpdateRecordOwnerOnly(t *testing.T) {
	recordRepo := memory.NewMemoryHealthRecordRepository()
	store := storage.NewMockStore()
	svc := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())
	record := seedRecord(t, recordRepo, store, "user-1")

	name := "Renamed"
	_, err := svc.UpdateRecord(context.Background(), "user-2", record.ID, &model.HealthRecordUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	updated, err := svc.UpdateRecord(context.Background(), "user-1", record.ID, &model.HealthRecordUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	// Untouched fields survive a partial update
	assert.Equal(t, "lab_report", updated.RecordType)
}

func TestDeleteRecordsBestEffort(t *testing.T) {
	recordRepo := memory.NewMemoryHealthRecordRepository()
	store := storage.NewMockStore()
	svc := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())

	first := seedRecord(t, recordRepo, store, "user-1")
	second := model.NewHealthRecord("user-1", "user-1/stuck.pdf", "stuck.pdf", successAnalysis())
	require.NoError(t, recordRepo.Create(context.Background(), second))

	// Second object's storage delete fails; its row must still go
	store.DeleteFunc = func(ctx context.Context, key string) error {
		if key == second.StoragePath {
			return errors.New("storage unavailable")
		}
		return nil
	}

	err := svc.DeleteRecords(context.Background(), "user-1", []string{first.ID, second.ID, "missing-id"})
	require.NoError(t, err)

	records, _ := recordRepo.FindByUserID(context.Background(), "user-1")
	assert.Empty(t, records)
}

func TestDeleteRecordsSkipsForeignRecords(t *testing.T) {
	recordRepo := memory.NewMemoryHealthRecordRepository()
	store := storage.NewMockStore()
	svc := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())
	foreign := seedRecord(t, recordRepo, store, "user-2")

	err := svc.DeleteRecords(context.Background(), "user-1", []string{foreign.ID})
	require.NoError(t, err)

	kept, err := recordRepo.FindByID(context.Background(), foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-2", kept.UserID)
}

func TestRecordURLOwnerOnly(t *testing.T) {
	recordRepo := memory.NewMemoryHealthRecordRepository()
	store := storage.NewMockStore()
	svc := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())
	record := seedRecord(t, recordRepo, store, "user-1")

	url, err := svc.RecordURL(context.Background(), "user-1", record.ID, true)
	require.NoError(t, err)
	assert.Contains(t, url, record.StoragePath)

	_, err = svc.RecordURL(context.Background(), "user-2", record.ID, true)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
