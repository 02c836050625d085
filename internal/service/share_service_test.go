package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medvault/internal/model"
	"medvault/internal/repository/memory"
)

func shareFixture(t *testing.T) (ShareService, *memory.MemoryHealthRecordRepository, []*model.HealthRecord) {
	t.Helper()
	shareRepo := memory.NewMemoryShareRepository()
	recordRepo := memory.NewMemoryHealthRecordRepository()
	svc := NewShareService(shareRepo, recordRepo, testLogger())

	var records []*model.HealthRecord
	for i := 0; i < 2; i++ {
		record := model.NewHealthRecord("owner", "owner/key.pdf", "labs.pdf", successAnalysis())
		require.NoError(t, recordRepo.Create(context.Background(), record))
		records = append(records, record)
	}
	return svc, recordRepo, records
}

func TestCreateShareRejectsForeignRecords(t *testing.T) {
	svc, recordRepo, records := shareFixture(t)

	foreign := model.NewHealthRecord("other-user", "other/key.pdf", "labs.pdf", successAnalysis())
	require.NoError(t, recordRepo.Create(context.Background(), foreign))

	_, err := svc.CreateShare(context.Background(), "owner", []string{records[0].ID, foreign.ID})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.CreateShare(context.Background(), "owner", []string{"no-such-record"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCreateShareRequiresRecords(t *testing.T) {
	svc, _, _ := shareFixture(t)
	_, err := svc.CreateShare(context.Background(), "owner", nil)
	assert.Error(t, err)
}

func TestOpenShareIsSingleUse(t *testing.T) {
	svc, _, records := shareFixture(t)

	share, err := svc.CreateShare(context.Background(), "owner", []string{records[0].ID, records[1].ID})
	require.NoError(t, err)
	assert.False(t, share.Accessed)

	got, err := svc.OpenShare(context.Background(), "viewer-1", share.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Second viewer is rejected, including the first one coming back
	_, err = svc.OpenShare(context.Background(), "viewer-2", share.ID)
	assert.ErrorIs(t, err, ErrShareConsumed)
	_, err = svc.OpenShare(context.Background(), "viewer-1", share.ID)
	assert.ErrorIs(t, err, ErrShareConsumed)
}

func TestOpenShareConcurrentViewersConsumeOnce(t *testing.T) {
	svc, _, records := shareFixture(t)

	share, err := svc.CreateShare(context.Background(), "owner", []string{records[0].ID})
	require.NoError(t, err)

	const viewers = 8
	errs := make([]error, viewers)
	var wg sync.WaitGroup
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.OpenShare(context.Background(), fmt.Sprintf("viewer-%d", i), share.ID)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrShareConsumed)
	}
	assert.Equal(t, 1, won)
}

func TestOpenShareOwnerNeverConsumes(t *testing.T) {
	svc, _, records := shareFixture(t)

	share, err := svc.CreateShare(context.Background(), "owner", []string{records[0].ID})
	require.NoError(t, err)

	_, err = svc.OpenShare(context.Background(), "owner", share.ID)
	assert.ErrorIs(t, err, ErrShareOwnView)

	// The owner's attempt must not burn the share
	got, err := svc.OpenShare(context.Background(), "viewer-1", share.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenShareUnknownID(t *testing.T) {
	svc, _, _ := shareFixture(t)
	_, err := svc.OpenShare(context.Background(), "viewer-1", "nope")
	assert.ErrorIs(t, err, ErrShareNotFound)
}

func TestOpenShareSkipsDeletedRecords(t *testing.T) {
	svc, recordRepo, records := shareFixture(t)

	share, err := svc.CreateShare(context.Background(), "owner", []string{records[0].ID, records[1].ID})
	require.NoError(t, err)

	require.NoError(t, recordRepo.Delete(context.Background(), records[1].ID))

	got, err := svc.OpenShare(context.Background(), "viewer-1", share.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
