package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-analytics-terminal/internal/config"
	"trade-analytics-terminal/internal/database"
	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewDatabase(&config.Config{Database: config.Database{DSN: "file::memory:"}})
	require.NoError(t, err)
	return NewService(db, zap.NewNop())
}

func TestSetAndGetMTM(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.SetMTM(ctx, "Brent", "2605", 85)
	require.NoError(t, err)
	_, err = s.SetMTM(ctx, "Brent", "2605", 86.5)
	require.NoError(t, err)
	_, err = s.SetMTM(ctx, models.GenericProduct, "2606", 70)
	require.NoError(t, err)

	px, ok, err := s.GetMTM(ctx, "Brent", "2605")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 86.5, px)

	px, ok, err = s.GetMTM(ctx, "JKM", "2606")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 70.0, px, "falls back to the generic contract price")

	_, ok, err = s.GetMTM(ctx, "JKM", "2607")
	require.NoError(t, err)
	assert.False(t, ok)

	prices, err := s.Prices(ctx, "Brent", "")
	require.NoError(t, err)
	assert.Len(t, prices, 1, "upsert keeps one row per product contract")

	_, err = s.SetMTM(ctx, "", "2605", 1)
	assert.ErrorIs(t, err, ErrInvalidPrices)
}

func TestImportMTM_Shapes(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	count, err := s.ImportMTM(ctx, map[string]any{
		"marketPrices": map[string]any{
			"Brent":     map[string]any{"2605": 85.5, "2606": "84.25"},
			"JKM::2602": 12.4,
			"2607":      70.0,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, count)

	book, err := s.PriceMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.PriceBook{
		"Brent::2605":   85.5,
		"Brent::2606":   84.25,
		"JKM::2602":     12.4,
		"GENERIC::2607": 70,
	}, book)
}

func TestImportMTM_InvalidValueWritesNothing(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.ImportMTM(ctx, map[string]any{
		"Brent::2605": 85.5,
		"Brent::2606": []any{1, 2},
	})
	assert.ErrorIs(t, err, ErrInvalidPrices)

	prices, err := s.Prices(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestDailyPackage(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.LatestDailyPackage(ctx)
	assert.ErrorIs(t, err, ErrNoDailyPackage)

	_, err = s.ImportDailyPackage(ctx, DailyPackageInput{Prices: map[string]float64{"Brent": 80}})
	assert.ErrorIs(t, err, ErrInvalidPackage)
	_, err = s.ImportDailyPackage(ctx, DailyPackageInput{Date: "2026-03-02"})
	assert.ErrorIs(t, err, ErrInvalidPackage)

	_, err = s.ImportDailyPackage(ctx, DailyPackageInput{Date: "2026-03-02", Prices: map[string]float64{"Brent": 80}})
	require.NoError(t, err)
	_, err = s.ImportDailyPackage(ctx, DailyPackageInput{Date: "2026-03-02", Prices: map[string]float64{"Brent": 81, "WTI": 77}, NewsText: "OPEC"})
	require.NoError(t, err)

	latest, err := s.LatestDailyPackage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", latest.Date)
	assert.Equal(t, map[string]float64{"Brent": 81, "WTI": 77}, latest.Prices)
	assert.Equal(t, "OPEC", latest.NewsText)
}

func TestClear(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	_, err := s.SetMTM(ctx, "Brent", "2605", 85)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	prices, err := s.Prices(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

// MockQuoteClient is a mock implementation of the quotes.ClientInterface.
type MockQuoteClient struct {
	mock.Mock
}

func (m *MockQuoteClient) FetchSnapshot(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	snapshot, _ := args.Get(0).(map[string]any)
	return snapshot, args.Error(1)
}

func TestPoller_ImportsSnapshots(t *testing.T) {
	// Arrange
	s := setupService(t)
	client := new(MockQuoteClient)
	client.On("FetchSnapshot", mock.Anything).Return(map[string]any{"Brent::2605": 88.0}, nil)
	poller := NewPoller(zap.NewNop(), client, s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	// Act
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	// Assert
	assert.Eventually(t, func() bool {
		px, ok, err := s.GetMTM(context.Background(), "Brent", "2605")
		return err == nil && ok && px == 88.0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	client.AssertCalled(t, "FetchSnapshot", mock.Anything)
}

func TestPoller_SurvivesFetchErrors(t *testing.T) {
	s := setupService(t)
	client := new(MockQuoteClient)
	client.On("FetchSnapshot", mock.Anything).Return(nil, errors.New("feed down"))
	poller := NewPoller(zap.NewNop(), client, s, time.Hour)

	poller.poll(context.Background())

	prices, err := s.Prices(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, prices)
	client.AssertNumberOfCalls(t, "FetchSnapshot", 1)
}
