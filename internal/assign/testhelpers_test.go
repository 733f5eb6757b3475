package assign

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asimorth/competitor-lens/internal/model"
	"github.com/asimorth/competitor-lens/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

type fixture struct {
	store      store.Store
	competitor *model.Competitor
	features   map[string]*model.Feature
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := newTestStore(t)

	comp, err := st.EnsureCompetitor(ctx, "Binance TR")
	require.NoError(t, err)

	f := &fixture{store: st, competitor: comp, features: make(map[string]*model.Feature)}
	for _, name := range []string{"KYC", "Staking", "Trading", "Wallet"} {
		feat, err := st.EnsureFeature(ctx, name, "core")
		require.NoError(t, err)
		f.features[name] = feat
	}
	return f
}

func (f *fixture) addScreenshot(t *testing.T, path string) *model.Screenshot {
	t.Helper()
	shot := &model.Screenshot{
		CompetitorID: f.competitor.ID,
		FilePath:     path,
		FileName:     filepath.Base(path),
		MimeType:     "image/png",
	}
	require.NoError(t, f.store.CreateScreenshot(context.Background(), shot))
	return shot
}

type fixedText struct {
	text string
}

func (x *fixedText) ExtractText(ctx context.Context, imagePath string) (string, error) {
	return x.text, nil
}
