package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/extract"
)

type stubExtractor struct {
	desc extract.Descriptor
}

func (s *stubExtractor) Descriptor() extract.Descriptor {
	return s.desc
}

func (s *stubExtractor) ExpectedTables() []extract.TableExpectation {
	return nil
}

func (s *stubExtractor) Extract(context.Context, *extract.Session) (map[string]any, error) {
	return map[string]any{}, nil
}

func stubFactory(id, module string) extract.Factory {
	return func() extract.Extractor {
		return &stubExtractor{desc: extract.Descriptor{ID: id, Name: id, Module: module}}
	}
}

func TestRegistryRegisterAndNew(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	require.NoError(t, registry.Register(stubFactory("finance", "FI")))
	require.NoError(t, registry.Register(stubFactory("sales", "SD")))

	assert.Equal(t, 2, registry.Len())

	ex, err := registry.New("finance")
	require.NoError(t, err)
	assert.Equal(t, "finance", ex.Descriptor().ID)

	_, err = registry.New("unknown")
	require.ErrorIs(t, err, extract.ErrUnknownExtractorID)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	require.NoError(t, registry.Register(stubFactory("finance", "FI")))

	err := registry.Register(stubFactory("finance", "FI"))
	require.ErrorIs(t, err, extract.ErrDuplicateExtractorID)

	assert.Panics(t, func() {
		registry.MustRegister(stubFactory("finance", "FI"))
	})
}

func TestRegistryOrdering(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	require.NoError(t, registry.Register(stubFactory("zulu", "FI")))
	require.NoError(t, registry.Register(stubFactory("alpha", "SD")))

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "zulu", all[0].ID)
	assert.Equal(t, "alpha", all[1].ID)

	assert.Equal(t, []string{"alpha", "zulu"}, registry.IDs())
}

func TestRegistryByModule(t *testing.T) {
	t.Parallel()

	registry := extract.NewRegistry()
	require.NoError(t, registry.Register(stubFactory("finance", "FI")))
	require.NoError(t, registry.Register(stubFactory("ledger", "FI")))
	require.NoError(t, registry.Register(stubFactory("sales", "SD")))

	fi := registry.ByModule("FI")
	require.Len(t, fi, 2)
	assert.Equal(t, "finance", fi[0].ID)

	assert.Len(t, registry.ByModule(""), 3)
	assert.Empty(t, registry.ByModule("HR"))
}
