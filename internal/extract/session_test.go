package extract_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/coverage"
	"github.com/ib823/sapforensics/internal/extract"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// probeExtractor runs an arbitrary body against the session.
type probeExtractor struct {
	body func(ctx context.Context, sess *extract.Session) (map[string]any, error)
}

func (p *probeExtractor) Descriptor() extract.Descriptor {
	return extract.Descriptor{ID: "probe", Name: "Probe", Module: "BASIS", Category: "config"}
}

func (p *probeExtractor) ExpectedTables() []extract.TableExpectation {
	return nil
}

func (p *probeExtractor) Extract(ctx context.Context, sess *extract.Session) (map[string]any, error) {
	return p.body(ctx, sess)
}

func runProbe(t *testing.T, ec *extract.Context, body func(ctx context.Context, sess *extract.Session) (map[string]any, error)) extract.Result {
	t.Helper()

	return extract.Run(context.Background(), ec, &probeExtractor{body: body})
}

func TestSessionOfflineReadTable(t *testing.T) {
	t.Parallel()

	fixtures := extract.NewFixtureSet().
		AddTable("T001", []extract.Row{{"BUKRS": "1000"}, {"BUKRS": "2000"}})
	ec := extract.NewContext(extract.ModeOffline, nil, fixtures, quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		rows, err := sess.ReadTable(ctx, "T001", extract.ReadOptions{})
		require.NoError(t, err)

		return map[string]any{"rows": rows}, nil
	})

	require.False(t, result.Failed())
	assert.Len(t, result.Rows("rows"), 2)

	record := ec.Coverage.Report("probe").Tables["T001"]
	assert.Equal(t, coverage.StatusExtracted, record.Status)
	assert.Equal(t, 2, record.Detail.RowCount)
}

func TestSessionOfflineReadTableRowLimit(t *testing.T) {
	t.Parallel()

	fixtures := extract.NewFixtureSet().
		AddTable("BKPF", []extract.Row{
			{"BELNR": "1"}, {"BELNR": "2"}, {"BELNR": "3"}, {"BELNR": "4"},
		})
	ec := extract.NewContext(extract.ModeOffline, nil, fixtures, quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		rows, err := sess.ReadTable(ctx, "BKPF", extract.ReadOptions{MaxRows: 3})
		require.NoError(t, err)

		return map[string]any{"rows": rows}, nil
	})

	require.False(t, result.Failed())
	assert.Len(t, result.Rows("rows"), 3)

	// Same semantics as a live read stopped at the cap.
	record := ec.Coverage.Report("probe").Tables["BKPF"]
	assert.Equal(t, coverage.StatusPartial, record.Status)
	assert.Equal(t, 3, record.Detail.RowCount)
	assert.Equal(t, "row limit reached", record.Detail.Reason)
}

func TestSessionOfflineReadTableUnderRowLimit(t *testing.T) {
	t.Parallel()

	fixtures := extract.NewFixtureSet().
		AddTable("T001", []extract.Row{{"BUKRS": "1000"}, {"BUKRS": "2000"}})
	ec := extract.NewContext(extract.ModeOffline, nil, fixtures, quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		rows, err := sess.ReadTable(ctx, "T001", extract.ReadOptions{MaxRows: 10})
		require.NoError(t, err)

		return map[string]any{"rows": rows}, nil
	})

	require.False(t, result.Failed())
	assert.Len(t, result.Rows("rows"), 2)

	record := ec.Coverage.Report("probe").Tables["T001"]
	assert.Equal(t, coverage.StatusExtracted, record.Status)
	assert.Equal(t, 2, record.Detail.RowCount)
}

func TestSessionOfflineMissingFixture(t *testing.T) {
	t.Parallel()

	ec := extract.NewContext(extract.ModeOffline, nil, extract.NewFixtureSet(), quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		_, err := sess.ReadTable(ctx, "USR02", extract.ReadOptions{})
		require.ErrorIs(t, err, extract.ErrNoFixture)

		return map[string]any{}, nil
	})

	require.False(t, result.Failed())

	record := ec.Coverage.Report("probe").Tables["USR02"]
	assert.Equal(t, coverage.StatusSkipped, record.Status)
	assert.Equal(t, "no offline fixture", record.Detail.Reason)
}

func TestSessionOfflineFunctionAndOData(t *testing.T) {
	t.Parallel()

	fixtures := extract.NewFixtureSet().
		AddFunction("DDIF_FIELDINFO_GET", map[string]any{"DFIES_TAB": []any{}}).
		AddOData("API_CV", "Entities", []extract.Row{{"ID": "1"}})
	ec := extract.NewContext(extract.ModeOffline, nil, fixtures, quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		fm, err := sess.CallFunction(ctx, "DDIF_FIELDINFO_GET", nil)
		require.NoError(t, err)

		rows, err := sess.ReadOData(ctx, "API_CV", "Entities")
		require.NoError(t, err)

		_, err = sess.CallFunction(ctx, "MISSING_FM", nil)
		require.ErrorIs(t, err, extract.ErrNoFixture)

		return map[string]any{"fm": fm, "odata": rows}, nil
	})

	require.False(t, result.Failed())

	tables := ec.Coverage.Report("probe").Tables
	assert.Equal(t, coverage.StatusExtracted, tables["FM:DDIF_FIELDINFO_GET"].Status)
	assert.Equal(t, coverage.StatusExtracted, tables["OD:API_CV/Entities"].Status)
	assert.Equal(t, coverage.StatusSkipped, tables["FM:MISSING_FM"].Status)
}

func TestSessionStreamTable(t *testing.T) {
	t.Parallel()

	rows := make([]extract.Row, 25)
	for i := range rows {
		rows[i] = extract.Row{"N": i}
	}

	fixtures := extract.NewFixtureSet().AddTable("CDHDR", rows)
	ec := extract.NewContext(extract.ModeOffline, nil, fixtures, quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		iter, err := sess.StreamTable(ctx, "CDHDR", extract.StreamOptions{ChunkSize: 10})
		require.NoError(t, err)

		total := 0
		chunks := 0

		for {
			chunk, ok := iter.Next()
			if !ok {
				break
			}

			total += len(chunk.Rows)
			chunks++
		}

		require.NoError(t, iter.Err())
		require.NoError(t, iter.Close())

		return map[string]any{"total": total, "chunks": chunks}, nil
	})

	require.False(t, result.Failed())
	assert.Equal(t, 25, result.Payload["total"])
	assert.Equal(t, 3, result.Payload["chunks"])

	record := ec.Coverage.Report("probe").Tables["CDHDR"]
	assert.Equal(t, coverage.StatusExtracted, record.Status)
	assert.Equal(t, 25, record.Detail.RowCount)
}

func TestSessionStreamClosedEarlyIsPartial(t *testing.T) {
	t.Parallel()

	rows := make([]extract.Row, 30)
	for i := range rows {
		rows[i] = extract.Row{"N": i}
	}

	fixtures := extract.NewFixtureSet().AddTable("CDPOS", rows)
	ec := extract.NewContext(extract.ModeOffline, nil, fixtures, quietLogger())

	result := runProbe(t, ec, func(ctx context.Context, sess *extract.Session) (map[string]any, error) {
		iter, err := sess.StreamTable(ctx, "CDPOS", extract.StreamOptions{ChunkSize: 10})
		require.NoError(t, err)

		_, ok := iter.Next()
		require.True(t, ok)
		require.NoError(t, iter.Close())

		return map[string]any{}, nil
	})

	require.False(t, result.Failed())

	record := ec.Coverage.Report("probe").Tables["CDPOS"]
	assert.Equal(t, coverage.StatusPartial, record.Status)
	assert.Equal(t, 10, record.Detail.RowCount)
}

func TestRunConvertsPanicToErrorResult(t *testing.T) {
	t.Parallel()

	ec := extract.NewContext(extract.ModeOffline, nil, extract.NewFixtureSet(), quietLogger())

	result := runProbe(t, ec, func(context.Context, *extract.Session) (map[string]any, error) {
		panic("unexpected payload shape")
	})

	require.True(t, result.Failed())
	assert.Contains(t, result.Err, "extractor panic")
	assert.Equal(t, "probe", result.ExtractorID)
}

func TestSessionSkip(t *testing.T) {
	t.Parallel()

	ec := extract.NewContext(extract.ModeOffline, nil, extract.NewFixtureSet(), quietLogger())

	runProbe(t, ec, func(_ context.Context, sess *extract.Session) (map[string]any, error) {
		sess.Skip("PA0008", "payroll data out of scope")

		return map[string]any{}, nil
	})

	record := ec.Coverage.Report("probe").Tables["PA0008"]
	assert.Equal(t, coverage.StatusSkipped, record.Status)
	assert.Equal(t, "payroll data out of scope", record.Detail.Reason)
}
