package eventlog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/eventlog"
)

const validMapping = `{
  "process_id": "custom",
  "name": "Custom Process",
  "case_id": {"primary_table": "ZHDR", "field": "DOCNR"},
  "tables": {
    "ZHDR": {
      "class": "transaction",
      "tcode_field": "TCODE",
      "tcode_activities": {"Z001": "Create Custom Document"},
      "activities": [{"activity": "", "timestamp_field": "ERDAT"}]
    }
  },
  "kpis": [{"name": "custom_docs", "unit": "count", "activity": "Create Custom Document"}]
}`

func TestParseMappingValid(t *testing.T) {
	t.Parallel()

	mapping, err := eventlog.ParseMapping([]byte(validMapping))
	require.NoError(t, err)

	assert.Equal(t, "custom", mapping.ProcessID)
	assert.Equal(t, "ZHDR", mapping.CaseID.PrimaryTable)
	assert.Equal(t, eventlog.ClassTransaction, mapping.Tables["ZHDR"].Class)
	assert.Equal(t, "Create Custom Document", mapping.Tables["ZHDR"].TCodeActivities["Z001"])
	require.Len(t, mapping.KPIs, 1)
	assert.Equal(t, "custom_docs", mapping.KPIs[0].Name)
}

func TestParseMappingMissingProcessID(t *testing.T) {
	t.Parallel()

	_, err := eventlog.ParseMapping([]byte(`{
	  "case_id": {"primary_table": "ZHDR", "field": "DOCNR"},
	  "tables": {"ZHDR": {"class": "record"}}
	}`))

	require.Error(t, err)
	require.ErrorIs(t, err, eventlog.ErrValidation)
	assert.ErrorContains(t, err, "process_id")
}

func TestParseMappingUnknownClass(t *testing.T) {
	t.Parallel()

	_, err := eventlog.ParseMapping([]byte(`{
	  "process_id": "custom",
	  "case_id": {"primary_table": "ZHDR", "field": "DOCNR"},
	  "tables": {"ZHDR": {"class": "mystery"}}
	}`))

	require.Error(t, err)
	require.ErrorIs(t, err, eventlog.ErrValidation)
}

func TestParseMappingEmptyTables(t *testing.T) {
	t.Parallel()

	_, err := eventlog.ParseMapping([]byte(`{
	  "process_id": "custom",
	  "case_id": {"primary_table": "ZHDR", "field": "DOCNR"},
	  "tables": {}
	}`))

	require.Error(t, err)
	require.ErrorIs(t, err, eventlog.ErrValidation)
}

func TestParseMappingMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := eventlog.ParseMapping([]byte(`{not json`))

	require.Error(t, err)
}

func TestDefaultMappings(t *testing.T) {
	t.Parallel()

	ids := eventlog.DefaultMappingIDs()
	assert.Equal(t, []string{"a2r", "h2r", "m2s", "o2c", "p2m", "p2p", "r2r"}, ids)

	for _, id := range ids {
		mapping := eventlog.DefaultMapping(id)
		require.NotNil(t, mapping, id)
		assert.Equal(t, id, mapping.ProcessID, id)
		assert.NotEmpty(t, mapping.Tables, id)
		assert.NotEmpty(t, mapping.CaseID.PrimaryTable, id)
	}

	assert.Nil(t, eventlog.DefaultMapping("unknown"))
}
