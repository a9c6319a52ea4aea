package ingest_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/ingest"
	"github.com/rshade/carbonfocus/internal/store/memory"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "dataset.yaml"))
	require.NoError(t, err)
	return data
}

func TestParse_YAML(t *testing.T) {
	ds, err := ingest.Parse(context.Background(), readFixture(t), ingest.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "1.1.0", ds.SchemaVersion)
	require.Len(t, ds.Categories, 2)
	assert.Equal(t, 6, ds.Categories[1].Scope3Category)
	require.Len(t, ds.Factors, 2)

	f, err := ds.Factors[0].Factor()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.ValidFrom)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), f.ValidUntil)

	f, err = ds.Factors[1].Factor()
	require.NoError(t, err)
	require.NotNil(t, f.FactorKgCO2)
	assert.InDelta(t, 0.24, *f.FactorKgCO2, 1e-12)
	assert.True(t, f.ValidFrom.IsZero())

	act, err := ds.Activities[0].Activity()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), act.Date)
	assert.True(t, act.Measured)
}

func TestParse_JSON(t *testing.T) {
	doc := `{"schema_version":"1.0.0","transactions":[{"id":"t","organization_id":"o","date":"2024-02-01","amount":3,"currency":"USD"}]}`
	ds, err := ingest.Parse(context.Background(), []byte(doc), ingest.FormatJSON)
	require.NoError(t, err)
	tx, err := ds.Transactions[0].Transaction()
	require.NoError(t, err)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, 2024, tx.Date.Year())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		format  ingest.Format
		wantErr error
	}{
		{"missing version", "categories: []\n", ingest.FormatYAML, ingest.ErrMissingSchemaVersion},
		{"bad version", "schema_version: banana\n", ingest.FormatYAML, ingest.ErrInvalidSchemaVersion},
		{"future major", "schema_version: 2.0.0\n", ingest.FormatYAML, ingest.ErrUnsupportedSchema},
		{"old major", "schema_version: 0.9.0\n", ingest.FormatYAML, ingest.ErrUnsupportedSchema},
		{"unknown format", "{}", ingest.Format("toml"), ingest.ErrUnknownFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.Parse(context.Background(), []byte(tt.doc), tt.format)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ingest.Parse(context.Background(), []byte("schema_version: [1"), ingest.FormatYAML)
	require.Error(t, err)
}

func TestRowConversion_InvalidDates(t *testing.T) {
	_, err := ingest.TransactionRow{ID: "t"}.Transaction()
	require.ErrorIs(t, err, ingest.ErrInvalidDate)

	_, err = ingest.ActivityRow{ID: "a", Date: "31/03/2024"}.Activity()
	require.ErrorIs(t, err, ingest.ErrInvalidDate)

	_, err = ingest.FactorRow{ID: "f", ValidUntil: "soon"}.Factor()
	require.ErrorIs(t, err, ingest.ErrInvalidDate)
}

func TestParseLocation(t *testing.T) {
	loc, err := ingest.ParseLocation("s3://bucket/path/to/data.yaml")
	require.NoError(t, err)
	assert.True(t, loc.IsS3())
	assert.Equal(t, "bucket", loc.Bucket)
	assert.Equal(t, "path/to/data.yaml", loc.Key)
	assert.Equal(t, "s3://bucket/path/to/data.yaml", loc.String())

	loc, err = ingest.ParseLocation("https://bucket.s3.eu-west-3.amazonaws.com/data.yaml")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-3", loc.Region)
	assert.Equal(t, "s3://bucket/data.yaml", loc.String())

	loc, err = ingest.ParseLocation("./data.json")
	require.NoError(t, err)
	assert.False(t, loc.IsS3())
	assert.Equal(t, "./data.json", loc.String())

	for _, bad := range []string{"", "s3://", "s3://bucket", "s3://bucket/"} {
		_, err := ingest.ParseLocation(bad)
		require.ErrorIs(t, err, ingest.ErrInvalidLocation, bad)
	}
}

type fakeS3 struct {
	objects map[string]string
	gotKey  string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = *in.Bucket + "/" + *in.Key
	body, ok := f.objects[f.gotKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestReader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		ds, err := ingest.NewReader().Load(ctx, filepath.Join("testdata", "dataset.yaml"))
		require.NoError(t, err)
		assert.Len(t, ds.Transactions, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ingest.NewReader().Load(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("s3 json object", func(t *testing.T) {
		client := &fakeS3{objects: map[string]string{
			"datasets/acme/2024.json": `{"schema_version":"1.0.0","organizations":[{"id":"acme"}]}`,
		}}
		ds, err := ingest.NewReader(ingest.WithS3Client(client)).Load(ctx, "s3://datasets/acme/2024.json")
		require.NoError(t, err)
		assert.Equal(t, "datasets/acme/2024.json", client.gotKey)
		require.Len(t, ds.Organizations, 1)
	})

	t.Run("s3 failure", func(t *testing.T) {
		client := &fakeS3{objects: map[string]string{}}
		_, err := ingest.NewReader(ingest.WithS3Client(client)).Load(ctx, "s3://datasets/none.yaml")
		require.Error(t, err)
	})
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("CARBONFOCUS_S3_REGION", "eu-west-3")
	t.Setenv("CARBONFOCUS_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("CARBONFOCUS_S3_PATH_STYLE", "true")

	cfg, err := ingest.S3ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ingest.S3Config{Region: "eu-west-3", Endpoint: "http://localhost:9000", PathStyle: true}, cfg)
}

type recordingSaver struct {
	*memory.Store
	saved []string
}

func (r *recordingSaver) SaveFactor(ctx context.Context, f emission.Factor) error {
	r.saved = append(r.saved, f.ID)
	return r.Store.SaveFactor(ctx, f)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	ds, err := ingest.Parse(ctx, readFixture(t), ingest.FormatYAML)
	require.NoError(t, err)

	st := memory.New()
	saver := &recordingSaver{Store: st}
	stats, err := ingest.Apply(ctx, ds, st, saver)
	require.NoError(t, err)
	assert.Equal(t, ingest.LoadStats{Categories: 2, Factors: 2, Organizations: 1, Sites: 1, Transactions: 1, Activities: 1}, stats)
	assert.Equal(t, []string{"elec-fr-2024", "travel-eur"}, saver.saved)

	txs, err := st.ListTransactions(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.InDelta(t, 420.5, txs[0].Amount, 1e-12)

	factors, err := st.ListFactors(ctx, "electricity", "kwh")
	require.NoError(t, err)
	assert.Len(t, factors, 1)

	again, err := ingest.Apply(ctx, ds, st, saver)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
	txs, err = st.ListTransactions(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, txs, 1, "re-applying is idempotent")
}

func TestApply_StopsOnFirstError(t *testing.T) {
	ctx := context.Background()
	ds := &ingest.Dataset{
		SchemaVersion: "1.0.0",
		Transactions:  []ingest.TransactionRow{{ID: "", OrganizationID: "o", Date: "2024-01-01"}},
	}
	st := memory.New()
	stats, err := ingest.Apply(ctx, ds, st, st)
	require.Error(t, err)
	assert.Zero(t, stats.Transactions)

	stats, err = ingest.Apply(ctx, nil, st, st)
	require.NoError(t, err)
	assert.Equal(t, ingest.LoadStats{}, stats)
}
