package pagination_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/cli/pagination"
	"github.com/rshade/carbonfocus/internal/emission"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  pagination.Params
		wantErr error
	}{
		{"defaults", pagination.NewParams(), nil},
		{"unlimited", pagination.Params{}, nil},
		{"page mode", pagination.Params{Page: 2, PageSize: 10}, nil},
		{"negative limit", pagination.Params{Limit: -1}, pagination.ErrInvalidLimit},
		{"limit too large", pagination.Params{Limit: 10001}, pagination.ErrInvalidLimit},
		{"negative offset", pagination.Params{Offset: -1}, pagination.ErrInvalidOffset},
		{"mixed modes", pagination.Params{Page: 1, PageSize: 5, Offset: 3}, pagination.ErrMixedPaginationModes},
		{"page size alone", pagination.Params{PageSize: 5}, pagination.ErrPageSizeWithoutPage},
		{"page without size", pagination.Params{Page: 1}, pagination.ErrInvalidPageSize},
		{"negative page", pagination.Params{Page: -1}, pagination.ErrInvalidPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	tests := []struct {
		name   string
		params pagination.Params
		want   []int
	}{
		{"unlimited", pagination.Params{}, items},
		{"limit", pagination.Params{Limit: 3}, []int{1, 2, 3}},
		{"offset and limit", pagination.Params{Offset: 5, Limit: 3}, []int{6, 7}},
		{"offset past end", pagination.Params{Offset: 9}, []int{}},
		{"second page", pagination.Params{Page: 2, PageSize: 3}, []int{4, 5, 6}},
		{"last partial page", pagination.Params{Page: 3, PageSize: 3}, []int{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pagination.Apply(tt.params, items))
		})
	}
}

func TestNewMeta(t *testing.T) {
	p := pagination.Params{Page: 2, PageSize: 3}
	meta := pagination.NewMeta(p, 7, 3)
	assert.Equal(t, pagination.Meta{
		TotalItems: 7, Offset: 3, Limit: 3, Page: 2, TotalPages: 3, Returned: 3, HasMore: true,
	}, meta)

	last := pagination.NewMeta(pagination.Params{Offset: 5, Limit: 10}, 7, 2)
	assert.False(t, last.HasMore)
	assert.Zero(t, last.TotalPages)
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in        string
		wantField string
		wantOrder string
		wantErr   error
	}{
		{"", "", "asc", nil},
		{"co2e", "co2e", "asc", nil},
		{"date:DESC", "date", "desc", nil},
		{"date:sideways", "", "", pagination.ErrInvalidSortOrder},
		{":desc", "", "", pagination.ErrEmptySortField},
		{"a:b:c", "", "", pagination.ErrInvalidSortFormat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			field, order, err := pagination.ParseSort(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantOrder, order)
		})
	}
}

func TestSortRecords(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	records := []emission.Record{
		{ID: "b", Date: day(2), CO2eKg: 10, CategoryID: "fuel", Scope: emission.Scope1},
		{ID: "a", Date: day(2), CO2eKg: 30, CategoryID: "elec", Scope: emission.Scope2},
		{ID: "c", Date: day(1), CO2eKg: 20, CategoryID: "travel", Scope: emission.Scope3},
	}
	ids := func(rs []emission.Record) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	got, err := pagination.SortRecords(records, "date", "asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(got), "id breaks the date tie")

	got, err = pagination.SortRecords(records, "CO2E", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(got))

	got, err = pagination.SortRecords(records, "", "asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))

	_, err = pagination.SortRecords(records, "mood", "asc")
	require.ErrorIs(t, err, pagination.ErrInvalidSortField)
	assert.Equal(t, []string{"category", "co2e", "date", "scope", "source"}, pagination.RecordSortFields())
}
