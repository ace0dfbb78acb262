package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/finplan/internal/engine/cache"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{name: "zero value", params: Params{}},
		{name: "offset mode", params: Params{Limit: 10, Offset: 20}},
		{name: "page mode", params: Params{Page: 2, PageSize: 10}},
		{name: "page with limit", params: Params{Page: 2, Limit: 5}},
		{name: "sorted", params: Params{Sort: "createdAt:desc"}},
		{name: "negative limit", params: Params{Limit: -1}, wantErr: ErrNegative},
		{name: "negative offset", params: Params{Offset: -1}, wantErr: ErrNegative},
		{name: "limit too large", params: Params{Limit: MaxLimit + 1}, wantErr: ErrLimitTooLarge},
		{name: "mixed modes", params: Params{Page: 1, PageSize: 5, Offset: 3}, wantErr: ErrMixedModes},
		{name: "page without size", params: Params{Page: 1}, wantErr: ErrPageSizeRequired},
		{name: "bad sort order", params: Params{Sort: "goals:up"}, wantErr: ErrInvalidSortOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in        string
		wantField string
		wantOrder string
		wantErr   error
	}{
		{in: "", wantField: "", wantOrder: "asc"},
		{in: "goals", wantField: "goals", wantOrder: "asc"},
		{in: " createdAt : DESC ", wantField: "createdAt", wantOrder: "desc"},
		{in: "a:b:c", wantErr: ErrInvalidSortFormat},
		{in: ":desc", wantErr: ErrEmptySortField},
		{in: "goals:sideways", wantErr: ErrInvalidSortOrder},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			field, order, err := ParseSort(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantOrder, order)
		})
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	assert.Equal(t, items, Apply(Params{}, items))
	assert.Equal(t, []int{1, 2, 3}, Apply(Params{Limit: 3}, items))
	assert.Equal(t, []int{6, 7}, Apply(Params{Offset: 5, Limit: 3}, items))
	assert.Equal(t, []int{}, Apply(Params{Offset: 10}, items))
	assert.Equal(t, []int{4, 5, 6}, Apply(Params{Page: 2, PageSize: 3}, items))
	// Past the end, page mode falls back to the last page.
	assert.Equal(t, []int{7}, Apply(Params{Page: 9, PageSize: 3}, items))
	assert.Empty(t, Apply(Params{Limit: 2}, []int{}))
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Params{Page: 2, PageSize: 3}, 7)
	assert.Equal(t, Meta{
		CurrentPage: 2, PageSize: 3, TotalPages: 3, TotalItems: 7,
		HasPrevious: true, HasNext: true,
	}, meta)

	meta = NewMeta(Params{Offset: 6, Limit: 3}, 7)
	assert.Equal(t, 3, meta.CurrentPage)
	assert.False(t, meta.HasNext)

	meta = NewMeta(Params{}, 4)
	assert.Equal(t, Meta{CurrentPage: 1, PageSize: 4, TotalPages: 1, TotalItems: 4}, meta)

	meta = NewMeta(Params{}, 0)
	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasNext)
}

func TestSortEntries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []cache.EntryInfo{
		{Fingerprint: "bbb", ClientID: "c2", GoalsCount: 3, CreatedAt: base.Add(time.Hour)},
		{Fingerprint: "aaa", ClientID: "c1", GoalsCount: 1, CreatedAt: base.Add(2 * time.Hour)},
		{Fingerprint: "ccc", ClientID: "c3", GoalsCount: 3, CreatedAt: base},
	}

	fps := func(in []cache.EntryInfo) []string {
		out := make([]string, len(in))
		for i, e := range in {
			out[i] = e.Fingerprint
		}
		return out
	}

	sorted, err := SortEntries(entries, "createdAt")
	require.NoError(t, err)
	assert.Equal(t, []string{"ccc", "bbb", "aaa"}, fps(sorted))

	sorted, err = SortEntries(entries, "goals:desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"bbb", "ccc", "aaa"}, fps(sorted), "ties keep input order")

	sorted, err = SortEntries(entries, "")
	require.NoError(t, err)
	assert.Equal(t, fps(entries), fps(sorted))

	// The input is never reordered.
	assert.Equal(t, "bbb", entries[0].Fingerprint)

	_, err = SortEntries(entries, "savings")
	assert.ErrorIs(t, err, ErrInvalidSortField)
	assert.Contains(t, EntrySortFields(), "expiresAt")
}
