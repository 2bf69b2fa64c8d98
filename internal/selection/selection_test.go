package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

type keySet map[string]bool

func (k keySet) Contains(key string) bool { return k[key] }

func items(keys ...string) []domain.CandidateItem {
	out := make([]domain.CandidateItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.CandidateItem{NaturalKey: k, DisplayTitle: "title " + k})
	}
	return out
}

func keysOf(in []domain.CandidateItem) []string {
	out := make([]string, 0, len(in))
	for _, it := range in {
		out = append(out, it.NaturalKey)
	}
	return out
}

func TestSingleFIFOAdvancesInCandidateOrder(t *testing.T) {
	posted := keySet{}
	policy := Policy{Mode: ModeSingleFIFO, Limit: 99}
	cands := items("a", "b", "c")

	first := policy.Select(cands, posted)
	require.Equal(t, []string{"a"}, keysOf(first))

	posted["a"] = true
	second := policy.Select(cands, posted)
	assert.Equal(t, []string{"b"}, keysOf(second))
}

func TestBatchSkipsPostedAndRespectsLimit(t *testing.T) {
	got := Policy{Mode: ModeBatch, Limit: 2}.Select(items("a", "b", "c"), keySet{"b": true})
	assert.Equal(t, []string{"a", "c"}, keysOf(got))
}

func TestSelectNextEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		cands  []domain.CandidateItem
		posted keySet
		limit  int
		want   []string
	}{
		{name: "empty candidates", cands: nil, posted: keySet{}, limit: 3, want: []string{}},
		{name: "all posted", cands: items("a", "b"), posted: keySet{"a": true, "b": true}, limit: 3, want: []string{}},
		{name: "zero limit", cands: items("a", "b"), posted: keySet{}, limit: 0, want: []string{}},
		{name: "limit larger than input", cands: items("a", "b"), posted: keySet{}, limit: 10, want: []string{"a", "b"}},
		{name: "duplicate in list", cands: items("a", "a", "b"), posted: keySet{}, limit: 3, want: []string{"a", "b"}},
		{name: "blank key ignored", cands: items("", "b"), posted: keySet{}, limit: 3, want: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectNext(tt.cands, tt.posted, tt.limit)
			assert.Equal(t, tt.want, keysOf(got))
		})
	}
}

func TestSelectNextIsIdempotent(t *testing.T) {
	cands := items("x", "y", "z", "w")
	posted := keySet{"y": true}

	first := SelectNext(cands, posted, 2)
	second := SelectNext(cands, posted, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"x", "z"}, keysOf(first))
}

func TestSelectNextDoesNotMutateInput(t *testing.T) {
	cands := items("a", "b", "c")
	_ = SelectNext(cands, keySet{"a": true}, 1)
	assert.Equal(t, []string{"a", "b", "c"}, keysOf(cands))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Single-FIFO ")
	require.NoError(t, err)
	assert.Equal(t, ModeSingleFIFO, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeBatch, mode)
	assert.True(t, ModeThreadedReply.Threaded())

	_, err = ParseMode("round-robin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, Policy{Mode: ModeBatch, Limit: 0}.Validate())
	assert.True(t, errors.Is(Policy{Mode: ModeBatch, Limit: -1}.Validate(), errors.ErrInvalidArgument))
	assert.True(t, errors.Is(Policy{Mode: "fast"}.Validate(), errors.ErrInvalidArgument))
}
