package intern_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/ferrotree/internal/intern"
)

func TestInternDedupesSameLoc(t *testing.T) {
	s := intern.NewStore()
	loc := intern.DefLoc{Item: intern.SourceItemId{FileId: 1, ItemIndex: 0}, Kind: intern.DefKindFunction}

	id1 := s.Intern(loc)
	id2 := s.Intern(loc)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, s.Len())
}

func TestInternDistinctLocsGetDistinctIds(t *testing.T) {
	s := intern.NewStore()
	a := s.Intern(intern.DefLoc{Item: intern.SourceItemId{FileId: 1, ItemIndex: 0}, Kind: intern.DefKindFunction})
	b := s.Intern(intern.DefLoc{Item: intern.SourceItemId{FileId: 1, ItemIndex: 1}, Kind: intern.DefKindFunction})
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestLookupRoundTrips(t *testing.T) {
	s := intern.NewStore()
	loc := intern.DefLoc{Item: intern.SourceItemId{FileId: 3, ItemIndex: -1}, Kind: intern.DefKindModule}
	id := s.Intern(loc)

	got, ok := s.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, loc, got)
}

func TestLookupUnknownIdFails(t *testing.T) {
	s := intern.NewStore()
	_, ok := s.Lookup(intern.DefId(99))
	assert.False(t, ok)
}

func TestMustLookupPanicsOnUnknownId(t *testing.T) {
	s := intern.NewStore()
	assert.Panics(t, func() {
		s.MustLookup(intern.DefId(99))
	})
}

func TestHasItem(t *testing.T) {
	withItem := intern.SourceItemId{FileId: 1, ItemIndex: 2}
	fileOnly := intern.SourceItemId{FileId: 1, ItemIndex: -1}
	assert.True(t, withItem.HasItem())
	assert.False(t, fileOnly.HasItem())
}

func TestInternConcurrentSameLoc(t *testing.T) {
	s := intern.NewStore()
	loc := intern.DefLoc{Item: intern.SourceItemId{FileId: 7, ItemIndex: 0}, Kind: intern.DefKindStruct}

	var wg sync.WaitGroup
	ids := make([]intern.DefId, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = s.Intern(loc)
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, s.Len())
}

func TestDefKindString(t *testing.T) {
	assert.Equal(t, "function", intern.DefKindFunction.String())
	assert.Equal(t, "unknown", intern.DefKindUnknown.String())
}
