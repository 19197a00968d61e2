package fragment_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iedon/htmlfrag/dom"
	"github.com/iedon/htmlfrag/fragment"
)

func countingParser(calls *int) fragment.ParseFunc {
	return func(template string) (*dom.Fragment, error) {
		*calls++
		return dom.ParseFragment(template)
	}
}

func TestGetOrCreatePopulatesOnce(t *testing.T) {
	calls := 0
	c := fragment.New(countingParser(&calls))

	for i := 0; i < 5; i++ {
		frag, hit, err := c.GetOrCreate("<li>x</li>")
		require.NoError(t, err)
		assert.Equal(t, i > 0, hit)
		assert.Equal(t, "x", frag.Text())
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, fragment.Stats{Entries: 1, Hits: 4, Misses: 1}, c.Stats())
}

func TestGetOrCreateIsolation(t *testing.T) {
	c := fragment.New(nil)

	first, _, err := c.GetOrCreate("<li>x</li>")
	require.NoError(t, err)
	second, _, err := c.GetOrCreate("<li>x</li>")
	require.NoError(t, err)

	require.True(t, first.Equal(second))
	assert.NotSame(t, first.First(), second.First())

	first.First().FirstChild.Data = "mutated"
	assert.Equal(t, "x", second.Text())

	master, ok := c.Lookup("<li>x</li>")
	require.True(t, ok)
	assert.Equal(t, "x", master.Text())
}

func TestDistinctKeys(t *testing.T) {
	c := fragment.New(nil)

	for _, tpl := range []string{"<li></li>", "<li>?</li>", "<LI></LI>", "<li> </li>"} {
		_, _, err := c.GetOrCreate(tpl)
		require.NoError(t, err)
	}

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []string{"<LI></LI>", "<li> </li>", "<li></li>", "<li>?</li>"}, c.Keys())
}

func TestReservedNamesAreOrdinaryKeys(t *testing.T) {
	c := fragment.New(func(template string) (*dom.Fragment, error) {
		return dom.NewFragment(dom.NewText(template)), nil
	})

	names := []string{"hasOwnProperty", "toString", "__proto__", "constructor", "Len", "Clear"}
	for _, name := range names {
		frag, hit, err := c.GetOrCreate(name)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, name, frag.Text())
	}
	assert.Equal(t, len(names), c.Len())
	for _, name := range names {
		assert.True(t, c.Contains(name))
	}
}

func TestParseErrorIsNotCached(t *testing.T) {
	boom := errors.New("boom")
	c := fragment.New(func(string) (*dom.Fragment, error) {
		return nil, boom
	})

	frag, hit, err := c.GetOrCreate("<div>")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, frag)
	assert.False(t, hit)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains("<div>"))
}

func TestNilParseResultIsRejected(t *testing.T) {
	c := fragment.New(func(string) (*dom.Fragment, error) {
		return nil, nil
	})

	_, _, err := c.GetOrCreate("<div>")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLookupDoesNotPopulate(t *testing.T) {
	c := fragment.New(nil)

	_, ok := c.Lookup("<p>x</p>")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestClear(t *testing.T) {
	c := fragment.New(nil)
	_, _, err := c.GetOrCreate("<p>a</p>")
	require.NoError(t, err)
	c.Bypass()

	c.Clear()
	assert.Equal(t, fragment.Stats{}, c.Stats())
	assert.Empty(t, c.Keys())

	_, hit, err := c.GetOrCreate("<p>a</p>")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestConcurrentMissesKeepOneEntry(t *testing.T) {
	c := fragment.New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frag, _, err := c.GetOrCreate("<div><span>x</span></div>")
			assert.NoError(t, err)
			frag.First().FirstChild.FirstChild.Data = "y"
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
	st := c.Stats()
	assert.Equal(t, uint64(32), st.Hits+st.Misses)
	assert.Equal(t, uint64(1), st.Misses)

	master, ok := c.Lookup("<div><span>x</span></div>")
	require.True(t, ok)
	assert.Equal(t, "x", master.Text())
}
