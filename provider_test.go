package stream_archiver

import (
	"context"
	"errors"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/stream-archiver/pipeline"
)

type testSource string

func (s testSource) ID() string  { return string(s) }
func (s testSource) URL() string { return "test://" + string(s) }
func (s testSource) Download(context.Context, *Env, string) (*pipeline.Report, error) {
	return nil, errors.New("not implemented")
}

func prefixMatcher(prefix string) MatchFunc {
	return func(s string) (Source, error) {
		if !strings.HasPrefix(s, prefix) {
			return nil, errors.New("wrong prefix")
		}
		return testSource(strings.TrimPrefix(s, prefix)), nil
	}
}

func TestProviderRegistry(t *testing.T) {
	assert := assert_.New(t)
	var r ProviderRegistry

	assert.ErrorIs(r.Add(Provider{Name: "nothing"}), ErrInvalidProvider)
	assert.NoError(r.Create("b", prefixMatcher("b:")))
	assert.NoError(r.CreatePriority("a", prefixMatcher("a:"), PriorityLowest))
	assert.NoError(r.CreatePriority("any", prefixMatcher(""), PriorityLowest))
	assert.NoError(r.CreatePriority("first", prefixMatcher("b:x"), PriorityHighest))
	assert.ErrorIs(r.Create("a", prefixMatcher("a:")), ErrDuplicateProvider)
	assert.Equal([]string{"first", "b", "a", "any"}, r.List())

	m, err := r.Match("b:xyz")
	assert.NoError(err)
	assert.Equal("first", m.ProviderName)
	assert.Equal("yz", m.Source.ID())

	m, err = r.Match("b:abc")
	assert.NoError(err)
	assert.Equal("b", m.ProviderName)

	// Equal priorities match in registration order
	m, err = r.Match("a:abc")
	assert.NoError(err)
	assert.Equal("a", m.ProviderName)

	m, err = r.MatchWith("any", "a:abc")
	assert.NoError(err)
	assert.Equal("a:abc", m.Source.ID())
	_, err = r.MatchWith("a", "b:abc")
	assert.ErrorIs(err, ErrNoMatch)
	_, err = r.MatchWith("missing", "b:abc")
	assert.ErrorIs(err, ErrUnknownProvider)
}

func TestProviderRegistryNoMatch(t *testing.T) {
	assert := assert_.New(t)
	var r ProviderRegistry
	_, err := r.Match("anything")
	assert.ErrorIs(err, ErrNoMatch)

	r.MustCreate("a", prefixMatcher("a:"))
	r.MustCreate("b", prefixMatcher("b:"))
	_, err = r.Match("c:abc")
	assert.ErrorIs(err, ErrNoMatch)
	assert.Contains(err.Error(), "[a] wrong prefix; [b] wrong prefix")
	assert.Panics(func() { r.MustCreate("a", prefixMatcher("a:")) })
}
