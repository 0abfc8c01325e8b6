package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	err    error
	spoken []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Speak(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func TestFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "cloud"}
	second := &fakeProvider{name: "local"}
	chain := NewChain(first, second)

	require.NoError(t, chain.Speak(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, first.spoken)
	assert.Empty(t, second.spoken)
}

func TestFallsBackInOrder(t *testing.T) {
	first := &fakeProvider{name: "cloud", err: errors.New("api down")}
	second := &fakeProvider{name: "local"}
	chain := NewChain(first, second)

	require.NoError(t, chain.Speak(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, second.spoken)
}

func TestAllProvidersFail(t *testing.T) {
	first := &fakeProvider{name: "cloud", err: errors.New("api down")}
	second := &fakeProvider{name: "local", err: errors.New("no synth")}
	chain := NewChain(first, second)

	err := chain.Speak(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Contains(t, err.Error(), "cloud")
	assert.Contains(t, err.Error(), "local")
}

func TestEmptyTextIsNoOp(t *testing.T) {
	first := &fakeProvider{name: "cloud", err: errors.New("api down")}
	chain := NewChain(first)

	require.NoError(t, chain.Speak(context.Background(), ""))
}
