package runctl

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestToken_CancelIsIdempotent(t *testing.T) {
	t.Parallel()

	tok := NewToken()
	require.False(t, tok.Cancelled())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok.Cancel()
		}()
	}
	wg.Wait()
	tok.Cancel()

	assert.True(t, tok.Cancelled())
	select {
	case <-tok.Done():
	case <-time.After(time.Second):
		t.Fatalf("done channel not closed after cancel")
	}
}

func TestToken_ZeroValue(t *testing.T) {
	t.Parallel()

	var tok Token
	select {
	case <-tok.Done():
		t.Fatalf("done closed before cancel")
	default:
	}
	tok.Cancel()
	<-tok.Done()
	assert.True(t, tok.Cancelled())
}

func TestUsage_ConcurrentRecords(t *testing.T) {
	t.Parallel()

	u := NewUsage()
	var g errgroup.Group
	g.Go(func() error {
		u.Record(LLMInput, 10)
		return nil
	})
	g.Go(func() error {
		u.Record(LLMInput, 5)
		return nil
	})
	g.Go(func() error {
		u.Record(TranscriptionSeconds, 3)
		return nil
	})
	require.NoError(t, g.Wait())

	got := u.Snapshot()
	assert.Equal(t, int64(15), got.LLMInputTokens)
	assert.Equal(t, 3.0, got.TranscriptionSeconds)
	assert.Zero(t, got.LLMOutputTokens)
	assert.Zero(t, got.SynthesisChars)
}

func TestUsage_IgnoresInvalidAmounts(t *testing.T) {
	t.Parallel()

	u := NewUsage()
	u.Record(LLMOutput, 7)
	u.Record(LLMOutput, -3)
	u.Record(LLMOutput, math.NaN())
	u.Record(Kind("bogus"), 100)
	u.Record(SynthesisChars, 42)

	got := u.Snapshot()
	assert.Equal(t, int64(7), got.LLMOutputTokens)
	assert.Equal(t, int64(42), got.SynthesisChars)
}

func TestUsage_ManyWriters(t *testing.T) {
	t.Parallel()

	u := NewUsage()
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			u.Record(LLMOutput, 1)
			u.Record(TranscriptionSeconds, 0.5)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	got := u.Snapshot()
	assert.Equal(t, int64(100), got.LLMOutputTokens)
	assert.InDelta(t, 50.0, got.TranscriptionSeconds, 1e-9)
}
