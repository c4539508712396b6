package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/canonengine/canonengine/internal/logger"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls  int
	vecs   map[string][]float32
	failOn map[string]bool
}

func (f *fakeClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if f.failOn[in] {
			return nil, errors.New("boom")
		}
		out[i] = f.vecs[in]
	}
	return out, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestProvider_Encode_CachesByContent(t *testing.T) {
	fc := &fakeClient{vecs: map[string][]float32{"dog": {1, 2, 3}}}
	p := NewProvider(testLogger(t), fc)

	v1, err := p.Encode(context.Background(), "dog")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, v1)

	v2, err := p.Encode(context.Background(), "dog")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, fc.calls, "second Encode call must be served from cache")
}

func TestProvider_Encode_EmptyText(t *testing.T) {
	p := NewProvider(testLogger(t), &fakeClient{})
	v, err := p.Encode(context.Background(), "   ")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestProvider_Encode_NilClient(t *testing.T) {
	p := NewProvider(testLogger(t), nil)
	v, err := p.Encode(context.Background(), "dog")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestProvider_EncodeBatch_PartialCacheHit(t *testing.T) {
	fc := &fakeClient{vecs: map[string][]float32{"dog": {1}, "puppy": {2}}}
	p := NewProvider(testLogger(t), fc)

	_, err := p.Encode(context.Background(), "dog")
	require.NoError(t, err)

	out := p.EncodeBatch(context.Background(), []string{"dog", "puppy"})
	require.Equal(t, []float32{1}, out[0])
	require.Equal(t, []float32{2}, out[1])
	require.Equal(t, 2, fc.calls, "only the uncached 'puppy' should trigger a second Embed call")
}

func TestProvider_EncodeBatch_FailureLeavesNils(t *testing.T) {
	fc := &fakeClient{failOn: map[string]bool{"dog": true}}
	p := NewProvider(testLogger(t), fc)

	out := p.EncodeBatch(context.Background(), []string{"dog"})
	require.Len(t, out, 1)
	require.Nil(t, out[0])
}
