package session

import (
	"strings"
	"testing"
	"time"

	"github.com/collabhub/gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return &Codec{Secret: "test-secret", MaxAge: 30 * 24 * time.Hour}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec := testCodec()
	in := &domain.Session{
		AccessToken:  "tok",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}

	token, err := codec.Encode(in, "sid-1")
	require.NoError(t, err)

	out, sid, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)
	assert.Equal(t, "tok", out.AccessToken)
	assert.Equal(t, "refresh", out.RefreshToken)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.Empty(t, out.Error)
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	codec := testCodec()
	token, err := codec.Encode(&domain.Session{AccessToken: "tok"}, "")
	require.NoError(t, err)

	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + "x." + parts[1]
	_, _, err = codec.Decode(tampered)
	assert.Error(t, err)
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := testCodec().Encode(&domain.Session{AccessToken: "tok"}, "")
	require.NoError(t, err)

	other := &Codec{Secret: "other-secret", MaxAge: time.Hour}
	_, _, err = other.Decode(token)
	assert.Error(t, err)
}

func TestCodecRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	codec := &Codec{Secret: "s", MaxAge: -time.Minute}
	token, err := codec.Encode(&domain.Session{AccessToken: "tok"}, "")
	require.NoError(t, err)

	_, _, err = codec.Decode(token)
	assert.Error(t, err)
}

func TestCodecRejectsGarbage(t *testing.T) {
	t.Parallel()

	codec := testCodec()
	for _, token := range []string{"", "nodot", "a.b.c", "!!!.???"} {
		_, _, err := codec.Decode(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestCodecKeepsErrorState(t *testing.T) {
	t.Parallel()

	codec := testCodec()
	token, err := codec.Encode(&domain.Session{
		AccessToken: "stale",
		Error:       domain.SessionErrorRefreshFailed,
	}, "sid-2")
	require.NoError(t, err)

	out, _, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionErrorRefreshFailed, out.Error)
	assert.Equal(t, "stale", out.AccessToken)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := t.Context()

	assert.Nil(t, store.Session(ctx))

	store.Set(ctx, &domain.Session{AccessToken: "tok"})
	require.NotNil(t, store.Session(ctx))
	assert.Equal(t, "tok", store.Session(ctx).AccessToken)

	// Reads get a copy; mutating it doesn't touch the stored session.
	s := store.Session(ctx)
	s.AccessToken = "mutated"
	assert.Equal(t, "tok", store.Session(ctx).AccessToken)

	store.Clear(ctx)
	assert.Nil(t, store.Session(ctx))
	store.Clear(ctx) // clearing twice is a no-op
	assert.Nil(t, store.Session(ctx))
}
