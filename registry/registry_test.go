package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReadyEndpoint creates a pending endpoint and immediately
// authenticates it as (host, app, runner), the two-step lifecycle
// production code (server.Server, dispatch.handleStartSession) drives.
func newReadyEndpoint(t *testing.T, r *Registry, host, app, runner string, now time.Time) *Endpoint {
	t.Helper()
	ep := r.NewPendingEndpoint(now)
	require.NoError(t, r.Authenticate(ep, host, app, runner, now))
	return ep
}

func TestDanglingToReadyLifecycle(t *testing.T) {
	r := New()
	now := time.Unix(1000, 0)

	ep := r.NewPendingEndpoint(now)
	assert.Len(t, r.Dangling(), 1)

	_, ok := r.Get(ep.Name)
	assert.False(t, ok)

	require.NoError(t, r.Authenticate(ep, "localhost", "cn.fmsoft.test", "t1", now))
	assert.Len(t, r.Dangling(), 0)

	got, ok := r.Get(ep.Name)
	require.True(t, ok)
	assert.Equal(t, ep, got)
}

func TestDuplicateEndpointRejected(t *testing.T) {
	r := New()
	now := time.Unix(1000, 0)
	newReadyEndpoint(t, r, "localhost", "cn.fmsoft.test", "t1", now)

	second := r.NewPendingEndpoint(now)
	err := r.Authenticate(second, "localhost", "cn.fmsoft.test", "t1", now)
	assert.Error(t, err)
}

func TestReapDangling(t *testing.T) {
	r := New()
	base := time.Unix(10000, 0)
	r.NewPendingEndpoint(base)

	later := base.Add(1 * time.Minute)
	r.NewPendingEndpoint(later)

	reaped := r.ReapDangling(base.Add(30*time.Second), 10*time.Second)
	require.Len(t, reaped, 1)
	assert.Len(t, r.Dangling(), 1)
}

func TestCheckNoResponding(t *testing.T) {
	r := New()
	base := time.Unix(20000, 0)

	ep1 := newReadyEndpoint(t, r, "localhost", "cn.fmsoft.test", "a", base)
	ep2 := newReadyEndpoint(t, r, "localhost", "cn.fmsoft.test", "b", base.Add(1*time.Hour))

	stale := r.CheckNoResponding(base.Add(2*time.Hour), 90*time.Second)
	require.Len(t, stale, 2)

	r.UpdateLiving(ep1, base.Add(2*time.Hour))
	stale = r.CheckNoResponding(base.Add(2*time.Hour).Add(time.Second), 90*time.Second)
	require.Len(t, stale, 1)
	assert.Equal(t, ep2.Name, stale[0].Name)
}

func TestPendingEndpointAuthenticateLifecycle(t *testing.T) {
	r := New()
	now := time.Unix(5000, 0)

	ep := r.NewPendingEndpoint(now)
	assert.Len(t, r.Dangling(), 1)
	assert.False(t, ep.Authenticated)

	require.NoError(t, r.Authenticate(ep, "localhost", "cn.fmsoft.test", "t1", now))
	assert.Len(t, r.Dangling(), 0)
	assert.True(t, ep.Authenticated)

	got, ok := r.Get(ep.Name)
	require.True(t, ok)
	assert.Equal(t, ep, got)
}

func TestAuthenticateRejectsDuplicateName(t *testing.T) {
	r := New()
	now := time.Unix(5000, 0)

	first := r.NewPendingEndpoint(now)
	require.NoError(t, r.Authenticate(first, "localhost", "cn.fmsoft.test", "t1", now))

	second := r.NewPendingEndpoint(now)
	err := r.Authenticate(second, "localhost", "cn.fmsoft.test", "t1", now)
	assert.Error(t, err)
	assert.Len(t, r.Dangling(), 1)
}

func TestUpdateLivingDoesNotInsertAuthingEndpoint(t *testing.T) {
	r := New()
	now := time.Unix(30000, 0)

	ep := r.NewPendingEndpoint(now)
	r.UpdateLiving(ep, now.Add(time.Second))

	// An AUTHING endpoint must never land in the living index (§3
	// invariants: living_index holds exactly the READY endpoints), but
	// its TLiving still advances so ReapDangling's age check sees it.
	assert.Equal(t, now.Add(time.Second).UnixNano(), ep.TLiving)
	assert.Empty(t, r.CheckNoResponding(now.Add(time.Hour), 0))
	assert.Len(t, r.Dangling(), 1)
}

func TestDeleteRemovesFromAllIndexes(t *testing.T) {
	r := New()
	now := time.Unix(0, 0)
	ep := newReadyEndpoint(t, r, "localhost", "cn.fmsoft.test", "t1", now)

	r.Delete(ep)
	_, ok := r.Get(ep.Name)
	assert.False(t, ok)
	assert.Empty(t, r.CheckNoResponding(now.Add(time.Hour), 0))
}

func TestDeauthenticateKeepsEndpointButDropsReadiness(t *testing.T) {
	r := New()
	now := time.Unix(0, 0)
	ep := newReadyEndpoint(t, r, "localhost", "cn.fmsoft.test", "t1", now)

	r.Deauthenticate(ep)
	assert.False(t, ep.Authenticated)
	_, ok := r.Get(ep.Name)
	assert.False(t, ok)
	assert.Empty(t, r.CheckNoResponding(now.Add(time.Hour), 0))

	// The endpoint object itself survives and can re-authenticate.
	require.NoError(t, r.Authenticate(ep, "localhost", "cn.fmsoft.test", "t1", now))
	assert.True(t, ep.Authenticated)
	_, ok = r.Get(ep.Name)
	assert.True(t, ok)
}
