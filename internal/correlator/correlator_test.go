package correlator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencanvas/canvasd/internal/canvaserr"
	"github.com/opencanvas/canvasd/internal/telemetry"
)

func TestIssueResolveHappyPath(t *testing.T) {
	c := New()
	id, waiter := c.Issue(Viewport, time.Second)
	require.NotEmpty(t, id)

	go c.Resolve(id, map[string]any{"ok": true})

	payload, err := waiter.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, payload)
}

func TestIssueFail(t *testing.T) {
	c := New()
	id, waiter := c.Issue(ExportImage, time.Second)
	go c.Fail(id, canvaserr.New(canvaserr.PeerError, "boom"))

	_, err := waiter.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, canvaserr.PeerError, canvaserr.KindOf(err))
}

func TestDeadlineProducesTimeout(t *testing.T) {
	c := New()
	_, waiter := c.Issue(Mermaid, 10*time.Millisecond)

	_, err := waiter.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, canvaserr.Timeout, canvaserr.KindOf(err))
}

func TestLateResultAfterTimeoutIsSilentNoOp(t *testing.T) {
	c := New()
	id, waiter := c.Issue(Viewport, 10*time.Millisecond)
	_, err := waiter.Wait(context.Background())
	require.Error(t, err)

	assert.NotPanics(t, func() { c.Resolve(id, "late") })
	assert.False(t, c.Pending(id))
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	c := New()
	assert.NotPanics(t, func() { c.Resolve("ghost", "data") })
}

func TestFirstResponderWins(t *testing.T) {
	c := New()
	id, waiter := c.Issue(Viewport, time.Second)

	c.Resolve(id, "first")
	c.Resolve(id, "second") // discarded: the entry is already gone.

	payload, err := waiter.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", payload)
}

func TestResolveRecordsWaitLatency(t *testing.T) {
	c := New()
	before := testutil.CollectAndCount(telemetry.CorrelatorWaitSeconds)

	id, waiter := c.Issue(Mermaid, time.Second)
	c.Resolve(id, "ok")
	_, err := waiter.Wait(context.Background())
	require.NoError(t, err)

	after := testutil.CollectAndCount(telemetry.CorrelatorWaitSeconds)
	assert.Greater(t, after, before)
}

func TestDefaultDeadlines(t *testing.T) {
	assert.Equal(t, 30*time.Second, DefaultDeadline(Mermaid))
	assert.Equal(t, 30*time.Second, DefaultDeadline(ExportImage))
	assert.Equal(t, 10*time.Second, DefaultDeadline(Viewport))
}
