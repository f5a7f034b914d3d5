package hub

import (
	"io"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/lograte/internal/analyzer"
	"github.com/atikulmunna/lograte/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan model.Event) model.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out")
		return model.Event{}
	}
}

func TestHubBroadcast(t *testing.T) {
	h := New()
	defer h.Close()

	sub1, cancel1 := h.Subscribe()
	defer cancel1()
	sub2, cancel2 := h.Subscribe()
	defer cancel2()

	b := model.Bucket{Key: model.Key{Date: "2024-01-01", Hour: "10"}, ErrorCount: 4}
	require.NoError(t, h.Render(model.BucketEvent(b)))

	for _, sub := range []<-chan model.Event{sub1, sub2} {
		ev := receive(t, sub)
		assert.Equal(t, model.EventBucket, ev.Kind)
		assert.Equal(t, 4, ev.Bucket.ErrorCount)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := New()
	defer h.Close()

	sub, cancel := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	cancel() // idempotent
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-sub
	assert.False(t, ok)

	require.NoError(t, h.Render(model.TotalEvent(model.Totals{})))
}

func TestHubSlowConsumer(t *testing.T) {
	h := New()
	defer h.Close()

	// Subscribe but never read.
	_, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+100; i++ {
		require.NoError(t, h.Render(model.TotalEvent(model.Totals{Errors: i})))
	}

	assert.Equal(t, int64(100), h.Dropped())
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	h := New()
	sub, cancel := h.Subscribe()

	h.Close()
	_, ok := <-sub
	assert.False(t, ok)
	cancel() // must not double-close

	late, _ := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestHubAsRunOutput(t *testing.T) {
	h := New()
	defer h.Close()
	sub, cancel := h.Subscribe()
	defer cancel()

	a, err := analyzer.New(analyzer.Options{Logger: log.New(os.Stderr, "", 0)})
	require.NoError(t, err)

	in := "2024-01-01 10:00:00-00 Error: a\n2024-01-01 11:00:00-00 Error: b\n"
	_, err = a.AnalyzeStream("x.log", io.NopCloser(strings.NewReader(in)), h)
	require.NoError(t, err)

	first := receive(t, sub)
	assert.Equal(t, model.EventBucket, first.Kind)
	assert.Equal(t, "10", first.Bucket.Key.Hour)

	last := receive(t, sub)
	assert.Equal(t, model.EventTotal, last.Kind)
	assert.Equal(t, 2, last.Totals.Errors)
}
