package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()

	a := h.Subscribe("jobs/1")
	b := h.Subscribe("jobs/1")
	other := h.Subscribe("jobs/2")

	h.Publish("jobs/1", KindProgress, map[string]int{"progress": 3})

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, KindProgress, ev.Kind)
			assert.Equal(t, "jobs/1", ev.Topic)
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}

	select {
	case <-other.C:
		t.Fatal("event leaked to another topic")
	default:
	}
}

func TestHub_PublishWithoutSubscribers_DoesNotBlock(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Publish("jobs/99", KindStatus, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("jobs/1")

	total := subscriberBuffer * 3
	for i := 0; i < total; i++ {
		h.Publish("jobs/1", KindProgress, i)
	}

	// Buffer holds only the most recent events; the last one published
	// must be present.
	var got []int
	for {
		select {
		case ev := <-sub.C:
			got = append(got, ev.Data.(int))
			continue
		default:
		}
		break
	}
	require.Len(t, got, subscriberBuffer)
	assert.Equal(t, total-1, got[len(got)-1])
}

func TestHub_Unsubscribe_ClosesChannel(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("jobs/1")
	require.Equal(t, 1, h.SubscriberCount("jobs/1"))

	h.Unsubscribe(sub)
	assert.Zero(t, h.SubscriberCount("jobs/1"))

	_, open := <-sub.C
	assert.False(t, open)

	// Publishing after the last unsubscribe is a no-op.
	h.Publish("jobs/1", KindProgress, nil)
}

func TestHub_UnsubscribeUnknown_NoPanic(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("jobs/1")
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)
}

func TestHub_SubscriptionCarriesTopic(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("enrichment/7")
	assert.Equal(t, "enrichment/7", sub.Topic)

	h.Unsubscribe(sub)
	assert.Zero(t, h.SubscriberCount("enrichment/7"))
}
