package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu   sync.Mutex
	got  []Notification
	fail bool
}

func (r *recorder) Send(n Notification) error {
	if r.fail {
		return errors.New("closed")
	}
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
	return nil
}

func TestBroadcastReachesEveryListener(t *testing.T) {
	h := NewHub(nil)
	a, b := &recorder{}, &recorder{}
	h.Register(a)
	h.Register(b)
	h.Register(a)
	assert.Equal(t, 2, h.Len())

	h.Broadcast("New contact message from Ann")

	want := []Notification{{Type: "notification", Message: "New contact message from Ann"}}
	assert.Equal(t, want, a.got)
	assert.Equal(t, want, b.got)
}

func TestBroadcastDropsFailingListener(t *testing.T) {
	h := NewHub(nil)
	good, bad := &recorder{}, &recorder{fail: true}
	h.Register(good)
	h.Register(bad)

	h.Broadcast("x")
	assert.Equal(t, 1, h.Len())
	h.Broadcast("y")
	assert.Len(t, good.got, 2)
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	h := NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		l := &recorder{}
		go func() { defer wg.Done(); h.Register(l); h.Unregister(l) }()
		go func() { defer wg.Done(); h.Broadcast("tick") }()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Len())
}
