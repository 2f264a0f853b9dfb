package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

type fakeLiveSession struct {
	mu       sync.Mutex
	sent     []LiveMessage
	closes   []uint32
	received chan LiveMessage
}

func newFakeLiveSession() *fakeLiveSession {
	return &fakeLiveSession{received: make(chan LiveMessage, 16)}
}

func (f *fakeLiveSession) Send(msg string) error {
	var m LiveMessage
	if err := json.Unmarshal([]byte(msg), &m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.closes) > 0 {
		return errors.New("session closed")
	}
	f.sent = append(f.sent, m)
	f.received <- m
	return nil
}

func (f *fakeLiveSession) Close(status uint32, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, status)
	return nil
}

func (f *fakeLiveSession) closeCodes() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.closes...)
}

func nextLive(t *testing.T, f *fakeLiveSession) LiveMessage {
	t.Helper()
	select {
	case m := <-f.received:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for live message")
		return LiveMessage{}
	}
}

func TestLive_NoSession_NavigatesAndCloses(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	fake := newFakeLiveSession()
	conn := &liveConn{sess: fake, log: log.New(io.Discard, "", 0)}

	screen := a.srv.openLiveScreen(context.Background(), "", conn)
	defer screen.Deactivate()

	m := nextLive(t, fake)
	if m.Type != "navigate" || m.Path != "/member-login" {
		t.Fatalf("message=%+v", m)
	}
	if codes := fake.closeCodes(); len(codes) != 1 || codes[0] != liveCloseNavigated {
		t.Fatalf("close codes=%v", codes)
	}
}

func TestLive_PushesLoadingThenLoadedState(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	sess := a.signUp(t, "rahim@example.com", "secret-pass")
	fake := newFakeLiveSession()
	conn := &liveConn{sess: fake, log: log.New(io.Discard, "", 0)}

	screen := a.srv.openLiveScreen(context.Background(), sess.AccessToken, conn)
	defer screen.Deactivate()

	first := nextLive(t, fake)
	if first.Type != "dashboard" || first.View == nil || !first.View.Loading {
		t.Fatalf("first=%+v", first)
	}
	second := nextLive(t, fake)
	if second.Type != "dashboard" || second.View == nil || second.View.Loading {
		t.Fatalf("second=%+v", second)
	}
	if len(second.View.PlanOptions) != 3 {
		t.Fatalf("plan options=%d", len(second.View.PlanOptions))
	}

	// Signing out elsewhere sends the live client to the login view exactly once.
	if err := a.ids.SignOut(context.Background(), sess.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	nav := nextLive(t, fake)
	if nav.Type != "navigate" || nav.Path != "/member-login" {
		t.Fatalf("nav=%+v", nav)
	}
	if codes := fake.closeCodes(); len(codes) != 1 {
		t.Fatalf("close codes=%v", codes)
	}
}

func TestLiveConn_DropsAfterClose(t *testing.T) {
	t.Parallel()
	fake := newFakeLiveSession()
	conn := &liveConn{sess: fake, log: log.New(io.Discard, "", 0)}

	conn.navigate("/member-login")
	conn.navigate("/member-login")
	conn.send(LiveMessage{Type: "dashboard"})

	if len(fake.sent) != 1 {
		t.Fatalf("sent=%+v", fake.sent)
	}
	if codes := fake.closeCodes(); len(codes) != 1 {
		t.Fatalf("close codes=%v", codes)
	}
}
