package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/igm/sockjs-go/sockjs"

	"github.com/the-holiday/member-portal-api/internal/app/dashboard"
	"github.com/the-holiday/member-portal-api/internal/ports/out/navigation"
)

const livePrefix = "/member-dashboard/live"

// Close codes sent to live clients.
const (
	liveCloseNavigated = 4001
)

// LiveMessage is pushed to a live dashboard client. Type is "dashboard" (View set) or
// "navigate" (Path set).
type LiveMessage struct {
	Type string          `json:"type"`
	View *dashboard.View `json:"view,omitempty"`
	Path string          `json:"path,omitempty"`
}

// LiveHandler serves the realtime dashboard. Each connection owns one screen: every
// state the screen applies is pushed, and a navigation away from the dashboard is pushed
// and then closes the connection. Closing the connection deactivates the screen.
func (s *Server) LiveHandler() http.Handler {
	s.liveOnce.Do(func() {
		s.live = sockjs.NewHandler(livePrefix, sockjs.DefaultOptions, s.serveLive)
	})
	return s.live
}

func (s *Server) serveLive(sess sockjs.Session) {
	liveSessionsActive.Add(1)
	defer liveSessionsActive.Add(-1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screen := s.openLiveScreen(ctx, liveToken(sess.Request()), &liveConn{sess: sess, log: s.log})
	defer screen.Deactivate()

	// Inbound messages carry nothing; the loop ends when the client goes away.
	for {
		if _, err := sess.Recv(); err != nil {
			return
		}
	}
}

// openLiveScreen activates a screen whose state changes and navigations go to conn.
func (s *Server) openLiveScreen(ctx context.Context, token string, conn *liveConn) *dashboard.Screen {
	screen := dashboard.NewScreen(s.ids, navigation.NavigatorFunc(conn.navigate), s.loader, token, dashboard.ScreenOptions{
		OnChange: conn.push,
		Logger:   s.log,
	})
	screen.Activate(ctx)
	return screen
}

// liveSession is the part of a sockjs session the dashboard writes to.
type liveSession interface {
	Send(string) error
	Close(status uint32, reason string) error
}

// liveConn serializes writes to one sockjs session so pushes arrive in the order the
// screen applied them.
type liveConn struct {
	sess liveSession
	log  *log.Logger

	mu     sync.Mutex
	closed bool
}

func (c *liveConn) push(st dashboard.State) {
	v := dashboard.Render(st)
	c.send(LiveMessage{Type: "dashboard", View: &v})
}

func (c *liveConn) navigate(path string) {
	c.send(LiveMessage{Type: "navigate", Path: path})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.sess.Close(liveCloseNavigated, "navigated")
}

func (c *liveConn) send(msg LiveMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.log.Printf("httpapi: encode live message: %v", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.sess.Send(string(b)); err != nil {
		c.closed = true
	}
}
