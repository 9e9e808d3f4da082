package handler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/upload"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ControllerFactory build the controller of a new session
type ControllerFactory func(session string) *upload.Controller

type session struct {
	id         string
	ctrl       *upload.Controller
	lastAccess atomic.Int64
}

func (s *session) touch() {
	s.lastAccess.Store(time.Now().UnixNano())
}

// SessionManager one upload controller per browser session, keyed by cookie
type SessionManager struct {
	sessions sync.Map
	factory  ControllerFactory
	expire   time.Duration
	metrics  *Metrics
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSessionManager(factory ControllerFactory, expire time.Duration, metrics *Metrics) *SessionManager {
	return &SessionManager{
		factory: factory,
		expire:  expire,
		metrics: metrics,
		stop:    make(chan struct{}),
	}
}

// Get return the session of the request cookie, a new one is created when absent.
// The cookie is re-issued on every access so it lives as long as the idle expiry.
func (m *SessionManager) Get(c *gin.Context) *session {
	if id, err := c.Cookie(config.SESSION_COOKIE); err == nil {
		if val, ok := m.sessions.Load(id); ok {
			s := val.(*session)
			s.touch()
			m.setCookie(c, id)
			return s
		}
	}
	id := uuid.NewString()
	s := &session{id: id, ctrl: m.factory(id)}
	s.touch()
	m.sessions.Store(id, s)
	if m.metrics != nil {
		m.metrics.sessionOpened()
	}
	m.setCookie(c, id)
	logrus.WithFields(logrus.Fields{"session": id}).Debug("new session")
	return s
}

func (m *SessionManager) setCookie(c *gin.Context, id string) {
	c.SetCookie(config.SESSION_COOKIE, id, int(m.expire.Seconds()), "/", "", false, true)
}

// Delete close the session controller and forget it
func (m *SessionManager) Delete(id string) bool {
	val, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return false
	}
	val.(*session).ctrl.Close()
	if m.metrics != nil {
		m.metrics.sessionClosed()
	}
	return true
}

// Len number of live sessions
func (m *SessionManager) Len() int {
	n := 0
	m.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Expire drop sessions idle longer than expire, return the dropped count
func (m *SessionManager) Expire(now time.Time) int {
	deadline := now.Add(-m.expire).UnixNano()
	n := 0
	m.sessions.Range(func(key, val any) bool {
		s := val.(*session)
		if s.lastAccess.Load() < deadline && !s.ctrl.State().Loading {
			if m.Delete(key.(string)) {
				n++
			}
		}
		return true
	})
	return n
}

// Start run the janitor until Close
func (m *SessionManager) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case now := <-ticker.C:
				if n := m.Expire(now); n > 0 {
					logrus.Infof("expire %d idle sessions", n)
				}
			}
		}
	}()
}

// Close stop the janitor and close every session
func (m *SessionManager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.sessions.Range(func(key, _ any) bool {
		m.Delete(key.(string))
		return true
	})
}
