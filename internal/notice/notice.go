package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a transient user-facing message, the CLI's stand-in for a toast.
type Notice struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier is what flows raise notices through.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Center buffers notices until the front end drains them. Subscribers see
// every notice as it is raised.
type Center struct {
	mu          sync.Mutex
	pending     []Notice
	subscribers []func(Notice)
	now         func() time.Time
	logger      logrus.FieldLogger
}

func NewCenter(logger logrus.FieldLogger) *Center {
	return &Center{
		now:    time.Now,
		logger: logger.WithField("component", "Notice"),
	}
}

func (c *Center) Success(message string) { c.add(LevelSuccess, message) }
func (c *Center) Error(message string)   { c.add(LevelError, message) }
func (c *Center) Info(message string)    { c.add(LevelInfo, message) }

// Subscribe registers fn for every later notice.
func (c *Center) Subscribe(fn func(Notice)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Drain returns pending notices in the order raised and forgets them.
func (c *Center) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

func (c *Center) add(level Level, message string) {
	n := Notice{ID: uuid.NewString(), Level: level, Message: message, At: c.now()}

	c.mu.Lock()
	c.pending = append(c.pending, n)
	subs := make([]func(Notice), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{"level": level, "notice_id": n.ID}).Debug(message)
	for _, fn := range subs {
		fn(n)
	}
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
func (Discard) Info(string)    {}
