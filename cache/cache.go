// Package cache tracks in-flight multi-round exchanges. Every entry is identified by a prefix
// naming the exchange type and a numeric id; a live (prefix, id) pair is unique. Entries end by
// completion, cancellation or timeout, and whoever waits on them learns which.
package cache

import (
	"container/heap"
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ipv8go/wallet/big"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
}

const (
	DefaultTimeout    = 10 * time.Second
	RevocationTimeout = 60 * time.Second
)

var (
	ErrDuplicateCorrelationID = errors.New("correlation id already registered")
	ErrUnknownCorrelationID   = errors.New("correlation id not registered")
	ErrTimeout                = errors.New("exchange timed out")
	ErrCancelled              = errors.New("exchange cancelled")
	ErrClosed                 = errors.New("cache closed")
)

type key struct {
	prefix string
	id     string
}

type (
	// Entry is one registered exchange.
	Entry struct {
		Prefix  string
		ID      *big.Int
		Payload interface{}

		timeout    time.Duration
		deadline   time.Time
		index      int
		onComplete func(*Entry)
		onTimeout  func(*Entry)

		cache *Cache
		done  chan struct{}
		err   error
	}

	EntryOption func(*Entry)

	// Cache is safe for concurrent use. A single reaper goroutine expires entries.
	Cache struct {
		mu        sync.Mutex
		entries   map[key]*Entry
		deadlines deadlineHeap
		closed    bool

		defaultTimeout time.Duration
		random         io.Reader
		metrics        *metrics
		wake           chan struct{}
		stop           chan struct{}
		stopped        chan struct{}
	}

	Option func(*Cache)
)

// WithTimeout overrides the cache default for one entry.
func WithTimeout(d time.Duration) EntryOption {
	return func(e *Entry) {
		e.timeout = d
	}
}

// WithOnComplete runs f after the entry completes.
func WithOnComplete(f func(*Entry)) EntryOption {
	return func(e *Entry) {
		e.onComplete = f
	}
}

// WithOnTimeout runs f after the entry expires.
func WithOnTimeout(f func(*Entry)) EntryOption {
	return func(e *Entry) {
		e.onTimeout = f
	}
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.defaultTimeout = d
	}
}

// WithRandom sets the source of RegisterRandom ids.
func WithRandom(rnd io.Reader) Option {
	return func(c *Cache) {
		c.random = rnd
	}
}

// WithRegisterer exposes the cache metrics through reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.metrics.register(reg)
	}
}

// New starts a cache and its reaper. Close stops it.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:        map[key]*Entry{},
		defaultTimeout: DefaultTimeout,
		random:         rand.Reader,
		metrics:        newMetrics(),
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.reap()
	return c
}

// Register adds an entry for (prefix, id). Registering a live pair fails with
// ErrDuplicateCorrelationID.
func (c *Cache) Register(prefix string, id *big.Int, payload interface{}, opts ...EntryOption) (*Entry, error) {
	e := &Entry{
		Prefix:  prefix,
		ID:      new(big.Int).Set(id),
		Payload: payload,
		timeout: c.defaultTimeout,
		cache:   c,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	k := key{prefix, id.String()}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := c.entries[k]; ok {
		c.mu.Unlock()
		return nil, errors.WrapPrefix(ErrDuplicateCorrelationID, prefix+":"+id.String(), 0)
	}
	e.deadline = time.Now().Add(e.timeout)
	c.entries[k] = e
	heap.Push(&c.deadlines, e)
	earliest := c.deadlines[0] == e
	c.mu.Unlock()

	c.metrics.registered(prefix)
	if earliest {
		c.poke()
	}
	Logger.WithFields(logrus.Fields{"prefix": prefix, "id": id}).Trace("registered exchange")
	return e, nil
}

// RegisterRandom registers payload under a fresh random id.
func (c *Cache) RegisterRandom(prefix string, payload interface{}, opts ...EntryOption) (*Entry, error) {
	for {
		id, err := RandomID(c.random)
		if err != nil {
			return nil, err
		}
		e, err := c.Register(prefix, id, payload, opts...)
		if errors.Is(err, ErrDuplicateCorrelationID) {
			continue
		}
		return e, err
	}
}

func (c *Cache) Get(prefix string, id *big.Int) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key{prefix, id.String()}]
	return e, ok
}

func (c *Cache) Has(prefix string, id *big.Int) bool {
	_, ok := c.Get(prefix, id)
	return ok
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove unregisters e if it is still the live entry for its key.
func (c *Cache) remove(e *Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key{e.Prefix, e.ID.String()}
	if c.entries[k] != e {
		return false
	}
	delete(c.entries, k)
	heap.Remove(&c.deadlines, e.index)
	return true
}

func (c *Cache) take(prefix string, id *big.Int) (*Entry, error) {
	e, ok := c.Get(prefix, id)
	if !ok || !c.remove(e) {
		return nil, errors.WrapPrefix(ErrUnknownCorrelationID, prefix+":"+id.String(), 0)
	}
	return e, nil
}

// Complete removes the entry, wakes its waiters and runs its completion callback.
func (c *Cache) Complete(prefix string, id *big.Int) (*Entry, error) {
	e, err := c.take(prefix, id)
	if err != nil {
		return nil, err
	}
	e.finish(nil)
	c.metrics.finished(prefix, "completed")
	if e.onComplete != nil {
		e.onComplete(e)
	}
	return e, nil
}

// Cancel removes the entry; waiters receive ErrCancelled.
func (c *Cache) Cancel(prefix string, id *big.Int) (*Entry, error) {
	e, err := c.take(prefix, id)
	if err != nil {
		return nil, err
	}
	c.cancel(e)
	return e, nil
}

func (c *Cache) cancel(e *Entry) {
	e.finish(ErrCancelled)
	c.metrics.finished(e.Prefix, "cancelled")
	Logger.WithFields(logrus.Fields{"prefix": e.Prefix, "id": e.ID}).Debug("cancelled exchange")
}

func (c *Cache) expire(e *Entry) {
	e.finish(ErrTimeout)
	c.metrics.finished(e.Prefix, "timeout")
	Logger.WithFields(logrus.Fields{"prefix": e.Prefix, "id": e.ID}).Debug("exchange timed out")
	if e.onTimeout != nil {
		e.onTimeout(e)
	}
}

// Close stops the reaper and cancels every live entry.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	entries := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.entries = map[key]*Entry{}
	c.deadlines = nil
	c.mu.Unlock()

	close(c.stop)
	<-c.stopped
	for _, e := range entries {
		c.cancel(e)
	}
}

func (c *Cache) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Cache) reap() {
	defer close(c.stopped)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		var expired []*Entry
		next := time.Hour
		c.mu.Lock()
		now := time.Now()
		for len(c.deadlines) > 0 && !c.deadlines[0].deadline.After(now) {
			e := heap.Pop(&c.deadlines).(*Entry)
			delete(c.entries, key{e.Prefix, e.ID.String()})
			expired = append(expired, e)
		}
		if len(c.deadlines) > 0 {
			next = c.deadlines[0].deadline.Sub(now)
		}
		c.mu.Unlock()

		for _, e := range expired {
			c.expire(e)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(next)
		select {
		case <-timer.C:
		case <-c.wake:
		case <-c.stop:
			return
		}
	}
}

func (e *Entry) finish(err error) {
	e.err = err
	close(e.done)
}

// Done is closed when the entry ends.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// Err is nil while pending or after completion; ErrTimeout or ErrCancelled otherwise.
func (e *Entry) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Wait blocks until the entry ends or ctx is done. Cancelling ctx cancels the entry.
func (e *Entry) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		if e.cache.remove(e) {
			e.cache.cancel(e)
		}
		return ctx.Err()
	}
}

// Cancel ends the entry with ErrCancelled if it is still live, and reports whether it was.
func (e *Entry) Cancel() bool {
	if !e.cache.remove(e) {
		return false
	}
	e.cache.cancel(e)
	return true
}
