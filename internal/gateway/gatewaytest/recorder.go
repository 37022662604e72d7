// Package gatewaytest provides a Gateway wrapper for store tests: it counts
// calls, injects failures and can hold calls until released.
package gatewaytest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/storage"
)

type Method string

const (
	Insert Method = "insert"
	Get    Method = "get"
	Query  Method = "query"
	Update Method = "update"
)

// ErrInjected is the underlying cause of every injected failure.
var ErrInjected = errors.New("injected gateway failure")

type Call struct {
	Method     Method
	Collection string
	ID         string
	Fields     gateway.Fields
	Predicate  gateway.Predicate
}

type Recorder struct {
	next gateway.Gateway

	mu    sync.Mutex
	calls []Call
	fail  map[Method]error
	hold  map[Method]chan struct{}
}

var _ gateway.Gateway = (*Recorder)(nil)

func NewRecorder(next gateway.Gateway) *Recorder {
	return &Recorder{
		next: next,
		fail: map[Method]error{},
		hold: map[Method]chan struct{}{},
	}
}

// New returns a Recorder over a StorageGateway in a temporary directory.
func New(t testing.TB) *Recorder {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	return NewRecorder(gateway.NewStorageGateway(s))
}

// Fail makes every following call to m return an Unavailable error.
func (r *Recorder) Fail(m Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[m] = cerr.NewError(cerr.Unavailable, "gateway unavailable", ErrInjected)
}

func (r *Recorder) Recover(m Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fail, m)
}

// Hold blocks calls to m until the returned release func is called.
func (r *Recorder) Hold(m Method) (release func()) {
	ch := make(chan struct{})
	r.mu.Lock()
	r.hold[m] = ch
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.hold[m] == ch {
				delete(r.hold, m)
			}
			r.mu.Unlock()
			close(ch)
		})
	}
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) Count(m Method) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Method == m {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) enter(ctx context.Context, c Call) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	failErr := r.fail[c.Method]
	hold := r.hold[c.Method]
	r.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return failErr
}

func (r *Recorder) Insert(ctx context.Context, collection string, fields gateway.Fields) (string, error) {
	if err := r.enter(ctx, Call{Method: Insert, Collection: collection, Fields: fields}); err != nil {
		return "", err
	}
	return r.next.Insert(ctx, collection, fields)
}

func (r *Recorder) Get(ctx context.Context, collection, id string) (*gateway.Document, bool, error) {
	if err := r.enter(ctx, Call{Method: Get, Collection: collection, ID: id}); err != nil {
		return nil, false, err
	}
	return r.next.Get(ctx, collection, id)
}

func (r *Recorder) Query(ctx context.Context, collection string, pred gateway.Predicate) ([]*gateway.Document, error) {
	if err := r.enter(ctx, Call{Method: Query, Collection: collection, Predicate: pred}); err != nil {
		return nil, err
	}
	return r.next.Query(ctx, collection, pred)
}

func (r *Recorder) Update(ctx context.Context, collection, id string, fields gateway.Fields) error {
	if err := r.enter(ctx, Call{Method: Update, Collection: collection, ID: id, Fields: fields}); err != nil {
		return err
	}
	return r.next.Update(ctx, collection, id, fields)
}
