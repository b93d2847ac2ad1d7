package nav

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/nav3d/internal/collision"
)

// RequestState tracks a path request through its lifecycle.
type RequestState int32

const (
	StateIdle RequestState = iota
	StateDispatched
	StateResolving
	StateSearching
	StateCompleted
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDispatched:
		return "Dispatched"
	case StateResolving:
		return "Resolving"
	case StateSearching:
		return "Searching"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CompletionFunc receives a request's result on the owner's executor.
// points is nil unless the result is Success or PathToSelf.
type CompletionFunc func(result Result, points []mgl64.Vec3)

// Request is the handle returned by Volume.RequestPath.
// Result is valid once Done is closed.
type Request struct {
	requester  collision.ActorID
	start, end mgl64.Vec3
	version    uint64
	onComplete CompletionFunc

	state  atomic.Int32
	once   sync.Once
	done   chan struct{}
	result PathResult
}

func newRequest(requester collision.ActorID, start, end mgl64.Vec3, onComplete CompletionFunc) *Request {
	return &Request{
		requester:  requester,
		start:      start,
		end:        end,
		onComplete: onComplete,
		done:       make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (r *Request) State() RequestState {
	return RequestState(r.state.Load())
}

// Version returns the search version issued to this request.
func (r *Request) Version() uint64 {
	return r.version
}

// Requester returns the identity the request was made for.
func (r *Request) Requester() collision.ActorID {
	return r.requester
}

// Done is closed after the callback has run.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result returns the final result. Only meaningful after Done is closed.
func (r *Request) Result() PathResult {
	return r.result
}

func (r *Request) transition(s RequestState) {
	r.state.Store(int32(s))
}

// complete runs on the owner's executor. Later calls are ignored.
func (r *Request) complete(res PathResult) {
	r.once.Do(func() {
		if res.Result.IsCompleted() {
			r.transition(StateCompleted)
		} else {
			r.transition(StateFailed)
		}
		r.result = res
		if r.onComplete != nil {
			r.onComplete(res.Result, res.Points)
		}
		close(r.done)
	})
}
