// Package isolated implements the isolated-worker backend. Workers share no memory:
// every piece of shared state lives in a Store, a coordination service that hands out
// independent copies on read and only changes when a worker writes a value back.
package isolated

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anggasct/crossing/pkg/utils"
)

var errMissingKey = errors.New("key not found")

type opKind int

const (
	opGet opKind = iota
	opPut
	opAwait
)

type request struct {
	op      opKind
	key     string
	data    []byte
	parties int
	reply   chan response
}

type response struct {
	data []byte
	err  error
}

type rendezvous struct {
	parties int
	waiting []chan response
}

// Store is the shared-state coordination service. Values are held encoded, so a read
// can never alias the stored value. Lock and Unlock provide the cross-worker mutual
// exclusion that every read-modify-write must hold.
type Store struct {
	requests  chan request
	lock      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	served    sync.WaitGroup
}

// NewStore starts the coordination service
func NewStore() *Store {
	s := &Store{
		requests: make(chan request),
		lock:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	s.served.Add(1)
	go s.serve()
	return s
}

func (s *Store) serve() {
	defer s.served.Done()

	values := make(map[string][]byte)
	barriers := make(map[string]*rendezvous)

	for {
		select {
		case <-s.closed:
			for _, b := range barriers {
				for _, w := range b.waiting {
					w <- response{err: utils.ErrStoreClosed}
				}
			}
			return

		case req := <-s.requests:
			switch req.op {
			case opGet:
				data, ok := values[req.key]
				if !ok {
					req.reply <- response{err: utils.NewStoreError("get", req.key, errMissingKey)}
					continue
				}
				req.reply <- response{data: data}

			case opPut:
				values[req.key] = req.data
				req.reply <- response{}

			case opAwait:
				b, ok := barriers[req.key]
				if !ok {
					b = &rendezvous{parties: req.parties}
					barriers[req.key] = b
				}
				if b.parties != req.parties {
					req.reply <- response{err: utils.NewStoreError("await", req.key,
						fmt.Errorf("barrier expects %d parties, got %d", b.parties, req.parties))}
					continue
				}
				b.waiting = append(b.waiting, req.reply)
				if len(b.waiting) == b.parties {
					for _, w := range b.waiting {
						w <- response{}
					}
					delete(barriers, req.key)
				}
			}
		}
	}
}

func (s *Store) call(req request) response {
	req.reply = make(chan response, 1)

	select {
	case s.requests <- req:
	case <-s.closed:
		return response{err: utils.ErrStoreClosed}
	}

	select {
	case resp := <-req.reply:
		return resp
	case <-s.closed:
		return response{err: utils.ErrStoreClosed}
	}
}

// Get decodes the value stored at key into out
func (s *Store) Get(key string, out any) error {
	resp := s.call(request{op: opGet, key: key})
	if resp.err != nil {
		return resp.err
	}
	if err := json.Unmarshal(resp.data, out); err != nil {
		return utils.NewStoreError("decode", key, err)
	}
	return nil
}

// Put encodes v and stores it at key
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return utils.NewStoreError("encode", key, err)
	}
	return s.call(request{op: opPut, key: key, data: data}).err
}

// Await blocks until parties callers have awaited the barrier called name
func (s *Store) Await(name string, parties int) error {
	return s.call(request{op: opAwait, key: name, parties: parties}).err
}

// Lock acquires the store-wide mutual exclusion
func (s *Store) Lock() error {
	select {
	case s.lock <- struct{}{}:
	case <-s.closed:
		return utils.ErrStoreClosed
	}

	select {
	case <-s.closed:
		<-s.lock
		return utils.ErrStoreClosed
	default:
		return nil
	}
}

// Unlock releases the store-wide mutual exclusion
func (s *Store) Unlock() {
	<-s.lock
}

// Closed reports whether the store has been torn down
func (s *Store) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close tears the service down. Closing twice reports ErrStoreClosed.
func (s *Store) Close() error {
	err := error(utils.ErrStoreClosed)
	s.closeOnce.Do(func() {
		close(s.closed)
		err = nil
	})
	s.served.Wait()
	return err
}

// Client returns a handle for one worker
func (s *Store) Client(name string) *Client {
	return &Client{name: name, store: s}
}
