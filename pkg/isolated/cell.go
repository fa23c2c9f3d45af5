package isolated

// Client is the only handle a worker holds on shared state
type Client struct {
	name  string
	store *Store
}

// Name identifies the worker owning the client
func (c *Client) Name() string {
	return c.name
}

// Atomically runs fn while holding the store-wide lock
func (c *Client) Atomically(fn func() error) error {
	if err := c.store.Lock(); err != nil {
		return err
	}
	defer c.store.Unlock()
	return fn()
}

// Await joins the named barrier
func (c *Client) Await(name string, parties int) error {
	return c.store.Await(name, parties)
}

// Cell is a typed view of one store key. Load always yields an independent copy;
// changes are only visible to other workers once written back with Store.
type Cell[T any] struct {
	client *Client
	key    string
}

// NewCell binds key to a client
func NewCell[T any](c *Client, key string) Cell[T] {
	return Cell[T]{client: c, key: key}
}

// Key returns the store key
func (c Cell[T]) Key() string {
	return c.key
}

// Load reads a copy of the value
func (c Cell[T]) Load() (T, error) {
	var v T
	err := c.client.store.Get(c.key, &v)
	return v, err
}

// Store writes v back
func (c Cell[T]) Store(v T) error {
	return c.client.store.Put(c.key, v)
}

// Modify performs lock, load, mutate, write back, unlock.
// The value is not written back when fn fails.
func (c Cell[T]) Modify(fn func(*T) error) error {
	return c.client.Atomically(func() error {
		v, err := c.Load()
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		return c.Store(v)
	})
}
