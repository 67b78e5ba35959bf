package cache

import "io"

// Coordinator wraps a Store with the first-readers-writers
// (reader-preference) protocol from spec.md §4.4: any number of readers
// may hold read access simultaneously; a writer holds exclusive access;
// new readers may enter while a writer is waiting, so writer starvation
// is an accepted trade-off.
//
// The three primitives match the source's pthread implementation
// (readcnt, a mutex guarding it, and a binary semaphore guarding write
// access) translated to Go: m and w are both one-buffered channels, m
// used as a mutex and w as a binary semaphore, since the standard
// library's sync.RWMutex is writer-preferring and cannot express this
// protocol.
type Coordinator struct {
	store   *Store
	m       chan struct{} // guards readcnt; buffered 1, acts as a mutex
	w       chan struct{} // binary semaphore guarding write access
	readcnt int

	// Observability hooks, optional. OnHit and OnMiss run inside
	// ReadTry's reader section; OnDenied, OnEvict and OnAdmit run after
	// WriteAdmit has released write access.
	OnHit    func(key string, size int)
	OnMiss   func(key string)
	OnEvict  func(freed int)
	OnAdmit  func(key string, size int)
	OnDenied func(key string, size int)
}

// NewCoordinator creates a coordinator guarding a fresh, empty store.
func NewCoordinator() *Coordinator {
	c := &Coordinator{
		store: NewStore(),
		m:     make(chan struct{}, 1),
		w:     make(chan struct{}, 1),
	}
	c.m <- struct{}{}
	c.w <- struct{}{}
	return c
}

func (c *Coordinator) readerEnter() {
	<-c.m
	c.readcnt++
	if c.readcnt == 1 {
		<-c.w
	}
	c.m <- struct{}{}
}

func (c *Coordinator) readerExit() {
	<-c.m
	c.readcnt--
	if c.readcnt == 0 {
		c.w <- struct{}{}
	}
	c.m <- struct{}{}
}

// ReadTry implements spec.md §4.4's read_try: a reader section that
// looks up key and, on a hit, writes the entry's object bytes to sink
// and refreshes its age. Returns whether it was a hit.
func (c *Coordinator) ReadTry(key string, sink io.Writer) (hit bool, err error) {
	c.readerEnter()
	defer c.readerExit()

	e := c.store.Lookup(key)
	if e == nil {
		if c.OnMiss != nil {
			c.OnMiss(key)
		}
		return false, nil
	}

	if _, werr := sink.Write(e.Object()); werr != nil {
		return true, werr
	}
	c.store.Touch(e)

	if c.OnHit != nil {
		c.OnHit(key, e.Size())
	}
	return true, nil
}

// WriteAdmit implements spec.md §4.3's admission algorithm as a writer
// section: oversize objects are dropped before write access is taken;
// inside the section the store evicts its oldest
// entries until object fits or the key is found to have already been
// admitted by a racing writer, in which case neither eviction nor
// duplicate insertion happens.
func (c *Coordinator) WriteAdmit(key string, object []byte) {
	if len(object) > MaxObjectSize {
		if c.OnDenied != nil {
			c.OnDenied(key, len(object))
		}
		return
	}

	var evicted []int
	admitted := false
	<-c.w
	for c.store.WouldOverflow(len(object)) && c.store.Lookup(key) == nil {
		evicted = append(evicted, c.store.EvictOne())
	}

	if c.store.Lookup(key) == nil {
		c.store.Insert(key, object)
		admitted = true
	}
	c.w <- struct{}{}

	for _, freed := range evicted {
		if c.OnEvict != nil {
			c.OnEvict(freed)
		}
	}
	if admitted && c.OnAdmit != nil {
		c.OnAdmit(key, len(object))
	}
}

// TotalSize reports the store's current aggregate size. It takes a
// reader section since it only inspects store state.
func (c *Coordinator) TotalSize() int {
	c.readerEnter()
	defer c.readerExit()
	return c.store.TotalSize()
}
