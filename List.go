package fridabind

import (
	"iter"

	"github.com/dsjlzh/fridabind/driver"
)

// listView is a snapshot list backed by its native list handle. Elements are
// wrapped on demand; each Get returns a wrapper holding its own reference,
// independent of the list and of sibling elements.
type listView[T any] struct {
	obj  *object
	size func(drv driver.Driver, l driver.Handle) int
	get  func(drv driver.Driver, l driver.Handle, i int) driver.Handle
	wrap func(obj *object) *T
}

// Size returns the number of elements, or 0 once the list is closed.
func (l *listView[T]) Size() (n int) {
	l.obj.peek(func(drv driver.Driver, h driver.Handle) {
		n = l.size(drv, h)
	})
	return
}

// Get returns the element at index i. The caller owns the returned wrapper
// and should Close it.
func (l *listView[T]) Get(i int) (elem *T, err error) {
	err = l.obj.use(func(drv driver.Driver, h driver.Handle) error {
		if i < 0 || i >= l.size(drv, h) {
			return ErrIndexOutOfRange
		}
		eh := l.get(drv, h, i)
		if eh == 0 {
			return ErrIndexOutOfRange
		}
		elem = l.wrap(acquire(drv, eh, l.obj.kind+"[]"))
		return nil
	})
	return
}

// All iterates over the elements in native order. Every yielded wrapper is
// owned by the caller.
func (l *listView[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		n := l.Size()
		for i := 0; i < n; i++ {
			elem, err := l.Get(i)
			if err != nil {
				return
			}
			if !yield(i, elem) {
				return
			}
		}
	}
}

// Close releases the native list. Elements already returned by Get stay
// valid.
func (l *listView[T]) Close() error {
	l.obj.release()
	return nil
}
