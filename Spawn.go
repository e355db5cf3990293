package fridabind

import (
	"runtime"

	"github.com/dsjlzh/fridabind/driver"
)

// Spawn is a process held suspended by spawn gating.
type Spawn struct {
	obj *object
}

func newSpawn(obj *object) *Spawn {
	s := &Spawn{obj: obj}
	runtime.SetFinalizer(s, (*Spawn).Close)
	return s
}

func (s *Spawn) Close() error {
	s.obj.release()
	return nil
}

func (s *Spawn) PID() (pid uint) {
	s.obj.peek(func(drv driver.Driver, h driver.Handle) {
		pid = drv.SpawnPID(h)
	})
	return
}

// Identifier is empty for spawns that are not applications.
func (s *Spawn) Identifier() (id string) {
	s.obj.peek(func(drv driver.Driver, h driver.Handle) {
		id, _ = drv.SpawnIdentifier(h)
	})
	return
}

type SpawnList struct {
	listView[Spawn]
}

func newSpawnList(obj *object) *SpawnList {
	sl := &SpawnList{listView[Spawn]{
		obj: obj,
		size: func(drv driver.Driver, l driver.Handle) int {
			return drv.SpawnListSize(l)
		},
		get: func(drv driver.Driver, l driver.Handle, i int) driver.Handle {
			return drv.SpawnListGet(l, i)
		},
		wrap: newSpawn,
	}}
	runtime.SetFinalizer(sl, (*SpawnList).Close)
	return sl
}
