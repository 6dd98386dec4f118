package options

import (
	"fmt"
	"reflect"
	"sync"
)

type key struct {
	level int
	id    int
}

var (
	lock   sync.RWMutex
	byKey  = map[key]Option{}
	byName = map[string]Option{}
)

// Register makes options discoverable by (level, id) and by name.
func Register(opts ...Option) error {
	lock.Lock()
	defer lock.Unlock()
	for _, opt := range opts {
		k := key{opt.Level(), opt.ID()}
		if xopt, ok := byKey[k]; ok && xopt != opt {
			return fmt.Errorf("option (%d, %d) already registered as %s", k.level, k.id, xopt.Name())
		}
		byKey[k] = opt
		byName[opt.Name()] = opt
	}
	return nil
}

// RegisterStructuredOptions registers every Option field of a struct value.
func RegisterStructuredOptions(opts interface{}) {
	v := reflect.ValueOf(opts)
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		if opt, ok := v.Field(i).Interface().(Option); ok {
			if err := Register(opt); err != nil {
				panic(err)
			}
		}
	}
}

// Lookup finds an option by level and id.
func Lookup(level, id int) (opt Option, ok bool) {
	lock.RLock()
	opt, ok = byKey[key{level, id}]
	lock.RUnlock()
	return
}

// LookupName finds an option by name.
func LookupName(name string) (opt Option, ok bool) {
	lock.RLock()
	opt, ok = byName[name]
	lock.RUnlock()
	return
}
