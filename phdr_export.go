package alloctrace

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"
)

//export alloctraceOnObject
func alloctraceOnObject(name *C.char, base C.uintptr_t, dyn C.uintptr_t, handle C.uintptr_t) C.int {
	visit := cgo.Handle(handle).Value().(objectVisitor)
	return C.int(visit(objectInfo{
		name: C.GoString(name),
		base: uintptr(base),
		dyn:  uintptr(dyn),
	}))
}
