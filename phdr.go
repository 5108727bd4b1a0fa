package alloctrace

/*
#define _GNU_SOURCE
#include <link.h>
#include <stddef.h>
#include <stdint.h>

extern int alloctraceOnObject(char *name, uintptr_t base, uintptr_t dyn, uintptr_t handle);

static int alloctrace_phdr_callback(struct dl_phdr_info *info, size_t size, void *data)
{
	const ElfW(Phdr) *phdr = info->dlpi_phdr;
	uintptr_t dyn = 0;
	int i;

	for (i = 0; i < info->dlpi_phnum; i++) {
		if (phdr[i].p_type == PT_DYNAMIC) {
			dyn = (uintptr_t)(info->dlpi_addr + phdr[i].p_vaddr);
			break;
		}
	}
	return alloctraceOnObject((char *)info->dlpi_name, (uintptr_t)info->dlpi_addr, dyn, (uintptr_t)data);
}

static int alloctrace_iterate_phdrs(uintptr_t handle)
{
	return dl_iterate_phdr(alloctrace_phdr_callback, (void *)handle);
}
*/
import "C"

import (
	"runtime/cgo"
)

// objectInfo is one loaded object as reported by dl_iterate_phdr: its
// name, its load base, and the in-memory address of its PT_DYNAMIC
// segment (0 when the object has none).
type objectInfo struct {
	name string
	base uintptr
	dyn  uintptr
}

// objectVisitor is called once per loaded object. A non-zero return
// stops the iteration, mirroring the phdr callback contract.
type objectVisitor func(obj objectInfo) int

// iterateObjects walks the process's loaded objects in link-map order.
func iterateObjects(visit objectVisitor) {
	h := cgo.NewHandle(visit)
	defer h.Delete()
	C.alloctrace_iterate_phdrs(C.uintptr_t(h))
}
