// Command liballoctrace hosts the tracer for the c-shared build:
//
//	go build -buildmode=c-shared -o liballoctrace.so ./cmd/liballoctrace
//
// The blank import pulls in the exported wrappers and the patching
// machinery; main never runs in the shared object.
package main

import _ "github.com/k2io/alloctrace"

func main() {}
