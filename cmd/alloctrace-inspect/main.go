// Command alloctrace-inspect is a read-only diagnostic shell for
// examining what the patcher sees: the loaded objects of a process,
// their dynamic relocation tables, and the GOT slots behind their PLT
// stubs. It never patches anything.
package main

import (
	"flag"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syndtr/gocapability/capability"
)

func main() {
	pid := flag.Int("p", 0, "process id to inspect (default: self)")
	file := flag.String("f", "", "inspect a single ELF file instead of a process")
	batch := flag.String("batch", "", "semicolon-separated commands to run non-interactively")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *pid == 0 {
		*pid = os.Getpid()
	}
	if *pid != os.Getpid() && *file == "" {
		warnMissingPtraceCap()
	}

	cache, err := lru.New[string, *cachedELF](8)
	if err != nil {
		fatalf("lru cache: %v", err)
	}
	ins := &inspector{pid: *pid, cache: cache}

	if *file != "" {
		if err := ins.setCurrent(*file); err != nil {
			fatalf("%v", err)
		}
	} else if err := ins.loadObjects(); err != nil {
		fatalf("reading maps of pid %d: %v", *pid, err)
	}

	if *batch != "" {
		ins.runBatch(*batch)
		return
	}
	ins.interactive()
}

// Reading /proc/<pid>/maps of another user's process needs
// CAP_SYS_PTRACE; say so up front instead of failing on every read.
func warnMissingPtraceCap() {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return
	}
	if err := caps.Load(); err != nil {
		return
	}
	if !caps.Get(capability.EFFECTIVE, capability.CAP_SYS_PTRACE) {
		fmt.Fprintln(os.Stderr, "warning: CAP_SYS_PTRACE not in the effective set; reads of the target process may fail")
	}
}

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}
