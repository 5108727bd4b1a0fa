package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"golang.org/x/exp/maps"
	"golang.org/x/term"

	"github.com/k2io/alloctrace"
)

func (ins *inspector) interactive() {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "[alloctrace]> ",
		HistoryFile: "/tmp/alloctrace-inspect.history",
	})
	if err != nil {
		fatalf("readline: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" || line == "exit" {
			break
		}
		if err := ins.exec(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func (ins *inspector) runBatch(batch string) {
	for _, line := range strings.Split(batch, ";") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := ins.exec(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func (ins *inspector) exec(line string) error {
	args := strings.Fields(line)
	cmd, args := args[0], args[1:]
	switch cmd {
	case "objects":
		return ins.cmdObjects()
	case "use":
		return ins.cmdUse(args)
	case "dyn":
		return ins.cmdDyn()
	case "rel":
		return ins.cmdRel()
	case "sym":
		return ins.cmdSym(args)
	case "tracked":
		return ins.cmdTracked()
	case "disasm":
		return ins.cmdDisasm(args)
	case "slot":
		return ins.cmdSlot(args)
	case "help":
		fmt.Println("objects | use [path] | dyn | rel | sym <name> | tracked | disasm <sym> | slot <sym> | quit")
		return nil
	}
	return fmt.Errorf("unknown command %q (try 'help')", cmd)
}

func (ins *inspector) cmdObjects() error {
	if len(ins.objects) == 0 {
		if err := ins.loadObjects(); err != nil {
			return err
		}
	}
	bases := make(map[string]uint64, len(ins.objects))
	for _, obj := range ins.objects {
		bases[obj.path] = obj.base
	}
	paths := maps.Keys(bases)
	sort.Strings(paths)
	for _, path := range paths {
		marker := "  "
		if path == ins.current {
			marker = "* "
		}
		fmt.Printf("%s%016x  %s\n", marker, bases[path], truncate(path))
	}
	return nil
}

func (ins *inspector) cmdUse(args []string) error {
	if len(args) == 1 {
		return ins.setCurrent(args[0])
	}
	if len(ins.objects) == 0 {
		return fmt.Errorf("no objects loaded; run 'objects' first or pass a path")
	}
	items := make([]string, len(ins.objects))
	for i, obj := range ins.objects {
		items[i] = obj.path
	}
	sel := promptui.Select{Label: "Object", Items: items, Size: 12}
	i, _, err := sel.Run()
	if err != nil {
		return err
	}
	return ins.setCurrent(ins.objects[i].path)
}

func (ins *inspector) cmdDyn() error {
	c, err := ins.currentELF()
	if err != nil {
		return err
	}
	entries, err := c.dynamicEntries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%-16s %016x\n", e.tag, e.val)
	}
	return nil
}

func (ins *inspector) cmdRel() error {
	c, err := ins.currentELF()
	if err != nil {
		return err
	}
	rels, err := c.relocations()
	if err != nil {
		return err
	}
	for _, r := range rels {
		fmt.Printf("%-9s %016x  %s\n", r.table, r.offset, c.symName(r.sym))
	}
	symbols, pages := relStats(rels)
	fmt.Printf("%d entries, %d distinct symbols, %d GOT pages\n", len(rels), symbols, pages)
	return nil
}

func (ins *inspector) cmdSym(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sym <name>")
	}
	c, err := ins.currentELF()
	if err != nil {
		return err
	}
	for _, s := range c.dynSyms {
		if s.Name == args[0] {
			fmt.Printf("%016x  size=%d  %s\n", s.Value, s.Size, s.Name)
			return nil
		}
	}
	fmt.Println("not found")
	return nil
}

// cmdTracked shows which of the tracer's symbols this object resolves
// through its relocations.
func (ins *inspector) cmdTracked() error {
	c, err := ins.currentELF()
	if err != nil {
		return err
	}
	rels, err := c.relocations()
	if err != nil {
		return err
	}
	tracked := make(map[string]bool, len(alloctrace.TrackedSymbols()))
	for _, name := range alloctrace.TrackedSymbols() {
		tracked[name] = true
	}
	referenced := make(map[string][]relEntry)
	for _, r := range rels {
		if name := c.symName(r.sym); tracked[name] {
			referenced[name] = append(referenced[name], r)
		}
	}
	if len(referenced) == 0 {
		fmt.Println("no tracked symbols referenced")
		return nil
	}
	names := maps.Keys(referenced)
	sort.Strings(names)
	for _, name := range names {
		for _, r := range referenced[name] {
			fmt.Printf("%-18s %-9s slot %016x\n", name, r.table, r.offset)
		}
	}
	return nil
}

// truncate keeps long paths inside the terminal width.
func truncate(s string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 24 || len(s) <= w-20 {
		return s
	}
	return "..." + s[len(s)-(w-23):]
}
