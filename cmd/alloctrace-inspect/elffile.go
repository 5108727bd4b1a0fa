package main

import (
	"bufio"
	"debug/elf"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
	lru "github.com/hashicorp/golang-lru/v2"
)

// mapping is one file-backed object in the target's address space.
type mapping struct {
	path string
	base uint64
}

// cachedELF is a parsed file plus the pieces every command needs.
type cachedELF struct {
	file    *elf.File
	dynSyms []elf.Symbol
}

type inspector struct {
	pid     int
	objects []mapping
	cache   *lru.Cache[string, *cachedELF]
	current string
}

// loadObjects collects the first zero-offset mapping of every
// file-backed object in /proc/<pid>/maps, whatever its permissions.
func (ins *inspector) loadObjects() error {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", ins.pid))
	if err != nil {
		return err
	}
	defer f.Close()

	seen := make(map[string]bool)
	ins.objects = ins.objects[:0]

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		//      0          1       2      3    4     5
		// 55f0..-55f1.. r-xp 00000000 fd:01 1234 /usr/lib/libc.so.6
		fields := strings.Fields(scanner.Text())
		if len(fields) != 6 || !strings.HasPrefix(fields[5], "/") {
			continue
		}
		if off, err := strconv.ParseUint(fields[2], 16, 64); err != nil || off != 0 {
			continue
		}
		path := fields[5]
		if seen[path] {
			continue
		}
		seen[path] = true
		start, err := strconv.ParseUint(strings.SplitN(fields[0], "-", 2)[0], 16, 64)
		if err != nil {
			continue
		}
		ins.objects = append(ins.objects, mapping{path: path, base: start})
	}
	return scanner.Err()
}

func (ins *inspector) setCurrent(path string) error {
	if _, err := ins.load(path); err != nil {
		return err
	}
	ins.current = path
	return nil
}

func (ins *inspector) load(path string) (*cachedELF, error) {
	if c, ok := ins.cache.Get(path); ok {
		return c, nil
	}
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Objects without dynamic symbols are fine; DynamicSymbols just
	// comes back empty.
	syms, _ := f.DynamicSymbols()
	c := &cachedELF{file: f, dynSyms: syms}
	ins.cache.Add(path, c)
	return c, nil
}

func (ins *inspector) currentELF() (*cachedELF, error) {
	if ins.current == "" {
		return nil, fmt.Errorf("no object selected; run 'use' first")
	}
	return ins.load(ins.current)
}

// dynEntry is one .dynamic entry as shown by the dyn command.
type dynEntry struct {
	tag elf.DynTag
	val uint64
}

// dynamicEntries parses the .dynamic section of the current file up
// to its DT_NULL terminator. ELF64 only, like relocations.
func (c *cachedELF) dynamicEntries() ([]dynEntry, error) {
	if c.file.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("only ELF64 files supported")
	}
	sec := c.file.Section(".dynamic")
	if sec == nil {
		return nil, fmt.Errorf("no .dynamic section")
	}
	data, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("section .dynamic: %w", err)
	}
	bo := c.file.ByteOrder
	var out []dynEntry
	for off := 0; off+16 <= len(data); off += 16 {
		tag := elf.DynTag(bo.Uint64(data[off:]))
		if tag == elf.DT_NULL {
			break
		}
		out = append(out, dynEntry{tag: tag, val: bo.Uint64(data[off+8:])})
	}
	return out, nil
}

// relEntry is one relocation as shown by the rel command.
type relEntry struct {
	table  string
	offset uint64
	sym    uint32
}

var relSectionNames = []string{".rel.dyn", ".rela.dyn", ".rel.plt", ".rela.plt"}

// relocations parses the dynamic relocation sections of the current
// file. ELF64 only; the live tracer handles both widths, the
// inspector only needs to match what it is run on.
func (c *cachedELF) relocations() ([]relEntry, error) {
	if c.file.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("only ELF64 files supported")
	}
	var out []relEntry
	for _, name := range relSectionNames {
		sec := c.file.Section(name)
		if sec == nil {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", name, err)
		}
		rela := strings.HasPrefix(name, ".rela")
		entSize := 16
		if rela {
			entSize = 24
		}
		bo := c.file.ByteOrder
		for off := 0; off+entSize <= len(data); off += entSize {
			info := bo.Uint64(data[off+8:])
			out = append(out, relEntry{
				table:  name,
				offset: bo.Uint64(data[off:]),
				sym:    elf.R_SYM64(info),
			})
		}
	}
	return out, nil
}

// symName resolves a relocation's dynsym index. Index 0 is the null
// symbol, which DynamicSymbols omits.
func (c *cachedELF) symName(index uint32) string {
	if index == 0 || int(index) > len(c.dynSyms) {
		return ""
	}
	return c.dynSyms[index-1].Name
}

// relStats summarises a relocation list: distinct referenced symbols
// and distinct GOT pages touched.
func relStats(rels []relEntry) (symbols uint64, pages uint64) {
	symBits := roaring.New()
	pageBits := roaring64.New()
	for _, r := range rels {
		if r.sym != 0 {
			symBits.Add(r.sym)
		}
		pageBits.Add(r.offset &^ 0xfff)
	}
	return symBits.GetCardinality(), pageBits.GetCardinality()
}
