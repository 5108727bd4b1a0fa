//go:build !amd64

package main

import "fmt"

func (ins *inspector) cmdDisasm(args []string) error {
	return fmt.Errorf("disasm is only available on amd64")
}

func (ins *inspector) cmdSlot(args []string) error {
	return fmt.Errorf("slot is only available on amd64")
}
