//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the clear-loop example against the software device.
func (Run) Example() error {
	fmt.Println("Run clearloop example...")
	if _, err := executeCmd("go", withArgs("run", "./examples/clearloop"), withStream()); err != nil {
		return err
	}
	return nil
}
