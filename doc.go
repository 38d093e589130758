/*
Package animgate normalizes animation state machines so that death and
respawn transitions behave deterministically.

Animation controllers are authored by hand, and transitions into a death state
routinely wait for the current clip to finish (exit time) or blend for too
long. animgate rewrites every layer that has a terminal state so that:

  - every transition into the terminal state fires immediately and blends quickly,
  - a global "Any State" transition forces entry whenever the gate parameter is true,
  - the terminal state returns to a recovery state only after its clip plays out
    and the gate parameter is false again.

The package-level Engine ties a controller store (a Loam project directory by
default) to the normalizer, the batch runner and the metrics.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/animgate"
	)

	func main() {
		// Controllers are read from ./rigs
		eng, err := animgate.New("./rigs")
		if err != nil {
			log.Fatal(err)
		}

		// Normalize everything and persist what changed
		res, err := eng.NormalizeAll(context.Background(), false)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("fixed %d, skipped %d, failed %d of %d\n",
			res.Run.Fixed, res.Run.Skipped, res.Run.Failed, res.Run.Total)
	}

For in-process use without a store, call normalizer.Normalize directly.
*/
package animgate
