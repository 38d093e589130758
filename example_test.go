package animgate_test

import (
	"context"
	"fmt"

	"github.com/aretw0/animgate"
	"github.com/aretw0/animgate/pkg/adapters/memory"
	"github.com/aretw0/animgate/pkg/domain"
	"github.com/aretw0/animgate/pkg/dsl"
)

// ExampleNew_memory demonstrates how to run a batch over an in-memory store.
func ExampleNew_memory() {
	b := dsl.New("Hero")
	base := b.Layer("Base")
	base.State("Idle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")

	store := memory.NewStore(map[string]*domain.Controller{"hero": b.Build()})

	eng, err := animgate.New("", animgate.WithStore(store))
	if err != nil {
		panic(err)
	}

	res, err := eng.NormalizeAll(context.Background(), false)
	if err != nil {
		panic(err)
	}
	fmt.Printf("fixed=%d skipped=%d failed=%d\n", res.Run.Fixed, res.Run.Skipped, res.Run.Failed)

	violations, _ := eng.Check(context.Background(), "hero")
	fmt.Println("violations:", len(violations))
	// Output:
	// fixed=1 skipped=0 failed=0
	// violations: 0
}
