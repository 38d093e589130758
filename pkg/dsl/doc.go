/*
Package dsl provides a fluent builder for constructing animation controllers in Go.

It replaces hand-assembled struct literals (and the reflection-based field
injection of editor tooling) with typed calls. States keep the order in which
they are first declared, which matters because normalization breaks ties by
stored order.

Example usage:

	b := dsl.New("Hero")
	b.Bool("isDead", false)

	base := b.Layer("Base")
	base.State("Idle")
	base.State("Battle")
	base.State("Attack").To("Death").ExitTime(0.9).Duration(1.0)
	base.State("Death")

	controller := b.Build()
*/
package dsl
