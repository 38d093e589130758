/*
Package domain contains the animation graph model normalized by animgate.

It mirrors the shape of a character animation controller: a set of shared
parameters and an ordered list of layers, each owning one flat state machine.
This package is kept pure and free of I/O so it can be shared by the
normalizer, the storage adapters and the transport layers.

# Key Entities

  - Controller: parameters plus layers, the unit loaded and persisted by stores.
  - Layer: a named state machine. Layers never affect each other.
  - StateMachine: ordered states plus the "Any State" transitions, which are
    modeled as a first-class collection instead of a hidden pseudo-node.
  - Transition: an edge to a destination state, gated by a conjunction of Conditions.

Insertion order of states and transitions is significant: it defines the
tie-break order used when several states match a role.
*/
package domain
