/*
Package normalizer rewrites animation state machines so that a terminal state
(a death or defeat pose) is always reachable the moment a Boolean gate
parameter becomes true, and so that a recovery transition leaves it once the
gate clears.

Normalize runs one deterministic pass per layer:

  - Inbound transitions to the terminal state lose their exit time and are
    capped to a short blend.
  - The first Any State transition to the terminal state is forced and gated
    on (gate, IsTrue); one is created when missing. Later duplicates are
    reported, never deleted.
  - The first transition from the terminal state to the recovery state waits
    for the clip to end, is gated on (gate, IsFalse), and is created when
    missing.

Role detection is by case-insensitive name hints, first match in stored order.
Running Normalize on its own output produces no further changes.

Normalize performs no I/O and keeps no package state, so independent
controllers may be normalized concurrently.
*/
package normalizer
