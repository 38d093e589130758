/*
Package batch normalizes every controller of a store in one run.

A Runner lists (or receives) controller ids, normalizes them concurrently and
persists only the controllers that changed. Failures are per controller: a
controller that cannot be loaded or saved is counted as failed and the run goes
on. Every run gets an id and can be recorded in a ports.RunLedger.
*/
package batch
