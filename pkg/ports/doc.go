/*
Package ports defines the driven ports (interfaces) for animgate.

These interfaces decouple normalization from where controllers live, so the
same batch runner works against a project directory, Redis, object storage or
an in-memory fixture.

# Key Interfaces

  - ControllerStore: Loads, lists and persists animation controllers.
  - DistributedLocker: Serializes writers of the same controller across instances.
  - RunLedger: Records batch runs and their per-controller outcomes.
*/
package ports
