// Package tree implements the discovery-tree caching and identity engine.
//
// The engine exposes a large, slowly-discoverable resource hierarchy
// (clusters, databases, collections, contributed by independently-written
// providers) to a host UI as a single lazily-expanded tree. It is built from
// four cooperating parts composed by the Orchestrator:
//
//   - Cache: the bidirectional parent/child index over node ids. It supports
//     point lookup, subtree invalidation, a breadth-first find-by-id that can
//     fall back to controlled re-expansion, and suffix lookup for resolving a
//     resource id to its tree node.
//   - in-flight deduplication: at most one outstanding expansion per node id;
//     concurrent callers share the pending result (singleflight).
//   - FailureMemo: the last child batch of a node whose expansion produced a
//     recognizable error placeholder, served until an explicit retry signal,
//     so redraws do not hammer a broken backend.
//   - Registry: the set of registered providers, each owning a namespace.
//
// Per node, expansion requests drive the state machine
//
//	Unexpanded -> Expanding -> {Expanded | Failed}
//	Failed   -> (ResetNodeErrorState) -> Unexpanded
//	Expanded -> (ancestor invalidation) -> Unexpanded
//
// Concurrency model: cache mutations are short critical sections under the
// cache mutex; provider I/O happens outside any lock, guarded only by the
// per-node-id flight. A refresh does not cancel an in-flight expansion for
// the same node; the expansion completes, registers its result, and is
// superseded by the refresh's invalidation.
package tree
