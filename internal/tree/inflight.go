package tree

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// flightGroup deduplicates concurrent expansions per node id. A single UI
// redraw can issue several near-simultaneous child requests for the same
// visible node while the provider call is network-bound; all of them share
// one flight and one result. The entry exists only while the flight is
// pending; singleflight removes it when it settles, success or failure.
type flightGroup struct {
	group singleflight.Group
}

// Do runs fn under the flight for nodeID, or joins the pending flight if one
// exists. shared reports whether the result was produced by a flight another
// caller started.
func (f *flightGroup) Do(ctx context.Context, nodeID string, fn func() ([]Node, error)) (children []Node, shared bool, err error) {
	result, err, shared := f.group.Do(nodeID, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, shared, err
	}
	if err := ctx.Err(); err != nil {
		// The shared flight completed, but this caller is gone; its result
		// is still registered by the flight owner.
		return nil, shared, err
	}
	return result.([]Node), shared, nil
}
