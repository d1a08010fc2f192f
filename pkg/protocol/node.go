package protocol

import (
	"fmt"

	"github.com/pangea-net/smpc-core/pkg/protoerr"
	"github.com/pangea-net/smpc-core/pkg/sharing"
)

// NodeIntermediate is what one node computes locally from the shares it was
// dealt: simply its own party index out of every Shares value in a
// PreparedShares, re-keyed for easy lookup at aggregation time. Because
// PrepareData already folded ReduceSum statistics across owners via
// sharing.Add, a node does no further arithmetic of its own here — its
// "processing" is picking out the one share per stat that belongs to it,
// exactly as the teacher's node-side DKG deal handlers do.
type NodeIntermediate struct {
	NodeIndex   int
	SumStats    map[string]sharing.Share
	MinMaxStats map[string][]sharing.Share
	Buckets     [][]sharing.Share
}

// ProcessShareAtNode extracts nodeIndex's party from every Shares value in
// prepared, returning the bundle that node reports back to the coordinator.
func ProcessShareAtNode(prepared *PreparedShares, nodeIndex int) (NodeIntermediate, error) {
	out := NodeIntermediate{
		NodeIndex:   nodeIndex,
		SumStats:    make(map[string]sharing.Share, len(prepared.SumStats)),
		MinMaxStats: make(map[string][]sharing.Share, len(prepared.MinMaxStats)),
	}

	for name, shares := range prepared.SumStats {
		party, err := partyByIndex(shares, nodeIndex)
		if err != nil {
			return NodeIntermediate{}, protoerr.New(protoerr.Internal, "protocol.process_share", fmt.Errorf("stat %q: %w", name, err))
		}
		out.SumStats[name] = party
	}

	for name, perOwner := range prepared.MinMaxStats {
		parties := make([]sharing.Share, len(perOwner))
		for i, shares := range perOwner {
			party, err := partyByIndex(shares, nodeIndex)
			if err != nil {
				return NodeIntermediate{}, protoerr.New(protoerr.Internal, "protocol.process_share", fmt.Errorf("stat %q owner %d: %w", name, i, err))
			}
			parties[i] = party
		}
		out.MinMaxStats[name] = parties
	}

	if len(prepared.Buckets) > 0 {
		out.Buckets = make([][]sharing.Share, len(prepared.Buckets))
		for j, perOwner := range prepared.Buckets {
			parties := make([]sharing.Share, len(perOwner))
			for i, shares := range perOwner {
				party, err := partyByIndex(shares, nodeIndex)
				if err != nil {
					return NodeIntermediate{}, protoerr.New(protoerr.Internal, "protocol.process_share", fmt.Errorf("bucket %d owner %d: %w", j, i, err))
				}
				parties[i] = party
			}
			out.Buckets[j] = parties
		}
	}

	return out, nil
}

func partyByIndex(s sharing.Shares, index int) (sharing.Share, error) {
	for _, p := range s.Parties {
		if p.Index == index {
			return p, nil
		}
	}
	return sharing.Share{}, fmt.Errorf("no share held for party index %d", index)
}
