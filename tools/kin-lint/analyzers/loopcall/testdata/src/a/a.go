package a

import "context"

type Store interface {
	FindCollective(ctx context.Context, id string) (string, error)
	FindMembership(ctx context.Context, id string) (string, error)
}

func bad(ctx context.Context, ids []string, s Store) {
	for _, id := range ids {
		s.FindCollective(ctx, id) // want "potential N\\+1: FindCollective called inside loop"
	}
	for i := 0; i < len(ids); i++ {
		s.FindMembership(ctx, ids[i]) // want "potential N\\+1: FindMembership called inside loop"
	}
}

func good(ctx context.Context, ids []string, s Store, spawn func(func())) {
	// No store calls
	for _, id := range ids {
		_ = len(id)
	}
	// Fan-out closures are not flagged
	for _, id := range ids {
		spawn(func() { s.FindCollective(ctx, id) })
	}
}
