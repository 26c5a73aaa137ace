// Package arbor is a runtime ORM core: a SQL fragment builder, a
// map-based entity model with dirty tracking and attribute casts, a
// registry of entity definitions and relation descriptors, and a
// batched eager-load resolver.
//
// Hosts register their entities once at start-up:
//
//	registry := arbor.NewRegistry()
//	registry.MustRegister(&arbor.Definition{
//		Name:       "User",
//		Timestamps: true,
//		Relations: map[string]arbor.RelationFunc{
//			"posts": func() *arbor.Relation {
//				return arbor.HasMany("Post", "user_id", "id")
//			},
//		},
//	})
//
// and thread an explicit Client through every call that touches
// storage:
//
//	client := arbor.NewClient(arbor.Driver(drv), arbor.WithRegistry(registry))
//	users, err := client.Model("User").
//		Where("active", "=", 1).
//		With("posts.comments").
//		Get(ctx)
//
// Eager loading issues one batched query per relation per nesting level
// (two for the pivot-backed kinds) regardless of the parent count.
package arbor
