package shared

import "context"

// Role names recognised by the access layer.
const (
	RoleAdmin     = "admin"
	RoleSales     = "sales"
	RoleInventory = "inventory"
	RoleAccounts  = "accounts"
)

// Roles lists every assignable role.
func Roles() []string {
	return []string{RoleAdmin, RoleSales, RoleInventory, RoleAccounts}
}

// Actor identifies who performs a mutation. ID is zero for system jobs.
type Actor struct {
	ID       int64
	Username string
	Role     string
}

// SystemActor is attributed to scheduled batch operations.
var SystemActor = Actor{Username: "system"}

// IsSystem reports whether the actor is the scheduler.
func (a Actor) IsSystem() bool {
	return a.ID == 0
}

// UserID returns the actor id or nil for system mutations.
func (a Actor) UserID() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

type actorContextKey struct{}

// ContextWithActor stores the authenticated actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
