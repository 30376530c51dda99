// Package policy decides whether an actor may perform an operation on a
// todo or a user record. Decisions are pure functions over the actor and
// the target so they can be checked exhaustively in tests.
package policy

import (
	"github.com/dmarquez/tasknestbackend/models"
	"github.com/dmarquez/tasknestbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Actor is the authenticated identity attached to a request by the
// session middleware.
type Actor struct {
	ID    string
	Email string
	Role  models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) ObjectID() (bson.ObjectID, error) {
	return bson.ObjectIDFromHex(a.ID)
}

// CanAccessTodo implements the visibility rule: a non-admin may read or
// modify a todo iff they are its owner or its assignee; admins always may.
func CanAccessTodo(a Actor, t *models.Todo) bool {
	if a.IsAdmin() {
		return true
	}
	id, err := a.ObjectID()
	if err != nil {
		return false
	}
	return t.VisibleTo(id)
}

// CanChangeRole guards promotion and demotion. Admins cannot change their
// own role, another admin's role, or the role of a deactivated user.
func CanChangeRole(a Actor, target *models.User) error {
	if err := adminOnUser(a, target); err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		return utils.ErrForbiddenAction
	}
	if !target.IsActive() {
		// Deactivated accounts cannot be targeted until restored.
		return utils.ErrForbiddenAction
	}
	return nil
}

// CanDeactivate guards account deactivation. Same protections as role
// changes: no self-service, no admin-on-admin.
func CanDeactivate(a Actor, target *models.User) error {
	if err := adminOnUser(a, target); err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		return utils.ErrForbiddenAction
	}
	if !target.IsActive() {
		return utils.ErrConflict
	}
	return nil
}

// CanRestore guards reactivation of a soft-deleted account.
func CanRestore(a Actor, target *models.User) error {
	if !a.IsAdmin() {
		return utils.ErrForbiddenAction
	}
	if target.IsActive() {
		return utils.ErrConflict
	}
	return nil
}

func adminOnUser(a Actor, target *models.User) error {
	if !a.IsAdmin() {
		return utils.ErrForbiddenAction
	}
	if a.ID == target.ID.Hex() {
		return utils.ErrForbiddenAction
	}
	return nil
}
