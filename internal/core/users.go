package core

import (
	"context"
	"sort"

	"proposalhub/pkg/domain"
)

// Users is the user repository. Users are never hard-deleted.
type Users struct {
	svc *Service
}

// UserFilter narrows List. A zero filter matches everyone.
type UserFilter struct {
	Role domain.UserRole
}

// List returns users ordered by id.
func (r *Users) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	var out []domain.User
	err := r.svc.view(ctx, "users.list", func(v domain.TransactionView) error {
		for _, u := range v.ListUsers() {
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// Get retrieves a user by id.
func (r *Users) Get(ctx context.Context, id int64) (domain.User, bool, error) {
	var (
		user domain.User
		ok   bool
	)
	err := r.svc.view(ctx, "users.get", func(v domain.TransactionView) error {
		user, ok = v.FindUser(id)
		return nil
	})
	return user, ok, err
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *Users) GetByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var (
		user domain.User
		ok   bool
	)
	err := r.svc.view(ctx, "users.get_by_email", func(v domain.TransactionView) error {
		user, ok = v.FindUserByEmail(email)
		return nil
	})
	return user, ok, err
}

// Create registers a user. Duplicate emails return domain.ErrEmailTaken.
func (r *Users) Create(ctx context.Context, user domain.User) (domain.User, error) {
	var created domain.User
	_, err := r.svc.run(ctx, "users.create", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateUser(user)
		return err
	})
	return created, err
}

// Update applies the set fields of up. It reports false when the user does
// not exist.
func (r *Users) Update(ctx context.Context, id int64, up domain.UserUpdate) (domain.User, bool, error) {
	var updated domain.User
	_, err := r.svc.run(ctx, "users.update", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateUser(id, func(u *domain.User) error {
			up.Apply(u)
			return nil
		})
		return err
	})
	return found(updated, err)
}

// SetEnabled enables or disables a user account.
func (r *Users) SetEnabled(ctx context.Context, id int64, enabled bool) (domain.User, bool, error) {
	return r.Update(ctx, id, domain.UserUpdate{Enabled: &enabled})
}
