package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
)

type userRepository struct {
	store *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.store.do(func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return repository.ErrDuplicate
		}
		email := strings.ToLower(user.Email)
		for _, existing := range st.users {
			if existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		v := *user
		v.Email = email
		st.users[user.ID] = &v
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.store.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		v := *u
		out = &v
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	email = strings.ToLower(email)
	err := r.store.do(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				v := *u
				out = &v
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	return r.store.do(func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		email := strings.ToLower(user.Email)
		for id, existing := range st.users {
			if id != user.ID && existing.Email == email {
				return repository.ErrDuplicate
			}
		}
		v := *user
		v.Email = email
		v.CreatedAt = current.CreatedAt
		st.users[user.ID] = &v
		return nil
	})
}

func (r *userRepository) List(_ context.Context, role *domain.Role) ([]domain.User, error) {
	out := []domain.User{}
	err := r.store.do(func(st *state) error {
		for _, u := range st.users {
			if role != nil && u.Role != *role {
				continue
			}
			out = append(out, *u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
