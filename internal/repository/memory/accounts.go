package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type accountRepository struct {
	db conn
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	defer r.db.lock()()

	for _, a := range r.db.st.accounts {
		if strings.EqualFold(a.Username, account.Username) {
			return duplicate(repository.ConstraintAccountUsername)
		}
	}
	stamp(&account.Base)
	r.db.st.accounts[account.ID] = *account
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.st.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, a := range r.db.st.accounts {
		if strings.EqualFold(a.Username, username) {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	defer r.db.lock()()

	if _, ok := r.db.st.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	stamp(&account.Base)
	r.db.st.accounts[account.ID] = *account
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock()()

	if _, ok := r.db.st.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.st.accounts, id)
	for doctorID, d := range r.db.st.doctors {
		if d.AccountID == id {
			r.db.st.deleteDoctor(doctorID)
		}
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*model.Account
	for _, a := range r.db.st.accounts {
		a := a
		if filters != nil {
			if filters.Role != "" && a.Role != filters.Role {
				continue
			}
			if filters.IsActive != nil && a.IsActive != *filters.IsActive {
				continue
			}
			if filters.Search != "" && !containsFold(filters.Search, a.Username, a.FirstName, a.LastName, a.Email) {
				continue
			}
		}
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *accountRepository) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	counts := make(map[model.Role]int)
	for _, a := range r.db.st.accounts {
		counts[a.Role]++
	}
	return counts, nil
}

func (r *accountRepository) ListRecent(ctx context.Context, limit int) ([]*model.Account, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Account, 0, len(r.db.st.accounts))
	for _, a := range r.db.st.accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsFold(needle string, haystack ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
