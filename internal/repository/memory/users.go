package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.conflicts(user) {
		return repository.ErrConflict
	}
	now := r.s.now()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = userRecord{seq: r.s.nextSeq(), user: *user}
	return nil
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.conflicts(user) {
		return repository.ErrConflict
	}
	user.UpdatedAt = r.s.now()
	user.CreatedAt = rec.user.CreatedAt
	rec.user = *user
	r.s.users[user.ID] = rec
	return nil
}

// conflicts must be called with the lock held.
func (r *userRepository) conflicts(user *domain.User) bool {
	for id, rec := range r.s.users {
		if id == user.ID {
			continue
		}
		if rec.user.Username == user.Username || strings.EqualFold(rec.user.Email, user.Email) {
			return true
		}
	}
	return false
}

func (r *userRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, rec := range r.s.tickets {
		if rec.ticket.CreatorID == id || rec.ticket.IsAssignee(id) {
			return repository.ErrConflict
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := rec.user
	return &user, nil
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.users {
		if match(&rec.user) {
			user := rec.user
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) ListWithFilter(_ context.Context, filter repository.UserFilter) ([]domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]userRecord, 0, len(r.s.users))
	for _, rec := range r.s.users {
		if matchesUser(filter, &rec.user) {
			matched = append(matched, rec)
		}
	}

	page := filter.Sort.Normalize()
	column := repository.SortColumn(repository.UserSortColumns, page.SortBy)
	sort.Slice(matched, func(i, j int) bool {
		c := compareUser(&matched[i].user, &matched[j].user, column)
		if c == 0 {
			c = compareInt(matched[i].seq, matched[j].seq)
		}
		if page.SortDesc {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	result := []domain.User{}
	for i := page.Offset; i < len(matched) && len(result) < page.Limit; i++ {
		result = append(result, matched[i].user)
	}
	return result, total, nil
}

func (r *userRepository) CountByRole(_ context.Context) (map[domain.Role]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[domain.Role]int64{}
	for _, rec := range r.s.users {
		counts[rec.user.Role]++
	}
	return counts, nil
}

func (r *userRepository) CountByActive(_ context.Context) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var active, inactive int64
	for _, rec := range r.s.users {
		if rec.user.Active {
			active++
		} else {
			inactive++
		}
	}
	return active, inactive, nil
}

func matchesUser(filter repository.UserFilter, user *domain.User) bool {
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" {
			hit := false
			for _, field := range []string{user.Username, user.Email, user.FirstName, user.LastName} {
				if strings.Contains(strings.ToLower(field), term) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	if filter.Role != nil && user.Role != *filter.Role {
		return false
	}
	if filter.Active != nil && user.Active != *filter.Active {
		return false
	}
	return true
}

func compareUser(a, b *domain.User, column string) int {
	switch column {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "first_name":
		return strings.Compare(a.FirstName, b.FirstName)
	case "last_name":
		return strings.Compare(a.LastName, b.LastName)
	case "role":
		return strings.Compare(string(a.Role), string(b.Role))
	case "active":
		return compareBool(a.Active, b.Active)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// compareOptionalTime orders unset values first.
// compareOptionalString orders nil after any value, as Postgres does for NULL.
func compareOptionalString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return strings.Compare(*a, *b)
}

func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
