package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkly-api/internal/entities"
)

// MemoryURLRepository keeps links in process memory. It backs the service
// when no DATABASE_URL is configured and is used by tests.
type MemoryURLRepository struct {
	mu     sync.RWMutex
	links  []*entities.ShortLink
	byCode map[string]*entities.ShortLink
	byLong map[string]*entities.ShortLink
	now    func() time.Time
}

// NewMemoryURLRepository creates an empty in-memory URL repository
func NewMemoryURLRepository() *MemoryURLRepository {
	return &MemoryURLRepository{
		byCode: make(map[string]*entities.ShortLink),
		byLong: make(map[string]*entities.ShortLink),
		now:    time.Now,
	}
}

func copyLink(link *entities.ShortLink) *entities.ShortLink {
	c := *link
	if link.Owner != nil {
		owner := *link.Owner
		c.Owner = &owner
	}
	return &c
}

func (r *MemoryURLRepository) FindByLongURL(ctx context.Context, longURL string) (*entities.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byLong[longURL]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLink(link), nil
}

func (r *MemoryURLRepository) FindByCode(ctx context.Context, code string) (*entities.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLink(link), nil
}

func (r *MemoryURLRepository) Create(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byLong[link.LongURL]; ok {
		return copyLink(existing), false, nil
	}
	if _, ok := r.byCode[link.Code]; ok {
		return nil, false, ErrCodeConflict
	}

	stored := copyLink(link)
	stored.ID = uuid.NewString()
	stored.Clicks = 0
	stored.CreatedAt = r.now().UTC()

	r.links = append(r.links, stored)
	r.byCode[stored.Code] = stored
	r.byLong[stored.LongURL] = stored

	return copyLink(stored), true, nil
}

func (r *MemoryURLRepository) IncrementClicks(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byCode[code]
	if !ok {
		return "", ErrNotFound
	}
	link.Clicks++
	return link.LongURL, nil
}

func (r *MemoryURLRepository) ListByOwner(ctx context.Context, userID string) ([]*entities.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]*entities.ShortLink, 0)
	for _, link := range r.links {
		if link.Owner != nil && *link.Owner == userID {
			links = append(links, copyLink(link))
		}
	}
	return links, nil
}

// Len reports the number of stored links.
func (r *MemoryURLRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*entities.User
	now     func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byEmail: make(map[string]*entities.User),
		now:     time.Now,
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, name, email, passwordHash string) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}

	user := &entities.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	r.byEmail[email] = user

	c := *user
	return &c, nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	c := *user
	return &c, nil
}
