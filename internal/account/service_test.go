package account

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A414347330/vip-cinema/internal/model"
	"github.com/A414347330/vip-cinema/internal/repository"
)

// ----- in-memory fakes -----

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uint64]model.User
	now   func() time.Time
}

func newFakeUserStore(users ...model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uint64]model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) sorted() []model.User {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeUserStore) GetByCredentials(_ context.Context, account, hash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.sorted() { // first row wins, like LIMIT 1
		if (u.Username == account || u.Email == account) && u.PasswordHash == hash {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.sorted() {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeUserStore) Search(_ context.Context, term string, page, pageSize int) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []model.User{}
	for _, u := range s.sorted() {
		if term == "" || strings.Contains(u.Username, term) || strings.Contains(u.Email, term) {
			matched = append(matched, u)
		}
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *fakeUserStore) UpdateRole(_ context.Context, id uint64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	u.Role = role
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) SetVIP(_ context.Context, id uint64, active bool, expiry *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	u.IsActive = active
	u.VIPExpireTime = expiry
	s.users[id] = u
	return nil
}

// ExtendVIP reads and rewrites the expiry under one lock, mirroring the
// single-statement extension the real store issues.
func (s *fakeUserStore) ExtendVIP(_ context.Context, id uint64, days int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return time.Time{}, repository.ErrNotFound
	}
	now := time.Now().UTC()
	if s.now != nil {
		now = s.now()
	}
	base := now
	if u.VIPExpireTime != nil && u.VIPExpireTime.After(now) {
		base = *u.VIPExpireTime
	}
	e := base.AddDate(0, 0, days)
	u.IsActive = true
	u.VIPExpireTime = &e
	s.users[id] = u
	return e, nil
}

func (s *fakeUserStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type fakeCodeStore struct {
	mu    sync.Mutex
	codes map[string]*model.ActivationCode
}

func newFakeCodeStore(codes ...model.ActivationCode) *fakeCodeStore {
	s := &fakeCodeStore{codes: make(map[string]*model.ActivationCode)}
	for i := range codes {
		c := codes[i]
		s.codes[c.Code] = &c
	}
	return s
}

// Consume holds the lock across check and mark, mirroring the conditional
// UPDATE the real store issues.
func (s *fakeCodeStore) Consume(_ context.Context, code, usedBy string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok || c.IsUsed {
		return 0, repository.ErrCodeUnavailable
	}
	c.IsUsed = true
	c.UsedBy = &usedBy
	now := time.Now().UTC()
	c.UsedAt = &now
	return c.DurationDays, nil
}

func (s *fakeCodeStore) CreateBatch(_ context.Context, codes []model.ActivationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range codes {
		c := codes[i]
		s.codes[c.Code] = &c
	}
	return nil
}

func (s *fakeCodeStore) List(_ context.Context, filter, search string, page, pageSize int) ([]model.CodeSummary, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.CodeSummary{}
	for _, c := range s.codes {
		if filter == "used" && !c.IsUsed {
			continue
		}
		if filter == "unused" && c.IsUsed {
			continue
		}
		out = append(out, model.CodeSummary{
			ID: c.ID, Code: c.Code, DurationDays: c.DurationDays,
			IsUsed: c.IsUsed, UsedBy: c.UsedBy, UsedAt: c.UsedAt,
		})
	}
	return out, int64(len(out)), nil
}

func (s *fakeCodeStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.codes {
		if c.ID == id {
			delete(s.codes, k)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeEmailCodeStore struct{ rows []model.EmailCode }

func (s *fakeEmailCodeStore) List(_ context.Context, search string, page, pageSize int) ([]model.EmailCode, int64, error) {
	return s.rows, int64(len(s.rows)), nil
}

type fakeSessionStore struct {
	mu     sync.Mutex
	purged []uint64
}

func (s *fakeSessionStore) PurgeForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, userID)
	return nil
}

// ----- helpers -----

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(users *fakeUserStore, codes *fakeCodeStore) (*Service, *fakeSessionStore) {
	sessions := &fakeSessionStore{}
	svc := NewService(users, codes, &fakeEmailCodeStore{}, sessions, "root", 30)
	svc.now = func() time.Time { return testNow }
	users.now = svc.now
	return svc, sessions
}

func ptrTime(t time.Time) *time.Time { return &t }

// ----- tests -----

func TestResolve(t *testing.T) {
	ctx := context.Background()
	future := testNow.AddDate(0, 0, 10)
	past := testNow.AddDate(0, 0, -10)

	users := newFakeUserStore(
		model.User{ID: 1, Username: "alice", Email: "alice@x.com", PasswordHash: "h1", Role: "user", IsActive: true, VIPExpireTime: nil},
		model.User{ID: 2, Username: "bob", Email: "bob@x.com", PasswordHash: "h2", Role: "user", IsActive: true, VIPExpireTime: ptrTime(past)},
		model.User{ID: 3, Username: "carol", Email: "carol@x.com", PasswordHash: "h3", Role: "user", IsActive: true, VIPExpireTime: ptrTime(future)},
		model.User{ID: 4, Username: "root", Email: "root@x.com", PasswordHash: "h4", Role: "user", IsActive: false},
		model.User{ID: 5, Username: "dave", Email: "dave@x.com", PasswordHash: "h5", Role: "", IsActive: false},
	)
	svc, _ := newTestService(users, newFakeCodeStore())

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "nobody", "h1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password is the same error", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "", "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("active with nil expiry stays active", func(t *testing.T) {
		u, err := svc.Resolve(ctx, "alice", "h1")
		require.NoError(t, err)
		assert.True(t, u.IsActive)
		assert.Equal(t, "user", u.Role)
	})

	t.Run("expired but flagged active resolves inactive", func(t *testing.T) {
		u, err := svc.Resolve(ctx, "bob", "h2")
		require.NoError(t, err)
		assert.False(t, u.IsActive)
	})

	t.Run("future expiry resolves active", func(t *testing.T) {
		u, err := svc.Resolve(ctx, "carol", "h3")
		require.NoError(t, err)
		assert.True(t, u.IsActive)
	})

	t.Run("login by email", func(t *testing.T) {
		u, err := svc.Resolve(ctx, "carol@x.com", "h3")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), u.ID)
	})

	t.Run("privileged account always resolves admin", func(t *testing.T) {
		u, err := svc.Resolve(ctx, "root", "h4")
		require.NoError(t, err)
		assert.Equal(t, "admin", u.Role)
	})

	t.Run("empty stored role defaults to user", func(t *testing.T) {
		u, err := svc.Resolve(ctx, "dave", "h5")
		require.NoError(t, err)
		assert.Equal(t, "user", u.Role)
	})
}

func TestResolvePicksFirstDuplicate(t *testing.T) {
	users := newFakeUserStore(
		model.User{ID: 7, Username: "dup", Email: "a@x.com", PasswordHash: "h", Role: "user"},
		model.User{ID: 9, Username: "dup", Email: "b@x.com", PasswordHash: "h", Role: "admin"},
	)
	svc, _ := newTestService(users, newFakeCodeStore())

	u, err := svc.Resolve(context.Background(), "dup", "h")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh user gets now plus duration", func(t *testing.T) {
		users := newFakeUserStore(model.User{ID: 1, Username: "alice", PasswordHash: "h"})
		codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "VIP30-AB12CD", DurationDays: 30})
		svc, _ := newTestService(users, codes)

		r, err := svc.Redeem(ctx, "alice", "VIP30-AB12CD")
		require.NoError(t, err)
		assert.Equal(t, 30, r.DaysAdded)
		assert.Equal(t, testNow.AddDate(0, 0, 30), r.NewExpiry)

		u, _ := users.GetByID(ctx, 1)
		assert.True(t, u.IsActive)
		require.NotNil(t, u.VIPExpireTime)
		assert.Equal(t, testNow.AddDate(0, 0, 30), *u.VIPExpireTime)

		c := codes.codes["VIP30-AB12CD"]
		assert.True(t, c.IsUsed)
		require.NotNil(t, c.UsedBy)
		assert.Equal(t, "alice", *c.UsedBy)
	})

	t.Run("running period stacks instead of resetting", func(t *testing.T) {
		users := newFakeUserStore(model.User{
			ID: 1, Username: "alice", IsActive: true,
			VIPExpireTime: ptrTime(testNow.AddDate(0, 0, 10)),
		})
		codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "VIP30-STACKED", DurationDays: 30})
		svc, _ := newTestService(users, codes)

		r, err := svc.Redeem(ctx, "alice", "VIP30-STACKED")
		require.NoError(t, err)
		assert.Equal(t, testNow.AddDate(0, 0, 40), r.NewExpiry)
	})

	t.Run("lapsed period counts from now", func(t *testing.T) {
		users := newFakeUserStore(model.User{
			ID: 1, Username: "alice", IsActive: true,
			VIPExpireTime: ptrTime(testNow.AddDate(0, 0, -5)),
		})
		codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "VIP30-LAPSED", DurationDays: 30})
		svc, _ := newTestService(users, codes)

		r, err := svc.Redeem(ctx, "alice", "VIP30-LAPSED")
		require.NoError(t, err)
		assert.Equal(t, testNow.AddDate(0, 0, 30), r.NewExpiry)
	})

	t.Run("legacy code without duration uses the default", func(t *testing.T) {
		users := newFakeUserStore(model.User{ID: 1, Username: "alice"})
		codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "LEGACY", DurationDays: 0})
		svc, _ := newTestService(users, codes)

		r, err := svc.Redeem(ctx, "alice", "LEGACY")
		require.NoError(t, err)
		assert.Equal(t, 30, r.DaysAdded)
	})

	t.Run("unknown user leaves the code unused", func(t *testing.T) {
		users := newFakeUserStore()
		codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "VIP30-ORPHAN", DurationDays: 30})
		svc, _ := newTestService(users, codes)

		_, err := svc.Redeem(ctx, "ghost", "VIP30-ORPHAN")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, codes.codes["VIP30-ORPHAN"].IsUsed)
	})

	t.Run("unknown code", func(t *testing.T) {
		users := newFakeUserStore(model.User{ID: 1, Username: "alice"})
		svc, _ := newTestService(users, newFakeCodeStore())

		_, err := svc.Redeem(ctx, "alice", "NOPE")
		assert.ErrorIs(t, err, ErrCodeInvalidOrUsed)
	})

	t.Run("second redemption fails", func(t *testing.T) {
		users := newFakeUserStore(model.User{ID: 1, Username: "alice"})
		codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "ONCE", DurationDays: 30})
		svc, _ := newTestService(users, codes)

		_, err := svc.Redeem(ctx, "alice", "ONCE")
		require.NoError(t, err)
		_, err = svc.Redeem(ctx, "alice", "ONCE")
		assert.ErrorIs(t, err, ErrCodeInvalidOrUsed)
	})

	t.Run("empty input", func(t *testing.T) {
		svc, _ := newTestService(newFakeUserStore(), newFakeCodeStore())
		_, err := svc.Redeem(ctx, "alice", "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestRedeemConcurrentExactlyOnce(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore(model.User{ID: 1, Username: "alice"})
	codes := newFakeCodeStore(model.ActivationCode{ID: 1, Code: "RACE", DurationDays: 30})
	svc, _ := newTestService(users, codes)

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Redeem(ctx, "alice", "RACE")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrCodeInvalidOrUsed)
		}
	}
	assert.Equal(t, 1, ok, "exactly one concurrent redemption must succeed")
}

func TestRedeemConcurrentDifferentCodesStack(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore(model.User{ID: 1, Username: "alice"})
	codes := newFakeCodeStore(
		model.ActivationCode{ID: 1, Code: "FIRST", DurationDays: 30},
		model.ActivationCode{ID: 2, Code: "SECOND", DurationDays: 30},
	)
	svc, _ := newTestService(users, codes)

	var wg sync.WaitGroup
	for _, code := range []string{"FIRST", "SECOND"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, "alice", code)
			assert.NoError(t, err)
		}(code)
	}
	wg.Wait()

	u, err := users.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u.VIPExpireTime)
	assert.Equal(t, testNow.AddDate(0, 0, 60), *u.VIPExpireTime,
		"both extensions must land; neither write may clobber the other")
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore(
		model.User{ID: 1, Username: "alice", Role: "user"},
		model.User{ID: 2, Username: "boss", Role: "admin"},
	)
	svc, _ := newTestService(users, newFakeCodeStore())

	assert.False(t, svc.IsAdmin(ctx, "ghost"))
	assert.False(t, svc.IsAdmin(ctx, "alice"))
	assert.False(t, svc.IsAdmin(ctx, ""))
	assert.True(t, svc.IsAdmin(ctx, "boss"))
	assert.True(t, svc.IsAdmin(ctx, "2"), "numeric id of a stored admin")
	assert.True(t, svc.IsAdmin(ctx, "root"), "privileged identifier needs no row")
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	past := testNow.AddDate(0, 0, -1)
	users := newFakeUserStore(
		model.User{ID: 1, Username: "boss", Role: "admin"},
		model.User{ID: 2, Username: "expired", Role: "user", IsActive: true, VIPExpireTime: ptrTime(past)},
	)
	svc, _ := newTestService(users, newFakeCodeStore())

	t.Run("forbidden for non-admin", func(t *testing.T) {
		_, err := svc.ListUsers(ctx, "expired", "", 1, 20)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("effective activity in summaries", func(t *testing.T) {
		page, err := svc.ListUsers(ctx, "boss", "", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, int64(2), page.Total)
		for _, u := range page.Items {
			if u.Username == "expired" {
				assert.False(t, u.IsActive, "expired row must list as inactive")
			}
		}
	})
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	setup := func() (*Service, *fakeUserStore) {
		users := newFakeUserStore(
			model.User{ID: 1, Username: "boss", Role: "admin"},
			model.User{ID: 2, Username: "alice", Role: "user"},
		)
		svc, _ := newTestService(users, newFakeCodeStore())
		return svc, users
	}

	t.Run("role change", func(t *testing.T) {
		svc, users := setup()
		role := "admin"
		require.NoError(t, svc.UpdateUser(ctx, "boss", 2, UserUpdate{Role: &role}))
		u, _ := users.GetByID(ctx, 2)
		assert.Equal(t, "admin", u.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, _ := setup()
		role := "superuser"
		assert.ErrorIs(t, svc.UpdateUser(ctx, "boss", 2, UserUpdate{Role: &role}), ErrValidation)
	})

	t.Run("add days activates and extends", func(t *testing.T) {
		svc, users := setup()
		days := 15
		require.NoError(t, svc.UpdateUser(ctx, "boss", 2, UserUpdate{AddDays: &days}))
		u, _ := users.GetByID(ctx, 2)
		assert.True(t, u.IsActive)
		require.NotNil(t, u.VIPExpireTime)
		assert.Equal(t, testNow.AddDate(0, 0, 15), *u.VIPExpireTime)
	})

	t.Run("negative days rejected", func(t *testing.T) {
		svc, _ := setup()
		days := -3
		assert.ErrorIs(t, svc.UpdateUser(ctx, "boss", 2, UserUpdate{AddDays: &days}), ErrValidation)
	})

	t.Run("explicit deactivation", func(t *testing.T) {
		svc, users := setup()
		off := false
		require.NoError(t, svc.UpdateUser(ctx, "boss", 2, UserUpdate{VIPActive: &off}))
		u, _ := users.GetByID(ctx, 2)
		assert.False(t, u.IsActive)
	})

	t.Run("unknown target", func(t *testing.T) {
		svc, _ := setup()
		assert.ErrorIs(t, svc.UpdateUser(ctx, "boss", 99, UserUpdate{}), ErrNotFound)
	})

	t.Run("forbidden caller", func(t *testing.T) {
		svc, _ := setup()
		assert.ErrorIs(t, svc.UpdateUser(ctx, "alice", 2, UserUpdate{}), ErrForbidden)
	})
}

func TestDeleteUserPurgesSessions(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore(
		model.User{ID: 1, Username: "boss", Role: "admin"},
		model.User{ID: 2, Username: "alice", Role: "user"},
	)
	svc, sessions := newTestService(users, newFakeCodeStore())

	require.NoError(t, svc.DeleteUser(ctx, "boss", 2))
	assert.Equal(t, []uint64{2}, sessions.purged)
	assert.ErrorIs(t, svc.DeleteUser(ctx, "boss", 2), ErrNotFound)
}

func TestGenerateCodes(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserStore(model.User{ID: 1, Username: "boss", Role: "admin"})
	codes := newFakeCodeStore()
	svc, _ := newTestService(users, codes)

	t.Run("forbidden for non-admin", func(t *testing.T) {
		_, err := svc.GenerateCodes(ctx, "nobody", 5, 30)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("count bounds", func(t *testing.T) {
		_, err := svc.GenerateCodes(ctx, "boss", 0, 30)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.GenerateCodes(ctx, "boss", 501, 30)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("batch lands in the store with the duration prefix", func(t *testing.T) {
		tokens, err := svc.GenerateCodes(ctx, "boss", 5, 90)
		require.NoError(t, err)
		require.Len(t, tokens, 5)
		for _, tok := range tokens {
			assert.True(t, strings.HasPrefix(tok, "VIP90-"), tok)
			c, ok := codes.codes[tok]
			require.True(t, ok)
			assert.Equal(t, 90, c.DurationDays)
			assert.False(t, c.IsUsed)
		}
	})

	t.Run("zero duration falls back to default", func(t *testing.T) {
		tokens, err := svc.GenerateCodes(ctx, "boss", 1, 0)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tokens[0], "VIP30-"), tokens[0])
	})
}

func TestListCodesFilter(t *testing.T) {
	ctx := context.Background()
	used := "alice"
	users := newFakeUserStore(model.User{ID: 1, Username: "boss", Role: "admin"})
	codes := newFakeCodeStore(
		model.ActivationCode{ID: 1, Code: "A", DurationDays: 30},
		model.ActivationCode{ID: 2, Code: "B", DurationDays: 30, IsUsed: true, UsedBy: &used},
	)
	svc, _ := newTestService(users, codes)

	page, err := svc.ListCodes(ctx, "boss", "unused", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A", page.Items[0].Code)

	page, err = svc.ListCodes(ctx, "boss", "used", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B", page.Items[0].Code)

	_, err = svc.ListCodes(ctx, "alice", "all", "", 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)
}
