package users

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/dealpipe/pkg/cache"
	"github.com/jordanlanch/dealpipe/pkg/database/dbtest"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateAndGet(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	companyID := dbtest.CreateCompany(t, db, "Acme")

	u, err := svc.Create(ctx, companyID, CreateUserRequest{Name: "Ada", Email: "Ada@Acme.test", Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.test", u.Email)

	got, err := svc.Get(ctx, companyID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, tenant.RoleManager, got.Role)
	assert.True(t, got.IsActive)
}

func TestService_Create_Validation(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	companyID := dbtest.CreateCompany(t, db, "Acme")

	_, err := svc.Create(context.Background(), companyID, CreateUserRequest{Name: "Bob", Email: "bob@acme.test", Role: "wizard"})
	require.Error(t, err)
	assert.Contains(t, domain.FieldErrors(err), "role")
}

func TestService_Create_DuplicateEmail(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	companyID := dbtest.CreateCompany(t, db, "Acme")

	_, err := svc.Create(ctx, companyID, CreateUserRequest{Name: "Ada", Email: "ada@acme.test", Role: "admin"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, companyID, CreateUserRequest{Name: "Ada 2", Email: "ada@acme.test", Role: "admin"})
	assert.True(t, domain.IsConflict(err))
}

func TestService_Get_OtherCompany(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	acme := dbtest.CreateCompany(t, db, "Acme")
	globex := dbtest.CreateCompany(t, db, "Globex")
	id := dbtest.CreateUser(t, db, globex, "Hank", "hank@globex.test", "admin")

	_, err := svc.Get(context.Background(), acme, id)
	assert.True(t, domain.IsForbidden(err))

	_, err = svc.Get(context.Background(), acme, 9999)
	assert.True(t, domain.IsNotFound(err))
}

func TestService_Lookup_ScopesToCompany(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	acme := dbtest.CreateCompany(t, db, "Acme")
	globex := dbtest.CreateCompany(t, db, "Globex")
	a := dbtest.CreateUser(t, db, acme, "Ada", "ada@acme.test", "admin")
	b := dbtest.CreateUser(t, db, acme, "Bob", "bob@acme.test", "sales-rep")
	h := dbtest.CreateUser(t, db, globex, "Hank", "hank@globex.test", "admin")

	found, err := svc.Lookup(context.Background(), acme, a, b, h, a, 0)
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "Bob", found[b].Name)
	assert.NotContains(t, found, h)

	list, err := svc.ListByCompany(context.Background(), acme)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ada", list[0].Name)
}

func TestCachedDirectory_ReadThrough(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	acme := dbtest.CreateCompany(t, db, "Acme")
	a := dbtest.CreateUser(t, db, acme, "Ada", "ada@acme.test", "admin")
	b := dbtest.CreateUser(t, db, acme, "Bob", "bob@acme.test", "sales-rep")

	mr := miniredis.RunT(t)
	dir := NewCachedDirectory(svc, cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil), 10*time.Minute, nil)

	got, err := dir.Get(ctx, acme, a)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.True(t, mr.Exists(cacheKey(acme, a)))

	found, err := dir.Lookup(ctx, acme, a, b)
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, mr.Exists(cacheKey(acme, b)))

	// Served from cache once the row is gone.
	_, err = db.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", b)
	require.NoError(t, err)
	found, err = dir.Lookup(ctx, acme, b)
	require.NoError(t, err)
	assert.Equal(t, "Bob", found[b].Name)

	require.NoError(t, dir.Invalidate(ctx, acme))
	found, err = dir.Lookup(ctx, acme, b)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCachedDirectory_FallsBackWhenRedisDown(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	acme := dbtest.CreateCompany(t, db, "Acme")
	a := dbtest.CreateUser(t, db, acme, "Ada", "ada@acme.test", "admin")

	mr := miniredis.RunT(t)
	dir := NewCachedDirectory(svc, cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), nil), time.Minute, nil)
	mr.Close()

	found, err := dir.Lookup(context.Background(), acme, a)
	require.NoError(t, err)
	assert.Equal(t, "Ada", found[a].Name)
}

type countingStats struct{ hits, misses int }

func (s *countingStats) RecordCacheHit(string)  { s.hits++ }
func (s *countingStats) RecordCacheMiss(string) { s.misses++ }

func TestCachedDirectory_Stats(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	acme := dbtest.CreateCompany(t, db, "Acme")
	a := dbtest.CreateUser(t, db, acme, "Ada", "ada@acme.test", "admin")
	b := dbtest.CreateUser(t, db, acme, "Bob", "bob@acme.test", "sales-rep")

	mr := miniredis.RunT(t)
	stats := &countingStats{}
	dir := NewCachedDirectory(NewService(db), cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil), time.Minute, nil).
		WithStats(stats)

	_, err := dir.Get(ctx, acme, a)
	require.NoError(t, err)
	_, err = dir.Lookup(ctx, acme, a, b)
	require.NoError(t, err)
	_, err = dir.Get(ctx, acme, b)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.hits)
	assert.Equal(t, 2, stats.misses)
}
