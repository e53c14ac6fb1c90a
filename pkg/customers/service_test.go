package customers

import (
	"context"
	"testing"

	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/database/dbtest"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/phone"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db         *database.Client
	svc        *Service
	activities *activity.Service
	actor      tenant.Actor
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	companyID := dbtest.CreateCompany(t, db, "Acme")
	userID := dbtest.CreateUser(t, db, companyID, "Ana Ruiz", "ana@acme.test", "sales-rep")
	activities := activity.NewService(db)
	return fixture{
		db:         db,
		svc:        NewService(db, activities, phone.NewNormalizer("US"), nil),
		activities: activities,
		actor:      tenant.Actor{UserID: userID, CompanyID: companyID, Role: tenant.RoleSalesRep},
	}
}

func activityTypes(t *testing.T, f fixture, subject activity.Subject) []string {
	t.Helper()
	items, err := f.activities.ListForSubject(context.Background(), f.actor.CompanyID, subject, 50)
	require.NoError(t, err)
	var out []string
	for _, a := range items {
		out = append(out, a.Type)
	}
	return out
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.actor, models.CreateCustomerRequest{
		DisplayName: "Globex",
		Phone:       "(202) 456-1111",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeCompany, c.CustomerType)
	assert.Equal(t, "+12024561111", c.Phone)
	assert.True(t, c.IsActive)
	assert.Equal(t, []string{activity.TypeCustomerCreated}, activityTypes(t, f, activity.Customer(c.ID)))

	_, err = f.svc.Create(ctx, f.actor, models.CreateCustomerRequest{})
	assert.Contains(t, domain.FieldErrors(err), "display_name")
}

func TestService_AddContact_SinglePrimary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.actor, models.CreateCustomerRequest{DisplayName: "Globex"})
	require.NoError(t, err)

	first, err := f.svc.AddContact(ctx, f.actor, c.ID, models.CreateContactRequest{
		FirstName: "Hank", LastName: "Scorpio", IsPrimary: true, Mobile: "+44 7911 123456",
	})
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)
	assert.True(t, first.IsActive)
	assert.Equal(t, "+447911123456", first.Mobile)

	second, err := f.svc.AddContact(ctx, f.actor, c.ID, models.CreateContactRequest{
		FirstName: "Homer", LastName: "Simpson", IsPrimary: true,
	})
	require.NoError(t, err)

	d, err := f.svc.Get(ctx, f.actor, c.ID)
	require.NoError(t, err)
	require.Len(t, d.Contacts, 2)
	assert.Equal(t, second.ID, d.Contacts[0].ID)
	assert.True(t, d.Contacts[0].IsPrimary)
	assert.False(t, d.Contacts[1].IsPrimary)

	assert.ElementsMatch(t, []string{activity.TypeContactAdded, activity.TypePrimaryRemoved},
		activityTypes(t, f, activity.Contact(first.ID)))
}

func TestService_MakePrimary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.actor, models.CreateCustomerRequest{DisplayName: "Globex"})
	require.NoError(t, err)
	a, err := f.svc.AddContact(ctx, f.actor, c.ID, models.CreateContactRequest{FirstName: "A", LastName: "One", IsPrimary: true})
	require.NoError(t, err)
	b, err := f.svc.AddContact(ctx, f.actor, c.ID, models.CreateContactRequest{FirstName: "B", LastName: "Two"})
	require.NoError(t, err)

	got, err := f.svc.MakePrimary(ctx, f.actor, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)

	d, err := f.svc.Get(ctx, f.actor, c.ID)
	require.NoError(t, err)
	primaries := 0
	for _, contact := range d.Contacts {
		if contact.IsPrimary {
			primaries++
			assert.Equal(t, b.ID, contact.ID)
		}
	}
	assert.Equal(t, 1, primaries)
	assert.Contains(t, activityTypes(t, f, activity.Contact(a.ID)), activity.TypePrimaryRemoved)
	assert.Contains(t, activityTypes(t, f, activity.Contact(b.ID)), activity.TypePrimarySet)

	t.Run("already primary is a no-op", func(t *testing.T) {
		_, err := f.svc.MakePrimary(ctx, f.actor, b.ID)
		require.NoError(t, err)
		assert.Len(t, activityTypes(t, f, activity.Contact(b.ID)), 2)
	})
}

func TestService_SetActive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.actor, models.CreateCustomerRequest{DisplayName: "Globex"})
	require.NoError(t, err)
	contact, err := f.svc.AddContact(ctx, f.actor, c.ID, models.CreateContactRequest{FirstName: "A", LastName: "One"})
	require.NoError(t, err)

	got, err := f.svc.SetActive(ctx, f.actor, contact.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = f.svc.SetActive(ctx, f.actor, contact.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = f.svc.SetActive(ctx, f.actor, contact.ID, true)
	require.NoError(t, err)

	types := activityTypes(t, f, activity.Contact(contact.ID))
	assert.ElementsMatch(t, []string{
		activity.TypeContactAdded, activity.TypeContactDeactivated, activity.TypeContactActivated,
	}, types)
}

func TestService_OtherCompany(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, f.actor, models.CreateCustomerRequest{DisplayName: "Globex"})
	require.NoError(t, err)
	contact, err := f.svc.AddContact(ctx, f.actor, c.ID, models.CreateContactRequest{FirstName: "A", LastName: "One"})
	require.NoError(t, err)

	intruder := tenant.Actor{UserID: 99, CompanyID: dbtest.CreateCompany(t, f.db, "Initech"), Role: tenant.RoleAdmin}

	_, err = f.svc.Get(ctx, intruder, c.ID)
	assert.True(t, domain.IsForbidden(err))
	_, err = f.svc.AddContact(ctx, intruder, c.ID, models.CreateContactRequest{FirstName: "X", LastName: "Y"})
	assert.True(t, domain.IsForbidden(err))
	_, err = f.svc.MakePrimary(ctx, intruder, contact.ID)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.Get(ctx, f.actor, 4242)
	assert.True(t, domain.IsNotFound(err))
}
