package activity

import (
	"context"
	"testing"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/database/dbtest"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RecordAndListForSubject(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	companyID := dbtest.CreateCompany(t, db, "Acme")
	userID := dbtest.CreateUser(t, db, companyID, "Ana Ruiz", "ana@acme.test", "sales-rep")
	svc := NewService(db)

	t.Run("Success - records with metadata", func(t *testing.T) {
		err := svc.Record(ctx, db.DB, Entry{
			CompanyID:   companyID,
			UserID:      &userID,
			Subject:     Opportunity(7),
			Type:        TypeStageChanged,
			Title:       "Stage Changed: Big Deal",
			Description: "Moved from 'prospecting' to 'proposal'",
			Metadata:    map[string]any{"old_stage": "prospecting", "new_stage": "proposal"},
		})
		require.NoError(t, err)

		items, err := svc.ListForSubject(ctx, companyID, Opportunity(7), 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, TypeStageChanged, items[0].Type)
		assert.Equal(t, SubjectOpportunity, items[0].Subject.Kind)
		assert.Equal(t, int64(7), items[0].Subject.ID)
		assert.Equal(t, userID, *items[0].UserID)
		assert.Equal(t, "proposal", items[0].Metadata["new_stage"])
	})

	t.Run("Success - subjects are isolated by kind", func(t *testing.T) {
		require.NoError(t, svc.Record(ctx, db.DB, Entry{
			CompanyID: companyID, Subject: Lead(7), Type: TypeLeadCreated,
		}))

		leadItems, err := svc.ListForSubject(ctx, companyID, Lead(7), 10)
		require.NoError(t, err)
		require.Len(t, leadItems, 1)
		assert.Equal(t, TypeLeadCreated, leadItems[0].Title)
		assert.Nil(t, leadItems[0].UserID)

		oppItems, err := svc.ListForSubject(ctx, companyID, Opportunity(7), 10)
		require.NoError(t, err)
		assert.Len(t, oppItems, 1)
	})

	t.Run("Success - other company sees nothing", func(t *testing.T) {
		otherID := dbtest.CreateCompany(t, db, "Globex")
		items, err := svc.ListForSubject(ctx, otherID, Opportunity(7), 10)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("Error - invalid subject kind", func(t *testing.T) {
		err := svc.Record(ctx, db.DB, Entry{CompanyID: companyID, Subject: Subject{Kind: "invoice", ID: 1}, Type: TypeCreated})
		assert.Error(t, err)

		_, err = svc.ListForSubject(ctx, companyID, Subject{Kind: "invoice", ID: 1}, 10)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Error - missing type", func(t *testing.T) {
		err := svc.Record(ctx, db.DB, Entry{CompanyID: companyID, Subject: Opportunity(1)})
		assert.Error(t, err)
	})
}

func TestService_ListRecent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	companyID := dbtest.CreateCompany(t, db, "Acme")
	svc := NewService(db)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * 24 * time.Hour)
		svc.now = func() time.Time { return ts }
		require.NoError(t, svc.Record(ctx, db.DB, Entry{CompanyID: companyID, Subject: Opportunity(int64(i + 1)), Type: TypeCreated}))
	}

	items, err := svc.ListRecent(ctx, companyID, base.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].Subject.ID)
	assert.Equal(t, int64(2), items[1].Subject.ID)
}

func TestRecorderFunc(t *testing.T) {
	var got Entry
	r := RecorderFunc(func(_ context.Context, _ database.Querier, e Entry) error {
		got = e
		return nil
	})

	require.NoError(t, r.Record(context.Background(), nil, Entry{Type: TypeWon}))
	assert.Equal(t, TypeWon, got.Type)
}

func TestSubjectKind_Valid(t *testing.T) {
	assert.True(t, SubjectCustomerContact.Valid())
	assert.False(t, SubjectKind("Opportunity").Valid())
	assert.Equal(t, Subject{Kind: SubjectCustomer, ID: 3}, Customer(3))
	assert.Equal(t, Subject{Kind: SubjectCustomerContact, ID: 4}, Contact(4))
}
