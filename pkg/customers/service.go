package customers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/phone"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/validation"
)

// Service manages customers and their contacts.
type Service struct {
	db         *database.Client
	store      *store
	activities activity.Recorder
	phones     *phone.Normalizer
	log        logger.Logger
	now        func() time.Time
}

// NewService creates a new customer service
func NewService(db *database.Client, activities activity.Recorder, phones *phone.Normalizer, log logger.Logger) *Service {
	if phones == nil {
		phones = phone.NewNormalizer(phone.DefaultRegion)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		db:         db,
		store:      &store{db: db},
		activities: activities,
		phones:     phones,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a customer created directly, not through lead conversion.
func (s *Service) Create(ctx context.Context, actor tenant.Actor, req models.CreateCustomerRequest) (*Customer, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var c *Customer
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, err = s.CreateInTx(ctx, tx, actor, NewCustomer{
			DisplayName:  req.DisplayName,
			CustomerType: req.CustomerType,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			Website:      req.Website,
			Industry:     req.Industry,
			Description:  req.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateInTx inserts a customer through q and records customer_created.
// Lead conversion calls it inside its own transaction.
func (s *Service) CreateInTx(ctx context.Context, q database.Querier, actor tenant.Actor, in NewCustomer) (*Customer, error) {
	now := s.now()
	typ := in.CustomerType
	if typ == "" {
		typ = TypeCompany
	}
	c := Customer{
		CompanyID:    actor.CompanyID,
		CreatedBy:    actor.UserRef(),
		DisplayName:  in.DisplayName,
		CustomerType: typ,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        strings.TrimSpace(in.Email),
		Phone:        s.phones.Normalize(in.Phone),
		Website:      in.Website,
		Industry:     in.Industry,
		Description:  in.Description,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.store.insertCustomer(ctx, q, &c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	err = s.activities.Record(ctx, q, activity.Entry{
		CompanyID:   c.CompanyID,
		UserID:      actor.UserRef(),
		Subject:     activity.Customer(c.ID),
		Type:        activity.TypeCustomerCreated,
		Title:       "Customer Created: " + c.DisplayName,
		Description: fmt.Sprintf("New %s customer %s was added", c.CustomerType, c.DisplayName),
		Metadata:    map[string]any{"display_name": c.DisplayName, "customer_type": c.CustomerType},
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns a customer of the actor's company with its contacts.
func (s *Service) Get(ctx context.Context, actor tenant.Actor, id int64) (*Details, error) {
	c, err := s.loadCustomer(ctx, s.db.DB, actor, id)
	if err != nil {
		return nil, err
	}
	contacts, err := s.store.contactsOf(ctx, s.db.DB, c.ID)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []Contact{}
	}
	return &Details{Customer: c, Contacts: contacts}, nil
}

func (s *Service) loadCustomer(ctx context.Context, q database.Querier, actor tenant.Actor, id int64) (*Customer, error) {
	c, err := s.store.getCustomer(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if err := actor.Owns("customer", c.CompanyID); err != nil {
		return nil, err
	}
	return c, nil
}

// loadContact returns a contact together with its customer, checking tenancy.
func (s *Service) loadContact(ctx context.Context, actor tenant.Actor, id int64) (*Contact, *Customer, error) {
	contact, err := s.store.getContact(ctx, s.db.DB, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.store.getCustomer(ctx, s.db.DB, contact.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if err := actor.Owns("contact", c.CompanyID); err != nil {
		return nil, nil, err
	}
	return contact, c, nil
}

// AddContact adds a contact to a customer. A primary contact demotes the
// customer's current primary.
func (s *Service) AddContact(ctx context.Context, actor tenant.Actor, customerID int64, req models.CreateContactRequest) (*Contact, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	c, err := s.loadCustomer(ctx, s.db.DB, actor, customerID)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var contact *Contact
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		contact, err = s.AddContactInTx(ctx, tx, actor, c, NewContact{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Email:      req.Email,
			Phone:      req.Phone,
			Mobile:     req.Mobile,
			JobTitle:   req.JobTitle,
			Department: req.Department,
			IsPrimary:  req.IsPrimary,
			IsActive:   active,
			Notes:      req.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// AddContactInTx inserts a contact of c through q and records contact_added.
func (s *Service) AddContactInTx(ctx context.Context, q database.Querier, actor tenant.Actor, c *Customer, in NewContact) (*Contact, error) {
	now := s.now()
	contact := Contact{
		CustomerID: c.ID,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      strings.TrimSpace(in.Email),
		Phone:      s.phones.Normalize(in.Phone),
		Mobile:     s.phones.Normalize(in.Mobile),
		JobTitle:   in.JobTitle,
		Department: in.Department,
		IsPrimary:  in.IsPrimary,
		IsActive:   in.IsActive,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if contact.IsPrimary {
		if err := s.demoteOthers(ctx, q, actor, c, 0, now); err != nil {
			return nil, err
		}
	}

	id, err := s.store.insertContact(ctx, q, &contact)
	if err != nil {
		return nil, err
	}
	contact.ID = id

	err = s.activities.Record(ctx, q, activity.Entry{
		CompanyID:   c.CompanyID,
		UserID:      actor.UserRef(),
		Subject:     activity.Contact(contact.ID),
		Type:        activity.TypeContactAdded,
		Title:       "Contact Created: " + contact.FullName(),
		Description: fmt.Sprintf("New contact %s was added for %s", contact.FullName(), c.DisplayName),
		Metadata: map[string]any{
			"contact_name":  contact.FullName(),
			"customer_name": c.DisplayName,
			"email":         contact.Email,
			"phone":         contact.Phone,
		},
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// demoteOthers clears the primary flag of every contact of c except keepID,
// recording primary_removed for each.
func (s *Service) demoteOthers(ctx context.Context, q database.Querier, actor tenant.Actor, c *Customer, keepID int64, now time.Time) error {
	current, err := s.store.primariesOf(ctx, q, c.ID, keepID)
	if err != nil {
		return err
	}
	for _, other := range current {
		if err := s.store.setContactFlag(ctx, q, other.ID, "is_primary", false, now); err != nil {
			return err
		}
		if err := s.recordContact(ctx, q, actor, c, &other, activity.TypePrimaryRemoved,
			"Primary Contact Removed", "%s was removed as the primary contact for %s", nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordContact(ctx context.Context, q database.Querier, actor tenant.Actor, c *Customer, contact *Contact, typ, title, format string, extra map[string]any) error {
	meta := map[string]any{
		"contact_name":  contact.FullName(),
		"customer_name": c.DisplayName,
	}
	for k, v := range extra {
		meta[k] = v
	}
	return s.activities.Record(ctx, q, activity.Entry{
		CompanyID:   c.CompanyID,
		UserID:      actor.UserRef(),
		Subject:     activity.Contact(contact.ID),
		Type:        typ,
		Title:       title + ": " + contact.FullName(),
		Description: fmt.Sprintf(format, contact.FullName(), c.DisplayName),
		Metadata:    meta,
	})
}

// MakePrimary promotes a contact to primary and demotes its siblings.
func (s *Service) MakePrimary(ctx context.Context, actor tenant.Actor, contactID int64) (*Contact, error) {
	contact, c, err := s.loadContact(ctx, actor, contactID)
	if err != nil {
		return nil, err
	}
	if contact.IsPrimary {
		return contact, nil
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.demoteOthers(ctx, tx, actor, c, contact.ID, now); err != nil {
			return err
		}
		if err := s.store.setContactFlag(ctx, tx, contact.ID, "is_primary", true, now); err != nil {
			return err
		}
		return s.recordContact(ctx, tx, actor, c, contact, activity.TypePrimarySet,
			"Primary Contact Set", "%s was set as the primary contact for %s", nil)
	})
	if err != nil {
		return nil, err
	}

	contact.IsPrimary = true
	contact.UpdatedAt = now
	return contact, nil
}

// SetActive activates or deactivates a contact. Setting the current state is a no-op.
func (s *Service) SetActive(ctx context.Context, actor tenant.Actor, contactID int64, active bool) (*Contact, error) {
	contact, c, err := s.loadContact(ctx, actor, contactID)
	if err != nil {
		return nil, err
	}
	if contact.IsActive == active {
		return contact, nil
	}

	typ, action, status := activity.TypeContactDeactivated, "deactivated", "inactive"
	if active {
		typ, action, status = activity.TypeContactActivated, "activated", "active"
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.setContactFlag(ctx, tx, contact.ID, "is_active", active, now); err != nil {
			return err
		}
		return s.recordContact(ctx, tx, actor, c, contact, typ,
			"Contact "+action, "%s was "+action+" for %s", map[string]any{"status": status})
	})
	if err != nil {
		return nil, err
	}

	contact.IsActive = active
	contact.UpdatedAt = now
	return contact, nil
}
