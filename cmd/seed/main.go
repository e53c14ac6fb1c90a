// Command seed creates a demo company with users, leads and opportunities,
// then prints a bearer token for every user it created.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jordanlanch/dealpipe/config"
	"github.com/jordanlanch/dealpipe/pkg/activity"
	"github.com/jordanlanch/dealpipe/pkg/auth"
	"github.com/jordanlanch/dealpipe/pkg/customers"
	"github.com/jordanlanch/dealpipe/pkg/database"
	"github.com/jordanlanch/dealpipe/pkg/leads"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/opportunity"
	"github.com/jordanlanch/dealpipe/pkg/phone"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/testdata"
	"github.com/jordanlanch/dealpipe/pkg/users"
	_ "github.com/mattn/go-sqlite3"
)

var roster = []tenant.Role{
	tenant.RoleOwner,
	tenant.RoleManager,
	tenant.RoleSalesRep,
	tenant.RoleSalesRep,
	tenant.RoleReadOnly,
}

func main() {
	seed := flag.Int64("seed", 42, "faker seed, 0 for random data")
	leadCount := flag.Int("leads", 25, "number of leads to create")
	dealCount := flag.Int("opportunities", 40, "number of opportunities to create")
	convert := flag.Int("convert", 3, "number of leads to convert into customers")
	sqlitePath := flag.String("sqlite", "", "seed a SQLite file instead of DATABASE_URL")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := open(cfg, log, *sqlitePath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(ctx, db, cfg, log, *seed, *leadCount, *dealCount, *convert); err != nil {
		log.Error("seed failed", "error", err)
		db.Close()
		os.Exit(1)
	}
}

func open(cfg *config.Config, log logger.Logger, sqlitePath string) (*database.Client, error) {
	if sqlitePath == "" {
		return database.NewClient(cfg.DatabaseURL, log)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000", sqlitePath))
	if err != nil {
		return nil, err
	}
	return database.NewFromDB(db, dialect.SQLite, log), nil
}

func run(ctx context.Context, db *database.Client, cfg *config.Config, log logger.Logger, seed int64, leadCount, dealCount, convert int) error {
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	gen := testdata.New(seed)
	userService := users.NewService(db)
	activities := activity.NewService(db)
	customerService := customers.NewService(db, activities, phone.NewNormalizer(cfg.DefaultPhoneRegion), log)
	leadService := leads.NewService(leads.Deps{
		DB: db, Activities: activities, Users: userService, Customers: customerService, Logger: log,
	})
	opportunityService := opportunity.NewService(opportunity.Deps{
		DB: db, Activities: activities, Users: userService, Leads: leadService, Logger: log,
	})

	company, err := tenant.NewService(db).Create(ctx, gen.CompanyName(), 0)
	if err != nil {
		return err
	}
	log.Info("company created", "company_id", company.ID, "name", company.Name)

	var created []*users.User
	var sellers []int64
	for _, role := range roster {
		u, err := userService.Create(ctx, company.ID, gen.User(role))
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		created = append(created, u)
		if role == tenant.RoleSalesRep || role == tenant.RoleManager {
			sellers = append(sellers, u.ID)
		}
	}
	owner := tenant.Actor{UserID: created[0].ID, CompanyID: company.ID, Role: created[0].Role}

	var leadIDs []int64
	for i := 0; i < leadCount; i++ {
		assignee := sellers[i%len(sellers)]
		l, err := leadService.Create(ctx, owner, gen.Lead(&assignee))
		if err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		leadIDs = append(leadIDs, l.ID)
	}
	for i := 0; i < convert && i < len(leadIDs); i++ {
		if _, err := leadService.Convert(ctx, owner, leadIDs[i]); err != nil {
			return fmt.Errorf("convert lead %d: %w", leadIDs[i], err)
		}
	}

	for _, req := range gen.Opportunities(dealCount, sellers) {
		if _, err := opportunityService.Create(ctx, owner, req); err != nil {
			return fmt.Errorf("create opportunity: %w", err)
		}
	}
	log.Info("demo data created",
		"users", len(created),
		"leads", len(leadIDs),
		"converted", min(convert, len(leadIDs)),
		"opportunities", dealCount,
	)

	for _, u := range created {
		token, err := auth.GenerateJWT(auth.Identity{
			UserID:    u.ID,
			CompanyID: company.ID,
			Email:     u.Email,
			Role:      string(u.Role),
		}, cfg.JWTSecret, cfg.JWTExpirationHours)
		if err != nil {
			return err
		}
		fmt.Printf("%-14s %-40s %s\n", u.Role, u.Email, token)
	}
	return nil
}
