package database

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// schema is written once with type placeholders that are resolved per dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id {{ID}},
		name VARCHAR(255) NOT NULL,
		is_active {{BOOL}} NOT NULL DEFAULT TRUE,
		subscription_status VARCHAR(32) NOT NULL DEFAULT 'trial',
		trial_ends_at {{TS}} NULL,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id {{ID}},
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL DEFAULT 'sales-rep',
		is_active {{BOOL}} NOT NULL DEFAULT TRUE,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
	`CREATE INDEX IF NOT EXISTS users_company_idx ON users (company_id)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id {{ID}},
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		created_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		display_name VARCHAR(255) NOT NULL,
		customer_type VARCHAR(32) NOT NULL,
		first_name VARCHAR(255) NULL,
		last_name VARCHAR(255) NULL,
		email VARCHAR(255) NULL,
		phone VARCHAR(64) NULL,
		website VARCHAR(255) NULL,
		industry VARCHAR(255) NULL,
		description TEXT NULL,
		is_active {{BOOL}} NOT NULL DEFAULT TRUE,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS customers_company_idx ON customers (company_id)`,
	`CREATE TABLE IF NOT EXISTS customer_contacts (
		id {{ID}},
		customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		first_name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NULL,
		phone VARCHAR(64) NULL,
		mobile VARCHAR(64) NULL,
		job_title VARCHAR(255) NULL,
		department VARCHAR(255) NULL,
		is_primary {{BOOL}} NOT NULL DEFAULT FALSE,
		is_active {{BOOL}} NOT NULL DEFAULT TRUE,
		notes TEXT NULL,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS customer_contacts_customer_idx ON customer_contacts (customer_id, is_primary)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id {{ID}},
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		customer_id BIGINT NULL REFERENCES customers(id) ON DELETE SET NULL,
		first_name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NULL,
		phone VARCHAR(64) NULL,
		mobile VARCHAR(64) NULL,
		company_name VARCHAR(255) NULL,
		job_title VARCHAR(255) NULL,
		website VARCHAR(255) NULL,
		description TEXT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'new',
		source VARCHAR(64) NULL,
		industry VARCHAR(255) NULL,
		employees INTEGER NULL,
		estimated_value NUMERIC(12,2) NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		priority INTEGER NOT NULL DEFAULT 1,
		score INTEGER NOT NULL DEFAULT 0,
		rating VARCHAR(16) NULL,
		follow_up_date DATE NULL,
		notes TEXT NULL,
		converted_at {{TS}} NULL,
		converted_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		lost_reason VARCHAR(255) NULL,
		tags {{JSON}} NULL,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS leads_company_status_idx ON leads (company_id, status)`,
	`CREATE INDEX IF NOT EXISTS leads_company_created_idx ON leads (company_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS opportunities (
		id {{ID}},
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		lead_id BIGINT NULL REFERENCES leads(id) ON DELETE SET NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NULL,
		account_name VARCHAR(255) NULL,
		pipeline VARCHAR(32) NOT NULL DEFAULT 'sales',
		stage VARCHAR(64) NOT NULL,
		stage_order INTEGER NOT NULL DEFAULT 1,
		amount NUMERIC(15,2) NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		probability NUMERIC(5,2) NOT NULL DEFAULT 0,
		weighted_amount NUMERIC(15,2) NULL,
		expected_close_days INTEGER NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'active',
		priority VARCHAR(16) NOT NULL DEFAULT 'medium',
		type VARCHAR(32) NULL,
		source VARCHAR(32) NULL,
		contact_name VARCHAR(255) NULL,
		contact_email VARCHAR(255) NULL,
		contact_phone VARCHAR(64) NULL,
		decision_maker VARCHAR(255) NULL,
		decision_makers {{JSON}} NULL,
		competitors VARCHAR(255) NULL,
		competitive_advantages TEXT NULL,
		competitive_weaknesses TEXT NULL,
		expected_close_date DATE NULL,
		next_steps TEXT NULL,
		follow_up_date DATE NULL,
		team_members {{JSON}} NULL,
		created_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		won_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		lost_by BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		won_reason TEXT NULL,
		lost_reason TEXT NULL,
		actual_amount NUMERIC(15,2) NULL,
		closed_date DATE NULL,
		sales_cycle_days INTEGER NULL,
		custom_fields {{JSON}} NULL,
		tags {{JSON}} NULL,
		notes TEXT NULL,
		created_at {{TS}} NOT NULL,
		updated_at {{TS}} NOT NULL,
		deleted_at {{TS}} NULL
	)`,
	`CREATE INDEX IF NOT EXISTS opportunities_company_pipeline_idx ON opportunities (company_id, pipeline)`,
	`CREATE INDEX IF NOT EXISTS opportunities_company_status_idx ON opportunities (company_id, status)`,
	`CREATE INDEX IF NOT EXISTS opportunities_user_pipeline_idx ON opportunities (user_id, pipeline)`,
	`CREATE INDEX IF NOT EXISTS opportunities_stage_pipeline_idx ON opportunities (stage, pipeline)`,
	`CREATE INDEX IF NOT EXISTS opportunities_pipeline_order_idx ON opportunities (pipeline, stage_order)`,
	`CREATE INDEX IF NOT EXISTS opportunities_expected_close_idx ON opportunities (expected_close_date)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id {{ID}},
		company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
		subject_type VARCHAR(32) NOT NULL,
		subject_id BIGINT NOT NULL,
		type VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NULL,
		metadata {{JSON}} NULL,
		created_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS activities_company_created_idx ON activities (company_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS activities_subject_idx ON activities (subject_type, subject_id)`,
	`CREATE INDEX IF NOT EXISTS activities_type_created_idx ON activities (type, created_at)`,
}

func schemaReplacer(name string) (*strings.Replacer, error) {
	switch name {
	case dialect.Postgres:
		return strings.NewReplacer(
			"{{ID}}", "BIGSERIAL PRIMARY KEY",
			"{{TS}}", "TIMESTAMPTZ",
			"{{JSON}}", "JSONB",
			"{{BOOL}}", "BOOLEAN",
		), nil
	case dialect.SQLite:
		return strings.NewReplacer(
			"{{ID}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{TS}}", "DATETIME",
			"{{JSON}}", "TEXT",
			"{{BOOL}}", "BOOLEAN",
		), nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}

// SchemaStatements returns the DDL for the given dialect.
func SchemaStatements(name string) ([]string, error) {
	r, err := schemaReplacer(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(schema))
	for _, stmt := range schema {
		out = append(out, r.Replace(stmt))
	}
	return out, nil
}

// Migrate creates missing tables and indexes. It is safe to run on every start.
func (c *Client) Migrate(ctx context.Context) error {
	stmts, err := SchemaStatements(c.dialect)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed applying schema: %w", err)
		}
	}
	c.log.Info("✅ Database schema up to date", "dialect", c.dialect, "statements", len(stmts))
	return nil
}
