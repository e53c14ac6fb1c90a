// Package testdata generates realistic demo records for seeding and tests.
package testdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/jordanlanch/dealpipe/pkg/users"
	"github.com/shopspring/decimal"
)

// openStages are the stages a generated deal may sit in, weighted towards
// the top of the funnel.
var openStages = []struct {
	stage  pipeline.Stage
	weight int
}{
	{pipeline.StageProspecting, 30},
	{pipeline.StageQualification, 25},
	{pipeline.StageNeedsAnalysis, 15},
	{pipeline.StageValueProposition, 12},
	{pipeline.StageProposal, 10},
	{pipeline.StageNegotiation, 8},
}

var (
	leadStatuses  = []string{"new", "new", "contacted", "qualified"}
	leadSources   = []string{"website", "referral", "trade_show", "cold_call", "linkedin"}
	dealTypes     = []string{"new_business", "expansion", "upsell", "renewal"}
	dealSources   = []string{"inbound", "outbound", "referral", "website", "partner"}
	dealPriority  = []string{"low", "medium", "medium", "high", "critical"}
	industries    = []string{"Software", "Manufacturing", "Healthcare", "Retail", "Logistics", "Finance"}
	competitorSet = []string{"Salesforce", "HubSpot", "Pipedrive", "Zoho", ""}
)

// Generator produces create requests from a seeded faker, so the same seed
// yields the same data.
type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
	seq   int
}

// New creates a generator. A zero seed picks a random one.
func New(seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CompanyName returns a tenant name.
func (g *Generator) CompanyName() string {
	return g.faker.Company()
}

// User returns a directory entry with a unique email for the given role.
func (g *Generator) User(role tenant.Role) users.CreateUserRequest {
	first, last := g.faker.FirstName(), g.faker.LastName()
	g.seq++
	return users.CreateUserRequest{
		Name:  first + " " + last,
		Email: fmt.Sprintf("%s.%s.%d@example.com", slug(first), slug(last), g.seq),
		Role:  string(role),
	}
}

// Lead returns a lead owned by ownerID, or unassigned when ownerID is nil.
func (g *Generator) Lead(ownerID *int64) models.CreateLeadRequest {
	first, last := g.faker.FirstName(), g.faker.LastName()
	company := g.faker.Company()
	domain := slug(company) + ".com"

	req := models.CreateLeadRequest{
		FirstName:   first,
		LastName:    last,
		Email:       fmt.Sprintf("%s@%s", slug(first), domain),
		Phone:       g.faker.Phone(),
		CompanyName: company,
		JobTitle:    g.faker.JobTitle(),
		Status:      g.faker.RandomString(leadStatuses),
		Source:      g.faker.RandomString(leadSources),
		Industry:    g.faker.RandomString(industries),
		Currency:    "USD",
		Priority:    g.faker.Number(1, 5),
		UserID:      ownerID,
	}
	if g.faker.Bool() {
		req.Website = "https://www." + domain
	}
	if g.faker.Number(1, 10) <= 6 {
		employees := g.faker.Number(5, 5000)
		req.Employees = &employees
		value := decimal.NewFromInt(int64(g.faker.Number(1, 200)) * 500)
		req.EstimatedValue = &value
	}
	if g.faker.Number(1, 10) <= 3 {
		req.FollowUpDate = g.date(g.faker.Number(0, 14))
	}
	return req
}

// Opportunity returns an open sales deal in the given stage.
func (g *Generator) Opportunity(stage pipeline.Stage, ownerID *int64) models.CreateOpportunityRequest {
	account := g.faker.Company()
	amount := decimal.NewFromInt(int64(g.faker.Number(5, 500)) * 1000)
	contact := g.faker.FirstName() + " " + g.faker.LastName()

	return models.CreateOpportunityRequest{
		Title:             fmt.Sprintf("%s - %s", account, g.faker.BuzzWord()),
		AccountName:       account,
		Pipeline:          string(pipeline.PipelineSales),
		Stage:             string(stage),
		Amount:            &amount,
		Currency:          "USD",
		Priority:          g.faker.RandomString(dealPriority),
		Type:              g.faker.RandomString(dealTypes),
		Source:            g.faker.RandomString(dealSources),
		ContactName:       contact,
		ContactEmail:      fmt.Sprintf("%s@%s.com", slug(contact), slug(account)),
		DecisionMaker:     contact,
		Competitors:       g.faker.RandomString(competitorSet),
		ExpectedCloseDate: g.date(g.faker.Number(7, 120)),
		NextSteps:         g.faker.Sentence(6),
		UserID:            ownerID,
	}
}

// Opportunities returns n deals spread over the open stages and round-robin
// over owners.
func (g *Generator) Opportunities(n int, owners []int64) []models.CreateOpportunityRequest {
	out := make([]models.CreateOpportunityRequest, 0, n)
	for i := 0; i < n; i++ {
		var owner *int64
		if len(owners) > 0 {
			id := owners[i%len(owners)]
			owner = &id
		}
		out = append(out, g.Opportunity(g.stage(), owner))
	}
	return out
}

func (g *Generator) stage() pipeline.Stage {
	total := 0
	for _, s := range openStages {
		total += s.weight
	}
	pick := g.faker.Number(1, total)
	for _, s := range openStages {
		if pick <= s.weight {
			return s.stage
		}
		pick -= s.weight
	}
	return pipeline.StageProspecting
}

func (g *Generator) date(offsetDays int) *models.Date {
	y, m, d := g.now().AddDate(0, 0, offsetDays).Date()
	return &models.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "contact"
	}
	return b.String()
}
