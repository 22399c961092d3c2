package tool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// PostgresCRMConfig configures the Postgres-backed CRM.
type PostgresCRMConfig struct {
	DSN     string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type leadRow struct {
	bun.BaseModel `bun:"table:leads,alias:l"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Phone     string    `bun:"phone,notnull"`
	Email     string    `bun:"email"`
	Company   string    `bun:"company"`
	Notes     string    `bun:"notes"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type outcomeRow struct {
	bun.BaseModel `bun:"table:session_outcomes,alias:so"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  string    `bun:"session_id,notnull,unique"`
	LeadID     string    `bun:"lead_id,notnull"`
	Outcome    string    `bun:"outcome,notnull"`
	FinalPhase string    `bun:"final_phase,notnull"`
	EventID    string    `bun:"event_id"`
	Notes      string    `bun:"notes"`
	EndedAt    time.Time `bun:"ended_at,notnull"`
}

// PostgresCRM persists leads and the append-only session outcome log in
// Postgres. The unique constraint on session_id backs the one-record-per
// -ended-session guarantee at the storage layer too.
type PostgresCRM struct {
	db *bun.DB
}

func NewPostgresCRM(cfg PostgresCRMConfig) (*PostgresCRM, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("crm postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &PostgresCRM{db: db}, nil
}

// Init creates the CRM tables if they do not exist yet.
func (c *PostgresCRM) Init(ctx context.Context) error {
	if _, err := c.db.NewCreateTable().Model((*leadRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create leads table: %w", err)
	}
	if _, err := c.db.NewCreateTable().Model((*outcomeRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create session_outcomes table: %w", err)
	}
	return nil
}

func (c *PostgresCRM) Close() error {
	return c.db.Close()
}

func (c *PostgresCRM) LogOutcome(ctx context.Context, rec contractx.OutcomeRecord) error {
	row := outcomeRow{
		SessionID:  rec.SessionID,
		LeadID:     rec.LeadID,
		Outcome:    rec.Outcome,
		FinalPhase: string(rec.FinalPhase),
		EventID:    rec.EventID,
		Notes:      rec.Notes,
		EndedAt:    rec.EndedAt.UTC(),
	}
	if _, err := c.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert outcome: %v", contractx.ErrCRMFailure, err)
	}
	return nil
}

func (c *PostgresCRM) ListLeads(ctx context.Context) ([]statex.Lead, error) {
	var rows []leadRow
	if err := c.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: list leads: %v", contractx.ErrCRMFailure, err)
	}
	leads := make([]statex.Lead, 0, len(rows))
	for _, r := range rows {
		leads = append(leads, statex.Lead{
			ID:      r.ID,
			Name:    r.Name,
			Phone:   r.Phone,
			Email:   r.Email,
			Company: r.Company,
			Notes:   r.Notes,
		})
	}
	return leads, nil
}

func (c *PostgresCRM) UpsertLead(ctx context.Context, lead statex.Lead) (statex.Lead, error) {
	if strings.TrimSpace(lead.ID) == "" {
		return statex.Lead{}, fmt.Errorf("%w: lead id is required", contractx.ErrValidation)
	}
	row := leadRow{
		ID:        lead.ID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Company:   lead.Company,
		Notes:     lead.Notes,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := c.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("phone = EXCLUDED.phone").
		Set("email = EXCLUDED.email").
		Set("company = EXCLUDED.company").
		Set("notes = EXCLUDED.notes").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return statex.Lead{}, fmt.Errorf("%w: upsert lead: %v", contractx.ErrCRMFailure, err)
	}
	return lead, nil
}
