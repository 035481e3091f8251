package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-agent/internal/models"
	"github.com/garyjia/invoice-agent/pkg/database"
)

// testDB opens an in-memory database with the full schema applied. A
// single connection keeps the in-memory database alive for the test.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations(Migrations))
	return db
}

func strPtr(s string) *string { return &s }

func seedClient(t *testing.T, repo *ClientRepository, name string) *models.Client {
	t.Helper()
	client := &models.Client{Name: name, Email: "billing@example.com"}
	require.NoError(t, repo.Create(client))
	return client
}

func seedProject(t *testing.T, repo *ProjectRepository, clientID int64, name, rate string) *models.Project {
	t.Helper()
	project := &models.Project{
		ClientID:   clientID,
		Name:       name,
		HourlyRate: decimal.RequireFromString(rate),
		IsActive:   true,
	}
	require.NoError(t, repo.Create(project))
	return project
}

func seedRecord(t *testing.T, repo *WorkRecordRepository, projectID int64, day int, hours string) *models.WorkRecord {
	t.Helper()
	rec := &models.WorkRecord{
		ProjectID:   projectID,
		WorkDate:    models.NewDate(2026, 8, day),
		Hours:       decimal.RequireFromString(hours),
		Description: "seeded work",
		Billable:    true,
	}
	require.NoError(t, repo.Create(rec))
	return rec
}

func TestClientRepository(t *testing.T) {
	db := testDB(t)
	repo := NewClientRepository(db.DB, zap.NewNop())

	t.Run("create and get", func(t *testing.T) {
		client := seedClient(t, repo, "Acme Corp")
		require.NotZero(t, client.ID)

		got, err := repo.GetByID(client.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", got.Name)
		assert.Equal(t, "billing@example.com", got.Email)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByID(9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("find by name is case insensitive", func(t *testing.T) {
		seedClient(t, repo, "Globex")
		matches, err := repo.FindByName("globex")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "Globex", matches[0].Name)
	})

	t.Run("list", func(t *testing.T) {
		clients, err := repo.List()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(clients), 2)
	})
}

func TestProjectRepository(t *testing.T) {
	db := testDB(t)
	clients := NewClientRepository(db.DB, zap.NewNop())
	repo := NewProjectRepository(db.DB, zap.NewNop())

	client := seedClient(t, clients, "Acme Corp")
	other := seedClient(t, clients, "Globex")

	t.Run("create and get with equity terms", func(t *testing.T) {
		perHour := decimal.RequireFromString("0.5")
		project := &models.Project{
			ClientID:            client.ID,
			Name:                "Widget Platform",
			HourlyRate:          decimal.RequireFromString("120.50"),
			IsActive:            true,
			EquityType:          strPtr("RSU"),
			EquityAmountPerHour: &perHour,
			EquityDetails:       strPtr("quarterly vesting"),
		}
		require.NoError(t, repo.Create(project))

		got, err := repo.GetByID(project.ID)
		require.NoError(t, err)
		assert.True(t, got.HourlyRate.Equal(decimal.RequireFromString("120.50")), "rate survives the round trip exactly")
		require.True(t, got.HasEquityTerms())
		assert.Equal(t, "RSU", *got.EquityType)
		assert.True(t, got.EquityAmountPerHour.Equal(perHour))
	})

	t.Run("map by client", func(t *testing.T) {
		seedProject(t, repo, client.ID, "Second Project", "80")
		seedProject(t, repo, other.ID, "Foreign Project", "90")

		byID, err := repo.MapByClient(client.ID)
		require.NoError(t, err)
		assert.Len(t, byID, 2)
		for _, p := range byID {
			assert.Equal(t, client.ID, p.ClientID)
		}
	})

	t.Run("find by name scoped to client", func(t *testing.T) {
		matches, err := repo.FindByName(client.ID, "widget platform")
		require.NoError(t, err)
		assert.Len(t, matches, 1)

		matches, err = repo.FindByName(other.ID, "widget platform")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("find by name across clients", func(t *testing.T) {
		matches, err := repo.FindByNameAcrossClients("foreign project")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, other.ID, matches[0].ClientID)
	})
}

func TestWorkRecordRepository(t *testing.T) {
	db := testDB(t)
	clients := NewClientRepository(db.DB, zap.NewNop())
	projects := NewProjectRepository(db.DB, zap.NewNop())
	repo := NewWorkRecordRepository(db.DB, zap.NewNop())

	client := seedClient(t, clients, "Acme Corp")
	project := seedProject(t, projects, client.ID, "Widget Platform", "100")

	t.Run("create and get with tags", func(t *testing.T) {
		category := "Development"
		rec := &models.WorkRecord{
			ProjectID:   project.ID,
			WorkDate:    models.NewDate(2026, 8, 5),
			Hours:       decimal.RequireFromString("2.75"),
			Description: "API work",
			Category:    &category,
			Billable:    true,
			Tags:        []string{"api", "backend"},
		}
		require.NoError(t, repo.Create(rec))

		got, err := repo.GetByID(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, models.NewDate(2026, 8, 5), got.WorkDate)
		assert.True(t, got.Hours.Equal(decimal.RequireFromString("2.75")))
		assert.Equal(t, []string{"api", "backend"}, got.Tags)
		assert.Nil(t, got.InvoiceID)
	})

	t.Run("find billable respects range and flags", func(t *testing.T) {
		inside := seedRecord(t, repo, project.ID, 10, "1")
		seedRecord(t, repo, project.ID, 25, "1") // outside range

		nonBillable := &models.WorkRecord{
			ProjectID:   project.ID,
			WorkDate:    models.NewDate(2026, 8, 11),
			Hours:       decimal.RequireFromString("3"),
			Description: "internal",
			Billable:    false,
		}
		require.NoError(t, repo.Create(nonBillable))

		records, err := repo.FindBillable(client.ID, models.NewDate(2026, 8, 9), models.NewDate(2026, 8, 15))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, inside.ID, records[0].ID)
	})

	t.Run("invoiced records are immutable", func(t *testing.T) {
		rec := seedRecord(t, repo, project.ID, 12, "2")

		invoices := NewInvoiceRepository(db.DB, zap.NewNop())
		inv := &models.Invoice{
			ClientID:      client.ID,
			InvoiceNumber: "INV-2026-0099",
			IssueDate:     models.NewDate(2026, 9, 1),
			DueDate:       models.NewDate(2026, 10, 1),
			Status:        models.StatusDraft,
			Subtotal:      decimal.RequireFromString("200"),
			TaxRate:       decimal.Zero,
			TaxAmount:     decimal.Zero,
			Total:         decimal.RequireFromString("200"),
		}
		require.NoError(t, invoices.Create(nil, inv))

		tx, err := db.BeginTx()
		require.NoError(t, err)
		require.NoError(t, repo.MarkInvoiced(tx, []int64{rec.ID}, inv.ID))
		require.NoError(t, tx.Commit())

		got, err := repo.GetByID(rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got.InvoiceID)
		assert.Equal(t, inv.ID, *got.InvoiceID)

		got.Description = "rewritten"
		assert.Error(t, repo.Update(got), "updating an invoiced record is rejected")
		assert.Error(t, repo.Delete(rec.ID), "deleting an invoiced record is rejected")

		tx, err = db.BeginTx()
		require.NoError(t, err)
		assert.Error(t, repo.MarkInvoiced(tx, []int64{rec.ID}, inv.ID), "double consumption is rejected")
		tx.Rollback()
	})

	t.Run("list with unbilled filter", func(t *testing.T) {
		records, err := repo.List(ListFilter{UnbilledOnly: true})
		require.NoError(t, err)
		for _, rec := range records {
			assert.Nil(t, rec.InvoiceID)
			assert.True(t, rec.Billable)
		}
	})
}

func TestInvoiceRepository(t *testing.T) {
	db := testDB(t)
	clients := NewClientRepository(db.DB, zap.NewNop())
	repo := NewInvoiceRepository(db.DB, zap.NewNop())

	client := seedClient(t, clients, "Acme Corp")

	newInvoice := func(number string) *models.Invoice {
		equityQty := decimal.RequireFromString("2.0")
		return &models.Invoice{
			ClientID:      client.ID,
			InvoiceNumber: number,
			IssueDate:     models.NewDate(2026, 9, 1),
			DueDate:       models.NewDate(2026, 10, 1),
			Status:        models.StatusDraft,
			Notes:         "Net 30",
			Subtotal:      decimal.RequireFromString("350.00"),
			TaxRate:       decimal.RequireFromString("19"),
			TaxAmount:     decimal.RequireFromString("66.50"),
			Total:         decimal.RequireFromString("416.50"),
			Items: []models.InvoiceLineItem{
				{
					Description:     "Development work",
					Quantity:        decimal.RequireFromString("3.5"),
					Unit:            "hour",
					Rate:            decimal.RequireFromString("100"),
					Amount:          decimal.RequireFromString("350.00"),
					Category:        strPtr("Development"),
					SourceRecordIDs: []int64{1, 2},
					EquityType:      strPtr("RSU"),
					EquityQuantity:  &equityQty,
				},
			},
		}
	}

	t.Run("create and load round trip", func(t *testing.T) {
		inv := newInvoice("INV-2026-0001")
		require.NoError(t, repo.Create(nil, inv))
		require.NotZero(t, inv.ID)

		got, err := repo.GetByID(inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-0001", got.InvoiceNumber)
		assert.Equal(t, models.StatusDraft, got.Status)
		assert.True(t, got.Subtotal.Equal(inv.Subtotal))
		assert.True(t, got.Total.Equal(inv.Total))

		require.Len(t, got.Items, 1)
		item := got.Items[0]
		assert.Equal(t, []int64{1, 2}, item.SourceRecordIDs)
		assert.True(t, item.Quantity.Equal(decimal.RequireFromString("3.5")))
		require.True(t, item.HasEquityComponent())
		assert.True(t, item.EquityQuantity.Equal(decimal.RequireFromString("2.0")))
	})

	t.Run("get by number", func(t *testing.T) {
		got, err := repo.GetByNumber("INV-2026-0001")
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-0001", got.InvoiceNumber)

		_, err = repo.GetByNumber("INV-1999-0001")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate number rejected", func(t *testing.T) {
		assert.Error(t, repo.Create(nil, newInvoice("INV-2026-0001")))
	})

	t.Run("next invoice number", func(t *testing.T) {
		number, err := repo.NextInvoiceNumber(2026)
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-0002", number)

		number, err = repo.NextInvoiceNumber(2027)
		require.NoError(t, err)
		assert.Equal(t, "INV-2027-0001", number, "sequence restarts per year")
	})

	t.Run("update status", func(t *testing.T) {
		inv, err := repo.GetByNumber("INV-2026-0001")
		require.NoError(t, err)

		require.NoError(t, repo.UpdateStatus(inv.ID, models.StatusSent))
		got, err := repo.GetByID(inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, got.Status)

		assert.ErrorIs(t, repo.UpdateStatus(9999, models.StatusPaid), ErrNotFound)
	})

	t.Run("list filters", func(t *testing.T) {
		sent := models.StatusSent
		invoices, err := repo.List(&client.ID, &sent)
		require.NoError(t, err)
		require.Len(t, invoices, 1)

		draft := models.StatusDraft
		invoices, err = repo.List(nil, &draft)
		require.NoError(t, err)
		assert.Empty(t, invoices)
	})
}
