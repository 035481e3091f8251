package repository

import "github.com/garyjia/invoice-agent/pkg/database"

// Migrations is the full schema history of the invoice database.
var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE clients (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				contact_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_clients_name ON clients(name);

			CREATE TABLE projects (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				client_id INTEGER NOT NULL REFERENCES clients(id),
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				hourly_rate TEXT NOT NULL DEFAULT '0',
				is_active INTEGER NOT NULL DEFAULT 1,
				equity_type TEXT,
				equity_amount_per_hour TEXT,
				equity_details TEXT,
				start_date TEXT,
				end_date TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_projects_client_id ON projects(client_id);
			CREATE INDEX idx_projects_name ON projects(name);

			CREATE TABLE invoices (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				client_id INTEGER NOT NULL REFERENCES clients(id),
				invoice_number TEXT NOT NULL UNIQUE,
				issue_date TEXT NOT NULL,
				due_date TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'draft',
				notes TEXT NOT NULL DEFAULT '',
				subtotal TEXT NOT NULL DEFAULT '0',
				tax_rate TEXT NOT NULL DEFAULT '0',
				tax_amount TEXT NOT NULL DEFAULT '0',
				total TEXT NOT NULL DEFAULT '0',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_invoices_client_id ON invoices(client_id);
			CREATE INDEX idx_invoices_status ON invoices(status);

			CREATE TABLE work_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL REFERENCES projects(id),
				invoice_id INTEGER REFERENCES invoices(id),
				work_date TEXT NOT NULL,
				hours TEXT NOT NULL,
				description TEXT NOT NULL,
				category TEXT,
				billable INTEGER NOT NULL DEFAULT 1,
				tags TEXT NOT NULL DEFAULT '[]',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_work_records_project_id ON work_records(project_id);
			CREATE INDEX idx_work_records_work_date ON work_records(work_date);
			CREATE INDEX idx_work_records_invoice_id ON work_records(invoice_id);

			CREATE TABLE invoice_line_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				invoice_id INTEGER NOT NULL REFERENCES invoices(id),
				description TEXT NOT NULL,
				quantity TEXT NOT NULL,
				unit TEXT NOT NULL DEFAULT 'hour',
				rate TEXT NOT NULL,
				amount TEXT NOT NULL,
				category TEXT,
				source_record_ids TEXT NOT NULL DEFAULT '[]',
				equity_type TEXT,
				equity_quantity TEXT,
				equity_description TEXT
			);
			CREATE INDEX idx_invoice_line_items_invoice_id ON invoice_line_items(invoice_id);
		`,
	},
}
