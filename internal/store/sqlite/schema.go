package sqlite

// Amounts are stored as decimal strings and dates as YYYY-MM-DD so that
// lexical comparison matches chronological order.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS categories (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL DEFAULT '',
	icon  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	storage_path      TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_type         TEXT NOT NULL,
	raw_text          TEXT,
	processed         INTEGER NOT NULL DEFAULT 0,
	uploaded_at       TEXT NOT NULL,
	processed_at      TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_processed ON documents(processed);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	document_id      TEXT REFERENCES documents(id) ON DELETE SET NULL,
	transaction_date TEXT NOT NULL,
	amount           TEXT NOT NULL,
	currency         TEXT NOT NULL,
	vendor_name      TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	category_id      TEXT NOT NULL REFERENCES categories(id),
	payment_method   TEXT NOT NULL DEFAULT '',
	tax_amount       TEXT NOT NULL DEFAULT '0',
	tax_percentage   TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_category_date ON transactions(category_id, transaction_date);
CREATE INDEX IF NOT EXISTS idx_transactions_document ON transactions(document_id);

CREATE TABLE IF NOT EXISTS budgets (
	id           TEXT PRIMARY KEY,
	category_id  TEXT NOT NULL REFERENCES categories(id),
	period       TEXT NOT NULL,
	limit_amount TEXT NOT NULL,
	spent        TEXT NOT NULL DEFAULT '0',
	updated_at   TEXT NOT NULL,
	UNIQUE (category_id, period)
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	severity   TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	payload    TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	is_read    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
`
