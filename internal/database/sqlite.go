package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"FabTracker/internal/models"

	_ "modernc.org/sqlite" // pure Go driver, no cgo needed
)

// DBRepository is the persistence layer for tenants, subscriptions and
// seller snapshots.
type DBRepository struct {
	DB *sql.DB
}

// InitDB opens (or creates) the tracker database and ensures the schema.
func InitDB(filepath string) *DBRepository {
	db, err := sql.Open("sqlite", filepath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	if err = db.Ping(); err != nil {
		log.Fatalf("Error pinging database: %v", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			"tenant_id" TEXT PRIMARY KEY,
			"timezone" TEXT DEFAULT 'Europe/Paris',
			"language" TEXT DEFAULT 'en',
			"channel_new" INTEGER,
			"channel_updated" INTEGER,
			"mentions_enabled" INTEGER DEFAULT 0,
			"mentions_new" TEXT,
			"mentions_updated" TEXT,
			"schedule_frequency" TEXT DEFAULT 'weekly',
			"schedule_weekday" TEXT DEFAULT 'sunday',
			"schedule_day_of_month" INTEGER DEFAULT 1,
			"schedule_hour" INTEGER DEFAULT 0,
			"schedule_minute" INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			"tenant_id" TEXT,
			"seller_url" TEXT,
			PRIMARY KEY (tenant_id, seller_url)
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			"id" TEXT PRIMARY KEY,
			"seller_url" TEXT,
			"name" TEXT,
			"url" TEXT,
			"price_json" TEXT,
			"image" TEXT,
			"ue_versions" TEXT,
			"last_update" TEXT,
			"published" TEXT,
			"changelog" TEXT,
			"description" TEXT,
			"reviews_count" INTEGER DEFAULT 0,
			"rating" REAL,
			"last_seen" DATETIME,
			"first_seen" DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_url);`,
		`CREATE TABLE IF NOT EXISTS seller_cache (
			"seller_url" TEXT PRIMARY KEY,
			"last_check" DATETIME,
			"last_status" TEXT,
			"last_run_id" TEXT,
			"products_count" INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			"key" TEXT PRIMARY KEY,
			"value" TEXT
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Error creating schema: %v", err)
		}
	}

	log.Println("Database and tables initialized successfully.")
	return &DBRepository{DB: db}
}

// Close closes the underlying connection.
func (repo *DBRepository) Close() {
	repo.DB.Close()
}

// --- Snapshot methods ---

const productColumns = `id, name, url, price_json, image, ue_versions, last_update,
	published, changelog, description, reviews_count, rating, last_seen, first_seen`

func scanProduct(rows *sql.Rows) (models.Product, error) {
	var p models.Product
	var rating sql.NullFloat64
	var lastSeen, firstSeen sql.NullTime
	err := rows.Scan(
		&p.ID, &p.Name, &p.URL, &p.Price, &p.Image, &p.UEVersions, &p.LastUpdate,
		&p.Published, &p.Changelog, &p.Description, &p.ReviewsCount, &rating,
		&lastSeen, &firstSeen,
	)
	if err != nil {
		return p, err
	}
	if rating.Valid {
		v := rating.Float64
		p.Rating = &v
	}
	p.LastSeen = lastSeen.Time
	p.FirstSeen = firstSeen.Time
	return p, nil
}

// GetSellerProducts returns the persisted snapshot for one seller, ordered
// by first observation so notification output stays stable.
func (repo *DBRepository) GetSellerProducts(sellerURL string) ([]models.Product, error) {
	rows, err := repo.DB.Query(
		`SELECT `+productColumns+` FROM products WHERE seller_url = ? ORDER BY first_seen, id`,
		sellerURL,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Printf("Error scanning product row: %v", err)
			continue
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ReplaceSellerProducts swaps a seller's snapshot wholesale inside one
// transaction. The new set becomes authoritative; a failed sync never
// reaches this method, so no partial snapshot is ever persisted.
func (repo *DBRepository) ReplaceSellerProducts(sellerURL string, products []models.Product) error {
	tx, err := repo.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM products WHERE seller_url = ?", sellerURL); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO products (id, seller_url, name, url, price_json, image, ue_versions,
			last_update, published, changelog, description, reviews_count, rating,
			last_seen, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		var rating interface{}
		if p.Rating != nil {
			rating = *p.Rating
		}
		_, err = stmt.Exec(
			p.ID, sellerURL, p.Name, p.URL, p.Price, p.Image, p.UEVersions,
			p.LastUpdate, p.Published, p.Changelog, p.Description, p.ReviewsCount,
			rating, p.LastSeen, p.FirstSeen,
		)
		if err != nil {
			return fmt.Errorf("failed to save product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetProducts returns a page of products across all sellers, newest first,
// optionally filtered to one seller. Used by the read-only API.
func (repo *DBRepository) GetProducts(sellerURL string, limit, offset int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []interface{}
	if sellerURL != "" {
		query += " WHERE seller_url = ?"
		args = append(args, sellerURL)
	}
	query += " ORDER BY first_seen DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := repo.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Printf("Error scanning product row: %v", err)
			continue
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CountProducts returns the total product count, optionally for one seller.
func (repo *DBRepository) CountProducts(sellerURL string) (int, error) {
	var count int
	var err error
	if sellerURL != "" {
		err = repo.DB.QueryRow("SELECT COUNT(*) FROM products WHERE seller_url = ?", sellerURL).Scan(&count)
	} else {
		err = repo.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&count)
	}
	return count, err
}

// --- Seller status methods ---

// UpdateSellerStatus records the outcome of the latest check for a seller.
func (repo *DBRepository) UpdateSellerStatus(sellerURL, status, runID string, productsCount int) error {
	_, err := repo.DB.Exec(`
		INSERT INTO seller_cache (seller_url, last_check, last_status, last_run_id, products_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seller_url) DO UPDATE SET
			last_check=excluded.last_check,
			last_status=excluded.last_status,
			last_run_id=excluded.last_run_id,
			products_count=excluded.products_count;
	`, sellerURL, time.Now(), status, runID, productsCount)
	return err
}

// GetSellerStatuses lists the status marker of every known seller.
func (repo *DBRepository) GetSellerStatuses() ([]models.SellerStatus, error) {
	rows, err := repo.DB.Query(`
		SELECT seller_url, last_check, last_status, last_run_id, products_count
		FROM seller_cache ORDER BY seller_url`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.SellerStatus
	for rows.Next() {
		var s models.SellerStatus
		var lastCheck sql.NullTime
		if err := rows.Scan(&s.SellerURL, &lastCheck, &s.LastStatus, &s.LastRunID, &s.Products); err != nil {
			log.Printf("Error scanning seller status row: %v", err)
			continue
		}
		s.LastCheck = lastCheck.Time
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// --- Tenant methods ---

// GetTenant loads one tenant with its subscriptions, or nil when unknown.
func (repo *DBRepository) GetTenant(tenantID string) (*models.TenantConfig, error) {
	row := repo.DB.QueryRow(`
		SELECT tenant_id, timezone, language, channel_new, channel_updated,
			mentions_enabled, mentions_new, mentions_updated,
			schedule_frequency, schedule_weekday, schedule_day_of_month,
			schedule_hour, schedule_minute
		FROM tenants WHERE tenant_id = ?`, tenantID)

	var t models.TenantConfig
	var channelNew, channelUpdated sql.NullInt64
	var mentionsEnabled int
	var mentionsNew, mentionsUpdated sql.NullString
	err := row.Scan(
		&t.TenantID, &t.Timezone, &t.Language, &channelNew, &channelUpdated,
		&mentionsEnabled, &mentionsNew, &mentionsUpdated,
		&t.Schedule.Frequency, &t.Schedule.Weekday, &t.Schedule.DayOfMonth,
		&t.Schedule.Hour, &t.Schedule.Minute,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.ChannelNew = channelNew.Int64
	t.ChannelUpdated = channelUpdated.Int64
	t.MentionsEnabled = mentionsEnabled != 0
	t.MentionsNew = decodeIDList(mentionsNew.String)
	t.MentionsUpdated = decodeIDList(mentionsUpdated.String)
	t.Schedule.Timezone = t.Timezone

	rows, err := repo.DB.Query("SELECT seller_url FROM subscriptions WHERE tenant_id = ? ORDER BY seller_url", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seller string
		if err := rows.Scan(&seller); err != nil {
			continue
		}
		t.Sellers = append(t.Sellers, seller)
	}
	return &t, rows.Err()
}

// SaveTenant upserts a tenant and rewrites its subscription rows.
func (repo *DBRepository) SaveTenant(t *models.TenantConfig) error {
	tx, err := repo.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO tenants
		(tenant_id, timezone, language, channel_new, channel_updated,
		 mentions_enabled, mentions_new, mentions_updated,
		 schedule_frequency, schedule_weekday, schedule_day_of_month,
		 schedule_hour, schedule_minute)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TenantID, t.Timezone, t.Language, t.ChannelNew, t.ChannelUpdated,
		boolToInt(t.MentionsEnabled), encodeIDList(t.MentionsNew), encodeIDList(t.MentionsUpdated),
		t.Schedule.Frequency, t.Schedule.Weekday, t.Schedule.DayOfMonth,
		t.Schedule.Hour, t.Schedule.Minute,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM subscriptions WHERE tenant_id = ?", t.TenantID); err != nil {
		return err
	}
	for _, seller := range t.Sellers {
		if _, err := tx.Exec("INSERT INTO subscriptions (tenant_id, seller_url) VALUES (?, ?)", t.TenantID, seller); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteTenant removes a tenant and its subscriptions.
func (repo *DBRepository) DeleteTenant(tenantID string) error {
	tx, err := repo.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM subscriptions WHERE tenant_id = ?", tenantID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM tenants WHERE tenant_id = ?", tenantID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTrackedSellers returns every seller at least one tenant subscribes to.
func (repo *DBRepository) ListTrackedSellers() ([]string, error) {
	rows, err := repo.DB.Query("SELECT DISTINCT seller_url FROM subscriptions ORDER BY seller_url")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sellers []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			continue
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}

// TenantsForSeller returns the ids of tenants subscribed to a seller.
func (repo *DBRepository) TenantsForSeller(sellerURL string) ([]string, error) {
	rows, err := repo.DB.Query("SELECT tenant_id FROM subscriptions WHERE seller_url = ?", sellerURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetSchedulePolicies returns every tenant's schedule. Policies that fail
// validation are skipped with a warning; they never reach the engine.
func (repo *DBRepository) GetSchedulePolicies() ([]models.SchedulePolicy, error) {
	rows, err := repo.DB.Query(`
		SELECT tenant_id, timezone, schedule_frequency, schedule_weekday,
			schedule_day_of_month, schedule_hour, schedule_minute
		FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []models.SchedulePolicy
	for rows.Next() {
		var tenantID string
		var p models.SchedulePolicy
		if err := rows.Scan(&tenantID, &p.Timezone, &p.Frequency, &p.Weekday,
			&p.DayOfMonth, &p.Hour, &p.Minute); err != nil {
			log.Printf("Error scanning schedule row: %v", err)
			continue
		}
		if err := p.Validate(); err != nil {
			log.Printf("WARN: Skipping invalid schedule for tenant %s: %v", tenantID, err)
			continue
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// --- Global settings ---

// GetGlobalCurrency returns the configured comparison currency, "USD" when
// unset.
func (repo *DBRepository) GetGlobalCurrency() string {
	var v string
	err := repo.DB.QueryRow("SELECT value FROM settings WHERE key = 'currency'").Scan(&v)
	if err != nil || v == "" {
		return "USD"
	}
	return v
}

// SetGlobalCurrency stores the comparison currency.
func (repo *DBRepository) SetGlobalCurrency(currency string) error {
	_, err := repo.DB.Exec(
		"INSERT OR REPLACE INTO settings (key, value) VALUES ('currency', ?)", currency)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeIDList(ids []int64) string {
	if ids == nil {
		ids = []int64{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func decodeIDList(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}
