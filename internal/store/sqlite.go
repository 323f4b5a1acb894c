package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contractors (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	name                   TEXT NOT NULL,
	owner_name             TEXT NOT NULL DEFAULT '',
	category               TEXT NOT NULL,
	address                TEXT NOT NULL DEFAULT '',
	city                   TEXT NOT NULL DEFAULT '',
	state                  TEXT NOT NULL DEFAULT '',
	zip_code               TEXT NOT NULL DEFAULT '',
	phone                  TEXT NOT NULL DEFAULT '',
	email                  TEXT NOT NULL DEFAULT '',
	website                TEXT NOT NULL DEFAULT '',
	linkedin_url           TEXT NOT NULL DEFAULT '',
	source                 TEXT NOT NULL,
	location_searched      TEXT NOT NULL,
	enriched               INTEGER NOT NULL DEFAULT 0,
	enrichment_confidence  REAL NOT NULL DEFAULT 0,
	enrichment_source_urls TEXT NOT NULL DEFAULT '[]',
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	enriched_at            DATETIME
);

CREATE TABLE IF NOT EXISTS jobs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	location         TEXT NOT NULL,
	categories       TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	total_found      INTEGER NOT NULL DEFAULT 0,
	progress         INTEGER NOT NULL DEFAULT 0,
	total_categories INTEGER NOT NULL DEFAULT 0,
	current_category TEXT NOT NULL DEFAULT '',
	error_message    TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at     DATETIME
);

CREATE TABLE IF NOT EXISTS enrichment_jobs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	status           TEXT NOT NULL DEFAULT 'pending',
	total_records    INTEGER NOT NULL DEFAULT 0,
	processed        INTEGER NOT NULL DEFAULT 0,
	enriched         INTEGER NOT NULL DEFAULT 0,
	failed           INTEGER NOT NULL DEFAULT 0,
	current_business TEXT NOT NULL DEFAULT '',
	error_message    TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT 'database',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_contractors_category ON contractors(category);
CREATE INDEX IF NOT EXISTS idx_contractors_location ON contractors(location_searched);
CREATE INDEX IF NOT EXISTS idx_contractors_phone ON contractors(phone);
CREATE INDEX IF NOT EXISTS idx_contractors_email ON contractors(email);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_status ON enrichment_jobs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const contractorColumns = `id, name, owner_name, category, address, city, state, zip_code,
	phone, email, website, linkedin_url, source, location_searched,
	enriched, enrichment_confidence, enrichment_source_urls, created_at, enriched_at`

// mergeableColumns are the contractor columns a fill-missing merge may
// touch. UpdateContractorFields rejects anything else.
var mergeableColumns = map[string]bool{
	"owner_name": true,
	"address":    true,
	"city":       true,
	"state":      true,
	"zip_code":   true,
	"phone":      true,
	"email":      true,
	"website":    true,
}

func (s *SQLiteStore) CreateContractor(ctx context.Context, c *model.Contractor) error {
	now := time.Now().UTC()
	urlsJSON, err := json.Marshal(c.EnrichmentSourceURLs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal source urls")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contractors
		 (name, owner_name, category, address, city, state, zip_code, phone, email, website,
		  linkedin_url, source, location_searched, enriched, enrichment_confidence,
		  enrichment_source_urls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.OwnerName, c.Category, c.Address, c.City, c.State, c.ZipCode,
		c.Phone, c.Email, c.Website, c.LinkedInURL, c.Source, c.LocationSearched,
		c.Enriched, c.EnrichmentConfidence, string(urlsJSON), now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert contractor")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetContractor(ctx context.Context, id int64) (*model.Contractor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE id = ?`, id)
	c, err := scanContractor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contractor %d", id)
	}
	return c, nil
}

func (s *SQLiteStore) UpdateContractorFields(ctx context.Context, id int64, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	var set []string
	var args []any
	for col, val := range updates {
		if !mergeableColumns[col] {
			return eris.Errorf("sqlite: column %q is not mergeable", col)
		}
		set = append(set, col+" = ?")
		args = append(args, val)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE contractors SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contractor %d", id)
	}
	return checkRowsAffected(res, "contractor", id)
}

func (s *SQLiteStore) ListContractors(ctx context.Context, filter ContractorFilter) ([]model.Contractor, int, error) {
	var where []string
	var args []any

	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Location != "" {
		where = append(where, "location_searched LIKE ?")
		args = append(args, "%"+filter.Location+"%")
	}
	if filter.Search != "" {
		where = append(where, "(name LIKE ? OR address LIKE ? OR phone LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contractors`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: count contractors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	offset := (page - 1) * perPage

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractorColumns+` FROM contractors`+whereSQL+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, perPage, offset)...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: list contractors")
	}
	defer rows.Close()

	contractors, err := collectContractors(rows)
	if err != nil {
		return nil, 0, err
	}
	return contractors, total, nil
}

func (s *SQLiteStore) AllContractors(ctx context.Context) ([]model.Contractor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractorColumns+` FROM contractors ORDER BY id ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: all contractors")
	}
	defer rows.Close()
	return collectContractors(rows)
}

func (s *SQLiteStore) AllContractorsForExport(ctx context.Context) ([]model.Contractor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractorColumns+` FROM contractors ORDER BY category, name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: contractors for export")
	}
	defer rows.Close()
	return collectContractors(rows)
}

func (s *SQLiteStore) FindByNormalizedEmail(ctx context.Context, email string) (*model.Contractor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE LOWER(email) = ? ORDER BY id ASC LIMIT 1`,
		email)
	c, err := scanContractor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by email")
	}
	return c, nil
}

func (s *SQLiteStore) FindByWebsiteDomain(ctx context.Context, domain string) ([]model.Contractor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE LOWER(website) LIKE ? ORDER BY id ASC`,
		"%"+domain+"%")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by website domain")
	}
	defer rows.Close()
	return collectContractors(rows)
}

func (s *SQLiteStore) DeleteContractors(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contractors WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete contractors")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ApplyReconciliation(ctx context.Context, merges []ReconcileMerge, remove []int64) (int, error) {
	if len(merges) == 0 && len(remove) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin reconciliation")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, m := range merges {
		if len(m.Updates) == 0 {
			continue
		}
		var set []string
		var args []any
		for col, val := range m.Updates {
			if !mergeableColumns[col] {
				return 0, eris.Errorf("sqlite: column %q is not mergeable", col)
			}
			set = append(set, col+" = ?")
			args = append(args, val)
		}
		args = append(args, m.ID)
		if _, err := tx.ExecContext(ctx,
			`UPDATE contractors SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: reconcile update %d", m.ID)
		}
	}

	var removed int64
	if len(remove) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(remove)), ",")
		args := make([]any, len(remove))
		for i, id := range remove {
			args[i] = id
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM contractors WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: reconcile delete")
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit reconciliation")
	}
	return int(removed), nil
}

func (s *SQLiteStore) DeleteContractorsByState(ctx context.Context, removeStates, keepStates []string) (int, error) {
	var query string
	var args []any

	switch {
	case len(removeStates) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(removeStates)), ",")
		query = `DELETE FROM contractors WHERE UPPER(state) IN (` + placeholders + `)`
		for _, st := range removeStates {
			args = append(args, strings.ToUpper(st))
		}
	case len(keepStates) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keepStates)), ",")
		query = `DELETE FROM contractors WHERE UPPER(state) NOT IN (` + placeholders + `) OR state = ''`
		for _, st := range keepStates {
			args = append(args, strings.ToUpper(st))
		}
	default:
		return 0, eris.New("sqlite: either removeStates or keepStates is required")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete contractors by state")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ContractorsForEnrichment(ctx context.Context, filter EnrichmentFilter) ([]model.Contractor, error) {
	var where []string
	var args []any

	if filter.OnlyMissing {
		where = append(where, "(owner_name = '' OR email = '')")
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.State != "" {
		where = append(where, "UPPER(state) = ?")
		args = append(args, strings.ToUpper(filter.State))
	}

	query := `SELECT ` + contractorColumns + ` FROM contractors`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: contractors for enrichment")
	}
	defer rows.Close()
	return collectContractors(rows)
}

func (s *SQLiteStore) ApplyEnrichment(ctx context.Context, id int64, update EnrichmentUpdate) error {
	now := time.Now().UTC()
	set := []string{"enriched = 1", "enriched_at = ?", "enrichment_confidence = ?"}
	args := []any{now, update.Confidence}

	if update.OwnerName != "" {
		set = append(set, "owner_name = ?")
		args = append(args, update.OwnerName)
	}
	if update.Email != "" {
		set = append(set, "email = ?")
		args = append(args, update.Email)
	}
	if update.LinkedInURL != "" {
		set = append(set, "linkedin_url = ?")
		args = append(args, update.LinkedInURL)
	}
	if len(update.SourceURLs) > 0 {
		urls := update.SourceURLs
		if len(urls) > model.MaxEnrichmentSources {
			urls = urls[:model.MaxEnrichmentSources]
		}
		urlsJSON, err := json.Marshal(urls)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal source urls")
		}
		set = append(set, "enrichment_source_urls = ?")
		args = append(args, string(urlsJSON))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE contractors SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: apply enrichment %d", id)
	}
	return checkRowsAffected(res, "contractor", id)
}

// --- Collection jobs ---

const jobColumns = `id, location, categories, status, total_found, progress,
	total_categories, current_category, error_message, created_at, completed_at`

func (s *SQLiteStore) CreateJob(ctx context.Context, location string, categories []string) (*model.Job, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (location, categories, status, total_categories, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		location, strings.Join(categories, ","), string(model.JobStatusPending), len(categories), now)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	return &model.Job{
		ID:              id,
		Location:        location,
		Categories:      categories,
		Status:          model.JobStatusPending,
		TotalCategories: len(categories),
		CreatedAt:       now,
	}, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %d", id)
	}
	return j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, id int64, update JobUpdate) error {
	var set []string
	var args []any

	if update.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*update.Status))
		if update.Status.IsTerminal() {
			set = append(set, "completed_at = ?")
			args = append(args, time.Now().UTC())
		}
	}
	if update.TotalFound != nil {
		set = append(set, "total_found = ?")
		args = append(args, *update.TotalFound)
	}
	if update.Progress != nil {
		set = append(set, "progress = ?")
		args = append(args, *update.Progress)
	}
	if update.CurrentCategory != nil {
		set = append(set, "current_category = ?")
		args = append(args, *update.CurrentCategory)
	}
	if update.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %d", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete job %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// --- Enrichment jobs ---

const enrichmentJobColumns = `id, status, total_records, processed, enriched, failed,
	current_business, error_message, source, created_at, completed_at`

func (s *SQLiteStore) CreateEnrichmentJob(ctx context.Context, totalRecords int, source string) (*model.EnrichmentJob, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_jobs (status, total_records, source, created_at)
		 VALUES (?, ?, ?, ?)`,
		string(model.JobStatusPending), totalRecords, source, now)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert enrichment job")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	return &model.EnrichmentJob{
		ID:           id,
		Status:       model.JobStatusPending,
		TotalRecords: totalRecords,
		Source:       source,
		CreatedAt:    now,
	}, nil
}

func (s *SQLiteStore) GetEnrichmentJob(ctx context.Context, id int64) (*model.EnrichmentJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+enrichmentJobColumns+` FROM enrichment_jobs WHERE id = ?`, id)
	j, err := scanEnrichmentJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get enrichment job %d", id)
	}
	return j, nil
}

func (s *SQLiteStore) ListEnrichmentJobs(ctx context.Context, limit int) ([]model.EnrichmentJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+enrichmentJobColumns+` FROM enrichment_jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list enrichment jobs")
	}
	defer rows.Close()

	var jobs []model.EnrichmentJob
	for rows.Next() {
		j, err := scanEnrichmentJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enrichment job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list enrichment jobs iterate")
}

func (s *SQLiteStore) UpdateEnrichmentJob(ctx context.Context, id int64, update EnrichmentJobUpdate) error {
	var set []string
	var args []any

	if update.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*update.Status))
		if update.Status.IsTerminal() {
			set = append(set, "completed_at = ?")
			args = append(args, time.Now().UTC())
		}
	}
	if update.Processed != nil {
		set = append(set, "processed = ?")
		args = append(args, *update.Processed)
	}
	if update.Enriched != nil {
		set = append(set, "enriched = ?")
		args = append(args, *update.Enriched)
	}
	if update.Failed != nil {
		set = append(set, "failed = ?")
		args = append(args, *update.Failed)
	}
	if update.CurrentBusiness != nil {
		set = append(set, "current_business = ?")
		args = append(args, *update.CurrentBusiness)
	}
	if update.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE enrichment_jobs SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update enrichment job %d", id)
	}
	return checkRowsAffected(res, "enrichment job", id)
}

// --- Aggregates ---

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{CategoriesBreakdown: map[string]int{}}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM contractors`, &st.TotalContractors},
		{`SELECT COUNT(*) FROM contractors WHERE owner_name != ''`, &st.WithOwner},
		{`SELECT COUNT(*) FROM contractors WHERE phone != ''`, &st.WithPhone},
		{`SELECT COUNT(*) FROM contractors WHERE email != ''`, &st.WithEmail},
		{`SELECT COUNT(*) FROM jobs`, &st.TotalJobs},
		{`SELECT COUNT(*) FROM jobs WHERE status = 'running'`, &st.ActiveJobs},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrap(err, "sqlite: stats")
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM contractors GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats categories")
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category count")
		}
		st.CategoriesBreakdown[cat] = n
	}
	return st, eris.Wrap(rows.Err(), "sqlite: stats iterate")
}

func (s *SQLiteStore) EnrichmentStats(ctx context.Context) (*EnrichmentStats, error) {
	st := &EnrichmentStats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM contractors WHERE enriched = 1`, &st.TotalEnriched},
		{`SELECT COUNT(*) FROM contractors WHERE linkedin_url != ''`, &st.WithLinkedIn},
		{`SELECT COUNT(*) FROM contractors WHERE owner_name = '' AND email = ''`, &st.NeedsEnrichment},
		{`SELECT COUNT(*) FROM enrichment_jobs WHERE status = 'running'`, &st.ActiveEnrichmentJobs},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrap(err, "sqlite: enrichment stats")
		}
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT AVG(enrichment_confidence) FROM contractors WHERE enriched = 1`).Scan(&avg); err != nil {
		return nil, eris.Wrap(err, "sqlite: avg confidence")
	}
	if avg.Valid {
		st.AvgConfidence = avg.Float64
	}
	return st, nil
}

func (s *SQLiteStore) AvailableLocations(ctx context.Context) (*LocationIndex, error) {
	idx := &LocationIndex{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT state FROM contractors WHERE state != '' ORDER BY state`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: distinct states")
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state")
		}
		idx.States = append(idx.States, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: states iterate")
	}

	cityRows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT city, state FROM contractors WHERE city != '' ORDER BY state, city`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: distinct cities")
	}
	defer cityRows.Close()
	for cityRows.Next() {
		var cs CityState
		if err := cityRows.Scan(&cs.City, &cs.State); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		idx.Cities = append(idx.Cities, cs)
	}
	return idx, eris.Wrap(cityRows.Err(), "sqlite: cities iterate")
}

// RecoverOrphans forces jobs left in pending/running by an unclean
// shutdown into failed. Counters keep their last persisted values.
func (s *SQLiteStore) RecoverOrphans(ctx context.Context) (int, error) {
	total := 0
	for _, table := range []string{"jobs", "enrichment_jobs"} {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET status = ?, error_message = ?, completed_at = ?
			 WHERE status IN (?, ?)`, table),
			string(model.JobStatusFailed), model.OrphanedJobMessage, time.Now().UTC(),
			string(model.JobStatusPending), string(model.JobStatusRunning))
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: recover orphans in %s", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, eris.Wrap(err, "sqlite: rows affected")
		}
		total += int(n)
	}
	return total, nil
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContractor(row scannable) (*model.Contractor, error) {
	var c model.Contractor
	var urlsJSON string
	var enrichedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.Name, &c.OwnerName, &c.Category, &c.Address, &c.City, &c.State,
		&c.ZipCode, &c.Phone, &c.Email, &c.Website, &c.LinkedInURL, &c.Source,
		&c.LocationSearched, &c.Enriched, &c.EnrichmentConfidence, &urlsJSON,
		&c.CreatedAt, &enrichedAt,
	)
	if err != nil {
		return nil, err
	}
	if urlsJSON != "" {
		if err := json.Unmarshal([]byte(urlsJSON), &c.EnrichmentSourceURLs); err != nil {
			return nil, eris.Wrap(err, "unmarshal source urls")
		}
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		c.EnrichedAt = &t
	}
	return &c, nil
}

func collectContractors(rows *sql.Rows) ([]model.Contractor, error) {
	var out []model.Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan contractor")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "contractors iterate")
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var categories string
	var completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.Location, &categories, &j.Status, &j.TotalFound, &j.Progress,
		&j.TotalCategories, &j.CurrentCategory, &j.ErrorMessage, &j.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if categories != "" {
		j.Categories = strings.Split(categories, ",")
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

func scanEnrichmentJob(row scannable) (*model.EnrichmentJob, error) {
	var j model.EnrichmentJob
	var completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.Status, &j.TotalRecords, &j.Processed, &j.Enriched, &j.Failed,
		&j.CurrentBusiness, &j.ErrorMessage, &j.Source, &j.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}
