package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/db"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hottest queries, prepared on each new
// connection.
var preparedStatements = map[string]string{
	"get_contractor": `SELECT ` + contractorColumns + ` FROM contractors WHERE id = $1`,
	"get_job":        `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`,
	"find_by_email":  `SELECT ` + contractorColumns + ` FROM contractors WHERE LOWER(email) = $1 ORDER BY id ASC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contractors (
	id                     BIGSERIAL PRIMARY KEY,
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
	enriched               BOOLEAN NOT NULL DEFAULT FALSE,
	enrichment_confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	enrichment_source_urls TEXT NOT NULL DEFAULT '[]',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	enriched_at            TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS jobs (
	id               BIGSERIAL PRIMARY KEY,
	location         TEXT NOT NULL,
	categories       TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	total_found      INTEGER NOT NULL DEFAULT 0,
	progress         INTEGER NOT NULL DEFAULT 0,
	total_categories INTEGER NOT NULL DEFAULT 0,
	current_category TEXT NOT NULL DEFAULT '',
	error_message    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS enrichment_jobs (
	id               BIGSERIAL PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'pending',
	total_records    INTEGER NOT NULL DEFAULT 0,
	processed        INTEGER NOT NULL DEFAULT 0,
	enriched         INTEGER NOT NULL DEFAULT 0,
	failed           INTEGER NOT NULL DEFAULT 0,
	current_business TEXT NOT NULL DEFAULT '',
	error_message    TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL DEFAULT 'database',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_contractors_category ON contractors(category);
CREATE INDEX IF NOT EXISTS idx_contractors_location ON contractors(location_searched);
CREATE INDEX IF NOT EXISTS idx_contractors_phone ON contractors(phone);
CREATE INDEX IF NOT EXISTS idx_contractors_email ON contractors(email);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_status ON enrichment_jobs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateContractor(ctx context.Context, c *model.Contractor) error {
	now := time.Now().UTC()
	urlsJSON, err := json.Marshal(c.EnrichmentSourceURLs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal source urls")
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO contractors
		 (name, owner_name, category, address, city, state, zip_code, phone, email, website,
		  linkedin_url, source, location_searched, enriched, enrichment_confidence,
		  enrichment_source_urls, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id`,
		c.Name, c.OwnerName, c.Category, c.Address, c.City, c.State, c.ZipCode,
		c.Phone, c.Email, c.Website, c.LinkedInURL, c.Source, c.LocationSearched,
		c.Enriched, c.EnrichmentConfidence, string(urlsJSON), now,
	).Scan(&c.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert contractor")
	}
	c.CreatedAt = now
	return nil
}

func (s *PostgresStore) GetContractor(ctx context.Context, id int64) (*model.Contractor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE id = $1`, id)
	c, err := scanContractor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get contractor %d", id)
	}
	return c, nil
}

func (s *PostgresStore) UpdateContractorFields(ctx context.Context, id int64, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	var set []string
	var args []any
	for col, val := range updates {
		if !mergeableColumns[col] {
			return eris.Errorf("postgres: column %q is not mergeable", col)
		}
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE contractors SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contractor %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contractor not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) ListContractors(ctx context.Context, filter ContractorFilter) ([]model.Contractor, int, error) {
	var where []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		where = append(where, fmt.Sprintf("location_searched ILIKE $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR address ILIKE $%d OR phone ILIKE $%d)", n, n, n))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM contractors`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "postgres: count contractors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM contractors%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			contractorColumns, whereSQL, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: list contractors")
	}
	defer rows.Close()

	contractors, err := collectPgContractors(rows)
	if err != nil {
		return nil, 0, err
	}
	return contractors, total, nil
}

func (s *PostgresStore) AllContractors(ctx context.Context) ([]model.Contractor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contractorColumns+` FROM contractors ORDER BY id ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: all contractors")
	}
	defer rows.Close()
	return collectPgContractors(rows)
}

func (s *PostgresStore) AllContractorsForExport(ctx context.Context) ([]model.Contractor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contractorColumns+` FROM contractors ORDER BY category, name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: contractors for export")
	}
	defer rows.Close()
	return collectPgContractors(rows)
}

func (s *PostgresStore) FindByNormalizedEmail(ctx context.Context, email string) (*model.Contractor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE LOWER(email) = $1 ORDER BY id ASC LIMIT 1`,
		email)
	c, err := scanContractor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find by email")
	}
	return c, nil
}

func (s *PostgresStore) FindByWebsiteDomain(ctx context.Context, domain string) ([]model.Contractor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE LOWER(website) LIKE $1 ORDER BY id ASC`,
		"%"+domain+"%")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find by website domain")
	}
	defer rows.Close()
	return collectPgContractors(rows)
}

func (s *PostgresStore) DeleteContractors(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM contractors WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete contractors")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ApplyReconciliation(ctx context.Context, merges []ReconcileMerge, remove []int64) (int, error) {
	if len(merges) == 0 && len(remove) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin reconciliation")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, m := range merges {
		if len(m.Updates) == 0 {
			continue
		}
		var set []string
		var args []any
		for col, val := range m.Updates {
			if !mergeableColumns[col] {
				return 0, eris.Errorf("postgres: column %q is not mergeable", col)
			}
			args = append(args, val)
			set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		args = append(args, m.ID)
		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`UPDATE contractors SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)),
			args...); err != nil {
			return 0, eris.Wrapf(err, "postgres: reconcile update %d", m.ID)
		}
	}

	var removed int
	if len(remove) > 0 {
		tag, err := tx.Exec(ctx,
			`DELETE FROM contractors WHERE id = ANY($1)`, remove)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: reconcile delete")
		}
		removed = int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit reconciliation")
	}
	return removed, nil
}

func (s *PostgresStore) DeleteContractorsByState(ctx context.Context, removeStates, keepStates []string) (int, error) {
	var query string
	var arg []string

	switch {
	case len(removeStates) > 0:
		query = `DELETE FROM contractors WHERE UPPER(state) = ANY($1)`
		arg = upperAll(removeStates)
	case len(keepStates) > 0:
		query = `DELETE FROM contractors WHERE UPPER(state) != ALL($1) OR state = ''`
		arg = upperAll(keepStates)
	default:
		return 0, eris.New("postgres: either removeStates or keepStates is required")
	}

	tag, err := s.pool.Exec(ctx, query, arg)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete contractors by state")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ContractorsForEnrichment(ctx context.Context, filter EnrichmentFilter) ([]model.Contractor, error) {
	var where []string
	var args []any

	if filter.OnlyMissing {
		where = append(where, "(owner_name = '' OR email = '')")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, strings.ToUpper(filter.State))
		where = append(where, fmt.Sprintf("UPPER(state) = $%d", len(args)))
	}

	query := `SELECT ` + contractorColumns + ` FROM contractors`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: contractors for enrichment")
	}
	defer rows.Close()
	return collectPgContractors(rows)
}

func (s *PostgresStore) ApplyEnrichment(ctx context.Context, id int64, update EnrichmentUpdate) error {
	now := time.Now().UTC()
	args := []any{now, update.Confidence}
	set := []string{"enriched = TRUE", "enriched_at = $1", "enrichment_confidence = $2"}

	if update.OwnerName != "" {
		args = append(args, update.OwnerName)
		set = append(set, fmt.Sprintf("owner_name = $%d", len(args)))
	}
	if update.Email != "" {
		args = append(args, update.Email)
		set = append(set, fmt.Sprintf("email = $%d", len(args)))
	}
	if update.LinkedInURL != "" {
		args = append(args, update.LinkedInURL)
		set = append(set, fmt.Sprintf("linkedin_url = $%d", len(args)))
	}
	if len(update.SourceURLs) > 0 {
		urls := update.SourceURLs
		if len(urls) > model.MaxEnrichmentSources {
			urls = urls[:model.MaxEnrichmentSources]
		}
		urlsJSON, err := json.Marshal(urls)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal source urls")
		}
		args = append(args, string(urlsJSON))
		set = append(set, fmt.Sprintf("enrichment_source_urls = $%d", len(args)))
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE contractors SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: apply enrichment %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contractor not found: %d", id)
	}
	return nil
}

// --- Collection jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, location string, categories []string) (*model.Job, error) {
	now := time.Now().UTC()
	job := &model.Job{
		Location:        location,
		Categories:      categories,
		Status:          model.JobStatusPending,
		TotalCategories: len(categories),
		CreatedAt:       now,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (location, categories, status, total_categories, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		location, strings.Join(categories, ","), string(model.JobStatusPending), len(categories), now,
	).Scan(&job.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}
	return job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %d", id)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id int64, update JobUpdate) error {
	var set []string
	var args []any

	if update.Status != nil {
		args = append(args, string(*update.Status))
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
		if update.Status.IsTerminal() {
			args = append(args, time.Now().UTC())
			set = append(set, fmt.Sprintf("completed_at = $%d", len(args)))
		}
	}
	if update.TotalFound != nil {
		args = append(args, *update.TotalFound)
		set = append(set, fmt.Sprintf("total_found = $%d", len(args)))
	}
	if update.Progress != nil {
		args = append(args, *update.Progress)
		set = append(set, fmt.Sprintf("progress = $%d", len(args)))
	}
	if update.CurrentCategory != nil {
		args = append(args, *update.CurrentCategory)
		set = append(set, fmt.Sprintf("current_category = $%d", len(args)))
	}
	if update.ErrorMessage != nil {
		args = append(args, *update.ErrorMessage)
		set = append(set, fmt.Sprintf("error_message = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete job %d", id)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Enrichment jobs ---

func (s *PostgresStore) CreateEnrichmentJob(ctx context.Context, totalRecords int, source string) (*model.EnrichmentJob, error) {
	now := time.Now().UTC()
	job := &model.EnrichmentJob{
		Status:       model.JobStatusPending,
		TotalRecords: totalRecords,
		Source:       source,
		CreatedAt:    now,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO enrichment_jobs (status, total_records, source, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		string(model.JobStatusPending), totalRecords, source, now,
	).Scan(&job.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert enrichment job")
	}
	return job, nil
}

func (s *PostgresStore) GetEnrichmentJob(ctx context.Context, id int64) (*model.EnrichmentJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+enrichmentJobColumns+` FROM enrichment_jobs WHERE id = $1`, id)
	j, err := scanEnrichmentJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get enrichment job %d", id)
	}
	return j, nil
}

func (s *PostgresStore) ListEnrichmentJobs(ctx context.Context, limit int) ([]model.EnrichmentJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+enrichmentJobColumns+` FROM enrichment_jobs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list enrichment jobs")
	}
	defer rows.Close()

	var jobs []model.EnrichmentJob
	for rows.Next() {
		j, err := scanEnrichmentJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan enrichment job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list enrichment jobs iterate")
}

func (s *PostgresStore) UpdateEnrichmentJob(ctx context.Context, id int64, update EnrichmentJobUpdate) error {
	var set []string
	var args []any

	if update.Status != nil {
		args = append(args, string(*update.Status))
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
		if update.Status.IsTerminal() {
			args = append(args, time.Now().UTC())
			set = append(set, fmt.Sprintf("completed_at = $%d", len(args)))
		}
	}
	if update.Processed != nil {
		args = append(args, *update.Processed)
		set = append(set, fmt.Sprintf("processed = $%d", len(args)))
	}
	if update.Enriched != nil {
		args = append(args, *update.Enriched)
		set = append(set, fmt.Sprintf("enriched = $%d", len(args)))
	}
	if update.Failed != nil {
		args = append(args, *update.Failed)
		set = append(set, fmt.Sprintf("failed = $%d", len(args)))
	}
	if update.CurrentBusiness != nil {
		args = append(args, *update.CurrentBusiness)
		set = append(set, fmt.Sprintf("current_business = $%d", len(args)))
	}
	if update.ErrorMessage != nil {
		args = append(args, *update.ErrorMessage)
		set = append(set, fmt.Sprintf("error_message = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE enrichment_jobs SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update enrichment job %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("enrichment job not found: %d", id)
	}
	return nil
}

// --- Aggregates ---

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
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
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrap(err, "postgres: stats")
		}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM contractors GROUP BY category`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats categories")
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category count")
		}
		st.CategoriesBreakdown[cat] = n
	}
	return st, eris.Wrap(rows.Err(), "postgres: stats iterate")
}

func (s *PostgresStore) EnrichmentStats(ctx context.Context) (*EnrichmentStats, error) {
	st := &EnrichmentStats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM contractors WHERE enriched`, &st.TotalEnriched},
		{`SELECT COUNT(*) FROM contractors WHERE linkedin_url != ''`, &st.WithLinkedIn},
		{`SELECT COUNT(*) FROM contractors WHERE owner_name = '' AND email = ''`, &st.NeedsEnrichment},
		{`SELECT COUNT(*) FROM enrichment_jobs WHERE status = 'running'`, &st.ActiveEnrichmentJobs},
	}
	for _, c := range counts {
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, eris.Wrap(err, "postgres: enrichment stats")
		}
	}

	var avg *float64
	if err := s.pool.QueryRow(ctx,
		`SELECT AVG(enrichment_confidence) FROM contractors WHERE enriched`).Scan(&avg); err != nil {
		return nil, eris.Wrap(err, "postgres: avg confidence")
	}
	if avg != nil {
		st.AvgConfidence = *avg
	}
	return st, nil
}

func (s *PostgresStore) AvailableLocations(ctx context.Context) (*LocationIndex, error) {
	idx := &LocationIndex{}

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT state FROM contractors WHERE state != '' ORDER BY state`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: distinct states")
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state")
		}
		idx.States = append(idx.States, state)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: states iterate")
	}

	cityRows, err := s.pool.Query(ctx,
		`SELECT DISTINCT city, state FROM contractors WHERE city != '' ORDER BY state, city`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: distinct cities")
	}
	defer cityRows.Close()
	for cityRows.Next() {
		var cs CityState
		if err := cityRows.Scan(&cs.City, &cs.State); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		idx.Cities = append(idx.Cities, cs)
	}
	return idx, eris.Wrap(cityRows.Err(), "postgres: cities iterate")
}

func (s *PostgresStore) RecoverOrphans(ctx context.Context) (int, error) {
	total := 0
	for _, table := range []string{"jobs", "enrichment_jobs"} {
		tag, err := s.pool.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET status = $1, error_message = $2, completed_at = $3
			 WHERE status IN ($4, $5)`, table),
			string(model.JobStatusFailed), model.OrphanedJobMessage, time.Now().UTC(),
			string(model.JobStatusPending), string(model.JobStatusRunning))
		if err != nil {
			return total, eris.Wrapf(err, "postgres: recover orphans in %s", table)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

// --- helpers ---

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func collectPgContractors(rows pgx.Rows) ([]model.Contractor, error) {
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
