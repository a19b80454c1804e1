package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/teamplan/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Organization CRUD ---

func (s *SQLiteStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	s.logger.Debug("sql", "op", "insert", "table", "organizations", "id", org.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		org.ID, org.Name, org.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	s.logger.Debug("sql", "op", "select", "table", "organizations", "id", id)

	var org model.Organization
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = ?`, id,
	).Scan(&org.ID, &org.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	org.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &org, nil
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context) ([]*model.Organization, error) {
	s.logger.Debug("sql", "op", "select", "table", "organizations")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []*model.Organization{}
	for rows.Next() {
		var org model.Organization
		var createdAt string
		if err := rows.Scan(&org.ID, &org.Name, &createdAt); err != nil {
			return nil, err
		}
		org.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

// --- Project CRUD ---

func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	s.logger.Debug("sql", "op", "insert", "table", "projects", "id", p.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, org_id, name, status, health, type, scale, start_date, end_date, original_end_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrgID, p.Name, string(p.Status), string(p.Health), p.Type, p.Scale,
		dateArg(p.StartDate), dateArg(p.EndDate), dateArg(p.OriginalEndDate),
		p.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	s.logger.Debug("sql", "op", "select", "table", "projects", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, status, health, type, scale, start_date, end_date, original_end_date, created_at
		 FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) ListProjects(ctx context.Context, orgID string) ([]*model.Project, error) {
	s.logger.Debug("sql", "op", "select", "table", "projects", "org_id", orgID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, name, status, health, type, scale, start_date, end_date, original_end_date, created_at
		 FROM projects WHERE org_id = ? ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, p *model.Project) error {
	s.logger.Debug("sql", "op", "update", "table", "projects", "id", p.ID)
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, status = ?, health = ?, type = ?, scale = ?,
		 start_date = ?, end_date = ?, original_end_date = ? WHERE id = ?`,
		p.Name, string(p.Status), string(p.Health), p.Type, p.Scale,
		dateArg(p.StartDate), dateArg(p.EndDate), dateArg(p.OriginalEndDate), p.ID,
	)
	return err
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "projects", "id", id)
	// Tasks belong to their project; remove them with it.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

// --- Task CRUD ---

const taskColumns = `id, org_id, project_id, title, status, assignee_id, estimate, actual,
	start_date, end_date, predecessor_id, linked_initiative_id, value_saved, created_at`

func (s *SQLiteStore) CreateTask(ctx context.Context, t *model.Task) error {
	s.logger.Debug("sql", "op", "insert", "table", "tasks", "id", t.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrgID, t.ProjectID, t.Title, string(t.Status), t.AssigneeID,
		intArg(t.Estimate), t.Actual, dateArg(t.StartDate), dateArg(t.EndDate),
		t.PredecessorID, t.LinkedInitiativeID, intArg(t.ValueSaved),
		t.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	s.logger.Debug("sql", "op", "select", "table", "tasks", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *SQLiteStore) ListTasks(ctx context.Context, orgID, projectID string) ([]*model.Task, error) {
	s.logger.Debug("sql", "op", "select", "table", "tasks", "org_id", orgID, "project_id", projectID)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE org_id = ?`
	args := []any{orgID}
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t *model.Task) error {
	s.logger.Debug("sql", "op", "update", "table", "tasks", "id", t.ID)
	_, err := s.db.ExecContext(ctx, taskUpdateSQL, taskUpdateArgs(t)...)
	return err
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "tasks", "id", id)
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) UnassignedTasks(ctx context.Context, orgID string) ([]*model.Task, error) {
	s.logger.Debug("sql", "op", "select", "table", "tasks", "filter", "unassigned", "org_id", orgID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE org_id = ? AND assignee_id = '' AND status != ?
		 ORDER BY rowid`,
		orgID, string(model.TaskStatusCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SQLiteStore) Successors(ctx context.Context, taskID string) ([]*model.Task, error) {
	s.logger.Debug("sql", "op", "select", "table", "tasks", "filter", "successors", "task_id", taskID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE predecessor_id = ? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SQLiteStore) CommitTasks(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "commit", "table", "tasks", "count", len(tasks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx, taskUpdateSQL, taskUpdateArgs(t)...); err != nil {
			return fmt.Errorf("commit task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

const taskUpdateSQL = `UPDATE tasks SET title = ?, status = ?, assignee_id = ?, estimate = ?,
	actual = ?, start_date = ?, end_date = ?, predecessor_id = ?, linked_initiative_id = ?,
	value_saved = ? WHERE id = ?`

func taskUpdateArgs(t *model.Task) []any {
	return []any{
		t.Title, string(t.Status), t.AssigneeID, intArg(t.Estimate), t.Actual,
		dateArg(t.StartDate), dateArg(t.EndDate), t.PredecessorID,
		t.LinkedInitiativeID, intArg(t.ValueSaved), t.ID,
	}
}

// --- Resource CRUD ---

func (s *SQLiteStore) CreateResource(ctx context.Context, r *model.Resource) error {
	s.logger.Debug("sql", "op", "insert", "table", "resources", "id", r.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resources (id, name, email, team, capacity, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Email, r.Team, r.Capacity, boolArg(r.Active),
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	s.logger.Debug("sql", "op", "select", "table", "resources", "id", id)

	var r model.Resource
	var active int
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, team, capacity, active, created_at FROM resources WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Email, &r.Team, &r.Capacity, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Active = active != 0
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

func (s *SQLiteStore) ListResources(ctx context.Context, orgID string) ([]*model.Resource, error) {
	s.logger.Debug("sql", "op", "select", "table", "resources", "org_id", orgID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.email, r.team, r.capacity, r.active, r.created_at
		 FROM resources r
		 JOIN affiliations a ON a.resource_id = r.id
		 WHERE a.org_id = ?
		 ORDER BY r.name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := []*model.Resource{}
	for rows.Next() {
		var r model.Resource
		var active int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Team, &r.Capacity, &active, &createdAt); err != nil {
			return nil, err
		}
		r.Active = active != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		resources = append(resources, &r)
	}
	return resources, rows.Err()
}

func (s *SQLiteStore) UpdateResource(ctx context.Context, r *model.Resource) error {
	s.logger.Debug("sql", "op", "update", "table", "resources", "id", r.ID)
	_, err := s.db.ExecContext(ctx,
		`UPDATE resources SET name = ?, email = ?, team = ?, capacity = ?, active = ? WHERE id = ?`,
		r.Name, r.Email, r.Team, r.Capacity, boolArg(r.Active), r.ID,
	)
	return err
}

func (s *SQLiteStore) DeleteResource(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "resources", "id", id)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM affiliations WHERE resource_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) CreateAffiliation(ctx context.Context, a *model.Affiliation) error {
	s.logger.Debug("sql", "op", "insert", "table", "affiliations", "id", a.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO affiliations (id, resource_id, org_id, is_primary, allocation_percent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.ResourceID, a.OrgID, boolArg(a.Primary), a.AllocationPercent,
		a.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListAffiliations(ctx context.Context, orgID string) ([]*model.Affiliation, error) {
	s.logger.Debug("sql", "op", "select", "table", "affiliations", "org_id", orgID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, resource_id, org_id, is_primary, allocation_percent, created_at
		 FROM affiliations WHERE org_id = ? ORDER BY rowid`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	affs := []*model.Affiliation{}
	for rows.Next() {
		var a model.Affiliation
		var primary int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.ResourceID, &a.OrgID, &primary, &a.AllocationPercent, &createdAt); err != nil {
			return nil, err
		}
		a.Primary = primary != 0
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		affs = append(affs, &a)
	}
	return affs, rows.Err()
}

func (s *SQLiteStore) ActiveResourceAssignments(ctx context.Context) ([]model.ResourceAssignment, error) {
	s.logger.Debug("sql", "op", "select", "table", "resources", "filter", "active_assignments")

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.email, r.team, r.capacity, r.active, r.created_at,
		        a.id, a.org_id, a.is_primary, a.allocation_percent, a.created_at,
		        COALESCE((SELECT SUM(COALESCE(t.estimate, 0)) FROM tasks t WHERE t.assignee_id = r.id), 0)
		 FROM resources r
		 JOIN affiliations a ON a.resource_id = r.id
		 WHERE r.active = 1
		 ORDER BY a.rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []model.ResourceAssignment{}
	for rows.Next() {
		var ra model.ResourceAssignment
		var active, primary int
		var rCreated, aCreated string
		if err := rows.Scan(
			&ra.Resource.ID, &ra.Resource.Name, &ra.Resource.Email, &ra.Resource.Team,
			&ra.Resource.Capacity, &active, &rCreated,
			&ra.Affiliation.ID, &ra.Affiliation.OrgID, &primary,
			&ra.Affiliation.AllocationPercent, &aCreated,
			&ra.UsedHours,
		); err != nil {
			return nil, err
		}
		ra.Resource.Active = active != 0
		ra.Resource.CreatedAt, _ = time.Parse(time.RFC3339Nano, rCreated)
		ra.Affiliation.ResourceID = ra.Resource.ID
		ra.Affiliation.Primary = primary != 0
		ra.Affiliation.CreatedAt, _ = time.Parse(time.RFC3339Nano, aCreated)
		assignments = append(assignments, ra)
	}
	return assignments, rows.Err()
}

// --- Initiative CRUD ---

func (s *SQLiteStore) CreateInitiative(ctx context.Context, in *model.Initiative) error {
	s.logger.Debug("sql", "op", "insert", "table", "initiatives", "id", in.ID)

	metricsJSON, err := json.Marshal(in.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO initiatives (id, org_id, name, status, metrics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.OrgID, in.Name, in.Status, string(metricsJSON),
		in.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ListInitiatives(ctx context.Context, orgID string) ([]*model.Initiative, error) {
	s.logger.Debug("sql", "op", "select", "table", "initiatives", "org_id", orgID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, name, status, metrics, created_at
		 FROM initiatives WHERE org_id = ? ORDER BY name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	initiatives := []*model.Initiative{}
	for rows.Next() {
		var in model.Initiative
		var metricsJSON, createdAt string
		if err := rows.Scan(&in.ID, &in.OrgID, &in.Name, &in.Status, &metricsJSON, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(metricsJSON), &in.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics for %s: %w", in.ID, err)
		}
		in.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		initiatives = append(initiatives, &in)
	}
	return initiatives, rows.Err()
}

// --- User CRUD ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	s.logger.Debug("sql", "op", "insert", "table", "users", "id", u.ID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, org_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.OrgID, string(u.Role),
		u.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.logger.Debug("sql", "op", "select", "table", "users", "email", email)

	var u model.User
	var role, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, org_id, role, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.OrgID, &role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = model.UserRole(role)
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &u, nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var status, health string
	var start, end, origEnd sql.NullString
	var createdAt string
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &status, &health, &p.Type, &p.Scale,
		&start, &end, &origEnd, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.ProjectStatus(status)
	p.Health = model.ProjectHealth(health)
	p.StartDate = parseDateCol(start)
	p.EndDate = parseDateCol(end)
	p.OriginalEndDate = parseDateCol(origEnd)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &p, nil
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	var status string
	var estimate, valueSaved sql.NullInt64
	var start, end sql.NullString
	var createdAt string
	err := row.Scan(&t.ID, &t.OrgID, &t.ProjectID, &t.Title, &status, &t.AssigneeID,
		&estimate, &t.Actual, &start, &end, &t.PredecessorID, &t.LinkedInitiativeID,
		&valueSaved, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.Estimate = parseIntCol(estimate)
	t.ValueSaved = parseIntCol(valueSaved)
	t.StartDate = parseDateCol(start)
	t.EndDate = parseDateCol(end)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]*model.Task, error) {
	tasks := []*model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func parseDateCol(col sql.NullString) *model.Date {
	if !col.Valid || col.String == "" {
		return nil
	}
	d, err := model.ParseDate(col.String)
	if err != nil {
		return nil
	}
	return &d
}

func parseIntCol(col sql.NullInt64) *int {
	if !col.Valid {
		return nil
	}
	v := int(col.Int64)
	return &v
}

func dateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}
