// Package store archives finished journeys and custom persona templates in
// PostgreSQL. The archive is optional at runtime; everything else in the CLI
// works without a database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound marks lookups of journeys or personas that were never saved.
var ErrNotFound = errors.New("not found")

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL journey archive.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// schemaStatements are executed one by one so the driver never needs
// multi-statement support.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS journeys (
		id               TEXT PRIMARY KEY,
		persona          TEXT NOT NULL,
		goal             TEXT NOT NULL,
		start_url        TEXT NOT NULL,
		seed             BIGINT NOT NULL,
		reason           TEXT NOT NULL,
		goal_reached     BOOLEAN NOT NULL,
		step_count       INTEGER NOT NULL,
		sim_duration_sec DOUBLE PRECISION NOT NULL,
		result           JSONB NOT NULL,
		started_at       TIMESTAMPTZ NOT NULL,
		finished_at      TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS journey_steps (
		journey_id  TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		url         TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		decision    TEXT NOT NULL,
		action      TEXT NOT NULL,
		target_ref  TEXT NOT NULL,
		retries     INTEGER NOT NULL,
		sim_seconds DOUBLE PRECISION NOT NULL,
		state       JSONB NOT NULL,
		PRIMARY KEY (journey_id, idx)
	);`,
	`CREATE TABLE IF NOT EXISTS personas (
		name        TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		traits      JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS journeys_started_at_idx ON journeys (started_at DESC);`,
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensuring schema: %w", err)
		}
	}
	return nil
}

const sqlUpsertJourney = `
	INSERT INTO journeys (id, persona, goal, start_url, seed, reason, goal_reached, step_count, sim_duration_sec, result, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		reason = EXCLUDED.reason,
		goal_reached = EXCLUDED.goal_reached,
		step_count = EXCLUDED.step_count,
		sim_duration_sec = EXCLUDED.sim_duration_sec,
		result = EXCLUDED.result,
		finished_at = EXCLUDED.finished_at;
`

const sqlDeleteSteps = `DELETE FROM journey_steps WHERE journey_id = $1;`

var stepColumns = []string{"journey_id", "idx", "url", "fingerprint", "decision", "action", "target_ref", "retries", "sim_seconds", "state"}

// SaveResult archives one finished journey: the full result as JSONB plus a
// step row per decision cycle for queryability. Saving the same journey ID
// again replaces the previous record, so deterministic replays stay
// idempotent.
func (s *Store) SaveResult(ctx context.Context, res *schemas.JourneyResult) error {
	if res == nil || res.JourneyID == "" {
		return fmt.Errorf("store: result must carry a journey ID")
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("store: encoding journey %s: %w", res.JourneyID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Error("failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	_, err = tx.Exec(ctx, sqlUpsertJourney,
		res.JourneyID, res.Persona, res.Goal, res.StartURL, res.Seed,
		string(res.Reason), res.GoalReached, len(res.Steps), res.SimDuration,
		raw, res.StartedAt.UTC(), res.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: upserting journey %s: %w", res.JourneyID, err)
	}

	if _, err := tx.Exec(ctx, sqlDeleteSteps, res.JourneyID); err != nil {
		return fmt.Errorf("store: clearing steps for %s: %w", res.JourneyID, err)
	}

	if len(res.Steps) > 0 {
		rows := make([][]interface{}, len(res.Steps))
		for i, step := range res.Steps {
			state, err := json.Marshal(step.State)
			if err != nil {
				return fmt.Errorf("store: encoding step %d state: %w", step.Index, err)
			}
			targetRef := ""
			if step.Decision.Target != nil {
				targetRef = step.Decision.Target.Ref
			}
			rows[i] = []interface{}{
				res.JourneyID, step.Index, step.URL, step.Fingerprint,
				string(step.Decision.Kind), string(step.Decision.Action), targetRef,
				step.Retries, step.Decision.SimSeconds, state,
			}
		}

		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"journey_steps"}, stepColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("store: copying steps for %s: %w", res.JourneyID, err)
		}
		if int(copied) != len(res.Steps) {
			return fmt.Errorf("store: copied %d of %d steps for %s", copied, len(res.Steps), res.JourneyID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: committing journey %s: %w", res.JourneyID, err)
	}

	s.log.Info("journey archived",
		zap.String("journeyID", res.JourneyID),
		zap.String("persona", res.Persona),
		zap.String("reason", string(res.Reason)),
		zap.Int("steps", len(res.Steps)),
	)
	return nil
}

const sqlGetJourney = `SELECT result FROM journeys WHERE id = $1;`

// GetResult loads one archived journey by ID.
func (s *Store) GetResult(ctx context.Context, journeyID string) (*schemas.JourneyResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, sqlGetJourney, journeyID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: journey %q", ErrNotFound, journeyID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading journey %s: %w", journeyID, err)
	}

	var res schemas.JourneyResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("store: decoding journey %s: %w", journeyID, err)
	}
	return &res, nil
}

// Summary is the listing row for an archived journey.
type Summary struct {
	JourneyID   string                    `json:"journey_id"`
	Persona     string                    `json:"persona"`
	Goal        string                    `json:"goal"`
	Reason      schemas.TerminationReason `json:"reason"`
	GoalReached bool                      `json:"goal_reached"`
	Steps       int                       `json:"steps"`
	SimDuration float64                   `json:"sim_duration_sec"`
	StartedAt   time.Time                 `json:"started_at"`
}

const sqlListJourneys = `
	SELECT id, persona, goal, reason, goal_reached, step_count, sim_duration_sec, started_at
	FROM journeys
	ORDER BY started_at DESC
	LIMIT $1;
`

const defaultListLimit = 50

// ListResults returns the most recent journeys, newest first.
func (s *Store) ListResults(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx, sqlListJourneys, limit)
	if err != nil {
		return nil, fmt.Errorf("store: listing journeys: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var reason string
		if err := rows.Scan(&sum.JourneyID, &sum.Persona, &sum.Goal, &reason,
			&sum.GoalReached, &sum.Steps, &sum.SimDuration, &sum.StartedAt); err != nil {
			return nil, fmt.Errorf("store: scanning journey row: %w", err)
		}
		sum.Reason = schemas.TerminationReason(reason)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating journey rows: %w", err)
	}
	return out, nil
}

const sqlUpsertPersona = `
	INSERT INTO personas (name, description, traits, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (name) DO UPDATE SET
		description = EXCLUDED.description,
		traits = EXCLUDED.traits,
		updated_at = EXCLUDED.updated_at;
`

// SavePersona stores or replaces a custom persona template.
func (s *Store) SavePersona(ctx context.Context, tpl schemas.PersonaTemplate) error {
	if tpl.Name == "" {
		return fmt.Errorf("store: persona template must carry a name")
	}
	traits, err := json.Marshal(tpl.Traits)
	if err != nil {
		return fmt.Errorf("store: encoding persona %q: %w", tpl.Name, err)
	}
	if _, err := s.pool.Exec(ctx, sqlUpsertPersona, tpl.Name, tpl.Description, traits, time.Now().UTC()); err != nil {
		return fmt.Errorf("store: saving persona %q: %w", tpl.Name, err)
	}
	s.log.Info("persona saved", zap.String("persona", tpl.Name))
	return nil
}

const sqlGetPersona = `SELECT description, traits FROM personas WHERE name = $1;`

// GetPersona loads one stored persona template by name.
func (s *Store) GetPersona(ctx context.Context, name string) (schemas.PersonaTemplate, error) {
	var (
		description string
		raw         []byte
	)
	err := s.pool.QueryRow(ctx, sqlGetPersona, name).Scan(&description, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return schemas.PersonaTemplate{}, fmt.Errorf("%w: persona %q", ErrNotFound, name)
	}
	if err != nil {
		return schemas.PersonaTemplate{}, fmt.Errorf("store: loading persona %q: %w", name, err)
	}

	tpl := schemas.PersonaTemplate{Name: name, Description: description}
	if err := json.Unmarshal(raw, &tpl.Traits); err != nil {
		return schemas.PersonaTemplate{}, fmt.Errorf("store: decoding persona %q: %w", name, err)
	}
	return tpl, nil
}

const sqlListPersonas = `SELECT name, description, traits FROM personas ORDER BY name;`

// ListPersonas returns all stored persona templates, sorted by name.
func (s *Store) ListPersonas(ctx context.Context) ([]schemas.PersonaTemplate, error) {
	rows, err := s.pool.Query(ctx, sqlListPersonas)
	if err != nil {
		return nil, fmt.Errorf("store: listing personas: %w", err)
	}
	defer rows.Close()

	var out []schemas.PersonaTemplate
	for rows.Next() {
		var (
			tpl schemas.PersonaTemplate
			raw []byte
		)
		if err := rows.Scan(&tpl.Name, &tpl.Description, &raw); err != nil {
			return nil, fmt.Errorf("store: scanning persona row: %w", err)
		}
		if err := json.Unmarshal(raw, &tpl.Traits); err != nil {
			return nil, fmt.Errorf("store: decoding persona %q: %w", tpl.Name, err)
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating persona rows: %w", err)
	}
	return out, nil
}

const sqlDeletePersona = `DELETE FROM personas WHERE name = $1;`

// DeletePersona removes a stored persona template.
func (s *Store) DeletePersona(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, sqlDeletePersona, name)
	if err != nil {
		return fmt.Errorf("store: deleting persona %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: persona %q", ErrNotFound, name)
	}
	s.log.Info("persona deleted", zap.String("persona", name))
	return nil
}
