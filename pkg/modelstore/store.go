package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/atmosense/mcmix/pkg/mcm"
)

// SetupSchema initializes the necessary tables in the provided database.
// This function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS mcm_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    bins INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    min_value REAL NOT NULL,
    max_value REAL NOT NULL
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS mcm_transitions (
    model_id INTEGER NOT NULL,
    from_state INTEGER NOT NULL,
    to_state INTEGER NOT NULL,
    prob REAL NOT NULL,
    PRIMARY KEY (model_id, from_state, to_state)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaTransitions); err != nil {
		return fmt.Errorf("could not create transitions schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Info holds the stored metadata for a fitted model, without its
// transition matrix.
type Info struct {
	Id    int
	Name  string
	Bins  int
	Steps int
	Min   float64
	Max   float64
}

// Store is the entry point for persisting and loading fitted models.
// It holds the database connection and prepared SQL statements for
// efficient database interaction.
type Store struct {
	db                 *sql.DB
	stmtGetModel       *sql.Stmt
	stmtListModels     *sql.Stmt
	stmtAddModel       *sql.Stmt
	stmtGetTransitions *sql.Stmt
	logger             *slog.Logger
}

// New creates and returns a new Store on top of an initialized database
// (see SetupSchema). It pre-compiles all necessary SQL statements,
// returning an error if any preparation fails.
func New(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, bins, steps, min_value, max_value FROM mcm_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListModels, err := db.Prepare(`SELECT model_id, model_name, bins, steps, min_value, max_value FROM mcm_models;`)
	if err != nil {
		return nil, err
	}

	stmtAddModel, err := db.Prepare(`
INSERT INTO mcm_models (model_name, bins, steps, min_value, max_value) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(model_name) DO UPDATE SET bins=excluded.bins, steps=excluded.steps, min_value=excluded.min_value, max_value=excluded.max_value
RETURNING model_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetTransitions, err := db.Prepare(`SELECT from_state, to_state, prob FROM mcm_transitions WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                 db,
		stmtGetModel:       stmtGetModel,
		stmtListModels:     stmtListModels,
		stmtAddModel:       stmtAddModel,
		stmtGetTransitions: stmtGetTransitions,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It
// should be called when the Store is no longer needed to free up
// database resources.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtListModels.Close()
	_ = s.stmtAddModel.Close()
	_ = s.stmtGetTransitions.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded. Providing a `log/slog.Logger` enables logging for save,
// load, and delete operations.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// List retrieves the metadata of all stored models, returned in a map
// keyed by model name.
func (s *Store) List(ctx context.Context) (map[string]Info, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	models := make(map[string]Info)
	for rows.Next() {
		var info Info
		if err = rows.Scan(&info.Id, &info.Name, &info.Bins, &info.Steps, &info.Min, &info.Max); err != nil {
			return nil, err
		}
		models[info.Name] = info
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Save writes a fitted model to the database under its name, replacing
// any previously stored model of the same name. Only non-zero matrix
// entries are stored; all-zero rows survive round-trips implicitly. The
// operation is performed within a transaction.
func (s *Store) Save(ctx context.Context, m *mcm.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	stmtAddModel := tx.StmtContext(ctx, s.stmtAddModel)
	if err = stmtAddModel.QueryRowContext(ctx, m.Name, m.Bins, m.Steps, m.Min, m.Max).Scan(&modelID); err != nil {
		return fmt.Errorf("failed to upsert model '%s': %w", m.Name, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM mcm_transitions WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to clear transitions for model %d: %w", modelID, err)
	}

	stmtInsert, err := tx.PrepareContext(ctx, `INSERT INTO mcm_transitions (model_id, from_state, to_state, prob) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare transition insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsert)

	var stored int
	for i := 0; i < m.Bins; i++ {
		for j := 0; j < m.Bins; j++ {
			prob := m.P.At(i, j)
			if prob == 0 {
				continue
			}
			if _, err = stmtInsert.ExecContext(ctx, modelID, i, j, prob); err != nil {
				return fmt.Errorf("failed to insert transition (%d -> %d): %w", i, j, err)
			}
			stored++
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", m.Name),
		slog.Int("model_id", modelID),
		slog.Int("bins", m.Bins),
		slog.Int("transitions_stored", stored),
	)

	return tx.Commit()
}

// Get loads a stored model by name and reconstructs its transition
// matrix. It returns sql.ErrNoRows if no model with that name exists.
func (s *Store) Get(ctx context.Context, name string) (*mcm.Model, error) {
	var info Info
	info.Name = name
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&info.Id, &info.Bins, &info.Steps, &info.Min, &info.Max)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetTransitions.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	p := mat.NewDense(info.Bins, info.Bins, nil)
	for rows.Next() {
		var from, to int
		var prob float64
		if err = rows.Scan(&from, &to, &prob); err != nil {
			return nil, err
		}
		if from < 0 || from >= info.Bins || to < 0 || to >= info.Bins {
			return nil, fmt.Errorf("model '%s' has out-of-range transition (%d -> %d) for %d bins", name, from, to, info.Bins)
		}
		p.Set(from, to, prob)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return &mcm.Model{
		Name:  info.Name,
		Bins:  info.Bins,
		Steps: info.Steps,
		Min:   info.Min,
		Max:   info.Max,
		P:     p,
	}, nil
}

// Delete removes a stored model and all of its transition data. The
// operation is performed within a transaction. Deleting a model that
// does not exist is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.QueryRowContext(ctx, "SELECT model_id FROM mcm_models WHERE model_name = ?", name).Scan(&modelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM mcm_transitions WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove transitions for model %d: %w", modelID, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM mcm_models WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", modelID, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
	)

	return tx.Commit()
}
