package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const evalsSchema = `
CREATE TABLE IF NOT EXISTS evals (
	run                      TEXT    NOT NULL,
	eval                     INTEGER NOT NULL,
	fitness                  REAL    NOT NULL,
	density_mean             REAL    NOT NULL,
	density_std              REAL    NOT NULL,
	kinetic_energy           REAL    NOT NULL,
	target_density           REAL    NOT NULL,
	pressure_multiplier      REAL    NOT NULL,
	near_pressure_multiplier REAL    NOT NULL,
	collision_damping        REAL    NOT NULL,
	PRIMARY KEY (run, eval)
)`

// ResultsDB stores every evaluation of every tuning run so runs can be
// compared after the fact.
type ResultsDB struct {
	db     *sql.DB
	insert *sql.Stmt
	run    string
}

// OpenResultsDB opens or creates the results database at path. Rows written
// through it are tagged with run.
func OpenResultsDB(path, run string) (*ResultsDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results db %s: %w", path, err)
	}
	if _, err := db.Exec(evalsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create evals table: %w", err)
	}
	insert, err := db.Prepare(`
		INSERT INTO evals (run, eval, fitness, density_mean, density_std, kinetic_energy,
			target_density, pressure_multiplier, near_pressure_multiplier, collision_damping)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &ResultsDB{db: db, insert: insert, run: run}, nil
}

// Insert stores one evaluation.
func (r *ResultsDB) Insert(rec EvalRecord) error {
	_, err := r.insert.Exec(r.run, rec.Eval, rec.Fitness, rec.DensityMean, rec.DensityStd, rec.KineticEnergy,
		rec.TargetDensity, rec.PressureMultiplier, rec.NearPressureMultiplier, rec.CollisionDamping)
	if err != nil {
		return fmt.Errorf("insert eval %d: %w", rec.Eval, err)
	}
	return nil
}

// Best returns the lowest-fitness evaluation of the current run.
func (r *ResultsDB) Best() (EvalRecord, error) {
	var rec EvalRecord
	err := r.db.QueryRow(`
		SELECT eval, fitness, density_mean, density_std, kinetic_energy,
			target_density, pressure_multiplier, near_pressure_multiplier, collision_damping
		FROM evals WHERE run = ? ORDER BY fitness ASC LIMIT 1`, r.run).Scan(
		&rec.Eval, &rec.Fitness, &rec.DensityMean, &rec.DensityStd, &rec.KineticEnergy,
		&rec.TargetDensity, &rec.PressureMultiplier, &rec.NearPressureMultiplier, &rec.CollisionDamping)
	if err != nil {
		return EvalRecord{}, fmt.Errorf("query best eval: %w", err)
	}
	return rec, nil
}

// Close releases the database.
func (r *ResultsDB) Close() error {
	r.insert.Close()
	return r.db.Close()
}
