// internal/infra/database/migrate.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Schema versions of the cycles table.
//
//	V1: {created_at, scheduled_at, completed_at?, notification_ref?, reminder_ref?}
//	V2: adds a unique uuid id
//	V3: id becomes plain text with a generated default
const (
	schemaV1 = 1
	schemaV2 = 2
	schemaV3 = 3

	// TargetSchemaVersion is the version the pipeline migrates to.
	TargetSchemaVersion = schemaV3
)

// migrationStage is one versioned transformation step, keyed by the version
// pair it bridges. Stages run in strictly increasing order inside their own
// transaction and are no-ops once the store is at or past their target.
type migrationStage struct {
	from, to int
	apply    func(ctx context.Context, tx *sql.Tx, db *DB) error
}

func migrationStages() []migrationStage {
	return []migrationStage{
		{from: 0, to: schemaV1, apply: stageCreateInitial},
		{from: schemaV1, to: schemaV2, apply: stageAddIdentifier},
		{from: schemaV2, to: schemaV3, apply: stageStringIdentifier},
	}
}

// Migrate runs the schema pipeline. It must be called once at store open,
// before any repository is used.
func (db *DB) Migrate(ctx context.Context, log *logrus.Logger) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return persistErr("init schema version table", err)
	}

	version, err := db.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, stage := range migrationStages() {
		if version >= stage.to {
			continue
		}
		if version != stage.from {
			return fmt.Errorf("schema version %d does not match migration stage %d->%d", version, stage.from, stage.to)
		}
		log.Infof("Migrating cycle store schema from v%d to v%d", stage.from, stage.to)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return persistErr("begin migration", err)
		}
		if err := stage.apply(ctx, tx, db); err != nil {
			tx.Rollback()
			return persistErr(fmt.Sprintf("migrate v%d to v%d", stage.from, stage.to), err)
		}
		if _, err := tx.ExecContext(ctx,
			db.rebind(`UPDATE schema_migrations SET version = ?`), stage.to); err != nil {
			tx.Rollback()
			return persistErr("record schema version", err)
		}
		if err := tx.Commit(); err != nil {
			return persistErr("commit migration", err)
		}
		version = stage.to
	}
	return nil
}

func (db *DB) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.ExecContext(ctx,
			db.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), 0); err != nil {
			return 0, persistErr("init schema version", err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, persistErr("read schema version", err)
	}
	return version, nil
}

func stageCreateInitial(ctx context.Context, tx *sql.Tx, db *DB) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE cycles (
		created_at       TEXT NOT NULL,
		scheduled_at     TEXT NOT NULL,
		completed_at     TEXT,
		notification_ref TEXT,
		reminder_ref     TEXT
	)`)
	return err
}

// v1Record carries raw stored values through a rebuild so every
// non-identifier field is preserved byte for byte.
type v1Record struct {
	createdAt       string
	scheduledAt     string
	completedAt     sql.NullString
	notificationRef sql.NullString
	reminderRef     sql.NullString
}

// stageAddIdentifier rebuilds the table with a synthesized unique id per
// record. Target rows are written and counted before the source table is
// dropped, so an interruption can never lose records.
func stageAddIdentifier(ctx context.Context, tx *sql.Tx, db *DB) error {
	idType := "TEXT"
	if db.driver == DriverPostgres {
		idType = "UUID"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE cycles_v2 (
		id               %s PRIMARY KEY,
		created_at       TEXT NOT NULL,
		scheduled_at     TEXT NOT NULL,
		completed_at     TEXT,
		notification_ref TEXT,
		reminder_ref     TEXT
	)`, idType)); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT created_at, scheduled_at, completed_at, notification_ref, reminder_ref FROM cycles`)
	if err != nil {
		return err
	}
	var records []v1Record
	for rows.Next() {
		var rec v1Record
		if err := rows.Scan(&rec.createdAt, &rec.scheduledAt, &rec.completedAt,
			&rec.notificationRef, &rec.reminderRef); err != nil {
			rows.Close()
			return err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	insert := db.rebind(`INSERT INTO cycles_v2 (id, created_at, scheduled_at, completed_at, notification_ref, reminder_ref)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(),
			rec.createdAt, rec.scheduledAt, nullStr(rec.completedAt),
			nullStr(rec.notificationRef), nullStr(rec.reminderRef)); err != nil {
			return err
		}
	}

	if err := verifyCount(ctx, tx, "cycles_v2", len(records)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE cycles`); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE cycles_v2 RENAME TO cycles`)
	return err
}

// stageStringIdentifier changes the identifier representation to a plain
// string, generating a default for any record lacking one. All other fields
// pass through unchanged.
func stageStringIdentifier(ctx context.Context, tx *sql.Tx, db *DB) error {
	if _, err := tx.ExecContext(ctx, `CREATE TABLE cycles_v3 (
		id               TEXT PRIMARY KEY,
		created_at       TEXT NOT NULL,
		scheduled_at     TEXT NOT NULL,
		completed_at     TEXT,
		notification_ref TEXT,
		reminder_ref     TEXT
	)`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, created_at, scheduled_at, completed_at, notification_ref, reminder_ref FROM cycles`)
	if err != nil {
		return err
	}
	type v2Record struct {
		id  sql.NullString
		rec v1Record
	}
	var records []v2Record
	for rows.Next() {
		var r v2Record
		if err := rows.Scan(&r.id, &r.rec.createdAt, &r.rec.scheduledAt, &r.rec.completedAt,
			&r.rec.notificationRef, &r.rec.reminderRef); err != nil {
			rows.Close()
			return err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	insert := db.rebind(`INSERT INTO cycles_v3 (id, created_at, scheduled_at, completed_at, notification_ref, reminder_ref)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, r := range records {
		id := r.id.String
		if !r.id.Valid || id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, insert, id,
			r.rec.createdAt, r.rec.scheduledAt, nullStr(r.rec.completedAt),
			nullStr(r.rec.notificationRef), nullStr(r.rec.reminderRef)); err != nil {
			return err
		}
	}

	if err := verifyCount(ctx, tx, "cycles_v3", len(records)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE cycles`); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE cycles_v3 RENAME TO cycles`)
	return err
}

func verifyCount(ctx context.Context, tx *sql.Tx, table string, want int) error {
	var got int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&got); err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("migration wrote %d records to %s, expected %d", got, table, want)
	}
	return nil
}
