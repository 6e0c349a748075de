package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SQLInventoryRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewSQLInventoryRepository(db, DialectPostgres)
}

func TestGetOrganization_Success(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"organization_id", "name", "has_floors", "created_at"}).
		AddRow("org-1", "Hospital", true, created)
	mock.ExpectQuery(`SELECT organization_id, name, has_floors, created_at`).
		WithArgs("org-1").
		WillReturnRows(rows)

	org, err := repo.GetOrganization(context.Background(), "org-1")

	require.NoError(t, err)
	assert.Equal(t, "Hospital", org.Name)
	assert.True(t, org.HasFloors)
	assert.Equal(t, created, org.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganization_NotFound(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT organization_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	org, err := repo.GetOrganization(context.Background(), "missing")

	assert.Nil(t, org)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEquipment_NullableColumns(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"equipment_id", "inv_code", "name", "category", "brand", "model", "serial_number", "color",
		"purchase_date", "price", "status", "quantity_note", "user_note", "description", "room_id",
		"created_at", "updated_at",
	}).AddRow(
		"eq-1", "HOS-ICU-0001", "Monitor", "Medical", nil, "X1", nil, nil,
		nil, "1250.50", "Active", nil, nil, nil, "room-1",
		now, now,
	)
	mock.ExpectQuery(`SELECT equipment_id, inv_code`).
		WithArgs("eq-1").
		WillReturnRows(rows)

	eq, err := repo.GetEquipment(context.Background(), "eq-1")

	require.NoError(t, err)
	assert.Equal(t, "HOS-ICU-0001", eq.InvCode)
	assert.Equal(t, "", eq.Brand)
	assert.Equal(t, "X1", eq.Model)
	assert.False(t, eq.PurchaseDate.Valid)
	require.True(t, eq.Price.Valid)
	assert.Equal(t, "1250.5", eq.Price.Decimal.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEquipment_UniqueViolationIsConflict(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO equipment`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		_, err := tx.CreateEquipment(context.Background(), &domain.Equipment{
			InvCode:  "HOS-ICU-0001",
			Name:     "Monitor",
			Category: "Medical",
			RoomID:   "room-1",
		})
		return err
	})

	assert.True(t, errors.Is(err, domain.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE rooms SET code_seq = code_seq + 1 WHERE room_id = $1`)).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT code_seq FROM rooms WHERE room_id = $1`)).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"code_seq"}).AddRow(4))
	mock.ExpectCommit()

	var seq int
	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		var err error
		seq, err = tx.NextRoomSeq(context.Background(), "room-1")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 4, seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE equipment SET room_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("history insert failed")
	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		if err := tx.SetEquipmentRoom(context.Background(), "eq-1", "room-2"); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNextRoomSeq_UnknownRoom(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE rooms SET code_seq`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		_, err := tx.NextRoomSeq(context.Background(), "nope")
		return err
	})

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTransferHistoryByRooms_MatchesEitherEnd(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`DELETE FROM transfer_history WHERE from_room_id IN ($1,$2) OR to_room_id IN ($3,$4)`)).
		WithArgs("r1", "r2", "r1", "r2").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	var n int64
	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		var err error
		n, err = tx.DeleteTransferHistoryByRooms(context.Background(), []string{"r1", "r2"})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTransferHistory_AssignsNextSeq(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM transfer_history`).
		WithArgs("eq-1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO transfer_history`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	h := &domain.TransferHistory{
		EquipmentID: "eq-1",
		FromRoomID:  "r1",
		ToRoomID:    "r2",
		OldCode:     "HOS-ICU-0001",
		NewCode:     "HOS-ER-0001",
	}
	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		_, err := tx.InsertTransferHistory(context.Background(), h)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 3, h.Seq)
	assert.NotEmpty(t, h.HistoryID)
	assert.False(t, h.TransferredAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEquipment_EmptyPatchIsNoop(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := repo.WithTx(context.Background(), func(tx InventoryTx) error {
		return tx.UpdateEquipment(context.Background(), "eq-1", EquipmentPatch{})
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	q := `SELECT 1 FROM t WHERE a = $1 AND b IN ($2,$3)`
	assert.Equal(t, q, DialectPostgres.Rebind(q))
	assert.Equal(t, `SELECT 1 FROM t WHERE a = ? AND b IN (?,?)`, DialectSQLite.Rebind(q))
}

func TestDialectForDriver(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
		"sqlite":   DialectSQLite,
	} {
		got, err := DialectForDriver(driver)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := DialectForDriver("mysql")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (id INT);\n\n-- note\nCREATE INDEX i ON a (id);\n"
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}, SplitStatements(script))

	for _, d := range []Dialect{DialectPostgres, DialectSQLite} {
		s, err := Schema(d)
		require.NoError(t, err)
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS transfer_history")
	}
}
