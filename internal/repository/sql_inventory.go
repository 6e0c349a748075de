package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/google/uuid"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLInventoryRepository inventory store on database/sql (PostgreSQL via lib/pq or pgx, SQLite via modernc)
type SQLInventoryRepository struct {
	sqlQueries
	db *sql.DB
}

var (
	_ InventoryRepository = (*SQLInventoryRepository)(nil)
	_ InventoryTx         = (*sqlQueries)(nil)
)

func NewSQLInventoryRepository(db *sql.DB, dialect Dialect) *SQLInventoryRepository {
	return &SQLInventoryRepository{
		sqlQueries: sqlQueries{q: db, dialect: dialect},
		db:         db,
	}
}

// WithTx begins a transaction, runs fn and commits when fn returns nil.
func (r *SQLInventoryRepository) WithTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&sqlQueries{q: tx, dialect: r.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SQLInventoryRepository) Close() error {
	return r.db.Close()
}

type sqlQueries struct {
	q       queryer
	dialect Dialect
}

func (s *sqlQueries) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *sqlQueries) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.Rebind(q), args...)
}

func (s *sqlQueries) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.Rebind(q), args...)
}

// inList returns "$start,...,$start+n-1" and the ids as args
func inList(start int, ids []string) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}
	return strings.Join(ph, ","), args
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nowUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// ============================================
// Organization 操作
// ============================================

func (s *sqlQueries) GetOrganization(ctx context.Context, organizationID string) (*domain.Organization, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	var o domain.Organization
	err := s.queryRow(ctx,
		`SELECT organization_id, name, has_floors, created_at
		 FROM organizations
		 WHERE organization_id = $1`,
		organizationID,
	).Scan(&o.OrganizationID, &o.Name, &o.HasFloors, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: organization_id=%s", domain.ErrNotFound, organizationID)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func (s *sqlQueries) ListOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	rows, err := s.query(ctx,
		`SELECT organization_id, name, has_floors, created_at
		 FROM organizations
		 ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	out := []*domain.Organization{}
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.OrganizationID, &o.Name, &o.HasFloors, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.CreatedAt = o.CreatedAt.UTC()
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *sqlQueries) CreateOrganization(ctx context.Context, org *domain.Organization) (string, error) {
	if org == nil {
		return "", fmt.Errorf("%w: organization is required", domain.ErrValidation)
	}
	if org.OrganizationID == "" {
		org.OrganizationID = uuid.NewString()
	}
	org.CreatedAt = nowUTC(org.CreatedAt)
	_, err := s.exec(ctx,
		`INSERT INTO organizations (organization_id, name, has_floors, created_at)
		 VALUES ($1, $2, $3, $4)`,
		org.OrganizationID, org.Name, org.HasFloors, org.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create organization: %w", err)
	}
	return org.OrganizationID, nil
}

func (s *sqlQueries) DeleteOrganization(ctx context.Context, organizationID string) error {
	res, err := s.exec(ctx, `DELETE FROM organizations WHERE organization_id = $1`, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: organization_id=%s", domain.ErrNotFound, organizationID)
	}
	return nil
}

// ============================================
// Floor 操作
// ============================================

func (s *sqlQueries) GetFloor(ctx context.Context, floorID string) (*domain.Floor, error) {
	if floorID == "" {
		return nil, fmt.Errorf("%w: floor_id is required", domain.ErrValidation)
	}
	var f domain.Floor
	err := s.queryRow(ctx,
		`SELECT floor_id, organization_id, name, created_at
		 FROM floors
		 WHERE floor_id = $1`,
		floorID,
	).Scan(&f.FloorID, &f.OrganizationID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: floor_id=%s", domain.ErrNotFound, floorID)
		}
		return nil, fmt.Errorf("failed to get floor: %w", err)
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func (s *sqlQueries) ListFloors(ctx context.Context, organizationID string) ([]*domain.Floor, error) {
	rows, err := s.query(ctx,
		`SELECT floor_id, organization_id, name, created_at
		 FROM floors
		 WHERE organization_id = $1
		 ORDER BY name, created_at`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list floors: %w", err)
	}
	defer rows.Close()

	out := []*domain.Floor{}
	for rows.Next() {
		var f domain.Floor
		if err := rows.Scan(&f.FloorID, &f.OrganizationID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.CreatedAt = f.CreatedAt.UTC()
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *sqlQueries) CreateFloor(ctx context.Context, floor *domain.Floor) (string, error) {
	if floor == nil {
		return "", fmt.Errorf("%w: floor is required", domain.ErrValidation)
	}
	if floor.FloorID == "" {
		floor.FloorID = uuid.NewString()
	}
	floor.CreatedAt = nowUTC(floor.CreatedAt)
	_, err := s.exec(ctx,
		`INSERT INTO floors (floor_id, organization_id, name, created_at)
		 VALUES ($1, $2, $3, $4)`,
		floor.FloorID, floor.OrganizationID, floor.Name, floor.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create floor: %w", err)
	}
	return floor.FloorID, nil
}

func (s *sqlQueries) DeleteFloors(ctx context.Context, floorIDs []string) (int64, error) {
	if len(floorIDs) == 0 {
		return 0, nil
	}
	in, args := inList(1, floorIDs)
	res, err := s.exec(ctx, `DELETE FROM floors WHERE floor_id IN (`+in+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete floors: %w", err)
	}
	return res.RowsAffected()
}

// ============================================
// Room 操作
// ============================================

func (s *sqlQueries) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrValidation)
	}
	var r domain.Room
	err := s.queryRow(ctx,
		`SELECT room_id, organization_id, floor_id, name, code_seq, created_at
		 FROM rooms
		 WHERE room_id = $1`,
		roomID,
	).Scan(&r.RoomID, &r.OrganizationID, &r.FloorID, &r.Name, &r.CodeSeq, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: room_id=%s", domain.ErrNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

const roomListSelect = `
	SELECT r.room_id, r.name, r.floor_id, f.name
	FROM rooms r
	LEFT JOIN floors f ON f.floor_id = r.floor_id
`

func (s *sqlQueries) listRooms(ctx context.Context, where string, arg string) ([]*domain.RoomListItem, error) {
	rows, err := s.query(ctx, roomListSelect+" WHERE "+where+" ORDER BY r.name, r.created_at", arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	out := []*domain.RoomListItem{}
	for rows.Next() {
		var item domain.RoomListItem
		if err := rows.Scan(&item.RoomID, &item.Name, &item.FloorID, &item.FloorName); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *sqlQueries) ListRoomsByOrganization(ctx context.Context, organizationID string) ([]*domain.RoomListItem, error) {
	return s.listRooms(ctx, "r.organization_id = $1", organizationID)
}

func (s *sqlQueries) ListDirectRooms(ctx context.Context, organizationID string) ([]*domain.RoomListItem, error) {
	return s.listRooms(ctx, "r.organization_id = $1 AND r.floor_id IS NULL", organizationID)
}

func (s *sqlQueries) ListRoomsByFloor(ctx context.Context, floorID string) ([]*domain.RoomListItem, error) {
	return s.listRooms(ctx, "r.floor_id = $1", floorID)
}

func (s *sqlQueries) CreateRoom(ctx context.Context, room *domain.Room) (string, error) {
	if room == nil {
		return "", fmt.Errorf("%w: room is required", domain.ErrValidation)
	}
	if room.RoomID == "" {
		room.RoomID = uuid.NewString()
	}
	room.CreatedAt = nowUTC(room.CreatedAt)
	var floorID any
	if room.FloorID.Valid {
		floorID = room.FloorID.String
	}
	_, err := s.exec(ctx,
		`INSERT INTO rooms (room_id, organization_id, floor_id, name, code_seq, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		room.RoomID, room.OrganizationID, floorID, room.Name, room.CodeSeq, room.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}
	return room.RoomID, nil
}

func (s *sqlQueries) NextRoomSeq(ctx context.Context, roomID string) (int, error) {
	res, err := s.exec(ctx, `UPDATE rooms SET code_seq = code_seq + 1 WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, fmt.Errorf("failed to advance room sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("%w: room_id=%s", domain.ErrNotFound, roomID)
	}
	var seq int
	if err := s.queryRow(ctx, `SELECT code_seq FROM rooms WHERE room_id = $1`, roomID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read room sequence: %w", err)
	}
	return seq, nil
}

func (s *sqlQueries) RaiseRoomSeq(ctx context.Context, roomID string, atLeast int) error {
	_, err := s.exec(ctx,
		`UPDATE rooms SET code_seq = $1 WHERE room_id = $2 AND code_seq < $3`,
		atLeast, roomID, atLeast,
	)
	if err != nil {
		return fmt.Errorf("failed to raise room sequence: %w", err)
	}
	return nil
}

func (s *sqlQueries) DeleteRooms(ctx context.Context, roomIDs []string) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	in, args := inList(1, roomIDs)
	res, err := s.exec(ctx, `DELETE FROM rooms WHERE room_id IN (`+in+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rooms: %w", err)
	}
	return res.RowsAffected()
}

// ============================================
// Equipment 操作
// ============================================

const equipmentColumns = `equipment_id, inv_code, name, category, brand, model, serial_number, color,
	purchase_date, price, status, quantity_note, user_note, description, room_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*domain.Equipment, error) {
	var e domain.Equipment
	var brand, model, serial, color, quantityNote, userNote, description sql.NullString
	if err := row.Scan(
		&e.EquipmentID,
		&e.InvCode,
		&e.Name,
		&e.Category,
		&brand,
		&model,
		&serial,
		&color,
		&e.PurchaseDate,
		&e.Price,
		&e.Status,
		&quantityNote,
		&userNote,
		&description,
		&e.RoomID,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Brand = brand.String
	e.Model = model.String
	e.SerialNumber = serial.String
	e.Color = color.String
	e.QuantityNote = quantityNote.String
	e.UserNote = userNote.String
	e.Description = description.String
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func (s *sqlQueries) GetEquipment(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	if equipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
	}
	e, err := scanEquipment(s.queryRow(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE equipment_id = $1`, equipmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: equipment_id=%s", domain.ErrNotFound, equipmentID)
		}
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return e, nil
}

func (s *sqlQueries) ListEquipmentByRoom(ctx context.Context, roomID string) ([]*domain.Equipment, error) {
	rows, err := s.query(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE room_id = $1 ORDER BY inv_code`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	out := []*domain.Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqlQueries) CountEquipmentInRoom(ctx context.Context, roomID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM equipment WHERE room_id = $1`, roomID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count equipment: %w", err)
	}
	return n, nil
}

func (s *sqlQueries) InvCodeExists(ctx context.Context, code string, excludeEquipmentID string) (bool, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM equipment WHERE inv_code = $1 AND equipment_id <> $2`,
		code, excludeEquipmentID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check inventory code: %w", err)
	}
	return n > 0, nil
}

func (s *sqlQueries) CreateEquipment(ctx context.Context, eq *domain.Equipment) (string, error) {
	if eq == nil {
		return "", fmt.Errorf("%w: equipment is required", domain.ErrValidation)
	}
	if eq.EquipmentID == "" {
		eq.EquipmentID = uuid.NewString()
	}
	eq.CreatedAt = nowUTC(eq.CreatedAt)
	if eq.UpdatedAt.IsZero() {
		eq.UpdatedAt = eq.CreatedAt
	}
	if eq.Status == "" {
		eq.Status = domain.DefaultEquipmentStatus
	}
	_, err := s.exec(ctx,
		`INSERT INTO equipment (`+equipmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		eq.EquipmentID,
		eq.InvCode,
		eq.Name,
		eq.Category,
		nullIfEmpty(eq.Brand),
		nullIfEmpty(eq.Model),
		nullIfEmpty(eq.SerialNumber),
		nullIfEmpty(eq.Color),
		eq.PurchaseDate,
		eq.Price,
		eq.Status,
		nullIfEmpty(eq.QuantityNote),
		nullIfEmpty(eq.UserNote),
		nullIfEmpty(eq.Description),
		eq.RoomID,
		eq.CreatedAt,
		eq.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: inventory code %s already exists", domain.ErrConflict, eq.InvCode)
		}
		return "", fmt.Errorf("failed to create equipment: %w", err)
	}
	return eq.EquipmentID, nil
}

func (s *sqlQueries) UpdateEquipment(ctx context.Context, equipmentID string, patch EquipmentPatch) error {
	set := []string{}
	args := []any{}
	argN := 1
	add := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, v)
		argN++
	}
	addText := func(col string, v *string) {
		if v != nil {
			add(col, nullIfEmpty(*v))
		}
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	addText("brand", patch.Brand)
	addText("model", patch.Model)
	addText("serial_number", patch.SerialNumber)
	addText("color", patch.Color)
	if patch.PurchaseDate != nil {
		add("purchase_date", *patch.PurchaseDate)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	addText("quantity_note", patch.QuantityNote)
	addText("user_note", patch.UserNote)
	addText("description", patch.Description)

	if len(set) == 0 {
		return nil
	}
	add("updated_at", nowUTC(patch.UpdatedAt))

	q := "UPDATE equipment SET " + strings.Join(set, ", ") + fmt.Sprintf(" WHERE equipment_id = $%d", argN)
	args = append(args, equipmentID)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: equipment_id=%s", domain.ErrNotFound, equipmentID)
	}
	return nil
}

func (s *sqlQueries) SetEquipmentRoom(ctx context.Context, equipmentID, roomID string) error {
	res, err := s.exec(ctx,
		`UPDATE equipment SET room_id = $1, updated_at = $2 WHERE equipment_id = $3`,
		roomID, time.Now().UTC(), equipmentID,
	)
	if err != nil {
		return fmt.Errorf("failed to move equipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: equipment_id=%s", domain.ErrNotFound, equipmentID)
	}
	return nil
}

func (s *sqlQueries) SetEquipmentCode(ctx context.Context, equipmentID, invCode string) error {
	res, err := s.exec(ctx,
		`UPDATE equipment SET inv_code = $1 WHERE equipment_id = $2`,
		invCode, equipmentID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: inventory code %s already exists", domain.ErrConflict, invCode)
		}
		return fmt.Errorf("failed to set inventory code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: equipment_id=%s", domain.ErrNotFound, equipmentID)
	}
	return nil
}

func (s *sqlQueries) DeleteEquipment(ctx context.Context, equipmentID string) error {
	res, err := s.exec(ctx, `DELETE FROM equipment WHERE equipment_id = $1`, equipmentID)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: equipment_id=%s", domain.ErrNotFound, equipmentID)
	}
	return nil
}

func (s *sqlQueries) DeleteEquipmentByRooms(ctx context.Context, roomIDs []string) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	in, args := inList(1, roomIDs)
	res, err := s.exec(ctx, `DELETE FROM equipment WHERE room_id IN (`+in+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete equipment: %w", err)
	}
	return res.RowsAffected()
}

// ============================================
// TransferHistory 操作
// ============================================

func (s *sqlQueries) ListTransferHistory(ctx context.Context, equipmentID string) ([]*domain.TransferHistory, error) {
	rows, err := s.query(ctx,
		`SELECT history_id, equipment_id, seq, from_room_id, to_room_id, old_code, new_code, transferred_at, notes
		 FROM transfer_history
		 WHERE equipment_id = $1
		 ORDER BY seq DESC`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer history: %w", err)
	}
	defer rows.Close()

	out := []*domain.TransferHistory{}
	for rows.Next() {
		var h domain.TransferHistory
		if err := rows.Scan(
			&h.HistoryID,
			&h.EquipmentID,
			&h.Seq,
			&h.FromRoomID,
			&h.ToRoomID,
			&h.OldCode,
			&h.NewCode,
			&h.TransferredAt,
			&h.Notes,
		); err != nil {
			return nil, err
		}
		h.TransferredAt = h.TransferredAt.UTC()
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (s *sqlQueries) InsertTransferHistory(ctx context.Context, h *domain.TransferHistory) (string, error) {
	if h == nil {
		return "", fmt.Errorf("%w: history is required", domain.ErrValidation)
	}
	if h.HistoryID == "" {
		h.HistoryID = uuid.NewString()
	}
	h.TransferredAt = nowUTC(h.TransferredAt)

	var last int
	if err := s.queryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM transfer_history WHERE equipment_id = $1`,
		h.EquipmentID,
	).Scan(&last); err != nil {
		return "", fmt.Errorf("failed to read history sequence: %w", err)
	}
	h.Seq = last + 1

	_, err := s.exec(ctx,
		`INSERT INTO transfer_history (history_id, equipment_id, seq, from_room_id, to_room_id, old_code, new_code, transferred_at, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		h.HistoryID, h.EquipmentID, h.Seq, h.FromRoomID, h.ToRoomID, h.OldCode, h.NewCode, h.TransferredAt, h.Notes,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert transfer history: %w", err)
	}
	return h.HistoryID, nil
}

func (s *sqlQueries) DeleteTransferHistoryByEquipment(ctx context.Context, equipmentID string) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM transfer_history WHERE equipment_id = $1`, equipmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transfer history: %w", err)
	}
	return res.RowsAffected()
}

func (s *sqlQueries) DeleteTransferHistoryByRooms(ctx context.Context, roomIDs []string) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	fromIn, fromArgs := inList(1, roomIDs)
	toIn, toArgs := inList(len(roomIDs)+1, roomIDs)
	res, err := s.exec(ctx,
		`DELETE FROM transfer_history WHERE from_room_id IN (`+fromIn+`) OR to_room_id IN (`+toIn+`)`,
		append(fromArgs, toArgs...)...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge transfer history: %w", err)
	}
	return res.RowsAffected()
}
