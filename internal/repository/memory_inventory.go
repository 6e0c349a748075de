package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/google/uuid"
)

// MemoryInventoryRepo: 用于 DB 未就绪时的联测与单元测试
// - IDs 使用 uuid
// - WithTx 在副本上执行，成功后整体替换，失败则原状态不变
// - 外键与 inv_code 唯一约束按 SQL schema 的语义检查
type MemoryInventoryRepo struct {
	mu sync.RWMutex
	st *memState
}

type memState struct {
	orgs      map[string]domain.Organization
	floors    map[string]domain.Floor
	rooms     map[string]domain.Room
	equipment map[string]domain.Equipment
	history   map[string][]domain.TransferHistory // equipmentID -> rows, ascending seq
}

func newMemState() *memState {
	return &memState{
		orgs:      map[string]domain.Organization{},
		floors:    map[string]domain.Floor{},
		rooms:     map[string]domain.Room{},
		equipment: map[string]domain.Equipment{},
		history:   map[string][]domain.TransferHistory{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.floors {
		c.floors[k] = v
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.equipment {
		c.equipment[k] = v
	}
	for k, v := range s.history {
		c.history[k] = append([]domain.TransferHistory(nil), v...)
	}
	return c
}

var (
	_ InventoryRepository = (*MemoryInventoryRepo)(nil)
	_ InventoryTx         = (*memTx)(nil)
)

func NewMemoryInventoryRepo() *MemoryInventoryRepo {
	return &MemoryInventoryRepo{st: newMemState()}
}

func (r *MemoryInventoryRepo) WithTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	r.st = work
	return nil
}

func (r *MemoryInventoryRepo) Close() error { return nil }

func (r *MemoryInventoryRepo) read() (*memTx, func()) {
	r.mu.RLock()
	return &memTx{st: r.st}, r.mu.RUnlock
}

func (r *MemoryInventoryRepo) GetOrganization(ctx context.Context, organizationID string) (*domain.Organization, error) {
	tx, done := r.read()
	defer done()
	return tx.GetOrganization(ctx, organizationID)
}

func (r *MemoryInventoryRepo) ListOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	tx, done := r.read()
	defer done()
	return tx.ListOrganizations(ctx)
}

func (r *MemoryInventoryRepo) GetFloor(ctx context.Context, floorID string) (*domain.Floor, error) {
	tx, done := r.read()
	defer done()
	return tx.GetFloor(ctx, floorID)
}

func (r *MemoryInventoryRepo) ListFloors(ctx context.Context, organizationID string) ([]*domain.Floor, error) {
	tx, done := r.read()
	defer done()
	return tx.ListFloors(ctx, organizationID)
}

func (r *MemoryInventoryRepo) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	tx, done := r.read()
	defer done()
	return tx.GetRoom(ctx, roomID)
}

func (r *MemoryInventoryRepo) ListRoomsByOrganization(ctx context.Context, organizationID string) ([]*domain.RoomListItem, error) {
	tx, done := r.read()
	defer done()
	return tx.ListRoomsByOrganization(ctx, organizationID)
}

func (r *MemoryInventoryRepo) ListDirectRooms(ctx context.Context, organizationID string) ([]*domain.RoomListItem, error) {
	tx, done := r.read()
	defer done()
	return tx.ListDirectRooms(ctx, organizationID)
}

func (r *MemoryInventoryRepo) ListRoomsByFloor(ctx context.Context, floorID string) ([]*domain.RoomListItem, error) {
	tx, done := r.read()
	defer done()
	return tx.ListRoomsByFloor(ctx, floorID)
}

func (r *MemoryInventoryRepo) GetEquipment(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	tx, done := r.read()
	defer done()
	return tx.GetEquipment(ctx, equipmentID)
}

func (r *MemoryInventoryRepo) ListEquipmentByRoom(ctx context.Context, roomID string) ([]*domain.Equipment, error) {
	tx, done := r.read()
	defer done()
	return tx.ListEquipmentByRoom(ctx, roomID)
}

func (r *MemoryInventoryRepo) CountEquipmentInRoom(ctx context.Context, roomID string) (int, error) {
	tx, done := r.read()
	defer done()
	return tx.CountEquipmentInRoom(ctx, roomID)
}

func (r *MemoryInventoryRepo) InvCodeExists(ctx context.Context, code string, excludeEquipmentID string) (bool, error) {
	tx, done := r.read()
	defer done()
	return tx.InvCodeExists(ctx, code, excludeEquipmentID)
}

func (r *MemoryInventoryRepo) ListTransferHistory(ctx context.Context, equipmentID string) ([]*domain.TransferHistory, error) {
	tx, done := r.read()
	defer done()
	return tx.ListTransferHistory(ctx, equipmentID)
}

// memTx operates on one state snapshot; the caller holds the lock.
type memTx struct {
	st *memState
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s=%s", domain.ErrNotFound, kind, id)
}

func stillReferenced(kind, id, by string) error {
	return fmt.Errorf("%s %s is still referenced by %s", kind, id, by)
}

// ---- organizations / floors ----

func (t *memTx) GetOrganization(_ context.Context, organizationID string) (*domain.Organization, error) {
	o, ok := t.st.orgs[organizationID]
	if !ok {
		return nil, notFound("organization_id", organizationID)
	}
	return &o, nil
}

func (t *memTx) ListOrganizations(_ context.Context) ([]*domain.Organization, error) {
	out := make([]*domain.Organization, 0, len(t.st.orgs))
	for _, o := range t.st.orgs {
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memTx) GetFloor(_ context.Context, floorID string) (*domain.Floor, error) {
	f, ok := t.st.floors[floorID]
	if !ok {
		return nil, notFound("floor_id", floorID)
	}
	return &f, nil
}

func (t *memTx) ListFloors(_ context.Context, organizationID string) ([]*domain.Floor, error) {
	out := []*domain.Floor{}
	for _, f := range t.st.floors {
		if f.OrganizationID == organizationID {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memTx) CreateOrganization(_ context.Context, org *domain.Organization) (string, error) {
	if org == nil {
		return "", fmt.Errorf("%w: organization is required", domain.ErrValidation)
	}
	if org.OrganizationID == "" {
		org.OrganizationID = uuid.NewString()
	}
	org.CreatedAt = nowUTC(org.CreatedAt)
	t.st.orgs[org.OrganizationID] = *org
	return org.OrganizationID, nil
}

func (t *memTx) DeleteOrganization(_ context.Context, organizationID string) error {
	if _, ok := t.st.orgs[organizationID]; !ok {
		return notFound("organization_id", organizationID)
	}
	for _, f := range t.st.floors {
		if f.OrganizationID == organizationID {
			return stillReferenced("organization", organizationID, "floors")
		}
	}
	for _, rm := range t.st.rooms {
		if rm.OrganizationID == organizationID {
			return stillReferenced("organization", organizationID, "rooms")
		}
	}
	delete(t.st.orgs, organizationID)
	return nil
}

func (t *memTx) CreateFloor(_ context.Context, floor *domain.Floor) (string, error) {
	if floor == nil {
		return "", fmt.Errorf("%w: floor is required", domain.ErrValidation)
	}
	if _, ok := t.st.orgs[floor.OrganizationID]; !ok {
		return "", notFound("organization_id", floor.OrganizationID)
	}
	if floor.FloorID == "" {
		floor.FloorID = uuid.NewString()
	}
	floor.CreatedAt = nowUTC(floor.CreatedAt)
	t.st.floors[floor.FloorID] = *floor
	return floor.FloorID, nil
}

func (t *memTx) DeleteFloors(_ context.Context, floorIDs []string) (int64, error) {
	set := toSet(floorIDs)
	for _, rm := range t.st.rooms {
		if rm.FloorID.Valid && set[rm.FloorID.String] {
			return 0, stillReferenced("floor", rm.FloorID.String, "rooms")
		}
	}
	var n int64
	for id := range set {
		if _, ok := t.st.floors[id]; ok {
			delete(t.st.floors, id)
			n++
		}
	}
	return n, nil
}

// ---- rooms ----

func (t *memTx) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	rm, ok := t.st.rooms[roomID]
	if !ok {
		return nil, notFound("room_id", roomID)
	}
	return &rm, nil
}

func (t *memTx) listRooms(match func(domain.Room) bool) []*domain.RoomListItem {
	rooms := []domain.Room{}
	for _, rm := range t.st.rooms {
		if match(rm) {
			rooms = append(rooms, rm)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name != rooms[j].Name {
			return rooms[i].Name < rooms[j].Name
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	out := make([]*domain.RoomListItem, 0, len(rooms))
	for _, rm := range rooms {
		item := &domain.RoomListItem{RoomID: rm.RoomID, Name: rm.Name, FloorID: rm.FloorID}
		if rm.FloorID.Valid {
			if f, ok := t.st.floors[rm.FloorID.String]; ok {
				item.FloorName = sql.NullString{String: f.Name, Valid: true}
			}
		}
		out = append(out, item)
	}
	return out
}

func (t *memTx) ListRoomsByOrganization(_ context.Context, organizationID string) ([]*domain.RoomListItem, error) {
	return t.listRooms(func(rm domain.Room) bool { return rm.OrganizationID == organizationID }), nil
}

func (t *memTx) ListDirectRooms(_ context.Context, organizationID string) ([]*domain.RoomListItem, error) {
	return t.listRooms(func(rm domain.Room) bool {
		return rm.OrganizationID == organizationID && !rm.FloorID.Valid
	}), nil
}

func (t *memTx) ListRoomsByFloor(_ context.Context, floorID string) ([]*domain.RoomListItem, error) {
	return t.listRooms(func(rm domain.Room) bool {
		return rm.FloorID.Valid && rm.FloorID.String == floorID
	}), nil
}

func (t *memTx) CreateRoom(_ context.Context, room *domain.Room) (string, error) {
	if room == nil {
		return "", fmt.Errorf("%w: room is required", domain.ErrValidation)
	}
	if _, ok := t.st.orgs[room.OrganizationID]; !ok {
		return "", notFound("organization_id", room.OrganizationID)
	}
	if room.FloorID.Valid {
		if _, ok := t.st.floors[room.FloorID.String]; !ok {
			return "", notFound("floor_id", room.FloorID.String)
		}
	}
	if room.RoomID == "" {
		room.RoomID = uuid.NewString()
	}
	room.CreatedAt = nowUTC(room.CreatedAt)
	t.st.rooms[room.RoomID] = *room
	return room.RoomID, nil
}

func (t *memTx) NextRoomSeq(_ context.Context, roomID string) (int, error) {
	rm, ok := t.st.rooms[roomID]
	if !ok {
		return 0, notFound("room_id", roomID)
	}
	rm.CodeSeq++
	t.st.rooms[roomID] = rm
	return rm.CodeSeq, nil
}

func (t *memTx) RaiseRoomSeq(_ context.Context, roomID string, atLeast int) error {
	rm, ok := t.st.rooms[roomID]
	if !ok {
		return nil
	}
	if rm.CodeSeq < atLeast {
		rm.CodeSeq = atLeast
		t.st.rooms[roomID] = rm
	}
	return nil
}

func (t *memTx) DeleteRooms(_ context.Context, roomIDs []string) (int64, error) {
	set := toSet(roomIDs)
	for _, e := range t.st.equipment {
		if set[e.RoomID] {
			return 0, stillReferenced("room", e.RoomID, "equipment")
		}
	}
	for _, rows := range t.st.history {
		for _, h := range rows {
			if set[h.FromRoomID] || set[h.ToRoomID] {
				return 0, stillReferenced("room", h.FromRoomID+"/"+h.ToRoomID, "transfer_history")
			}
		}
	}
	var n int64
	for id := range set {
		if _, ok := t.st.rooms[id]; ok {
			delete(t.st.rooms, id)
			n++
		}
	}
	return n, nil
}

// ---- equipment ----

func (t *memTx) GetEquipment(_ context.Context, equipmentID string) (*domain.Equipment, error) {
	e, ok := t.st.equipment[equipmentID]
	if !ok {
		return nil, notFound("equipment_id", equipmentID)
	}
	return &e, nil
}

func (t *memTx) ListEquipmentByRoom(_ context.Context, roomID string) ([]*domain.Equipment, error) {
	out := []*domain.Equipment{}
	for _, e := range t.st.equipment {
		if e.RoomID == roomID {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvCode < out[j].InvCode })
	return out, nil
}

func (t *memTx) CountEquipmentInRoom(_ context.Context, roomID string) (int, error) {
	n := 0
	for _, e := range t.st.equipment {
		if e.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InvCodeExists(_ context.Context, code string, excludeEquipmentID string) (bool, error) {
	for id, e := range t.st.equipment {
		if e.InvCode == code && id != excludeEquipmentID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateEquipment(ctx context.Context, eq *domain.Equipment) (string, error) {
	if eq == nil {
		return "", fmt.Errorf("%w: equipment is required", domain.ErrValidation)
	}
	if _, ok := t.st.rooms[eq.RoomID]; !ok {
		return "", notFound("room_id", eq.RoomID)
	}
	if taken, _ := t.InvCodeExists(ctx, eq.InvCode, eq.EquipmentID); taken {
		return "", fmt.Errorf("%w: inventory code %s already exists", domain.ErrConflict, eq.InvCode)
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
	t.st.equipment[eq.EquipmentID] = *eq
	return eq.EquipmentID, nil
}

func (t *memTx) UpdateEquipment(_ context.Context, equipmentID string, patch EquipmentPatch) error {
	e, ok := t.st.equipment[equipmentID]
	if !ok {
		return notFound("equipment_id", equipmentID)
	}
	if patch.IsEmpty() {
		return nil
	}
	patch.UpdatedAt = nowUTC(patch.UpdatedAt)
	patch.Apply(&e)
	t.st.equipment[equipmentID] = e
	return nil
}

func (t *memTx) SetEquipmentRoom(_ context.Context, equipmentID, roomID string) error {
	e, ok := t.st.equipment[equipmentID]
	if !ok {
		return notFound("equipment_id", equipmentID)
	}
	if _, ok := t.st.rooms[roomID]; !ok {
		return notFound("room_id", roomID)
	}
	e.RoomID = roomID
	e.UpdatedAt = time.Now().UTC()
	t.st.equipment[equipmentID] = e
	return nil
}

func (t *memTx) SetEquipmentCode(ctx context.Context, equipmentID, invCode string) error {
	e, ok := t.st.equipment[equipmentID]
	if !ok {
		return notFound("equipment_id", equipmentID)
	}
	if taken, _ := t.InvCodeExists(ctx, invCode, equipmentID); taken {
		return fmt.Errorf("%w: inventory code %s already exists", domain.ErrConflict, invCode)
	}
	e.InvCode = invCode
	t.st.equipment[equipmentID] = e
	return nil
}

func (t *memTx) DeleteEquipment(_ context.Context, equipmentID string) error {
	if _, ok := t.st.equipment[equipmentID]; !ok {
		return notFound("equipment_id", equipmentID)
	}
	if len(t.st.history[equipmentID]) > 0 {
		return stillReferenced("equipment", equipmentID, "transfer_history")
	}
	delete(t.st.equipment, equipmentID)
	return nil
}

func (t *memTx) DeleteEquipmentByRooms(_ context.Context, roomIDs []string) (int64, error) {
	set := toSet(roomIDs)
	var n int64
	for id, e := range t.st.equipment {
		if !set[e.RoomID] {
			continue
		}
		if len(t.st.history[id]) > 0 {
			return 0, stillReferenced("equipment", id, "transfer_history")
		}
		delete(t.st.equipment, id)
		n++
	}
	return n, nil
}

// ---- transfer history ----

func (t *memTx) ListTransferHistory(_ context.Context, equipmentID string) ([]*domain.TransferHistory, error) {
	rows := t.st.history[equipmentID]
	out := make([]*domain.TransferHistory, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		h := rows[i]
		out = append(out, &h)
	}
	return out, nil
}

func (t *memTx) InsertTransferHistory(_ context.Context, h *domain.TransferHistory) (string, error) {
	if h == nil {
		return "", fmt.Errorf("%w: history is required", domain.ErrValidation)
	}
	if _, ok := t.st.equipment[h.EquipmentID]; !ok {
		return "", notFound("equipment_id", h.EquipmentID)
	}
	for _, id := range []string{h.FromRoomID, h.ToRoomID} {
		if _, ok := t.st.rooms[id]; !ok {
			return "", notFound("room_id", id)
		}
	}
	if h.HistoryID == "" {
		h.HistoryID = uuid.NewString()
	}
	h.TransferredAt = nowUTC(h.TransferredAt)
	h.Seq = 1
	if rows := t.st.history[h.EquipmentID]; len(rows) > 0 {
		h.Seq = rows[len(rows)-1].Seq + 1
	}
	t.st.history[h.EquipmentID] = append(t.st.history[h.EquipmentID], *h)
	return h.HistoryID, nil
}

func (t *memTx) DeleteTransferHistoryByEquipment(_ context.Context, equipmentID string) (int64, error) {
	n := int64(len(t.st.history[equipmentID]))
	delete(t.st.history, equipmentID)
	return n, nil
}

func (t *memTx) DeleteTransferHistoryByRooms(_ context.Context, roomIDs []string) (int64, error) {
	set := toSet(roomIDs)
	var n int64
	for eqID, rows := range t.st.history {
		kept := rows[:0:0]
		for _, h := range rows {
			if set[h.FromRoomID] || set[h.ToRoomID] {
				n++
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) == 0 {
			delete(t.st.history, eqID)
		} else {
			t.st.history[eqID] = kept
		}
	}
	return n, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
