package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateRoom_StructuralMode(t *testing.T) {
	env := newEnv(t, repository.NewMemoryInventoryRepo(), OrdinalCounter)
	ctx := context.Background()
	h := seedHospital(t, env)

	flat, err := env.hierarchy.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Office"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  CreateRoomRequest
		want error
	}{
		{"floored org without floor", CreateRoomRequest{OrganizationID: h.orgID, Name: "Lab"}, domain.ErrValidation},
		{"flat org with floor", CreateRoomRequest{OrganizationID: flat.OrganizationID, FloorID: h.floorID, Name: "Lab"}, domain.ErrValidation},
		{"floor of another org", CreateRoomRequest{OrganizationID: h.orgID, FloorID: "missing", Name: "Lab"}, domain.ErrNotFound},
		{"empty name", CreateRoomRequest{OrganizationID: flat.OrganizationID, Name: "  "}, domain.ErrValidation},
		{"unknown org", CreateRoomRequest{OrganizationID: "missing", Name: "Lab"}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.hierarchy.CreateRoom(ctx, tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err = env.hierarchy.CreateFloor(ctx, CreateFloorRequest{OrganizationID: flat.OrganizationID, Name: "Ground"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	other, err := env.hierarchy.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Clinic", HasFloors: true})
	require.NoError(t, err)
	_, err = env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: other.OrganizationID, FloorID: h.floorID, Name: "Lab"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	direct, err := env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: flat.OrganizationID, Name: "Reception"})
	require.NoError(t, err)
	room, err := env.hierarchy.GetRoom(ctx, GetRoomRequest{RoomID: direct.RoomID})
	require.NoError(t, err)
	assert.True(t, room.Room.IsDirect())
	assert.Equal(t, "Office", room.OrganizationName)
	assert.Empty(t, room.FloorName)
}

func TestGetOrganization_ByMode(t *testing.T) {
	eachStore(t, OrdinalCounter, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		h := seedHospital(t, env)

		got, err := env.hierarchy.GetOrganization(ctx, GetOrganizationRequest{OrganizationID: h.orgID})
		require.NoError(t, err)
		require.Len(t, got.Floors, 1)
		assert.Equal(t, "Ground", got.Floors[0].Name)
		assert.Empty(t, got.DirectRooms)

		flat, err := env.hierarchy.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Office"})
		require.NoError(t, err)
		_, err = env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: flat.OrganizationID, Name: "Reception"})
		require.NoError(t, err)

		got, err = env.hierarchy.GetOrganization(ctx, GetOrganizationRequest{OrganizationID: flat.OrganizationID})
		require.NoError(t, err)
		assert.Empty(t, got.Floors)
		require.Len(t, got.DirectRooms, 1)
		assert.Equal(t, "Reception", got.DirectRooms[0].Name)

		orgs, err := env.hierarchy.ListOrganizations(ctx)
		require.NoError(t, err)
		assert.Len(t, orgs.Items, 2)
	})
}

func TestListRooms(t *testing.T) {
	eachStore(t, OrdinalCounter, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		h := seedHospital(t, env)

		all, err := env.hierarchy.ListRooms(ctx, ListRoomsRequest{OrganizationID: h.orgID})
		require.NoError(t, err)
		require.Len(t, all.Items, 2)
		assert.Equal(t, "ER", all.Items[0].Name)
		assert.Equal(t, "Ground", all.Items[0].FloorName.String)

		byFloor, err := env.hierarchy.ListRooms(ctx, ListRoomsRequest{OrganizationID: "ignored", FloorID: h.floorID})
		require.NoError(t, err)
		assert.Len(t, byFloor.Items, 2)

		_, err = env.hierarchy.ListRooms(ctx, ListRoomsRequest{})
		assert.True(t, errors.Is(err, domain.ErrValidation))

		direct, err := env.hierarchy.ListDirectRooms(ctx, ListDirectRoomsRequest{OrganizationID: h.orgID})
		require.NoError(t, err)
		assert.Empty(t, direct.Items)
	})
}

func TestDeleteRoom_BlockedThenForced(t *testing.T) {
	eachStore(t, OrdinalCounter, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		h := seedHospital(t, env)
		moved := createItem(t, env, h.orgID, h.icuID, "Monitor")
		stays := createItem(t, env, h.orgID, h.icuID, "Pump")
		_, err := env.transfer.Transfer(ctx, TransferRequest{EquipmentID: moved.EquipmentID, ToRoomID: h.erID})
		require.NoError(t, err)

		resp, err := env.hierarchy.DeleteRoom(ctx, DeleteRoomRequest{RoomID: h.icuID})
		require.NoError(t, err)
		assert.True(t, resp.Blocked)
		assert.False(t, resp.Deleted)
		assert.Equal(t, 1, resp.EquipmentCount)
		_, err = env.repo.GetRoom(ctx, h.icuID)
		require.NoError(t, err)

		resp, err = env.hierarchy.DeleteRoom(ctx, DeleteRoomRequest{RoomID: h.icuID, Force: true})
		require.NoError(t, err)
		assert.True(t, resp.Deleted)
		assert.Equal(t, int64(1), resp.HistoryPurged)

		_, err = env.repo.GetRoom(ctx, h.icuID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = env.repo.GetEquipment(ctx, stays.EquipmentID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		// the moved item survives in ER, its ICU history is gone
		eq, err := env.repo.GetEquipment(ctx, moved.EquipmentID)
		require.NoError(t, err)
		assert.Equal(t, h.erID, eq.RoomID)
		hist, err := env.repo.ListTransferHistory(ctx, moved.EquipmentID)
		require.NoError(t, err)
		assert.Empty(t, hist)

		assert.Contains(t, env.pub.types(), events.ContainerDeleted)
	})
}

func TestDeleteRoom_EmptyRoom(t *testing.T) {
	env := newEnv(t, repository.NewMemoryInventoryRepo(), OrdinalCounter)
	ctx := context.Background()
	h := seedHospital(t, env)

	resp, err := env.hierarchy.DeleteRoom(ctx, DeleteRoomRequest{RoomID: h.erID})
	require.NoError(t, err)
	assert.False(t, resp.Blocked)
	assert.True(t, resp.Deleted)
	assert.Zero(t, resp.EquipmentCount)

	_, err = env.hierarchy.DeleteRoom(ctx, DeleteRoomRequest{RoomID: h.erID})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteFloor_PurgesHistoryAcrossRooms(t *testing.T) {
	eachStore(t, OrdinalCounter, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		h := seedHospital(t, env)

		upper, err := env.hierarchy.CreateFloor(ctx, CreateFloorRequest{OrganizationID: h.orgID, Name: "Upper"})
		require.NoError(t, err)
		ward, err := env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: h.orgID, FloorID: upper.FloorID, Name: "Ward"})
		require.NoError(t, err)

		// leaves Ward for ICU: the item survives, the Ward row does not
		leaver := createItem(t, env, h.orgID, ward.RoomID, "Bed")
		_, err = env.transfer.Transfer(ctx, TransferRequest{EquipmentID: leaver.EquipmentID, ToRoomID: h.icuID})
		require.NoError(t, err)

		// arrives in Ward from ER: the item and its whole log go with the floor
		arriver := createItem(t, env, h.orgID, h.erID, "Cart")
		_, err = env.transfer.Transfer(ctx, TransferRequest{EquipmentID: arriver.EquipmentID, ToRoomID: ward.RoomID})
		require.NoError(t, err)

		resp, err := env.hierarchy.DeleteFloor(ctx, DeleteFloorRequest{FloorID: upper.FloorID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.RoomsDeleted)
		assert.Equal(t, int64(1), resp.EquipmentDeleted)
		assert.Equal(t, int64(2), resp.HistoryPurged)
		assert.Equal(t, int64(1), resp.FloorsDeleted)

		_, err = env.repo.GetFloor(ctx, upper.FloorID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = env.repo.GetEquipment(ctx, arriver.EquipmentID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		eq, err := env.repo.GetEquipment(ctx, leaver.EquipmentID)
		require.NoError(t, err)
		assert.Equal(t, h.icuID, eq.RoomID)
		hist, err := env.repo.ListTransferHistory(ctx, leaver.EquipmentID)
		require.NoError(t, err)
		assert.Empty(t, hist)

		// the other floor is untouched
		rooms, err := env.hierarchy.ListRooms(ctx, ListRoomsRequest{FloorID: h.floorID})
		require.NoError(t, err)
		assert.Len(t, rooms.Items, 2)
	})
}

func TestDeleteOrganization_RemovesEverything(t *testing.T) {
	eachStore(t, OrdinalCounter, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		h := seedHospital(t, env)
		a := createItem(t, env, h.orgID, h.icuID, "Monitor")
		createItem(t, env, h.orgID, h.erID, "Bed")
		_, err := env.transfer.Transfer(ctx, TransferRequest{EquipmentID: a.EquipmentID, ToRoomID: h.erID})
		require.NoError(t, err)

		keep, err := env.hierarchy.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Office"})
		require.NoError(t, err)
		reception, err := env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: keep.OrganizationID, Name: "Reception"})
		require.NoError(t, err)
		kept := createItem(t, env, keep.OrganizationID, reception.RoomID, "Desk")

		resp, err := env.hierarchy.DeleteOrganization(ctx, DeleteOrganizationRequest{OrganizationID: h.orgID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.RoomsDeleted)
		assert.Equal(t, int64(2), resp.EquipmentDeleted)
		assert.Equal(t, int64(1), resp.HistoryPurged)
		assert.Equal(t, int64(1), resp.FloorsDeleted)

		_, err = env.hierarchy.GetOrganization(ctx, GetOrganizationRequest{OrganizationID: h.orgID})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = env.repo.GetEquipment(ctx, a.EquipmentID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		card, err := env.equipment.Get(ctx, GetEquipmentRequest{EquipmentID: kept.EquipmentID})
		require.NoError(t, err)
		assert.Equal(t, "OFF-REC-0001", card.Equipment.InvCode)
	})
}

func TestHierarchy_RoomCacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := store.NewRoomCache(store.NewRedisKV(client), time.Minute)

	repo := repository.NewMemoryInventoryRepo()
	env := newEnv(t, repo, OrdinalCounter)
	env.hierarchy = NewHierarchyService(repo, cache, env.pub, zap.NewNop())
	ctx := context.Background()
	h := seedHospital(t, env)

	rooms, err := env.hierarchy.ListRooms(ctx, ListRoomsRequest{OrganizationID: h.orgID})
	require.NoError(t, err)
	assert.Len(t, rooms.Items, 2)
	assert.True(t, mr.Exists(store.AllRoomsKey(h.orgID)))

	_, err = env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: h.orgID, FloorID: h.floorID, Name: "Lab"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(store.AllRoomsKey(h.orgID)))

	rooms, err = env.hierarchy.ListRooms(ctx, ListRoomsRequest{OrganizationID: h.orgID})
	require.NoError(t, err)
	assert.Len(t, rooms.Items, 3)

	// a dead cache degrades to the store
	mr.Close()
	rooms, err = env.hierarchy.ListRooms(ctx, ListRoomsRequest{FloorID: h.floorID})
	require.NoError(t, err)
	assert.Len(t, rooms.Items, 3)
}

func TestHierarchy_RoomCacheDropsListingLoadedBeforeInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := store.NewRoomCache(store.NewRedisKV(client), time.Minute)

	repo := repository.NewMemoryInventoryRepo()
	env := newEnv(t, repo, OrdinalCounter)
	env.hierarchy = NewHierarchyService(repo, cache, env.pub, zap.NewNop())
	ctx := context.Background()
	h := seedHospital(t, env)
	hs := env.hierarchy.(*hierarchyService)

	// a room is created after the list was read but before it is cached
	stale, err := hs.cachedRooms(ctx, h.orgID, store.AllRoomsKey(h.orgID), func() ([]*domain.RoomListItem, error) {
		items, err := repo.ListRoomsByOrganization(ctx, h.orgID)
		if err != nil {
			return nil, err
		}
		_, err = env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: h.orgID, FloorID: h.floorID, Name: "Lab"})
		return items, err
	})
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	rooms, err := env.hierarchy.ListRooms(ctx, ListRoomsRequest{OrganizationID: h.orgID})
	require.NoError(t, err)
	assert.Len(t, rooms.Items, 3)

	rooms, err = env.hierarchy.ListRooms(ctx, ListRoomsRequest{OrganizationID: h.orgID})
	require.NoError(t, err)
	assert.Len(t, rooms.Items, 3)
}
