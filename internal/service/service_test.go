package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	repo      repository.InventoryRepository
	pub       *recordingPublisher
	hierarchy HierarchyService
	equipment EquipmentService
	transfer  TransferService
	imports   ImportService
	export    ExportService
}

func newEnv(t *testing.T, repo repository.InventoryRepository, policy OrdinalPolicy) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	pub := &recordingPublisher{}
	equipment := NewEquipmentService(repo, policy, pub, logger)
	return &testEnv{
		repo:      repo,
		pub:       pub,
		hierarchy: NewHierarchyService(repo, nil, pub, logger),
		equipment: equipment,
		transfer:  NewTransferService(repo, policy, pub, logger),
		imports:   NewImportService(repo, equipment, logger),
		export:    NewExportService(repo, logger),
	}
}

func newSQLiteRepo(t *testing.T) repository.InventoryRepository {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "inv.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(context.Background(), db, repository.DialectSQLite))
	repo := repository.NewSQLInventoryRepository(db, repository.DialectSQLite)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// eachStore runs fn against the memory store and a SQLite store.
func eachStore(t *testing.T, policy OrdinalPolicy, fn func(t *testing.T, env *testEnv)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, newEnv(t, repository.NewMemoryInventoryRepo(), policy))
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newEnv(t, newSQLiteRepo(t), policy))
	})
}

type hospital struct {
	orgID   string
	floorID string
	icuID   string
	erID    string
}

// seedHospital: floored organization "Hospital" with rooms ICU and ER on one floor.
func seedHospital(t *testing.T, env *testEnv) hospital {
	t.Helper()
	ctx := context.Background()
	var h hospital

	org, err := env.hierarchy.CreateOrganization(ctx, CreateOrganizationRequest{Name: "Hospital", HasFloors: true})
	require.NoError(t, err)
	h.orgID = org.OrganizationID

	floor, err := env.hierarchy.CreateFloor(ctx, CreateFloorRequest{OrganizationID: h.orgID, Name: "Ground"})
	require.NoError(t, err)
	h.floorID = floor.FloorID

	icu, err := env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: h.orgID, FloorID: h.floorID, Name: "ICU"})
	require.NoError(t, err)
	h.icuID = icu.RoomID

	er, err := env.hierarchy.CreateRoom(ctx, CreateRoomRequest{OrganizationID: h.orgID, FloorID: h.floorID, Name: "ER"})
	require.NoError(t, err)
	h.erID = er.RoomID
	return h
}

func createItem(t *testing.T, env *testEnv, orgID, roomID, name string) *CreateEquipmentResponse {
	t.Helper()
	resp, err := env.equipment.Create(context.Background(), CreateEquipmentRequest{
		OrganizationID: orgID,
		RoomID:         roomID,
		Name:           name,
		Category:       "Medical",
	})
	require.NoError(t, err)
	return resp
}
