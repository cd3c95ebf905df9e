package avatar

import (
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/require"

	"github.com/avatarsync/avatarsync/internal/core/animation"
	"github.com/avatarsync/avatarsync/internal/core/asset"
	"github.com/avatarsync/avatarsync/internal/core/events/bus"
	"github.com/avatarsync/avatarsync/internal/core/movement"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
	"github.com/avatarsync/avatarsync/internal/core/scene"
)

func testAsset(id string) *asset.Asset {
	model := scene.NewNode(id + "-model")
	model.SetBounds(math32.B3(-0.5, 0, -0.5, 0.5, 9, 0.5))
	return &asset.Asset{
		ID:    id,
		Model: model,
		Clips: []*asset.Clip{
			{Name: "Idle", Duration: 2, Tracks: []asset.Track{
				{Node: "Hips", Property: asset.PropertyPosition, Times: []float32{0}, Values: []float32{0, 0, 0}, Stride: 3},
				{Node: "Hips", Property: asset.PropertyRotation, Times: []float32{0}, Values: []float32{0, 0, 0, 1}, Stride: 4},
			}},
			{Name: "Walk", Duration: 1},
			{Name: "Run", Duration: 0.8},
		},
	}
}

func testDeps() Deps {
	logger := log.NewNop()
	return Deps{
		Registry:   NewRegistry(logger),
		Normalizer: NewNormalizer(logger),
		Bus:        bus.New(),
		Logger:     logger,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DiagInterval = 0 // emit every tick for observability assertions
	return cfg
}

func TestAttachLifecycle(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)
	require.Equal(t, StateUnattached, in.State())
	require.Equal(t, OwnershipUndecided, in.Ownership())

	root := scene.NewNode("world")
	require.NoError(t, in.Attach(root))
	require.Equal(t, StateAttached, in.State())
	require.Equal(t, OwnershipOwner, in.Ownership())
	require.Equal(t, root, in.Container().Root.Parent())
	require.InDelta(t, 0.2, in.Container().ScaleFactor, 1e-5)

	// idempotent
	require.NoError(t, in.Attach(root))
	require.Len(t, root.Children(), 1)
}

func TestAttachMissingSceneNodeRetried(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)

	require.ErrorIs(t, in.Attach(nil), ErrMissingSceneNode)
	require.Equal(t, StateUnattached, in.State())

	// the next tick's retry succeeds once the node exists
	require.NoError(t, in.Attach(scene.NewNode("world")))
	require.Equal(t, StateAttached, in.State())
}

func TestDuplicateInstanceTerminalNoOp(t *testing.T) {
	deps := testDeps()
	root := scene.NewNode("world")

	first := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, first.Attach(root))

	second := New(testAsset("dr"), testConfig(), deps)
	require.ErrorIs(t, second.Attach(root), ErrDuplicateInstance)
	require.Equal(t, OwnershipRejected, second.Ownership())
	require.Len(t, root.Children(), 1)

	// rejection is terminal even after the slot frees
	first.Teardown()
	require.ErrorIs(t, second.Attach(root), ErrDuplicateInstance)

	// but a fresh instance may take over
	third := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, third.Attach(root))
}

func TestRejectedInstanceNeverMutatesScene(t *testing.T) {
	deps := testDeps()
	root := scene.NewNode("world")

	first := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, first.Attach(root))

	second := New(testAsset("dr"), testConfig(), deps)
	_ = second.Attach(root)
	second.KeyDown(movement.KeyW)
	second.Tick(0.016)

	require.Nil(t, second.Container())
	require.False(t, second.LastState().IsMoving)
}

func TestTickBeforeAttachIsSafe(t *testing.T) {
	in := New(testAsset("dr"), testConfig(), testDeps())
	in.Tick(0.016)
	require.Equal(t, StateUnattached, in.State())
}

func TestTickWritesAuthoritativeTransform(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	in.KeyDown(movement.KeyW)
	in.Tick(0.016)

	st := in.LastState()
	require.True(t, st.IsMoving)
	require.InDelta(t, -0.192, st.Position.Z, 1e-4)
	require.Equal(t, st.Position, in.Container().Root.Pos)
	require.Equal(t, st.Rotation, in.Container().Root.Rot)

	// another writer is overridden on the next tick
	in.Container().Root.SetPos(99, 99, 99)
	in.Tick(0.016)
	require.Equal(t, in.LastState().Position, in.Container().Root.Pos)
}

func TestTickDrivesSelector(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	in.Tick(0.016)
	require.Equal(t, "Idle", in.selector.Current())

	in.KeyDown(movement.KeyW)
	in.KeyDown(movement.KeyShiftLeft)
	in.Tick(0.016)
	require.Equal(t, "Run", in.selector.Current())
}

func TestAttachStripsRootMotion(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	for _, c := range in.clips {
		require.Zero(t, c.TrackCount(asset.PropertyPosition))
	}
	require.Equal(t, 1, in.clips[0].TrackCount(asset.PropertyRotation))
}

func TestDiagnosticEventSchema(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	var got []DiagnosticEvent
	_, err := deps.Bus.Subscribe(EventTypeMovementDiag, func(e bus.Event) error {
		got = append(got, e.Data.(DiagnosticEvent))
		return nil
	})
	require.NoError(t, err)

	in.KeyDown(movement.KeyW)
	in.KeyDown(movement.KeyShiftLeft)
	in.Tick(0.016)

	require.Len(t, got, 1)
	ev := got[0]
	require.Equal(t, "dr", ev.AvatarID)
	require.True(t, ev.IsMoving)
	require.True(t, ev.IsRunning)
	require.Equal(t, []string{"KeyW", "ShiftLeft"}, ev.ActiveKeys)
	require.InDelta(t, 0.2*1.8*0.96, ev.Velocity.Speed, 1e-4)
	require.InDelta(t, ev.Position[2], in.LastState().Position.Z, 1e-6)
}

func TestDiagnosticsRateLimited(t *testing.T) {
	deps := testDeps()
	cfg := DefaultConfig()
	cfg.DiagInterval = time.Second
	in := New(testAsset("dr"), cfg, deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	clock := time.Unix(0, 0)
	in.now = func() time.Time { return clock }

	count := 0
	_, err := deps.Bus.Subscribe(EventTypeMovementDiag, func(e bus.Event) error {
		count++
		return nil
	})
	require.NoError(t, err)

	in.Tick(0.016)
	clock = clock.Add(100 * time.Millisecond)
	in.Tick(0.016)
	require.Equal(t, 1, count)

	clock = clock.Add(time.Second)
	in.Tick(0.016)
	require.Equal(t, 2, count)
}

func TestTickSurvivesIntegratorFailure(t *testing.T) {
	deps := testDeps()
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	in.KeyDown(movement.KeyW)
	in.Tick(0.016)
	before := in.LastState()

	in.integrator = nil // force a failure at the integration boundary
	require.NotPanics(t, func() { in.Tick(0.016) })

	st := in.LastState()
	require.False(t, st.IsMoving)
	require.Zero(t, st.Velocity)
	require.Equal(t, before.Position, st.Position)
}

func TestTeardownOrderAndIdempotence(t *testing.T) {
	deps := testDeps()
	root := scene.NewNode("world")
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(root))
	in.Tick(0.016)

	in.Teardown()
	require.Equal(t, StateTornDown, in.State())
	require.Empty(t, root.Children())
	_, owned := deps.Registry.Owner("dr")
	require.False(t, owned)

	// idempotent; further lifecycle calls are refused
	in.Teardown()
	require.ErrorIs(t, in.Attach(root), ErrTornDown)
	in.Tick(0.016)
}

func TestRemountSharedAssetKeepsModelUsable(t *testing.T) {
	deps := testDeps()
	root := scene.NewNode("world")
	shared := testAsset("dr")

	first := New(shared, testConfig(), deps)
	require.NoError(t, first.Attach(root))
	first.Teardown()

	// the loader-owned model must survive teardown intact
	require.Nil(t, shared.Model.Parent())
	require.False(t, shared.Model.BoundingBox().IsEmpty())

	second := New(shared, testConfig(), deps)
	require.NoError(t, second.Attach(root))
	require.Equal(t, StateAttached, second.State())
	require.InDelta(t, 0.2, second.Container().ScaleFactor, 1e-5)
}

func TestTickZeroDeltaAdvancesAnimation(t *testing.T) {
	deps := testDeps()
	m := animation.NewMixer()
	deps.Mixer = m
	in := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, in.Attach(scene.NewNode("world")))

	in.KeyDown(movement.KeyW)
	in.Tick(0)

	// a missing delta substitutes the default frame for movement and mixer alike
	require.InDelta(t, -0.192, in.LastState().Position.Z, 1e-4)
	walk := m.ClipAction(in.clips[1])
	require.True(t, walk.IsRunning())
	require.Greater(t, walk.Weight(), float32(0))
}

func TestRemountAfterTeardown(t *testing.T) {
	deps := testDeps()
	root := scene.NewNode("world")

	first := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, first.Attach(root))
	first.Teardown()

	second := New(testAsset("dr"), testConfig(), deps)
	require.NoError(t, second.Attach(root))
	require.Equal(t, StateAttached, second.State())
	require.Len(t, root.Children(), 1)
}
