package animation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatarsync/avatarsync/internal/core/asset"
)

func TestClipActionCachedPerName(t *testing.T) {
	m := NewMixer()
	clip := &asset.Clip{Name: "Idle", Duration: 2}
	a1 := m.ClipAction(clip)
	a2 := m.ClipAction(clip)
	require.Same(t, a1, a2)
	require.Nil(t, m.ClipAction(nil))
}

func TestFadeInReachesFullWeight(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(&asset.Clip{Name: "Walk", Duration: 1})
	a.Reset().SetLoop(LoopRepeat).FadeIn(0.2).Play()

	m.Update(0.1)
	require.InDelta(t, 0.5, a.Weight(), 1e-4)
	m.Update(0.1)
	require.InDelta(t, 1.0, a.Weight(), 1e-4)
	m.Update(0.1)
	require.InDelta(t, 1.0, a.Weight(), 1e-4)
	require.True(t, a.IsRunning())
}

func TestFadeOutStopsAction(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(&asset.Clip{Name: "Walk", Duration: 1})
	a.FadeIn(0).Play()
	require.InDelta(t, 1.0, a.Weight(), 1e-6)

	a.FadeOut(0.2)
	m.Update(0.1)
	require.True(t, a.IsRunning())
	m.Update(0.15)
	require.False(t, a.IsRunning())
	require.Zero(t, a.Weight())
}

func TestLoopRepeatWrapsTime(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(&asset.Clip{Name: "Walk", Duration: 0.5})
	a.SetLoop(LoopRepeat).Play()

	m.Update(1.2)
	require.True(t, a.IsRunning())
	require.InDelta(t, 0.2, a.Time(), 1e-4)
}

func TestLoopOnceClampsAndStops(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(&asset.Clip{Name: "Wave", Duration: 0.5})
	a.SetLoop(LoopOnce).Play()

	m.Update(1.0)
	require.False(t, a.IsRunning())
	require.InDelta(t, 0.5, a.Time(), 1e-4)
}

func TestStopAll(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(&asset.Clip{Name: "Walk", Duration: 1}).Play()
	b := m.ClipAction(&asset.Clip{Name: "Idle", Duration: 1}).Play()

	m.StopAll()
	require.False(t, a.IsRunning())
	require.False(t, b.IsRunning())
	require.Zero(t, a.Weight())
	require.Zero(t, b.Weight())
}
