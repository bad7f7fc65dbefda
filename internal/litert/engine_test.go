package litert

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"litertlm/internal/native"
	"litertlm/internal/native/nativetest"
)

func loadFake(t *testing.T, f *nativetest.Fake) *Engine {
	t.Helper()
	e, err := Load("model.litertlm", CPU, WithAPI(f))
	require.NoError(t, err)
	return e
}

func TestLoad_CreatesSettingsThenEngine(t *testing.T) {
	f := nativetest.New()
	e := loadFake(t, f)
	require.Equal(t, "model.litertlm", e.ModelPath())
	require.Equal(t, CPU, e.Backend())
	want := []string{nativetest.EngineSettingsCreate, nativetest.EngineCreate}
	if diff := cmp.Diff(want, f.Calls()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, f.Live(nativetest.KindSettings))
	require.Equal(t, 1, f.Live(nativetest.KindEngine))
}

func TestEngineClose_DeletesEngineThenSettingsOnce(t *testing.T) {
	f := nativetest.New()
	e := loadFake(t, f)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	calls := f.Calls()
	want := []string{
		nativetest.EngineSettingsCreate,
		nativetest.EngineCreate,
		nativetest.EngineDelete,
		nativetest.EngineSettingsDelete,
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	require.Zero(t, f.Live(""))
	require.Empty(t, f.Violations())
}

func TestLoad_EmbeddedNULIsInvalidArgumentWithoutNativeCalls(t *testing.T) {
	f := nativetest.New()
	_, err := Load("bad\x00path", GPU, WithAPI(f))
	require.Error(t, err)
	require.True(t, IsKind(err, KindInvalidArgument), "got %v", err)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Empty(t, f.Calls())
}

func TestLoad_UnknownBackendIsInvalidArgument(t *testing.T) {
	f := nativetest.New()
	_, err := Load("m", Backend(7), WithAPI(f))
	require.True(t, IsKind(err, KindInvalidArgument), "got %v", err)
	require.Empty(t, f.Calls())
}

func TestLoad_NilSettingsSkipsEngineCreate(t *testing.T) {
	f := &nativetest.Fake{NilSettings: true}
	_, err := Load("m", CPU, WithAPI(f))
	require.True(t, IsKind(err, KindNativeConstructionFailed), "got %v", err)
	require.Zero(t, f.Count(nativetest.EngineCreate))
	require.Zero(t, f.Count(nativetest.EngineSettingsDelete))
}

func TestLoad_NilEngineDeletesSettingsOnce(t *testing.T) {
	f := &nativetest.Fake{NilEngine: true}
	_, err := Load("m", CPU, WithAPI(f))
	require.True(t, IsKind(err, KindNativeConstructionFailed), "got %v", err)
	require.Equal(t, 1, f.Count(nativetest.EngineCreate))
	require.Equal(t, 1, f.Count(nativetest.EngineSettingsDelete))
	require.Zero(t, f.Live(""))
	require.Empty(t, f.Violations())
}

func TestCreateSession_NilSessionLeaksNothing(t *testing.T) {
	f := &nativetest.Fake{NilSession: true}
	e := loadFake(t, f)
	_, err := e.CreateSession()
	require.True(t, IsKind(err, KindNativeConstructionFailed), "got %v", err)
	// engine and settings remain owned by e, and are released exactly once on Close
	require.Equal(t, 1, f.Live(nativetest.KindEngine))
	require.Equal(t, 1, f.Live(nativetest.KindSettings))
	require.NoError(t, e.Close())
	require.Zero(t, f.Live(""))
	require.Equal(t, 1, f.Count(nativetest.EngineDelete))
	require.Equal(t, 1, f.Count(nativetest.EngineSettingsDelete))
	require.Empty(t, f.Violations())
}

func TestCreateSession_AfterCloseIsClosed(t *testing.T) {
	f := nativetest.New()
	e := loadFake(t, f)
	require.NoError(t, e.Close())
	_, err := e.CreateSession()
	require.ErrorIs(t, err, ErrClosed)
	require.Zero(t, f.Count(nativetest.EngineCreateSession))
}

func TestSessionKeepsEngineAliveAfterEngineClose(t *testing.T) {
	f := nativetest.New()
	e := loadFake(t, f)
	s, err := e.CreateSession()
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.Zero(t, f.Count(nativetest.EngineDelete), "engine deleted while a session is open")

	out, err := s.Generate("still here?")
	require.NoError(t, err)
	require.Equal(t, "echo: still here?", out)

	require.NoError(t, s.Close())
	tail := f.Calls()[len(f.Calls())-3:]
	want := []string{nativetest.SessionDelete, nativetest.EngineDelete, nativetest.EngineSettingsDelete}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Fatalf("teardown order mismatch (-want +got):\n%s", diff)
	}
	require.Zero(t, f.Live(""))
	require.Empty(t, f.Violations())
}

func TestCreateSession_Concurrent(t *testing.T) {
	f := nativetest.New()
	e := loadFake(t, f)
	defer e.Close()

	const n = 16
	var (
		mu       sync.Mutex
		sessions []*Session
	)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			s, err := e.CreateSession()
			if err != nil {
				return err
			}
			mu.Lock()
			sessions = append(sessions, s)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, sessions, n)
	require.Equal(t, n, f.Live(nativetest.KindSession))

	for _, s := range sessions {
		require.NoError(t, s.Close())
	}
	require.Zero(t, f.Live(nativetest.KindSession))
	require.Equal(t, 1, f.Live(nativetest.KindEngine))
	require.Empty(t, f.Violations())
}

func TestLoad_DefaultAPIUnavailableInStubBuild(t *testing.T) {
	if native.Built {
		t.Skip("native library linked")
	}
	_, err := Load("m", CPU)
	require.True(t, IsKind(err, KindUnavailable), "got %v", err)
}

func TestErrorMatching(t *testing.T) {
	err := newError(KindEmptyResponse, "generate", "no response generated")
	require.Equal(t, "litert-lm: generate: no response generated", err.Error())
	require.True(t, errors.Is(err, ErrEmptyResponse))
	require.False(t, errors.Is(err, ErrGenerationFailed))
	require.True(t, errors.Is(err, &Error{Kind: KindEmptyResponse, Op: "generate"}))
	require.False(t, errors.Is(err, &Error{Kind: KindEmptyResponse, Op: "load"}))
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.False(t, IsKind(nil, KindUnknown))
	require.Equal(t, "litert-lm: closed", ErrClosed.Error())
}
