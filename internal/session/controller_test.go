package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/wordshift/internal/engine"
	mock_engine "github.com/valpere/wordshift/internal/engine/mock"
	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/locale"
	"github.com/valpere/wordshift/internal/session"
	mock_session "github.com/valpere/wordshift/internal/session/mock"
)

var (
	enHi = language.Pair{Source: language.English, Target: language.Hindi}
	frHi = language.Pair{Source: language.French, Target: language.Hindi}
)

type testHandle struct {
	pair language.Pair
}

func (h *testHandle) Pair() language.Pair {
	return h.pair
}

func newStub(network engine.NetworkMonitor) *engine.StubProvider {
	cfg := engine.DefaultStubConfig()
	cfg.DownloadDelay = 0
	cfg.TranslateDelay = 0
	return engine.NewStubProvider(cfg, nil, network, nil)
}

func newMockProvider(ctrl *gomock.Controller) *mock_engine.MockProvider {
	p := mock_engine.NewMockProvider(ctrl)
	p.EXPECT().Name().Return("mock").AnyTimes()
	return p
}

func newController(t *testing.T, p engine.Provider, opts session.Options) *session.Controller {
	t.Helper()
	c := session.New(p, opts)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func wait(t *testing.T, req *session.Request) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-req.Done():
	case <-ctx.Done():
		t.Fatalf("request %s did not complete", req.ID())
	}
	return req.Wait(ctx)
}

func TestController_Defaults(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{})

	s := c.State()
	assert.Equal(t, language.English, s.Source)
	assert.Equal(t, language.Hindi, s.Target)
	assert.Equal(t, session.PhaseIdle, s.Phase)
	assert.False(t, s.Loading)
	assert.False(t, s.HasHandle)
	assert.NotEmpty(t, c.ID())
}

func TestController_TranslateHello(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{Source: language.English, Target: language.Hindi})

	out, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)
	assert.Equal(t, "नमस्ते", out)

	s := c.State()
	assert.Equal(t, "Hello", s.Input)
	assert.Equal(t, "नमस्ते", s.Output)
	assert.False(t, s.Loading)
	assert.Equal(t, session.PhaseIdle, s.Phase)
	assert.True(t, s.HasHandle)
	assert.Equal(t, enHi, s.Engine)
	assert.False(t, s.HandleStale())
}

func TestController_AllPairsClearLoading(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{})

	for _, src := range language.All {
		for _, tgt := range language.All {
			if src == tgt {
				continue
			}
			c.SetSourceLanguage(src.Name())
			c.SetTargetLanguage(tgt.Name())

			out, err := wait(t, c.RequestTranslate(context.Background(), "Good morning"))
			require.NoError(t, err, "%s -> %s", src, tgt)
			assert.NotEmpty(t, out)

			s := c.State()
			assert.False(t, s.Loading, "%s -> %s left loading set", src, tgt)
			assert.Equal(t, language.Pair{Source: src, Target: tgt}, s.Engine)
		}
	}
}

func TestController_EmptyInputSkipsEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	h := &testHandle{pair: enHi}
	gomock.InOrder(
		p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil),
		p.EXPECT().EnsureModelReady(gomock.Any(), h, engine.PolicyUnmetered).Return(nil),
	)
	p.EXPECT().Translate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	p.EXPECT().Release(h).Return(nil)

	c := session.New(p, session.Options{})

	out, err := wait(t, c.RequestTranslate(context.Background(), ""))
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Equal(t, "", c.State().Output)
	assert.False(t, c.State().Loading)

	require.NoError(t, c.Close())
}

func TestController_EmptyInputClearsOutput(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{})

	_, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)
	require.NotEmpty(t, c.State().Output)

	_, err = wait(t, c.RequestTranslate(context.Background(), ""))
	require.NoError(t, err)
	assert.Equal(t, "", c.State().Output)
}

func TestController_SourceChangeRecreatesHandle(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	h1 := &testHandle{pair: enHi}
	h2 := &testHandle{pair: frHi}
	gomock.InOrder(
		p.EXPECT().Configure(gomock.Any(), enHi).Return(h1, nil),
		p.EXPECT().EnsureModelReady(gomock.Any(), h1, engine.PolicyUnmetered).Return(nil),
		p.EXPECT().Translate(gomock.Any(), h1, "Hello").Return("नमस्ते", nil),
		p.EXPECT().Release(h1).Return(nil),
		p.EXPECT().Configure(gomock.Any(), frHi).Return(h2, nil),
		p.EXPECT().EnsureModelReady(gomock.Any(), h2, engine.PolicyUnmetered).Return(nil).Times(2),
		p.EXPECT().Translate(gomock.Any(), h2, "Bonjour").Return("नमस्ते", nil),
		p.EXPECT().Release(h2).Return(nil),
	)

	c := session.New(p, session.Options{})

	_, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)

	assert.Equal(t, language.French, c.SetSourceLanguage("French"))
	s := c.State()
	assert.Equal(t, language.Hindi, s.Target, "target must be kept")
	assert.Equal(t, uint64(1), s.Generation)

	_, err = wait(t, c.RequestTranslate(context.Background(), "Bonjour"))
	require.NoError(t, err)
	assert.Equal(t, frHi, c.State().Engine)

	require.NoError(t, c.Close())
}

func TestController_PrepareOnChange(t *testing.T) {
	tests := []struct {
		name         string
		mode         session.PrepareMode
		change       func(*session.Controller)
		wantPrepared bool
	}{
		{
			name:         "source change prepares in source mode",
			mode:         session.PrepareSource,
			change:       func(c *session.Controller) { c.SetSourceLanguage("German") },
			wantPrepared: true,
		},
		{
			name:         "target change does not prepare in source mode",
			mode:         session.PrepareSource,
			change:       func(c *session.Controller) { c.SetTargetLanguage("German") },
			wantPrepared: false,
		},
		{
			name:         "target change prepares in both mode",
			mode:         session.PrepareBoth,
			change:       func(c *session.Controller) { c.SetTargetLanguage("German") },
			wantPrepared: true,
		},
		{
			name:         "source change does not prepare in none mode",
			mode:         session.PrepareNone,
			change:       func(c *session.Controller) { c.SetSourceLanguage("German") },
			wantPrepared: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, newStub(nil), session.Options{PrepareOnChange: tt.mode})
			tt.change(c)

			prepared := func() bool {
				s := c.State()
				return s.HasHandle && s.Engine == s.Pair()
			}
			if tt.wantPrepared {
				assert.Eventually(t, prepared, 2*time.Second, 5*time.Millisecond)
				return
			}
			assert.Never(t, prepared, 100*time.Millisecond, 5*time.Millisecond)

			// The next translation still uses the new pair.
			_, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
			require.NoError(t, err)
			assert.True(t, prepared())
		})
	}
}

func TestController_TranslateFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	h := &testHandle{pair: enHi}
	failure := errors.New("network unavailable")
	p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil)
	p.EXPECT().EnsureModelReady(gomock.Any(), h, gomock.Any()).Return(nil)
	p.EXPECT().Translate(gomock.Any(), h, "Hello").Return("", failure)
	p.EXPECT().Release(h).Return(nil)

	c := session.New(p, session.Options{})

	req := c.RequestTranslate(context.Background(), "Hello")
	out, err := wait(t, req)
	require.ErrorIs(t, err, failure)
	assert.Contains(t, out, "network unavailable")
	assert.Equal(t, "Translation failed: network unavailable", out)

	s := c.State()
	assert.Equal(t, out, s.Output)
	assert.False(t, s.Loading)
	assert.Equal(t, session.PhaseIdle, s.Phase)

	require.NoError(t, c.Close())
}

func TestController_LocalizedFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	h := &testHandle{pair: enHi}
	p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil)
	p.EXPECT().EnsureModelReady(gomock.Any(), h, gomock.Any()).Return(nil)
	p.EXPECT().Translate(gomock.Any(), h, "Hello").Return("", errors.New("network unavailable"))
	p.EXPECT().Release(h).Return(nil)

	messages, err := locale.New("es")
	require.NoError(t, err)

	c := session.New(p, session.Options{Messages: messages})
	out, _ := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	assert.Equal(t, "Error de traducción: network unavailable", out)

	require.NoError(t, c.Close())
}

func TestController_ModelDownloadFailureIsSwallowed(t *testing.T) {
	c := newController(t, newStub(engine.StaticNetwork{IsMetered: true}), session.Options{
		Policy: engine.PolicyUnmetered,
	})

	out, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.ErrorIs(t, err, engine.ErrModelMissing, "translate is attempted after a failed download")
	assert.Contains(t, out, "Translation failed")
	assert.Contains(t, out, "Hindi")
	assert.False(t, c.State().Loading)
}

func TestController_ConfigureFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	p.EXPECT().Configure(gomock.Any(), enHi).Return(nil, errors.New("no credentials")).Times(2)

	c := session.New(p, session.Options{})

	out, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.Error(t, err)
	assert.Contains(t, out, "no credentials")
	assert.False(t, c.State().HasHandle)

	out, err = wait(t, c.RequestTranslate(context.Background(), ""))
	require.NoError(t, err, "empty input yields empty output even without an engine")
	assert.Equal(t, "", out)

	require.NoError(t, c.Close())
}

func TestController_StaleResultDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})

	h1 := &testHandle{pair: enHi}
	enFr := language.Pair{Source: language.English, Target: language.French}
	h2 := &testHandle{pair: enFr}

	gomock.InOrder(
		p.EXPECT().Configure(gomock.Any(), enHi).Return(h1, nil),
		p.EXPECT().EnsureModelReady(gomock.Any(), h1, gomock.Any()).Return(nil),
		p.EXPECT().Translate(gomock.Any(), h1, "Hello").DoAndReturn(
			func(context.Context, engine.Handle, string) (string, error) {
				close(started)
				<-release
				return "नमस्ते", nil
			}),
		p.EXPECT().Release(h1).Return(nil),
		p.EXPECT().Configure(gomock.Any(), enFr).Return(h2, nil),
		p.EXPECT().EnsureModelReady(gomock.Any(), h2, gomock.Any()).Return(nil).Times(2),
		p.EXPECT().Translate(gomock.Any(), h2, "Hello").Return("Bonjour", nil),
		p.EXPECT().Release(h2).Return(nil),
	)

	c := session.New(p, session.Options{})

	first := c.RequestTranslate(context.Background(), "Hello")
	<-started

	s := c.State()
	assert.True(t, s.Loading)
	assert.Equal(t, session.PhaseTranslating, s.Phase)

	c.SetTargetLanguage("French")
	close(release)

	out, err := wait(t, first)
	require.ErrorIs(t, err, session.ErrStale)
	assert.True(t, first.Stale())
	assert.Equal(t, "", out)
	assert.Equal(t, "", c.State().Output, "stale result must not reach the output")

	out, err = wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", out)
	assert.Equal(t, "Bonjour", c.State().Output)

	require.NoError(t, c.Close())
}

func TestController_QueuedStaleRequestSkipsEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	h := &testHandle{pair: enHi}

	gomock.InOrder(
		p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil),
		p.EXPECT().EnsureModelReady(gomock.Any(), h, gomock.Any()).Return(nil),
		p.EXPECT().Translate(gomock.Any(), h, "Hello").DoAndReturn(
			func(context.Context, engine.Handle, string) (string, error) {
				close(started)
				<-release
				return "नमस्ते", nil
			}),
		p.EXPECT().Release(h).Return(nil),
	)
	p.EXPECT().Translate(gomock.Any(), gomock.Any(), "Thank you").Times(0)
	p.EXPECT().Configure(gomock.Any(), gomock.Not(enHi)).Times(0)

	c := session.New(p, session.Options{PrepareOnChange: session.PrepareNone})

	first := c.RequestTranslate(context.Background(), "Hello")
	<-started
	queued := c.RequestTranslate(context.Background(), "Thank you")

	c.SetTargetLanguage("Spanish")
	close(release)

	_, err := wait(t, first)
	require.ErrorIs(t, err, session.ErrStale)

	out, err := wait(t, queued)
	require.ErrorIs(t, err, session.ErrStale)
	assert.Equal(t, "", out)

	s := c.State()
	assert.False(t, s.Loading)
	assert.Equal(t, "", s.Output)

	require.NoError(t, c.Close())
}

func TestController_RequestsAreSerialized(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{Target: language.Spanish})

	ctx := context.Background()
	reqs := []*session.Request{
		c.RequestTranslate(ctx, "Hello"),
		c.RequestTranslate(ctx, "Thank you"),
		c.RequestTranslate(ctx, "Good night"),
	}
	want := []string{"Hola", "Gracias", "Buenas noches"}

	for i, req := range reqs {
		out, err := wait(t, req)
		require.NoError(t, err)
		assert.Equal(t, want[i], out)
	}

	s := c.State()
	assert.Equal(t, "Buenas noches", s.Output)
	assert.Equal(t, "Good night", s.Input)
	assert.False(t, s.Loading)
}

func TestController_Copy(t *testing.T) {
	tests := []struct {
		name       string
		input      *string
		setup      func(*mock_session.MockClipboard)
		wantCopied bool
		wantErr    bool
	}{
		{
			name:       "empty output is a no-op",
			setup:      func(*mock_session.MockClipboard) {},
			wantCopied: false,
		},
		{
			name:  "writes the exact output",
			input: strPtr("Hello"),
			setup: func(m *mock_session.MockClipboard) {
				m.EXPECT().WritePlainText(gomock.Any(), "नमस्ते").Return(nil)
			},
			wantCopied: true,
		},
		{
			name:  "clipboard failure",
			input: strPtr("Hello"),
			setup: func(m *mock_session.MockClipboard) {
				m.EXPECT().WritePlainText(gomock.Any(), "नमस्ते").Return(errors.New("no display"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			clip := mock_session.NewMockClipboard(ctrl)
			tt.setup(clip)

			c := newController(t, newStub(nil), session.Options{Clipboard: clip})
			if tt.input != nil {
				_, err := wait(t, c.RequestTranslate(context.Background(), *tt.input))
				require.NoError(t, err)
			}

			copied, err := c.RequestCopy(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCopied, copied)
		})
	}
}

func strPtr(s string) *string {
	return &s
}

func TestController_CopyWithoutClipboard(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{})

	_, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)

	_, err = c.RequestCopy(context.Background())
	assert.ErrorIs(t, err, session.ErrNoClipboard)
}

func TestController_LanguageFallbacks(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{Source: language.German, Target: language.French})

	assert.Equal(t, language.English, c.SetSourceLanguage("Klingon"))
	assert.Equal(t, language.Hindi, c.SetTargetLanguage(""))
	assert.Equal(t, language.Spanish, c.SetTargetLanguage("es"))
	assert.Equal(t, language.Gujarati, c.SetSourceLanguage("gujarati"))

	s := c.State()
	assert.Equal(t, language.Gujarati, s.Source)
	assert.Equal(t, language.Spanish, s.Target)
}

func TestController_InvalidOptionsFallBack(t *testing.T) {
	c := newController(t, newStub(nil), session.Options{Source: "xx", Target: "yy"})

	s := c.State()
	assert.Equal(t, language.English, s.Source)
	assert.Equal(t, language.Hindi, s.Target)
}

func TestController_SameLanguageIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := mock_session.NewMockObserver(ctrl)
	obs.EXPECT().StateChanged(gomock.Any()).Times(1)

	c := newController(t, newStub(nil), session.Options{
		PrepareOnChange: session.PrepareNone,
		Observer:        obs,
	})

	c.SetSourceLanguage("French")
	c.SetSourceLanguage("fr")
	assert.Equal(t, uint64(1), c.State().Generation)
}

func TestController_ObserverSeesStateMachine(t *testing.T) {
	var (
		mu     sync.Mutex
		phases []session.Phase
		last   session.State
	)
	observer := session.ObserverFunc(func(s session.State) {
		mu.Lock()
		defer mu.Unlock()
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
		last = s
	})

	c := newController(t, newStub(nil), session.Options{Observer: observer})

	_, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []session.Phase{
		session.PhaseIdle,
		session.PhasePreparing,
		session.PhaseTranslating,
		session.PhaseIdle,
	}, phases)
	assert.False(t, last.Loading)
	assert.Equal(t, "नमस्ते", last.Output)
}

func TestController_CloseReleasesHandle(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	h := &testHandle{pair: enHi}
	p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil)
	p.EXPECT().EnsureModelReady(gomock.Any(), h, gomock.Any()).Return(nil)
	p.EXPECT().Translate(gomock.Any(), h, "Hello").Return("नमस्ते", nil)
	p.EXPECT().Release(h).Return(nil).Times(1)

	c := session.New(p, session.Options{})
	_, err := wait(t, c.RequestTranslate(context.Background(), "Hello"))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.State().HasHandle)

	req := c.RequestTranslate(context.Background(), "Hello")
	_, err = wait(t, req)
	assert.ErrorIs(t, err, session.ErrClosed)
}

func TestController_CloseCancelsInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	started := make(chan struct{})
	h := &testHandle{pair: enHi}
	p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil)
	p.EXPECT().EnsureModelReady(gomock.Any(), h, gomock.Any()).Return(nil)
	p.EXPECT().Translate(gomock.Any(), h, "Hello").DoAndReturn(
		func(ctx context.Context, _ engine.Handle, _ string) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})
	p.EXPECT().Release(h).Return(nil)

	c := session.New(p, session.Options{})

	first := c.RequestTranslate(context.Background(), "Hello")
	queued := c.RequestTranslate(context.Background(), "Thank you")
	<-started

	require.NoError(t, c.Close())

	_, err := wait(t, first)
	assert.ErrorIs(t, err, session.ErrClosed)
	_, err = wait(t, queued)
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.False(t, c.State().Loading)
}

func TestController_RequestContextCancels(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := newMockProvider(ctrl)

	h := &testHandle{pair: enHi}
	p.EXPECT().Configure(gomock.Any(), enHi).Return(h, nil)
	p.EXPECT().EnsureModelReady(gomock.Any(), h, gomock.Any()).Return(nil)
	p.EXPECT().Translate(gomock.Any(), h, "Hello").DoAndReturn(
		func(ctx context.Context, _ engine.Handle, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
	p.EXPECT().Release(h).Return(nil)

	c := session.New(p, session.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := wait(t, c.RequestTranslate(ctx, "Hello"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, out, "Translation failed")
	assert.False(t, c.State().Loading)

	require.NoError(t, c.Close())
}

func TestParsePrepareMode(t *testing.T) {
	tests := []struct {
		in      string
		want    session.PrepareMode
		wantErr bool
	}{
		{in: "source", want: session.PrepareSource},
		{in: "both", want: session.PrepareBoth},
		{in: "none", want: session.PrepareNone},
		{in: "", want: session.PrepareBoth},
		{in: "target", wantErr: true},
	}
	for _, tt := range tests {
		got, err := session.ParsePrepareMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
