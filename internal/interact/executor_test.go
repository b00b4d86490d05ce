package interact

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/driver"
	"github.com/xkilldash9x/uiharness/internal/driver/fake"
	"github.com/xkilldash9x/uiharness/internal/failure"
	"github.com/xkilldash9x/uiharness/internal/locator"
	"github.com/xkilldash9x/uiharness/internal/mocks"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testProfile() config.TimeoutProfile {
	return config.TimeoutProfile{
		Resolve:      200 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		ScrollSettle: time.Millisecond,
		KeyPacing:    5 * time.Millisecond,
	}
}

// recorder is an OutcomeSink that keeps every outcome.
type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) Record(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recorder) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func resolved(n *fake.Node, target string) *locator.Resolved {
	return &locator.Resolved{Element: n, Index: 1, Candidate: locator.ByCSS("#" + n.Label), Target: target}
}

func TestPerformClick(t *testing.T) {
	t.Run("native success", func(t *testing.T) {
		node := fake.Visible("close", "Close")
		rec := &recorder{}
		e := NewExecutor(testProfile(), zap.NewNop(), rec)

		out, err := e.Perform(context.Background(), resolved(node, "Close icon"), Click())
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, out.Status)
		assert.Equal(t, PathNative, out.Path)
		assert.True(t, out.Succeeded())

		clicks, scripts, scrolls := node.Counts()
		assert.Equal(t, 1, clicks)
		assert.Equal(t, 0, scripts)
		assert.Equal(t, 1, scrolls, "scroll-into-view precedes every action")
		require.Len(t, rec.all(), 1)
		assert.Equal(t, "Close icon", rec.all()[0].Target)
	})

	t.Run("intercepted click falls back once on the same element", func(t *testing.T) {
		node := fake.Visible("filter", "Filter")
		node.ClickErr = driver.ErrClickIntercepted

		core, logs := observer.New(zapcore.InfoLevel)
		e := NewExecutor(testProfile(), zap.New(core))
		el := resolved(node, "Filter button")

		out, err := e.Perform(context.Background(), el, Click())
		require.NoError(t, err)
		assert.Equal(t, StatusSucceededViaFallback, out.Status)
		assert.Equal(t, PathScript, out.Path)

		clicks, scripts, _ := node.Counts()
		assert.Equal(t, 1, clicks)
		assert.Equal(t, 1, scripts)
		assert.Equal(t, 1, logs.FilterMessage("Native click failed; falling back to scripted click.").Len())
		assert.Equal(t, 1, logs.FilterMessage("Interaction succeeded via scripted fallback.").Len())
	})

	t.Run("both paths failing is ActionBlocked, never success", func(t *testing.T) {
		node := fake.Visible("next", "Next")
		node.ClickErr = driver.ErrClickIntercepted
		node.ScriptClickErr = errors.New("script click threw")
		e := NewExecutor(testProfile(), zap.NewNop())

		out, err := e.Perform(context.Background(), resolved(node, "Next button"), Click())
		require.Error(t, err)
		assert.Equal(t, StatusFailed, out.Status)
		assert.False(t, out.Succeeded())
		assert.True(t, failure.IsActionBlocked(err))
		assert.Equal(t, failure.KindActionBlocked, out.FailureKind())
		assert.ErrorIs(t, err, driver.ErrClickIntercepted)
		assert.Contains(t, err.Error(), "script click threw")
		assert.Contains(t, err.Error(), `"Next button"`)

		clicks, scripts, _ := node.Counts()
		assert.Equal(t, 1, clicks)
		assert.Equal(t, 1, scripts, "fallback is attempted exactly once")
	})

	t.Run("element detached before the click fails without clicking", func(t *testing.T) {
		node := fake.Visible("row", "Row")
		e := NewExecutor(testProfile(), zap.NewNop())
		el := resolved(node, "Row")
		node.Detach()

		out, err := e.Perform(context.Background(), el, Click())
		require.Error(t, err)
		assert.Equal(t, StatusFailed, out.Status)
		assert.True(t, failure.IsStale(err))
		_, scripts, _ := node.Counts()
		assert.Equal(t, 0, scripts)
	})

	t.Run("stale native click still gets one scripted attempt", func(t *testing.T) {
		node := fake.Visible("apply", "Apply")
		node.ClickErr = driver.ErrStaleElement
		e := NewExecutor(testProfile(), zap.NewNop())

		out, err := e.Perform(context.Background(), resolved(node, "Apply"), Click())
		require.NoError(t, err)
		assert.Equal(t, StatusSucceededViaFallback, out.Status)
		assert.Equal(t, PathScript, out.Path)
		clicks, scripts, _ := node.Counts()
		assert.Equal(t, 1, clicks)
		assert.Equal(t, 1, scripts)
	})

	t.Run("element going stale between attempts is Stale", func(t *testing.T) {
		node := fake.Visible("save", "Save")
		node.ClickErr = errors.New("element not interactable")
		node.DetachOnClick = true
		e := NewExecutor(testProfile(), zap.NewNop())

		_, err := e.Perform(context.Background(), resolved(node, "Save"), Click())
		assert.True(t, failure.IsStale(err))
		assert.False(t, failure.IsActionBlocked(err))
	})
}

func TestPerformType(t *testing.T) {
	t.Run("block typing clears then sends once", func(t *testing.T) {
		node := fake.Visible("name", "")
		node.Value = "old"
		e := NewExecutor(testProfile(), zap.NewNop())

		out, err := e.Type(context.Background(), resolved(node, "Display name"), "Acme Corp")
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, out.Status)
		assert.Equal(t, "Acme Corp", node.Value)
		assert.Equal(t, []string{"Acme Corp"}, node.Keys)
		assert.Equal(t, 1, node.ClearCount)
	})

	t.Run("per-character typing paces each key", func(t *testing.T) {
		node := fake.Visible("search", "")
		profile := testProfile()
		profile.KeyPacing = 20 * time.Millisecond
		e := NewExecutor(profile, zap.NewNop())

		start := time.Now()
		_, err := e.Perform(context.Background(), resolved(node, "Search"), TypePerCharacter("abcd"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, node.Keys)
		assert.Equal(t, "abcd", node.Value)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("stale field is Stale", func(t *testing.T) {
		node := fake.Visible("email", "")
		node.Detach()
		e := NewExecutor(testProfile(), zap.NewNop())

		_, err := e.Type(context.Background(), resolved(node, "Email"), "x@example.com")
		assert.True(t, failure.IsStale(err))
	})
}

func TestTypeIntoBoxes(t *testing.T) {
	t.Run("one character per box", func(t *testing.T) {
		boxes := make([]*locator.Resolved, 6)
		nodes := make([]*fake.Node, 6)
		for i := range boxes {
			nodes[i] = fake.Visible("otp", "")
			boxes[i] = resolved(nodes[i], "OTP boxes")
		}
		e := NewExecutor(testProfile(), zap.NewNop())

		out, err := e.TypeIntoBoxes(context.Background(), boxes, "482913")
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, out.Status)
		for i, want := range []string{"4", "8", "2", "9", "1", "3"} {
			assert.Equal(t, want, nodes[i].Value, "box %d", i+1)
		}
	})

	t.Run("too few boxes types nothing", func(t *testing.T) {
		n1, n2 := fake.Visible("otp-1", ""), fake.Visible("otp-2", "")
		e := NewExecutor(testProfile(), zap.NewNop())

		out, err := e.TypeIntoBoxes(context.Background(), []*locator.Resolved{resolved(n1, "OTP"), resolved(n2, "OTP")}, "1234")
		require.Error(t, err)
		assert.Equal(t, StatusFailed, out.Status)
		assert.True(t, failure.IsActionBlocked(err))
		assert.Contains(t, err.Error(), "2 input boxes for 4 characters")
		assert.Empty(t, n1.Keys)
	})
}

func TestReadText(t *testing.T) {
	e := NewExecutor(testProfile(), zap.NewNop())

	text, err := e.ReadText(context.Background(), resolved(fake.Visible("hdr", "  Welcome, Acme \n"), "Header"))
	require.NoError(t, err)
	assert.Equal(t, "Welcome, Acme", text)

	text, err = e.ReadText(context.Background(), resolved(fake.Visible("empty", ""), "Empty cell"))
	require.NoError(t, err, "an element without text is not an error")
	assert.Equal(t, "", text)
}

func TestResolveAndClick(t *testing.T) {
	c := locator.ByText("Continue")
	node := fake.Visible("continue", "Continue")
	w := fake.NewWindow("A")
	by, q := c.Query()
	w.Add(by, q, node)
	d := fake.New(w)
	profile := testProfile()
	r := locator.NewResolver(d, profile, zap.NewNop())
	rec := &recorder{}
	e := NewExecutor(profile, zap.NewNop(), rec)

	out, err := e.ResolveAndClick(context.Background(), r, locator.NewSpec("Continue", c), locator.Options{RequireInteractable: true})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, 1, out.StrategyIndex)

	out, err = e.ResolveAndClick(context.Background(), r, locator.NewSpec("Missing", locator.ByCSS("#nope")), locator.Options{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, failure.IsNotFound(err))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Len(t, rec.all(), 2, "resolution failures are recorded too")
}

func TestSinkErrorsDoNotChangeOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	failing := SinkFunc(func(context.Context, Outcome) error { return errors.New("db down") })
	e := NewExecutor(testProfile(), zap.New(core), failing)

	out, err := e.Click(context.Background(), resolved(fake.Visible("ok", "OK"), "OK"))
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, 1, logs.FilterMessage("Failed to record interaction outcome.").Len())
}

func TestClickCallOrder(t *testing.T) {
	ctx := context.Background()
	el := new(mocks.MockElement)
	mock.InOrder(
		el.On("ScrollIntoView", mock.Anything).Return(errors.New("element has no layout box")).Once(),
		el.On("Click", mock.Anything).Return(driver.ErrClickIntercepted).Once(),
		el.On("ScriptClick", mock.Anything).Return(nil).Once(),
	)

	target := &locator.Resolved{Element: el, Index: 2, Candidate: locator.ByText("Filter"), Target: "Filter button"}
	out, err := NewExecutor(testProfile(), zap.NewNop()).Click(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceededViaFallback, out.Status)
	assert.Equal(t, 2, out.StrategyIndex)
	el.AssertExpectations(t)
	el.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestClickStaleNativeThenFailedScript(t *testing.T) {
	ctx := context.Background()
	el := new(mocks.MockElement)
	mock.InOrder(
		el.On("ScrollIntoView", mock.Anything).Return(nil).Once(),
		el.On("Click", mock.Anything).Return(driver.ErrStaleElement).Once(),
		el.On("ScriptClick", mock.Anything).Return(errors.New("script click threw")).Once(),
	)

	target := &locator.Resolved{Element: el, Index: 1, Candidate: locator.ByCSS("#apply"), Target: "Apply"}
	out, err := NewExecutor(testProfile(), zap.NewNop()).Click(ctx, target)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.True(t, failure.IsStale(err), "a stale native click stays Stale after the fallback fails")
	assert.False(t, failure.IsActionBlocked(err))
	el.AssertExpectations(t)
}
