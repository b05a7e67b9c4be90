package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type recorder struct {
	events []string
}

func (r *recorder) dep(name string, requires ...string) *Func {
	return &Func{
		Name:     name,
		Requires: requires,
		OnStart: func(context.Context) error {
			r.events = append(r.events, "start "+name)
			return nil
		},
		OnStop: func(context.Context) error {
			r.events = append(r.events, "stop "+name)
			return nil
		},
	}
}

func TestStartup_Order(t *testing.T) {
	r := &recorder{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(r.dep("http", "watchlists", "tracing"))
	s.AddDependency(r.dep("tracing"))
	s.AddDependency(r.dep("watchlists", "tracing"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start tracing", "start watchlists", "start http"}, r.events)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))

	r.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop http", "stop watchlists", "stop tracing"}, r.events)
	assert.Equal(t, StartupStatusStopped, s.Status("tracing"))
}

func TestStartup_Retry(t *testing.T) {
	calls := 0
	s := NewStartup(testLogger(), 3)
	s.SetBackoffUnit(time.Millisecond)
	s.AddDependency(&Func{Name: "flaky", OnStart: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.SetBackoffUnit(time.Millisecond)
	s.AddDependency(&Func{Name: "broken", OnStart: func(context.Context) error {
		return errors.New("boom")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("broken"))
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Func{Name: "a", Requires: []string{"missing"}})
	assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency 'missing'")
}

func TestStartup_Cycle(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Func{Name: "a", Requires: []string{"b"}})
	s.AddDependency(&Func{Name: "b", Requires: []string{"a"}})
	assert.ErrorContains(t, s.Start(context.Background()), "cycle")
}
