package store

import (
	"testing"

	logic "github.com/goliatone/go-logic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
}

func counterReducer(s counter, act *logic.Action) counter {
	switch act.Type {
	case "INC":
		s.Count++
	case "DEC":
		s.Count--
	case "BOOM":
		panic("reducer failure")
	}
	return s
}

func tagging(name string, trace *[]string) logic.Middleware {
	return func(host logic.Host) func(logic.Next) logic.Next {
		return func(next logic.Next) logic.Next {
			return func(act *logic.Action) error {
				*trace = append(*trace, name+":"+act.Type)
				return next(act)
			}
		}
	}
}

func TestStoreReducesAndNotifies(t *testing.T) {
	s, err := New(counterReducer, counter{})
	require.NoError(t, err)

	var seen []int
	sub := s.Subscribe(func(state counter, act *logic.Action) {
		seen = append(seen, state.Count)
	})

	require.NoError(t, s.Dispatch(logic.NewAction("INC")))
	require.NoError(t, s.Dispatch(logic.NewAction("INC")))
	sub.Unsubscribe()
	require.NoError(t, s.Dispatch(logic.NewAction("DEC")))

	assert.Equal(t, counter{Count: 1}, s.State())
	assert.Equal(t, counter{Count: 1}, s.GetState())
	assert.Equal(t, []int{1, 2}, seen)
}

func TestStoreMiddlewareOrder(t *testing.T) {
	var trace []string
	s, err := New(counterReducer, counter{}, tagging("outer", &trace), nil, tagging("inner", &trace))
	require.NoError(t, err)

	require.NoError(t, s.Dispatch(logic.NewAction("INC")))
	assert.Equal(t, []string{"outer:INC", "inner:INC"}, trace)
}

func TestStoreErrors(t *testing.T) {
	_, err := New[counter](nil, counter{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNilReducer, logic.ErrorCode(err))

	s, err := New(counterReducer, counter{Count: 3})
	require.NoError(t, err)

	err = s.Dispatch(logic.NewAction("BOOM"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeReducerPanic, logic.ErrorCode(err))
	assert.Equal(t, counter{Count: 3}, s.State())

	err = s.Dispatch(nil)
	assert.Equal(t, logic.ErrCodeNilAction, logic.ErrorCode(err))
}

func TestStoreHostsEngine(t *testing.T) {
	e, err := logic.New([]*logic.Logic{{
		Type: logic.Type("DEC"),
		Validate: func(deps *logic.Deps, allow, reject logic.Decision) error {
			if deps.GetState().(counter).Count > 0 {
				allow(deps.Action)
				return nil
			}
			reject(logic.NewAction("NOOP"))
			return nil
		},
	}})
	require.NoError(t, err)
	defer e.Close()

	s, err := New(counterReducer, counter{Count: 1}, e.Middleware())
	require.NoError(t, err)

	var reduced []string
	s.Subscribe(func(_ counter, act *logic.Action) {
		reduced = append(reduced, act.Type)
	})

	require.NoError(t, s.Dispatch(logic.NewAction("DEC")))
	require.NoError(t, s.Dispatch(logic.NewAction("DEC")))

	assert.Equal(t, counter{Count: 0}, s.State())
	assert.Equal(t, []string{"DEC", "NOOP"}, reduced)
	assert.Equal(t, 0, e.Pending())
}

func TestStoreListenerMayDispatch(t *testing.T) {
	s, err := New(counterReducer, counter{})
	require.NoError(t, err)

	s.Subscribe(func(state counter, act *logic.Action) {
		if act.Type == "INC" && state.Count < 3 {
			require.NoError(t, s.Dispatch(logic.NewAction("INC")))
		}
	})

	require.NoError(t, s.Dispatch(logic.NewAction("INC")))
	assert.Equal(t, counter{Count: 3}, s.State())
}
