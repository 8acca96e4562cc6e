package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func foldAll(s pendingState, order ProcessOrder, events ...Event) pendingState {
	for _, evt := range events {
		s = reducePending(s, evt, order)
	}
	return s
}

func TestReducePendingDeltas(t *testing.T) {
	foo := NewAction("FOO")

	testCases := []struct {
		name  string
		evt   Event
		order ProcessOrder
		want  int
	}{
		{"top", Event{Action: foo, Op: OpTop}, ProcessOrderReverse, 1},
		{"own begin", Event{Action: foo, Name: "A", Op: OpBegin}, ProcessOrderReverse, 2},
		{"foreign begin reverse", Event{Action: foo, Name: "B", Op: OpBegin}, ProcessOrderReverse, 3},
		{"foreign begin settled", Event{Action: foo, Name: "B", Op: OpBegin}, ProcessOrderSettled, 2},
		{"dispatch", Event{Action: foo, DispAction: NewAction("BAR"), Op: OpDispatch}, ProcessOrderReverse, 1},
		{"dispCancelled", Event{Action: foo, Name: "A", Op: OpDispCancelled}, ProcessOrderReverse, 1},
		{"nextError", Event{Action: foo, Name: "A", Op: OpNextError}, ProcessOrderReverse, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := reducePending(newPendingState(foo, "A"), tc.evt, tc.order)
			assert.Equal(t, tc.want, s.pending)
			assert.False(t, s.ready)
		})
	}

	for _, op := range []Op{OpNextDisp, OpFiltered, OpDispatchError, OpCancelled} {
		t.Run("double "+string(op), func(t *testing.T) {
			s := foldAll(newPendingState(foo, "A"), ProcessOrderReverse,
				Event{Action: foo, Name: "A", Op: OpBegin},
				Event{Action: foo, Name: "A", Op: op},
			)
			assert.Equal(t, 0, s.pending)
			assert.True(t, s.ready)
		})
	}

	for _, op := range []Op{OpDispFuture, OpEnd} {
		t.Run("single "+string(op), func(t *testing.T) {
			s := reducePending(newPendingState(foo, "A"), Event{Action: foo, Name: "A", Op: op}, ProcessOrderReverse)
			assert.Equal(t, 0, s.pending)
			assert.True(t, s.ready)
		})
	}
}

func TestReducePendingTracksRewrittenActions(t *testing.T) {
	foo := NewAction("FOO")
	rewritten := NewAction("FOO", "v2")

	s := foldAll(newPendingState(foo, "A"), ProcessOrderReverse,
		Event{Action: foo, Name: "A", Op: OpBegin},
		Event{Action: foo, NextAction: rewritten, Name: "A", Op: OpNext},
		Event{Action: rewritten, Name: "B", Op: OpBegin},
	)
	assert.Equal(t, 3, s.pending)

	s = foldAll(s, ProcessOrderReverse,
		Event{Action: rewritten, NextAction: rewritten, Name: "B", Op: OpNext},
		Event{NextAction: NewAction("FOO"), Op: OpBottom},
		Event{NextAction: rewritten, Op: OpBottom},
	)
	assert.Equal(t, 1, s.pending)
	assert.False(t, s.ready)

	s = reducePending(s, Event{Action: rewritten, Name: "B", Op: OpEnd}, ProcessOrderReverse)
	assert.True(t, s.ready)
	assert.Equal(t, 0, s.pending)
}

func TestReducePendingIgnoresUnrelatedAndSettles(t *testing.T) {
	foo := NewAction("FOO")
	other := NewAction("FOO")

	s := foldAll(newPendingState(foo, "A"), ProcessOrderReverse,
		Event{Action: other, Name: "A", Op: OpBegin},
		Event{Action: other, Name: "A", Op: OpEnd},
		Event{NextAction: other, Op: OpBottom},
	)
	assert.Equal(t, 1, s.pending)

	s = reducePending(s, Event{Action: foo, Name: "A", Op: OpEnd}, ProcessOrderReverse)
	assert.True(t, s.ready)

	s = foldAll(s, ProcessOrderReverse,
		Event{Action: foo, Name: "B", Op: OpBegin},
		Event{Action: foo, Name: "B", Op: OpBegin},
	)
	assert.Equal(t, 0, s.pending)
	assert.True(t, s.ready)
}

func TestProcessOrderString(t *testing.T) {
	assert.Equal(t, "reverse", ProcessOrderReverse.String())
	assert.Equal(t, "settled", ProcessOrderSettled.String())
	assert.Equal(t, "none", ProcessOrderNone.String())
	assert.Equal(t, "unknown", ProcessOrder(9).String())
}
