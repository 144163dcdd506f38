package simulate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorePool/internal/amm"
	"anchorePool/internal/ledger"
	"anchorePool/internal/model"
)

func TestReadSteps(t *testing.T) {
	input := "\n# header\n{\"op\":\"mint\",\"caller\":\"0x01\",\"amount\":\"5\"}\n{broken\n"

	var steps []Step
	err := ReadSteps(strings.NewReader(input), func(step Step) error {
		steps = append(steps, step)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, uint64(3), steps[0].Line)
	assert.Equal(t, model.Operation{Op: model.OpMint, Caller: "0x01", Amount: "5"}, steps[0].Op)
	assert.NoError(t, steps[0].Err)

	assert.Equal(t, uint64(4), steps[1].Line)
	assert.ErrorIs(t, steps[1].Err, errInvalidOperation)
}

func TestReadStepsStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadSteps(strings.NewReader("{}\n{}\n"), func(Step) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("amount", " 1000 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.Uint64())

	got, err = parseAmount("amount", "MAX")
	require.NoError(t, err)
	assert.Equal(t, amm.MaxAmount(), got)

	_, err = parseAmount("amount", "-1")
	require.ErrorIs(t, err, errInvalidOperation)
	_, err = parseAmount("amount", "")
	require.ErrorIs(t, err, errInvalidOperation)

	limit, err := parseLimit("")
	require.NoError(t, err)
	assert.Nil(t, limit)
}

func TestErrorKind(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{err: fmt.Errorf("pull: %w", ledger.ErrInsufficientAllowance), want: "insufficient_allowance"},
		{err: fmt.Errorf("pull: %w", ledger.ErrInsufficientBalance), want: "insufficient_balance"},
		{err: ledger.ErrSupplyOverflow, want: "supply_overflow"},
		{err: fmt.Errorf("%w: bad", errInvalidOperation), want: "invalid_operation"},
		{err: amm.ErrInputExceedsMaximum, want: "input_exceeds_maximum"},
		{err: errors.New("boom"), want: "other"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, errorKind(tc.err))
		})
	}
}
