package simulate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"anchorePool/internal/amm"
	"anchorePool/internal/model"
)

var errInvalidOperation = errors.New("invalid operation")

// Step is one scenario line.
type Step struct {
	Line uint64
	Op   model.Operation
	// Err is set when the line could not be parsed.
	Err error
}

// ReadSteps calls fn for every non-blank line of a JSONL scenario. Lines
// starting with '#' are comments. A line that is not valid JSON is passed to
// fn with Err set rather than aborting the read.
func ReadSteps(r io.Reader, fn func(Step) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var line uint64
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		step := Step{Line: line}
		if err := json.Unmarshal(raw, &step.Op); err != nil {
			step.Err = fmt.Errorf("%w: %v", errInvalidOperation, err)
		}
		if err := fn(step); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan scenario: %w", err)
	}
	return nil
}

func parseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", errInvalidOperation, field, input)
	}
	return common.HexToAddress(input), nil
}

// parseAmount reads a base-10 amount. "max" is the largest amount.
func parseAmount(field, input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if strings.EqualFold(input, "max") {
		return amm.MaxAmount(), nil
	}
	if input == "" {
		return nil, fmt.Errorf("%w: %s is required", errInvalidOperation, field)
	}
	amount, err := uint256.FromDecimal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", errInvalidOperation, field, input, err)
	}
	return amount, nil
}

// parseLimit reads an optional slippage bound; empty means unbounded.
func parseLimit(input string) (*uint256.Int, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	return parseAmount("limit", input)
}
