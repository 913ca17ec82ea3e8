// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoSources           = errors.New("no forecasting sources available for decision making")
	ErrNoMarketData        = errors.New("failed to fetch valid data for any trading pair")
	ErrNoLiquidity         = errors.New("no liquidity available for this swap")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStaleConditions     = errors.New("market conditions changed since decision")
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrRunInFlight         = errors.New("decision cycle already in flight")
	ErrTimeout             = errors.New("operation timed out")
)

// ParseError represents a forecasting source response that violated the
// expected structure. It marks that source as failed without failing the
// pipeline.
type ParseError struct {
	Source string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(source, raw string, err error) *ParseError {
	return &ParseError{Source: source, Raw: raw, Err: err}
}

// SourceError represents a failure of one forecasting source call.
type SourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error [%s] %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new SourceError.
func NewSourceError(source, op string, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Err: err}
}

// DataError represents a market-data failure for one instrument.
type DataError struct {
	Provider string
	Pair     string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Provider, e.Pair, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Provider, e.Pair, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(provider, pair, message string, err error) *DataError {
	return &DataError{Provider: provider, Pair: pair, Message: message, Err: err}
}

// ChainError represents a failure of an on-chain read or write.
type ChainError struct {
	Op    string
	Token string
	Err   error
}

func (e *ChainError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("chain error [%s] %s: %v", e.Op, e.Token, e.Err)
	}
	return fmt.Sprintf("chain error [%s]: %v", e.Op, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// NewChainError creates a new ChainError.
func NewChainError(op, token string, err error) *ChainError {
	return &ChainError{Op: op, Token: token, Err: err}
}

// ExecutionError represents a failure during the on-chain execution
// state machine. Always terminal, always persisted, never retried.
type ExecutionError struct {
	Step   string
	Action string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error [%s] %s: %v", e.Step, e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(step, action string, err error) *ExecutionError {
	return &ExecutionError{Step: step, Action: action, Err: err}
}

// RevalidationError explains why a previously valid plan was invalidated.
// Revalidation failures are skips, not pipeline errors.
type RevalidationError struct {
	Check    string
	Token    string
	Required string
	Current  string
}

func (e *RevalidationError) Error() string {
	return fmt.Sprintf("revalidation failed [%s] %s: required %s, current %s", e.Check, e.Token, e.Required, e.Current)
}

// NewRevalidationError creates a new RevalidationError.
func NewRevalidationError(check, token, required, current string) *RevalidationError {
	return &RevalidationError{Check: check, Token: token, Required: required, Current: current}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
