package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-trader/internal/models"
)

type failingChannel struct{}

func (failingChannel) Name() string                             { return "failing" }
func (failingChannel) IsEnabled() bool                          { return true }
func (failingChannel) Send(context.Context, Notification) error { return errors.New("boom") }

func TestSendCycleWritesSummary(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(zerolog.Nop(), NewTerminalChannelWriter(&buf))

	record := &models.DecisionRecord{
		Trading: models.TradeDecision{Action: models.TradeBuy, Pair: "BTCUSD", Confidence: models.ConfidenceHigh, ShouldExecute: true},
		Lending: models.LendingDecision{Action: models.LendWait, Confidence: models.ConfidenceLow},
		ExecutionResults: []models.ActionResult{
			{Action: models.Action{Type: models.ActionSwapBuy, Token: "BTCUSD"}, Success: true, TxHash: "0xabc"},
			{Action: models.Action{Type: models.ActionDeposit, Token: "USDT"}, Skipped: true, Reason: "market conditions changed"},
		},
	}
	require.NoError(t, m.SendCycle(context.Background(), record))

	out := buf.String()
	assert.Contains(t, out, "BUY BTCUSD")
	assert.Contains(t, out, "ok tx=0xabc")
	assert.Contains(t, out, "skipped: market conditions changed")
}

func TestChannelFailureNotPropagated(t *testing.T) {
	m := NewManager(zerolog.Nop(), failingChannel{})

	err := m.SendError(context.Background(), errors.New("fetch failed"), "market data")
	assert.NoError(t, err)
}

func TestDisabledChannelSkipped(t *testing.T) {
	var buf bytes.Buffer
	ch := NewTerminalChannelWriter(&buf)
	ch.SetEnabled(false)
	m := NewManager(zerolog.Nop(), ch)

	require.NoError(t, m.SendError(context.Background(), errors.New("x"), "y"))
	assert.Empty(t, buf.String())
}
