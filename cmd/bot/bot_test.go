package bot

import (
	"testing"

	"bullshark/src/executors"
	"bullshark/src/strategy"

	"github.com/stretchr/testify/assert"
)

func TestDashboardOptions(t *testing.T) {
	cfg := executors.Config{Products: []string{"BTC-USD", "SOL-USD"}}
	opts := dashboardOptions(cfg, strategy.NewEngine(strategy.DefaultConfig()), true)

	assert.Equal(t, []string{"BTC-USD", "SOL-USD"}, opts.Products)
	assert.Equal(t, 20, opts.DailyTradeCap)
	assert.Equal(t, 4, opts.LadderLen)
	assert.True(t, opts.DryRun)
}

func TestDryRunForced(t *testing.T) {
	t.Setenv("DRY_RUN", "false")
	assert.False(t, (&Bot{}).dryRun())
	assert.True(t, (&Bot{ForceDryRun: true}).dryRun())

	t.Setenv("DRY_RUN", "true")
	assert.True(t, (&Bot{}).dryRun())
}

func TestNewClientRejectsMissingCredentials(t *testing.T) {
	t.Setenv("COINBASE_API_KEY", "")
	t.Setenv("COINBASE_API_SECRET", "")

	_, err := (&Bot{}).newClient()
	assert.Error(t, err)
}
