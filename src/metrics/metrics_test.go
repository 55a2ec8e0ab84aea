package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(ExchangeRequests.WithLabelValues("GET", "503"))
	ObserveRequest("GET", 503)
	ObserveRequest("GET", 503)
	require.Equal(t, before+2, testutil.ToFloat64(ExchangeRequests.WithLabelValues("GET", "503")))
}

func TestSetAnchor(t *testing.T) {
	SetAnchor("METRIC-TEST", decimal.RequireFromString("99.5"))
	require.Equal(t, 99.5, testutil.ToFloat64(AnchorPrice.WithLabelValues("METRIC-TEST")))
}

func TestLabels(t *testing.T) {
	require.Equal(t, ModeDryRun, Mode(true))
	require.Equal(t, ModeLive, Mode(false))
	require.Equal(t, ResultOK, Result(nil))
	require.Equal(t, ResultError, Result(errors.New("boom")))
}
