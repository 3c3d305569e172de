package metric

import (
	"testing"

	"brokerdesk/src-server/model/modeltest"
	"brokerdesk/src-server/utils"
)

func TestDatabaseLatency(t *testing.T) {
	as := utils.NewAppStateWithDB(utils.DefaultConfig(), modeltest.NewDB(t))
	latency, err := database(as)
	if err != nil {
		t.Fatal(err)
	}
	if latency < 0 {
		t.Error("latency should not be negative", latency)
	}
}

func TestNewGaugeTwice(t *testing.T) {
	first := newGauge("brokerdesk_test_gauge", "test")
	second := newGauge("brokerdesk_test_gauge", "test")
	if first != second {
		t.Error("registering twice should hand back the existing gauge")
	}
	unregister("brokerdesk_test_gauge", first)
}
