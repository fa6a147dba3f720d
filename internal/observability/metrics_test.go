package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMessageBoundsCommandLabel(t *testing.T) {
	before := testutil.ToFloat64(messages.WithLabelValues("other"))
	RecordMessage("SomethingNew")
	RecordMessage("AnotherUnknown")
	if got := testutil.ToFloat64(messages.WithLabelValues("other")); got != before+2 {
		t.Fatalf("unexpected other count=%v want=%v", got, before+2)
	}

	before = testutil.ToFloat64(messages.WithLabelValues("AboutMe"))
	RecordMessage("AboutMe")
	if got := testutil.ToFloat64(messages.WithLabelValues("AboutMe")); got != before+1 {
		t.Fatalf("unexpected AboutMe count=%v", got)
	}
}

func TestRecordDialAndOverflow(t *testing.T) {
	okBefore := testutil.ToFloat64(dials.WithLabelValues("true"))
	failBefore := testutil.ToFloat64(dials.WithLabelValues("false"))
	RecordDial(true)
	RecordDial(false)
	RecordDial(false)
	if got := testutil.ToFloat64(dials.WithLabelValues("true")); got != okBefore+1 {
		t.Fatalf("unexpected success dials=%v", got)
	}
	if got := testutil.ToFloat64(dials.WithLabelValues("false")); got != failBefore+2 {
		t.Fatalf("unexpected failed dials=%v", got)
	}

	before := testutil.ToFloat64(bufferOverflows)
	RecordBufferOverflow()
	if got := testutil.ToFloat64(bufferOverflows); got != before+1 {
		t.Fatalf("unexpected overflows=%v", got)
	}
}

func TestHandlerExposesEngineMetrics(t *testing.T) {
	RecordReconnectRequest()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "xrefresh_listener_reconnect_requests_total") {
		t.Fatalf("missing reconnect counter in output")
	}
}
