package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(3*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				So(m.RefreshInterval(), ShouldEqual, 3*time.Second)

				m.identities.Set(4)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_identities" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options carry zero values", func() {
			m := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "attendance")
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		m := Default()

		Convey("When recording recognitions", func() {
			matchedBefore := testutil.ToFloat64(m.recognitions.WithLabelValues(OutcomeMatched))
			unknownBefore := testutil.ToFloat64(m.recognitions.WithLabelValues(OutcomeUnknown))

			RecordRecognition(true, 0.9)
			RecordRecognition(false, 0)

			Convey("Then outcomes are counted separately", func() {
				So(testutil.ToFloat64(m.recognitions.WithLabelValues(OutcomeMatched)), ShouldEqual, matchedBefore+1)
				So(testutil.ToFloat64(m.recognitions.WithLabelValues(OutcomeUnknown)), ShouldEqual, unknownBefore+1)
			})
		})

		Convey("When recording ledger outcomes", func() {
			recorded := testutil.ToFloat64(m.attendanceRecorded)
			cooldown := testutil.ToFloat64(m.attendanceSuppressed.WithLabelValues(ReasonCooldown))

			RecordAttendance()
			RecordSuppressed(ReasonCooldown)
			RecordIntegrityViolation()

			So(testutil.ToFloat64(m.attendanceRecorded), ShouldEqual, recorded+1)
			So(testutil.ToFloat64(m.attendanceSuppressed.WithLabelValues(ReasonCooldown)), ShouldEqual, cooldown+1)
		})

		Convey("When updating gauges", func() {
			UpdateIdentities(3)
			UpdateAttendanceEvents(7)
			UpdateQueueSize(2)
			UpdateWSConnections(1)

			So(testutil.ToFloat64(m.identities), ShouldEqual, 3)
			So(testutil.ToFloat64(m.attendanceEvents), ShouldEqual, 7)
			So(testutil.ToFloat64(m.queueSize), ShouldEqual, 2)
			So(testutil.ToFloat64(m.wsConnections), ShouldEqual, 1)
		})

		Convey("When recording HTTP and sink metrics", func() {
			RecordHTTPRequest("events", "GET", "200")
			RecordHTTPRequestDuration("events", "GET", "200", 1.5)
			RecordNotification("nats", ResultOK)
			RecordSnapshotWrite(ResultError)
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(12)

			Convey("Then the registry exposes them", func() {
				count, err := testutil.GatherAndCount(GetRegistry(),
					"attendance_kiosk_http_requests_total",
					"attendance_kiosk_notifications_total",
					"attendance_kiosk_snapshot_writes_total",
				)
				So(err, ShouldBeNil)
				So(count, ShouldBeGreaterThanOrEqualTo, 3)

				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "attendance_kiosk_system_goroutine_count")
			})
		})
	})
}
