package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the sqxrank namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "sqxrank")
				So(manager.subsystem, ShouldEqual, "ranking")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2}),
				WithCustomLabels(map[string]string{"env": "test"}),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 2})
				So(manager.customLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "sqxrank")
				So(manager.subsystem, ShouldEqual, "ranking")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("When runs are recorded", func() {
			manager.RecordRun(OutcomeSuccess, 12)
			manager.RecordRun(OutcomeSuccess, 8)
			manager.RecordRun(OutcomeFailure, 3)

			Convey("Then counters should reflect each outcome", func() {
				So(testutil.ToFloat64(manager.runs.WithLabelValues(OutcomeSuccess)), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.runs.WithLabelValues(OutcomeFailure)), ShouldEqual, 1)
				So(testutil.CollectAndCount(manager.runDuration), ShouldEqual, 1)
			})
		})
	})

	Convey("Given the global manager", t, func() {
		before := testutil.ToFloat64(globalManager.filesCopied)

		Convey("When package-level recorders are used", func() {
			RecordFilesCopied(3)
			RecordFilesCopied(0)
			RecordFilesCopied(-1)
			UpdateRecordsLoaded(250)
			UpdateRecordsRanked(100)
			RecordError("missing_column")

			Convey("Then only positive copy counts should be added", func() {
				So(testutil.ToFloat64(globalManager.filesCopied), ShouldEqual, before+3)
				So(testutil.ToFloat64(globalManager.recordsLoaded), ShouldEqual, 250)
				So(testutil.ToFloat64(globalManager.recordsRanked), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.errorsByKind.WithLabelValues("missing_column")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a textfile path", t, func() {
		path := filepath.Join(t.TempDir(), "sqxrank.prom")
		RecordRun(OutcomeSuccess, 1)

		Convey("When the registry is exported", func() {
			err := WriteTextfile(path)

			Convey("Then the file should hold the ranking metrics", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "sqxrank_ranking_runs_total")
			})
		})

		Convey("When the target directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))

			Convey("Then it should fail with ErrExport", func() {
				So(errors.Is(err, ErrExport), ShouldBeTrue)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a configured namespace, subsystem and constant labels", t, func() {
		Configure(
			WithNamespace("desk"),
			WithSubsystem("eod"),
			WithHistogramBuckets([]float64{10, 100}),
			WithCustomLabels(map[string]string{"host": "h1"}),
		)
		t.Cleanup(func() { Configure() })

		Convey("When a run is recorded and exported", func() {
			RecordRun(OutcomeSuccess, 42)
			path := filepath.Join(t.TempDir(), "sqxrank.prom")
			err := WriteTextfile(path)

			Convey("Then the series carry the configured names and labels", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				out := string(data)
				So(out, ShouldContainSubstring, `desk_eod_runs_total{host="h1",outcome="success"} 1`)
				So(out, ShouldContainSubstring, `desk_eod_run_duration_milliseconds_bucket{host="h1",le="100"} 1`)
				So(out, ShouldNotContainSubstring, "sqxrank_ranking_runs_total")
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
