package ranking_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	model "github.com/okian/sqxrank/internal/domain/model"
	ranking "github.com/okian/sqxrank/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// dataset builds a numeric dataset; rows map ID -> values aligned with metrics.
func dataset(metrics []string, ids []string, rows [][]float64) *model.Dataset {
	cols := []model.Column{{Name: "Strategy Name"}}
	for _, m := range metrics {
		cols = append(cols, model.Column{Name: m, Numeric: true})
	}
	recs := make([]model.Record, len(ids))
	for i, id := range ids {
		vals := make(map[string]float64, len(metrics))
		for j, m := range metrics {
			vals[m] = rows[i][j]
		}
		recs[i] = model.Record{ID: id, Values: vals}
	}
	return model.NewDataset(cols, recs)
}

func ids(entries []ranking.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestCompetitionRanks(t *testing.T) {
	Convey("Given values with a tie", t, func() {
		values := []float64{5, 5, 7}

		Convey("When ranking ascending", func() {
			Convey("Then tied values share the lowest rank and the next value skips ahead", func() {
				So(ranking.CompetitionRanks(values, true), ShouldResemble, []int{1, 1, 3})
			})
		})

		Convey("When ranking descending", func() {
			Convey("Then the largest value gets rank 1", func() {
				So(ranking.CompetitionRanks(values, false), ShouldResemble, []int{2, 2, 1})
			})
		})
	})

	Convey("Given values with several tie groups and a missing value", t, func() {
		values := []float64{3, 1, math.NaN(), 3, 1, 2}

		Convey("Then NaN stays unranked and groups skip by their size", func() {
			So(ranking.CompetitionRanks(values, true), ShouldResemble, []int{4, 1, 0, 4, 1, 3})
			So(ranking.CompetitionRanks(values, false), ShouldResemble, []int{1, 4, 0, 1, 4, 3})
		})
	})

	Convey("Given no values", t, func() {
		So(ranking.CompetitionRanks(nil, true), ShouldBeEmpty)
	})
}

func TestEngineRank(t *testing.T) {
	ctx := context.Background()

	Convey("Given three records where every composite score ties", t, func() {
		ds := dataset(
			[]string{"Ret", "PF"},
			[]string{"A", "B", "C"},
			[][]float64{{2.0, 1.5}, {1.0, 2.0}, {3.0, 1.0}},
		)
		criteria := ranking.Criteria{{Metric: "Ret", Weight: 0.5}, {Metric: "PF", Weight: 0.5}}
		engine := ranking.NewEngine()

		Convey("When ranking", func() {
			res, err := engine.Rank(ctx, ds, criteria)
			So(err, ShouldBeNil)

			Convey("Then per-metric ranks follow the higher-is-better direction", func() {
				byID := map[string]ranking.Entry{}
				for _, e := range res.Entries {
					byID[e.ID] = e
				}
				So(byID["C"].Ranks, ShouldResemble, []int{1, 3})
				So(byID["A"].Ranks, ShouldResemble, []int{2, 2})
				So(byID["B"].Ranks, ShouldResemble, []int{3, 1})
			})

			Convey("Then every score is 1/3 and input order is preserved", func() {
				So(ids(res.Entries), ShouldResemble, []string{"A", "B", "C"})
				for _, e := range res.Entries {
					So(e.Score, ShouldAlmostEqual, 1.0/3.0, 1e-12)
				}
				So(res.Entries[0].Score, ShouldEqual, res.Entries[1].Score)
				So(res.Entries[1].Score, ShouldEqual, res.Entries[2].Score)
			})

			Convey("Then positions are 1-based and sequential", func() {
				for i, e := range res.Entries {
					So(e.Position, ShouldEqual, i+1)
				}
				So(res.Total, ShouldEqual, 3)
				So(res.Metrics, ShouldResemble, []string{"Ret", "PF"})
				So(res.Ascending, ShouldResemble, []bool{false, false})
			})
		})
	})

	Convey("Given a lower-is-better metric", t, func() {
		ds := dataset(
			[]string{"Drawdown (IS)"},
			[]string{"S1", "S2", "S3"},
			[][]float64{{500}, {120}, {300}},
		)
		criteria := ranking.Criteria{{Metric: "Drawdown (IS)", Weight: 1}}

		Convey("When ranking with the default direction table", func() {
			res, err := ranking.NewEngine().Rank(ctx, ds, criteria)
			So(err, ShouldBeNil)

			Convey("Then the smallest value ranks first", func() {
				So(ids(res.Entries), ShouldResemble, []string{"S2", "S3", "S1"})
				So(res.Entries[0].Ranks[0], ShouldEqual, 1)
				So(res.Ascending, ShouldResemble, []bool{true})
			})
		})

		Convey("When the direction table is overridden to exclude it", func() {
			engine := ranking.NewEngine(ranking.WithDirections(ranking.NewDirections(nil)))
			res, err := engine.Rank(ctx, ds, criteria)
			So(err, ShouldBeNil)

			Convey("Then the largest value ranks first", func() {
				So(ids(res.Entries), ShouldResemble, []string{"S1", "S3", "S2"})
			})
		})
	})

	Convey("Given weighted metrics with distinct scores", t, func() {
		ds := dataset(
			[]string{"Ret/DD Ratio (IS)", "Stagnation (IS)"},
			[]string{"A", "B", "C", "D"},
			[][]float64{{4, 40}, {2, 10}, {3, 20}, {1, 30}},
		)
		criteria := ranking.Criteria{
			{Metric: "Ret/DD Ratio (IS)", Weight: 0.75},
			{Metric: "Stagnation (IS)", Weight: 0.25},
		}
		res, err := ranking.NewEngine().Rank(ctx, ds, criteria)
		So(err, ShouldBeNil)

		Convey("Then scores follow the weighted rank formula", func() {
			// A: ret rank 1, stag rank 4 -> 3/4*.75 + 0 = .5625
			// C: ret rank 2, stag rank 2 -> 2/4*.75 + 2/4*.25 = .5
			// B: ret rank 3, stag rank 1 -> 1/4*.75 + 3/4*.25 = .375
			// D: ret rank 4, stag rank 3 -> 0 + 1/4*.25 = .0625
			So(ids(res.Entries), ShouldResemble, []string{"A", "C", "B", "D"})
			So(res.Entries[0].Score, ShouldAlmostEqual, 0.5625, 1e-12)
			So(res.Entries[1].Score, ShouldAlmostEqual, 0.5, 1e-12)
			So(res.Entries[2].Score, ShouldAlmostEqual, 0.375, 1e-12)
			So(res.Entries[3].Score, ShouldAlmostEqual, 0.0625, 1e-12)
		})

		Convey("Then scores stay between 0 and the weight sum scaled by (N-1)/N", func() {
			upper := criteria.Sum() * float64(res.Total-1) / float64(res.Total)
			for _, e := range res.Entries {
				So(e.Score, ShouldBeGreaterThanOrEqualTo, 0)
				So(e.Score, ShouldBeLessThanOrEqualTo, upper+1e-12)
			}
		})

		Convey("Then identical input produces identical output", func() {
			again, err := ranking.NewEngine().Rank(ctx, ds, criteria)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, res)
		})
	})

	Convey("Given a record with a missing metric value", t, func() {
		ds := dataset(
			[]string{"PF"},
			[]string{"A", "B", "C"},
			[][]float64{{math.NaN()}, {1}, {2}},
		)
		res, err := ranking.NewEngine().Rank(ctx, ds, ranking.Criteria{{Metric: "PF", Weight: 1}})
		So(err, ShouldBeNil)

		Convey("Then it sorts after every scored record", func() {
			So(ids(res.Entries), ShouldResemble, []string{"C", "B", "A"})
			So(math.IsNaN(res.Entries[2].Score), ShouldBeTrue)
			So(res.Entries[2].Ranks[0], ShouldEqual, 0)
		})
	})
}

func TestEngineTopK(t *testing.T) {
	ctx := context.Background()

	build := func(n int) *model.Dataset {
		names := make([]string, n)
		rows := make([][]float64, n)
		for i := range n {
			names[i] = fmt.Sprintf("Strategy %d", i)
			rows[i] = []float64{float64(i)}
		}
		return dataset([]string{"Net profit (IS)"}, names, rows)
	}
	criteria := ranking.Criteria{{Metric: "Net profit (IS)", Weight: 1}}

	Convey("Given fewer records than the table size", t, func() {
		res, err := ranking.NewEngine().Rank(ctx, build(42), criteria)
		So(err, ShouldBeNil)
		So(res.Len(), ShouldEqual, 42)
	})

	Convey("Given more records than the table size", t, func() {
		res, err := ranking.NewEngine().Rank(ctx, build(250), criteria)
		So(err, ShouldBeNil)

		Convey("Then exactly the default top 100 are kept, best first", func() {
			So(res.Len(), ShouldEqual, ranking.DefaultTopK)
			So(res.Entries[0].ID, ShouldEqual, "Strategy 249")
			So(res.Entries[99].Position, ShouldEqual, 100)
			So(res.Total, ShouldEqual, 250)
		})

		Convey("Then a custom table size is honored", func() {
			res, err := ranking.NewEngine(ranking.WithTopK(5)).Rank(ctx, build(250), criteria)
			So(err, ShouldBeNil)
			So(res.Len(), ShouldEqual, 5)
			So(len(res.Head(3)), ShouldEqual, 3)
			So(len(res.Head(-1)), ShouldEqual, 5)
		})
	})
}

func TestEngineValidation(t *testing.T) {
	ctx := context.Background()
	ds := model.NewDataset(
		[]model.Column{{Name: "Strategy Name"}, {Name: "PF", Numeric: true}, {Name: "TimeFrame (IS)"}, {Name: "Symbol"}},
		[]model.Record{{ID: "A", Values: map[string]float64{"PF": 1}}},
	)
	engine := ranking.NewEngine()

	Convey("Given missing columns", t, func() {
		_, err := engine.Rank(ctx, ds, ranking.Criteria{{Metric: "Sharpe", Weight: 0.5}, {Metric: "Ret", Weight: 0.5}})

		Convey("Then a ColumnError names all of them", func() {
			So(errors.Is(err, ranking.ErrMissingColumn), ShouldBeTrue)
			var colErr *ranking.ColumnError
			So(errors.As(err, &colErr), ShouldBeTrue)
			So(colErr.Columns, ShouldResemble, []string{"Sharpe", "Ret"})
			So(err.Error(), ShouldContainSubstring, `"Sharpe"`)
		})
	})

	Convey("Given non-numeric columns", t, func() {
		_, err := engine.Rank(ctx, ds, ranking.Criteria{{Metric: "TimeFrame (IS)", Weight: 0.5}, {Metric: "Symbol", Weight: 0.5}})

		Convey("Then it fails with the non-numeric kind", func() {
			So(errors.Is(err, ranking.ErrNonNumericColumn), ShouldBeTrue)
			So(errors.Is(err, ranking.ErrMissingColumn), ShouldBeFalse)
		})
	})

	Convey("Given invalid criteria or data", t, func() {
		_, err := engine.Rank(ctx, ds, nil)
		So(errors.Is(err, ranking.ErrNoCriteria), ShouldBeTrue)

		_, err = engine.Rank(ctx, ds, ranking.Criteria{{Metric: "PF", Weight: 0.5}, {Metric: "PF", Weight: 0.5}})
		So(errors.Is(err, ranking.ErrDuplicateMetric), ShouldBeTrue)

		_, err = engine.Rank(ctx, model.NewDataset(ds.Columns, nil), ranking.Criteria{{Metric: "PF", Weight: 1}})
		So(errors.Is(err, ranking.ErrEmptyDataset), ShouldBeTrue)

		_, err = engine.Rank(ctx, nil, ranking.Criteria{{Metric: "PF", Weight: 1}})
		So(errors.Is(err, ranking.ErrEmptyDataset), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := engine.Rank(cctx, ds, ranking.Criteria{{Metric: "PF", Weight: 1}})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestTopByMetric(t *testing.T) {
	Convey("Given ranked entries", t, func() {
		entries := []ranking.Entry{
			{Position: 1, ID: "A", Values: []float64{3}},
			{Position: 2, ID: "B", Values: []float64{math.NaN()}},
			{Position: 3, ID: "C", Values: []float64{1}},
			{Position: 4, ID: "D", Values: []float64{3}},
		}

		Convey("Then descending order puts the largest first and keeps ties in table order", func() {
			So(ids(ranking.TopByMetric(entries, 0, 10, false)), ShouldResemble, []string{"A", "D", "C", "B"})
		})

		Convey("Then ascending order puts the smallest first and truncates", func() {
			So(ids(ranking.TopByMetric(entries, 0, 2, true)), ShouldResemble, []string{"C", "A"})
		})

		Convey("Then the input slice is untouched", func() {
			_ = ranking.TopByMetric(entries, 0, 2, true)
			So(ids(entries), ShouldResemble, []string{"A", "B", "C", "D"})
		})
	})
}

func TestCriteriaAndDirections(t *testing.T) {
	Convey("Given the default weights", t, func() {
		c := ranking.Criteria{
			{Metric: "Ret/DD Ratio (IS)", Weight: 0.5},
			{Metric: "Profit factor (IS)", Weight: 0.3},
			{Metric: "Sharpe Ratio (IS)", Weight: 0.2},
		}
		So(c.Metrics(), ShouldResemble, []string{"Ret/DD Ratio (IS)", "Profit factor (IS)", "Sharpe Ratio (IS)"})
		So(c.CheckWeights(0.001), ShouldBeNil)
	})

	Convey("Given weights that do not sum to one", t, func() {
		c := ranking.Criteria{{Metric: "a", Weight: 0.5}, {Metric: "b", Weight: 0.3}}
		err := c.CheckWeights(0.001)
		So(errors.Is(err, ranking.ErrWeightSum), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "0.8000")
	})

	Convey("Given a negative weight", t, func() {
		c := ranking.Criteria{{Metric: "a", Weight: 1.5}, {Metric: "b", Weight: -0.5}}
		So(errors.Is(c.CheckWeights(0.001), ranking.ErrNegativeWeight), ShouldBeTrue)
	})

	Convey("Given the default direction table", t, func() {
		d := ranking.DefaultDirections()
		for _, m := range ranking.DefaultLowerIsBetter() {
			So(d.LowerIsBetter(m), ShouldBeTrue)
		}
		So(d.LowerIsBetter("Profit factor (IS)"), ShouldBeFalse)
		So(len(d.LowerIsBetterMetrics()), ShouldEqual, 5)
		So(ranking.Directions{}.LowerIsBetter("Drawdown (IS)"), ShouldBeFalse)
	})
}
