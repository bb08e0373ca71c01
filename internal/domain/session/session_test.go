package session_test

import (
	"errors"
	"math/rand"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/okian/pairwise/internal/domain/pairing"
	"github.com/okian/pairwise/internal/domain/rating"
	"github.com/okian/pairwise/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

var threeItems = []string{"x", "y", "z"}

func seeded() session.Option {
	return session.WithRand(rand.New(rand.NewSource(1))) //nolint:gosec // deterministic test seed
}

func sumGames(t session.State) int {
	total := 0
	for _, g := range t.Games {
		total += g
	}
	return total
}

func TestNew(t *testing.T) {
	Convey("Given a fresh session over three items", t, func() {
		s := session.New(threeItems, seeded())

		Convey("Then every item starts at the initial rating with no games", func() {
			st := s.Snapshot()
			So(st.Items, ShouldResemble, threeItems)
			for _, id := range threeItems {
				So(st.Ratings[id], ShouldEqual, rating.DefaultInitial)
				So(st.Games[id], ShouldEqual, 0)
			}
			So(st.Count, ShouldEqual, 0)
			So(st.K, ShouldEqual, rating.DefaultK)
			So(st.PairIndex, ShouldEqual, 0)
			So(len(st.Pairs), ShouldEqual, 3)
			So(s.Status(), ShouldEqual, session.InProgress)
		})

		Convey("Then the current pair is the first of the sequence", func() {
			p, ok := s.Current()
			So(ok, ShouldBeTrue)
			So(p, ShouldResemble, s.Snapshot().Pairs[0])
		})
	})

	Convey("Given options", t, func() {
		s := session.New(threeItems, seeded(), session.WithK(32), session.WithInitialRating(1000), session.WithK(-1))

		Convey("Then they apply and invalid K is ignored", func() {
			So(s.K(), ShouldEqual, 32)
			r, g, ok := s.Rating("y")
			So(ok, ShouldBeTrue)
			So(r, ShouldEqual, 1000)
			So(g, ShouldEqual, 0)
		})
	})

	Convey("Given a single item catalog", t, func() {
		s := session.New([]string{"solo"}, seeded())

		Convey("Then the session is complete immediately", func() {
			So(s.Total(), ShouldEqual, 0)
			So(s.Done(), ShouldBeTrue)
			_, ok := s.Current()
			So(ok, ShouldBeFalse)
			_, err := s.Record(rating.AWins)
			So(errors.Is(err, session.ErrComplete), ShouldBeTrue)
		})
	})
}

func TestRecord(t *testing.T) {
	Convey("Given two items at equal ratings", t, func() {
		s := session.New([]string{"X", "Y"}, seeded())
		p, _ := s.Current()

		Convey("When side A wins", func() {
			got, err := s.Record(rating.AWins)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, p)

			Convey("Then A is 1512 and B is 1488", func() {
				ra, ga, _ := s.Rating(p[0])
				rb, gb, _ := s.Rating(p[1])
				So(ra, ShouldAlmostEqual, 1512, 1e-9)
				So(rb, ShouldAlmostEqual, 1488, 1e-9)
				So(ga, ShouldEqual, 1)
				So(gb, ShouldEqual, 1)
				So(s.Count(), ShouldEqual, 1)
				So(s.Status(), ShouldEqual, session.Complete)
			})
		})
	})

	Convey("Given a three item catalog", t, func() {
		s := session.New(threeItems, seeded())
		outcomes := []rating.Outcome{rating.AWins, rating.BWins, rating.Draw}

		Convey("When exactly three comparisons are recorded", func() {
			for i, o := range outcomes {
				So(s.Status(), ShouldEqual, session.InProgress)
				So(s.PairIndex(), ShouldEqual, i)
				_, err := s.Record(o)
				So(err, ShouldBeNil)
			}

			Convey("Then the session is complete with consistent counters", func() {
				So(s.Status(), ShouldEqual, session.Complete)
				st := s.Snapshot()
				So(st.Done, ShouldBeTrue)
				So(st.PairIndex, ShouldEqual, len(st.Pairs))
				So(st.Count, ShouldEqual, 3)
				So(sumGames(st), ShouldEqual, 6)
			})

			Convey("Then TopN(3) lists everything by rating descending", func() {
				top, err := s.TopN(3)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)
				for i := range top {
					So(top[i].Rank, ShouldEqual, i+1)
					if i > 0 {
						So(top[i-1].Raw, ShouldBeGreaterThanOrEqualTo, top[i].Raw)
					}
				}
			})

			Convey("Then a further record fails", func() {
				_, err := s.Record(rating.AWins)
				So(errors.Is(err, session.ErrComplete), ShouldBeTrue)
				So(s.Count(), ShouldEqual, 3)
			})

			Convey("Then Reset starts over", func() {
				s.Reset()
				st := s.Snapshot()
				So(s.Status(), ShouldEqual, session.InProgress)
				So(st.Count, ShouldEqual, 0)
				So(sumGames(st), ShouldEqual, 0)
				So(st.Ratings["x"], ShouldEqual, rating.DefaultInitial)
				So(len(st.Pairs), ShouldEqual, 3)
			})
		})

		Convey("When a K-factor is imported and the session is reset", func() {
			So(s.Import([]byte(`{"ratings":{"x":1600},"k":40}`)), ShouldBeNil)
			So(s.K(), ShouldEqual, 40.0)
			s.Reset()

			Convey("Then the configured K is back", func() {
				So(s.K(), ShouldEqual, rating.DefaultK)
				So(s.Snapshot().Ratings["x"], ShouldEqual, rating.DefaultInitial)
			})
		})

		Convey("When an invalid outcome is recorded", func() {
			_, err := s.Record(rating.Outcome(7))

			Convey("Then nothing changes", func() {
				So(errors.Is(err, session.ErrInvalidChoice), ShouldBeTrue)
				So(s.Count(), ShouldEqual, 0)
				So(s.PairIndex(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given the full fourteen item catalog", t, func() {
		ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n"}
		s := session.New(ids, seeded())
		rnd := rand.New(rand.NewSource(3)) //nolint:gosec // deterministic test seed

		Convey("When M random comparisons are recorded", func() {
			const m = 40
			for i := 0; i < m; i++ {
				_, err := s.Record(rating.Outcome(rnd.Intn(3)))
				So(err, ShouldBeNil)
			}

			Convey("Then count is M and games sum to 2M", func() {
				st := s.Snapshot()
				So(st.Count, ShouldEqual, m)
				So(sumGames(st), ShouldEqual, 2*m)
				So(s.Total(), ShouldEqual, 91)
			})
		})
	})
}

func TestParseChoice(t *testing.T) {
	Convey("Given choice names", t, func() {
		o, err := session.ParseChoice("left")
		So(err, ShouldBeNil)
		So(o, ShouldEqual, rating.AWins)
		o, _ = session.ParseChoice(" RIGHT ")
		So(o, ShouldEqual, rating.BWins)
		o, _ = session.ParseChoice("draw")
		So(o, ShouldEqual, rating.Draw)
		_, err = session.ParseChoice("up")
		So(errors.Is(err, session.ErrInvalidChoice), ShouldBeTrue)
	})
}

func TestTopN(t *testing.T) {
	Convey("Given tied ratings", t, func() {
		s := session.New(threeItems, seeded())

		Convey("Then ties keep declaration order", func() {
			top, err := s.TopN(10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 3)
			So(top[0].ID, ShouldEqual, "x")
			So(top[1].ID, ShouldEqual, "y")
			So(top[2].ID, ShouldEqual, "z")
			So(top[0].Rating, ShouldEqual, 1500)
		})

		Convey("Then a non-positive limit is rejected", func() {
			_, err := s.TopN(0)
			So(errors.Is(err, session.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Then ratings round half up", func() {
			So(s.Import([]byte(`{"ratings":{"z":1511.5,"y":1511.49}}`)), ShouldBeNil)
			top, _ := s.TopN(2)
			So(top[0].ID, ShouldEqual, "z")
			So(top[0].Rating, ShouldEqual, 1512)
			So(top[1].ID, ShouldEqual, "y")
			So(top[1].Rating, ShouldEqual, 1511)
		})
	})
}

func TestMarshalRestore(t *testing.T) {
	Convey("Given a session with some progress", t, func() {
		s := session.New(threeItems, seeded(), session.WithK(16))
		_, _ = s.Record(rating.AWins)
		_, _ = s.Record(rating.Draw)

		data, err := s.Marshal()
		So(err, ShouldBeNil)

		Convey("When it is restored", func() {
			r, err := session.Restore(data, threeItems)

			Convey("Then it is observably identical", func() {
				So(err, ShouldBeNil)
				So(r.Snapshot(), ShouldResemble, s.Snapshot())
				So(r.K(), ShouldEqual, 16)
			})
		})

		Convey("When the document uses the transport field names", func() {
			var doc map[string]interface{}
			So(json.Unmarshal(data, &doc), ShouldBeNil)

			Convey("Then all fields are present", func() {
				for _, key := range []string{"items", "ratings", "games", "count", "k", "pairs", "pairIndex", "done"} {
					So(doc, ShouldContainKey, key)
				}
				So(doc["pairIndex"], ShouldEqual, float64(2))
			})
		})
	})

	Convey("Given corrupt documents", t, func() {
		cases := map[string]string{
			"not json":          `{"items":`,
			"missing items":     `{"ratings":{},"pairs":[]}`,
			"missing ratings":   `{"items":["x","y","z"],"pairs":[]}`,
			"pairs not a list":  `{"items":["x","y","z"],"ratings":{"x":1,"y":1,"z":1},"pairs":null}`,
			"other catalog":     `{"items":["a"],"ratings":{"a":1},"pairs":[]}`,
			"index too large":   `{"items":["x","y","z"],"ratings":{"x":1,"y":1,"z":1},"pairs":[["x","y"]],"pairIndex":2,"k":24}`,
			"unknown pair item": `{"items":["x","y","z"],"ratings":{"x":1,"y":1,"z":1},"pairs":[["x","q"]],"k":24}`,
			"missing a rating":  `{"items":["x","y","z"],"ratings":{"x":1,"y":1},"pairs":[],"k":24}`,
			"three item pair":   `{"items":["x","y","z"],"ratings":{"x":1,"y":1,"z":1},"pairs":[["x","y","z"]],"k":24}`,
		}
		for name, doc := range cases {
			_, err := session.Restore([]byte(doc), threeItems)
			So(errors.Is(err, session.ErrInvalidState), ShouldBeTrue)
			_ = name
		}

		Convey("Then RestoreOrNew falls back to a fresh session", func() {
			s, err := session.RestoreOrNew([]byte(`garbage`), threeItems, seeded())
			So(err, ShouldNotBeNil)
			So(s, ShouldNotBeNil)
			So(s.Status(), ShouldEqual, session.InProgress)
			So(s.Total(), ShouldEqual, 3)

			s, err = session.RestoreOrNew(nil, threeItems, seeded())
			So(err, ShouldNotBeNil)
			So(s.Count(), ShouldEqual, 0)
		})
	})

	Convey("Given a document without games or k", t, func() {
		doc := `{"items":["x","y","z"],"ratings":{"x":1510,"y":1490,"z":1500},"pairs":[["x","y"],["y","z"],["x","z"]],"pairIndex":3,"done":false}`
		s, err := session.Restore([]byte(doc), threeItems, session.WithK(20))

		Convey("Then missing fields default and done is recomputed", func() {
			So(err, ShouldBeNil)
			So(s.K(), ShouldEqual, 20)
			_, g, _ := s.Rating("x")
			So(g, ShouldEqual, 0)
			So(s.Done(), ShouldBeTrue)
		})
	})
}

func TestImport(t *testing.T) {
	Convey("Given a session in progress", t, func() {
		s := session.New(threeItems, seeded())
		_, _ = s.Record(rating.AWins)
		before := s.Snapshot()

		Convey("When only ratings are imported", func() {
			err := s.Import([]byte(`{"ratings":{"x":1600}}`))

			Convey("Then pairs, index and K are kept and other ratings merge", func() {
				So(err, ShouldBeNil)
				after := s.Snapshot()
				So(after.Pairs, ShouldResemble, before.Pairs)
				So(after.PairIndex, ShouldEqual, before.PairIndex)
				So(after.K, ShouldEqual, before.K)
				So(after.Ratings["x"], ShouldEqual, 1600)
				So(after.Ratings["y"], ShouldEqual, before.Ratings["y"])
				So(after.Games, ShouldResemble, before.Games)
			})
		})

		Convey("When every field is imported", func() {
			err := s.Import([]byte(`{"ratings":{"y":1400},"games":{"y":5},"count":0,"k":10,"pairs":[["z","x"],["x","y"]],"pairIndex":1}`))

			Convey("Then each one replaces or merges", func() {
				So(err, ShouldBeNil)
				after := s.Snapshot()
				So(after.Count, ShouldEqual, 0)
				So(after.K, ShouldEqual, 10)
				So(after.Games["y"], ShouldEqual, 5)
				So(after.Pairs, ShouldResemble, []pairing.Pair{{"z", "x"}, {"x", "y"}})
				So(after.PairIndex, ShouldEqual, 1)
				So(after.Done, ShouldBeFalse)
				p, _ := s.Current()
				So(p, ShouldResemble, pairing.Pair{"x", "y"})
			})
		})

		Convey("When the payload is rejected", func() {
			bad := []string{
				`not json`,
				`{"games":{"x":1}}`,
				`{"ratings":{"nope":1}}`,
				`{"ratings":{},"games":{"x":-1}}`,
				`{"ratings":{},"count":-2}`,
				`{"ratings":{},"k":0}`,
				`{"ratings":{},"k":-3}`,
				`{"ratings":{},"pairs":[["x","x"]]}`,
				`{"ratings":{},"pairs":[["x","q"]]}`,
				`{"ratings":{},"pairIndex":4}`,
				`{"ratings":{},"pairIndex":-1}`,
				`{"ratings":{},"pairs":[]}`,
				`{"ratings":{},"pairs":[["x","y","z"]],"pairIndex":0}`,
				`{"ratings":{},"pairs":[["x"]],"pairIndex":0}`,
			}

			Convey("Then state is untouched", func() {
				for _, doc := range bad {
					err := s.Import([]byte(doc))
					So(err, ShouldNotBeNil)
					So(errors.Is(err, session.ErrInvalidImport), ShouldBeTrue)
					So(s.Snapshot(), ShouldResemble, before)
				}
			})
		})

		Convey("When an empty pairing sequence is imported with index zero", func() {
			err := s.Import([]byte(`{"ratings":{},"pairs":[],"pairIndex":0}`))

			Convey("Then the session is complete", func() {
				So(err, ShouldBeNil)
				So(s.Status(), ShouldEqual, session.Complete)
			})
		})
	})

	Convey("Given a complete session", t, func() {
		s := session.New([]string{"x", "y"}, seeded())
		_, _ = s.Record(rating.BWins)

		Convey("When the import keeps it complete", func() {
			So(s.Import([]byte(`{"ratings":{"x":1700}}`)), ShouldBeNil)
			So(s.Done(), ShouldBeTrue)
		})

		Convey("When the import would reopen it", func() {
			err := s.Import([]byte(`{"ratings":{},"pairIndex":0}`))
			So(errors.Is(err, session.ErrComplete), ShouldBeTrue)
			So(s.Done(), ShouldBeTrue)
		})
	})
}
