package population

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/popsim/internal/engine"
)

var _ = Describe("Runner", func() {
	var (
		ctx      context.Context
		exporter *countingExporter
		obs      *recorder
		runner   *Runner
	)

	BeforeEach(func() {
		ctx = context.Background()
		exporter = &countingExporter{inner: engine.NewExporter()}
		obs = &recorder{}
		runner = NewRunner(exporter, engine.ODEFactory{}, WithObserver(obs))
	})

	It("simulates every individual once and exports once", func() {
		res, err := runner.RunPopulation(ctx, pkDefinition(), clearances(10), nil, nil, 4)
		Expect(err).NotTo(HaveOccurred())

		Expect(exporter.calls.Load()).To(Equal(int32(1)))
		Expect(res.Individuals).To(HaveLen(10))
		Expect(res.Failures).To(BeEmpty())
		Expect(res.Processed()).To(Equal(10))
		for i, ind := range res.Individuals {
			Expect(ind.IndividualID).To(Equal(i + 1))
			Expect(ind.Time.Path).To(Equal(TimePath))
			Expect(ind.Time.Values).To(Equal([]float32{0, 0.5, 1, 1.5, 2}))
			Expect(ind.Quantities).To(HaveLen(1))
			Expect(ind.Quantities[0].Path).To(Equal("Organism|Plasma"))
			Expect(ind.Quantities[0].Values).To(HaveLen(5))
		}

		_, terminated := obs.snapshot()
		Expect(terminated).To(Equal(1))
		Expect(runner.Running()).To(BeFalse())
	})

	It("gives the same results on one core and on four", func() {
		one, err := runner.RunPopulation(ctx, pkDefinition(), clearances(9), nil, nil, 1)
		Expect(err).NotTo(HaveOccurred())
		four, err := runner.RunPopulation(ctx, pkDefinition(), clearances(9), nil, nil, 4)
		Expect(err).NotTo(HaveOccurred())

		Expect(four.Individuals).To(Equal(one.Individuals))
	})

	It("clamps the core count to one", func() {
		res, err := runner.RunPopulation(ctx, pkDefinition(), clearances(3), nil, nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Individuals).To(HaveLen(3))
	})

	It("uses more cores than individuals", func() {
		res, err := runner.RunPopulation(ctx, pkDefinition(), clearances(2), nil, nil, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Individuals).To(HaveLen(2))
	})

	It("completes an empty population immediately", func() {
		res, err := runner.RunPopulation(ctx, pkDefinition(), NewValueTable("Organism|Clearance"), nil, nil, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Individuals).To(BeEmpty())
		Expect(res.Failures).To(BeEmpty())
		Expect(res.Warnings).To(BeEmpty())

		progress, terminated := obs.snapshot()
		Expect(progress).To(BeEmpty())
		Expect(terminated).To(Equal(1))
	})

	It("records a solver failure and keeps going", func() {
		pop := NewValueTable("Organism|Volume")
		for id := 1; id <= 6; id++ {
			v := 50.0
			if id == 3 {
				v = 0
			}
			Expect(pop.AddRow(id, v)).To(Succeed())
		}

		res, err := runner.RunPopulation(ctx, pkDefinition(), pop, nil, nil, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Individuals).To(HaveLen(5))

		msg, failed := res.Failure(3)
		Expect(failed).To(BeTrue())
		Expect(msg).To(ContainSubstring("Trial"))
		_, ok := res.Individual(3)
		Expect(ok).To(BeFalse())

		progress, _ := obs.snapshot()
		Expect(progress).To(HaveLen(6))
	})

	It("reports progress once per individual up to the total", func() {
		_, err := runner.RunPopulation(ctx, pkDefinition(), clearances(7), nil, nil, 1)
		Expect(err).NotTo(HaveOccurred())

		progress, _ := obs.snapshot()
		Expect(progress).To(Equal([]int{1, 2, 3, 4, 5, 6, 7}))
		Expect(obs.totals).To(HaveEach(7))
	})

	It("reports each processed count exactly once across cores", func() {
		_, err := runner.RunPopulation(ctx, pkDefinition(), clearances(12), nil, nil, 4)
		Expect(err).NotTo(HaveOccurred())

		progress, _ := obs.snapshot()
		Expect(progress).To(ConsistOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12))
	})

	It("expands constant outputs to the time grid", func() {
		pop := NewValueTable("Organism|Ka")
		Expect(pop.AddRow(1, 0)).To(Succeed())
		Expect(pop.AddRow(2, 1)).To(Succeed())

		runner = NewRunner(exporter, engine.ODEFactory{}, WithExportMode(engine.ExportFull))
		res, err := runner.RunPopulation(ctx, pkDefinition(), pop, nil, nil, 2)
		Expect(err).NotTo(HaveOccurred())

		still, ok := res.Individual(1)
		Expect(ok).To(BeTrue())
		gut, ok := still.Quantity("Organism|Gut")
		Expect(ok).To(BeTrue())
		Expect(gut.Values).To(Equal([]float32{100, 100, 100, 100, 100}))

		moving, _ := res.Individual(2)
		gut, _ = moving.Quantity("Organism|Gut")
		Expect(gut.Values[4]).To(BeNumerically("<", 100))
	})

	It("applies initial values and aging curves per individual", func() {
		initial := NewValueTable("Organism|Gut")
		Expect(initial.AddRow(2, 200)).To(Succeed())

		aging := &AgingTable{}
		aging.Add(3, "Organism|Clearance", 0, 5)
		aging.Add(3, "Organism|Clearance", 1, 20)

		pop := NewValueTable("Organism|Volume")
		for id := 1; id <= 3; id++ {
			Expect(pop.AddRow(id, NoValue)).To(Succeed())
		}

		res, err := runner.RunPopulation(ctx, pkDefinition(), pop, aging, initial, 3)
		Expect(err).NotTo(HaveOccurred())

		plasma := func(id int) float32 {
			ind, ok := res.Individual(id)
			Expect(ok).To(BeTrue())
			q, _ := ind.Quantity("Organism|Plasma")
			return q.Values[2]
		}
		Expect(plasma(2)).To(BeNumerically("~", 2*plasma(1), 1e-3))
		Expect(plasma(3)).To(BeNumerically("<", plasma(1)))

		Expect(res.WarningsFor(3)).To(HaveLen(1))
		Expect(res.WarningsFor(1)).To(BeEmpty())
	})

	It("does not let one individual's overrides leak into the next", func() {
		pop := NewValueTable("Organism|Clearance")
		Expect(pop.AddRow(1, 50)).To(Succeed())
		Expect(pop.AddRow(2, NoValue)).To(Succeed())

		res, err := runner.RunPopulation(ctx, pkDefinition(), pop, nil, nil, 1)
		Expect(err).NotTo(HaveOccurred())

		base := NewValueTable("Organism|Clearance")
		Expect(base.AddRow(2, 5)).To(Succeed())
		ref, err := runner.RunPopulation(ctx, pkDefinition(), base, nil, nil, 1)
		Expect(err).NotTo(HaveOccurred())

		got, _ := res.Individual(2)
		want, _ := ref.Individual(2)
		Expect(got.Quantities).To(Equal(want.Quantities))
	})

	It("fails the run on a path the model does not have", func() {
		pop := NewValueTable("Organism|Weight")
		Expect(pop.AddRow(1, 70)).To(Succeed())

		res, err := runner.RunPopulation(ctx, pkDefinition(), pop, nil, nil, 2)
		Expect(err).To(MatchError(ErrConfiguration))
		Expect(res).To(BeNil())

		_, terminated := obs.snapshot()
		Expect(terminated).To(Equal(1))
	})

	It("rejects duplicate individuals", func() {
		pop := NewValueTable("Organism|Clearance")
		Expect(pop.AddRow(1, 1)).To(Succeed())
		Expect(pop.AddRow(1, 2)).To(Succeed())

		_, err := runner.RunPopulation(ctx, pkDefinition(), pop, nil, nil, 1)
		Expect(err).To(MatchError(ErrDuplicateIndividual))
	})

	It("reports an invalid simulation as an export error", func() {
		def := pkDefinition()
		def.Model = "cartpole"
		_, err := runner.RunPopulation(ctx, def, clearances(2), nil, nil, 1)
		Expect(err).To(MatchError(engine.ErrInvalidDefinition))
	})

	It("turns a worker panic into an error", func() {
		runner = NewRunner(exporter, panicFactory{}, WithObserver(obs))
		_, err := runner.RunPopulation(ctx, pkDefinition(), clearances(4), nil, nil, 2)
		Expect(err).To(MatchError(ErrWorkerPanic))
		Expect(runner.Running()).To(BeFalse())
	})

	Context("cancellation", func() {
		It("cancels before any individual runs", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			res, err := runner.RunPopulation(canceled, pkDefinition(), clearances(5), nil, nil, 2)
			Expect(err).To(MatchError(ErrCanceled))
			Expect(res).To(BeNil())

			progress, terminated := obs.snapshot()
			Expect(progress).To(BeEmpty())
			Expect(terminated).To(Equal(1))
		})

		It("stops starting individuals after Stop", func() {
			gate := newGatedFactory()
			runner = NewRunner(exporter, gate, WithObserver(obs))

			done := make(chan error, 1)
			go func() {
				_, err := runner.RunPopulation(ctx, pkDefinition(), clearances(20), nil, nil, 2)
				done <- err
			}()

			Eventually(gate.started).Should(Receive())
			runner.Stop()
			close(gate.release)

			var err error
			Eventually(done, 5*time.Second).Should(Receive(&err))
			Expect(err).To(MatchError(ErrCanceled))

			progress, terminated := obs.snapshot()
			Expect(len(progress)).To(BeNumerically("<=", 2))
			Expect(terminated).To(Equal(1))
		})

		It("rejects a second run while one is in progress", func() {
			gate := newGatedFactory()
			runner = NewRunner(exporter, gate, WithObserver(obs))

			done := make(chan error, 1)
			go func() {
				_, err := runner.RunPopulation(ctx, pkDefinition(), clearances(2), nil, nil, 1)
				done <- err
			}()
			Eventually(gate.started).Should(Receive())

			_, err := runner.RunPopulation(ctx, pkDefinition(), clearances(2), nil, nil, 1)
			Expect(err).To(MatchError(ErrRunInProgress))

			close(gate.release)
			Eventually(done, 5*time.Second).Should(Receive(BeNil()))

			_, terminated := obs.snapshot()
			Expect(terminated).To(Equal(1))
		})
	})
})

var _ = Describe("collect", func() {
	It("broadcasts constants and strips the simulation name", func() {
		h := stubHandle{
			times: []float64{0, 1, 2},
			values: []engine.Values{
				{Path: "Trial|Organism|Plasma", Samples: []float64{0, 1, 2}},
				{Path: "Trial|Organism|Gut", Samples: []float64{7}, IsConstant: true},
				{Path: "Trial|Organism|Eliminated", IsConstant: true},
			},
		}

		res := collect(42, h, "Trial")
		Expect(res.IndividualID).To(Equal(42))
		Expect(res.Time.Values).To(Equal([]float32{0, 1, 2}))
		Expect(res.Quantities[0]).To(Equal(QuantityValues{Path: "Organism|Plasma", Values: []float32{0, 1, 2}}))
		Expect(res.Quantities[1].Values).To(Equal([]float32{7, 7, 7}))

		nan := res.Quantities[2]
		Expect(nan.Path).To(Equal("Organism|Eliminated"))
		Expect(nan.Values).To(HaveLen(3))
		for _, v := range nan.Values {
			Expect(math.IsNaN(float64(v))).To(BeTrue())
		}
	})
})
