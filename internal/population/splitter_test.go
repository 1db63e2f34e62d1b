package population

import (
	"context"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/popsim/internal/engine"
)

var _ = Describe("Splitter", func() {
	It("partitions individuals into contiguous near-equal ranges", func() {
		for n := 0; n <= 25; n++ {
			for cores := 1; cores <= 7; cores++ {
				pop := NewValueTable("Organism|Clearance")
				// Insert in descending order to exercise sorting.
				for id := n; id >= 1; id-- {
					Expect(pop.AddRow(id*10, 1)).To(Succeed())
				}
				s, err := NewSplitter(pop, nil, nil, cores)
				Expect(err).NotTo(HaveOccurred())
				Expect(s.IndividualCount()).To(Equal(n))

				var all []int
				sizes := make([]int, cores)
				for c := 0; c < cores; c++ {
					ids := s.IndividualsForCore(c)
					sizes[c] = len(ids)
					all = append(all, ids...)
				}

				want := make([]int, 0, n)
				for id := 1; id <= n; id++ {
					want = append(want, id*10)
				}
				Expect(all).To(HaveLen(n))
				if n > 0 {
					Expect(all).To(Equal(want))
				}
				for c := 1; c < cores; c++ {
					Expect(sizes[c]).To(BeNumerically("<=", sizes[c-1]))
					Expect(sizes[0] - sizes[c]).To(BeNumerically("<=", 1))
				}
			}
		}
	})

	It("gives the remainder to the first cores", func() {
		s, err := NewSplitter(clearances(10), nil, nil, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.IndividualsForCore(0)).To(Equal([]int{1, 2, 3}))
		Expect(s.IndividualsForCore(1)).To(Equal([]int{4, 5, 6}))
		Expect(s.IndividualsForCore(2)).To(Equal([]int{7, 8}))
		Expect(s.IndividualsForCore(3)).To(Equal([]int{9, 10}))
		Expect(s.IndividualsForCore(4)).To(BeNil())
	})

	It("collects the paths to vary from population and aging data", func() {
		aging := &AgingTable{}
		aging.Add(1, "Organism|Volume", 0, 40)
		aging.Add(1, "Organism|Clearance", 0, 4)
		initial := NewValueTable("Organism|Gut")

		s, err := NewSplitter(clearances(1), aging, initial, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ParameterPathsToVary()).To(Equal([]string{"Organism|Clearance", "Organism|Volume"}))
		Expect(s.InitialValuePathsToVary()).To(Equal([]string{"Organism|Gut"}))
	})

	It("rejects bad input", func() {
		initial := NewValueTable("Organism|Gut")
		Expect(initial.AddRow(1, 1)).To(Succeed())
		Expect(initial.AddRow(1, 2)).To(Succeed())
		_, err := NewSplitter(clearances(1), nil, initial, 1)
		Expect(err).To(MatchError(ErrDuplicateIndividual))

		aging := &AgingTable{}
		aging.Add(1, "Organism|Clearance", 1, 4)
		aging.Add(1, "Organism|Clearance", 1, 5)
		_, err = NewSplitter(clearances(1), aging, nil, 1)
		Expect(err).To(MatchError(ErrConfiguration))

		dup := &ValueTable{Paths: []string{"A", "A"}}
		_, err = NewSplitter(dup, nil, nil, 1)
		Expect(err).To(MatchError(ErrConfiguration))
	})

	Describe("ApplyOverridesFor", func() {
		var sim *engine.Simulation

		finalized := func(s *Splitter) *engine.Simulation {
			desc, err := engine.NewExporter().Export(context.Background(), pkDefinition(), engine.ExportOptimized)
			Expect(err).NotTo(HaveOccurred())
			h, err := engine.NewSimulation(desc)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.SetVariableParameters(s.ParameterPathsToVary())).To(Succeed())
			Expect(h.SetVariableSpecies(s.InitialValuePathsToVary())).To(Succeed())
			Expect(h.Finalize()).To(Succeed())
			return h
		}

		It("falls back to defaults for missing cells", func() {
			pop := NewValueTable("Organism|Clearance", "Organism|Volume")
			Expect(pop.AddRow(1, 9, NoValue)).To(Succeed())
			Expect(pop.AddRow(2, NoValue, 60)).To(Succeed())
			s, err := NewSplitter(pop, nil, nil, 1)
			Expect(err).NotTo(HaveOccurred())
			sim = finalized(s)

			Expect(s.ApplyOverridesFor(1, sim)).To(Succeed())
			Expect(sim.Run()).To(Succeed())
			first := sim.Values()[0].Samples

			Expect(s.ApplyOverridesFor(2, sim)).To(Succeed())
			Expect(sim.Run()).To(Succeed())
			Expect(sim.Values()[0].Samples).NotTo(Equal(first))
		})

		It("rejects unknown individuals", func() {
			s, err := NewSplitter(clearances(1), nil, nil, 1)
			Expect(err).NotTo(HaveOccurred())
			sim = finalized(s)
			Expect(s.ApplyOverridesFor(99, sim)).To(MatchError(ErrConfiguration))
		})
	})
})

var _ = Describe("CSV tables", func() {
	It("reads a population with empty cells", func() {
		in := "IndividualId,Organism|Clearance,Organism|Volume\n" +
			"1,4.5,\n" +
			"2, ,55\n"
		t, err := ReadValueTable(strings.NewReader(in))
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Paths).To(Equal([]string{"Organism|Clearance", "Organism|Volume"}))
		Expect(t.Rows).To(HaveLen(2))
		Expect(t.Rows[0].Values[0]).To(Equal(4.5))
		Expect(math.IsNaN(t.Rows[0].Values[1])).To(BeTrue())
		Expect(math.IsNaN(t.Rows[1].Values[0])).To(BeTrue())
		Expect(t.Rows[1].IndividualID).To(Equal(2))
	})

	It("reads an empty file as an empty table", func() {
		t, err := ReadValueTable(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Len()).To(BeZero())

		a, err := ReadAgingTable(strings.NewReader(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Len()).To(BeZero())
	})

	It("reads aging data", func() {
		in := "IndividualId,ParameterPath,Time,Value\n" +
			"3,Organism|Clearance,0,5\n" +
			"3,Organism|Clearance,1,20\n"
		a, err := ReadAgingTable(strings.NewReader(in))
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Rows).To(Equal([]AgingRow{
			{IndividualID: 3, ParameterPath: "Organism|Clearance", Time: 0, Value: 5},
			{IndividualID: 3, ParameterPath: "Organism|Clearance", Time: 1, Value: 20},
		}))
	})

	DescribeTable("rejects malformed input",
		func(in string, aging bool) {
			var err error
			if aging {
				_, err = ReadAgingTable(strings.NewReader(in))
			} else {
				_, err = ReadValueTable(strings.NewReader(in))
			}
			Expect(err).To(HaveOccurred())
		},
		Entry("wrong id column", "Id,A\n1,2\n", false),
		Entry("non-numeric id", "IndividualId,A\nx,2\n", false),
		Entry("non-numeric value", "IndividualId,A\n1,abc\n", false),
		Entry("wrong aging header", "IndividualId,Path,Time,Value\n", true),
		Entry("bad aging time", "IndividualId,ParameterPath,Time,Value\n1,A,t,2\n", true),
		Entry("NaN aging value", "IndividualId,ParameterPath,Time,Value\n1,A,0,NaN\n", true),
	)
})

var _ = Describe("Results", func() {
	It("finalizes in id order with lookups", func() {
		r := NewResults()
		r.AddSuccess(IndividualResult{IndividualID: 5})
		r.AddFailure(2, "boom")
		r.AddSuccess(IndividualResult{IndividualID: 1})
		r.AddWarnings(5, []string{"a"})
		r.AddWarnings(5, []string{"b"})
		r.AddWarnings(1, nil)

		out := r.Finalize()
		Expect(out.Individuals[0].IndividualID).To(Equal(1))
		Expect(out.Individuals[1].IndividualID).To(Equal(5))
		Expect(out.Processed()).To(Equal(3))

		msg, ok := out.Failure(2)
		Expect(ok).To(BeTrue())
		Expect(msg).To(Equal("boom"))
		_, ok = out.Failure(5)
		Expect(ok).To(BeFalse())

		Expect(out.WarningsFor(5)).To(Equal([]string{"a", "b"}))
		Expect(out.WarningsFor(1)).To(BeNil())
		Expect(out.Warnings).To(HaveLen(1))

		ind, ok := out.Individual(5)
		Expect(ok).To(BeTrue())
		Expect(ind.IndividualID).To(Equal(5))
	})
})
