package population

import "errors"

var (
	// ErrCanceled is returned by RunPopulation when the run was stopped
	// before every individual was processed. No partial results are returned.
	ErrCanceled = errors.New("population: run canceled")

	ErrRunInProgress = errors.New("population: a run is already in progress")

	// ErrConfiguration marks problems with the population data or its fit to
	// the exported model. It is fatal to the run.
	ErrConfiguration = errors.New("population: configuration error")

	ErrDuplicateIndividual = errors.New("population: duplicate individual id")

	ErrWorkerPanic = errors.New("population: worker panicked")
)
