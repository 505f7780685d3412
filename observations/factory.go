package observations

import (
	"fmt"
	"sort"
	"time"

	"github.com/eoproc/surfobs/reproject"
	"github.com/eoproc/surfobs/utils"
)

// ObservationsFactory dispatches file references to the first registered
// creator capable of reading them. Creators are consulted in
// registration order; built-in creators are registered explicitly at
// process start, there is no plugin discovery.
type ObservationsFactory struct {
	creators []ProductObservationsCreator
}

func NewObservationsFactory() *ObservationsFactory {
	return &ObservationsFactory{}
}

func (f *ObservationsFactory) AddObservationsCreatorToRegistry(creator ProductObservationsCreator) {
	f.creators = append(f.creators, creator)
}

// SortFileRefList orders the references ascending by start time; ties
// keep their original relative order.
func (f *ObservationsFactory) SortFileRefList(fileRefs []utils.FileRef) {
	utils.SortFileRefs(fileRefs)
}

// canRead consults one creator, degrading any panic to "not capable" so
// a broken creator never aborts the scan of the others.
func (f *ObservationsFactory) canRead(creator ProductObservationsCreator, fileRefs []utils.FileRef) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			utils.Log.Warnf("observations creator %s failed on can-read check: %v", creator.Name(), r)
			ok = false
		}
	}()
	return creator.CanRead(fileRefs)
}

// CreateObservations groups the file references by start time, resolves
// one provider per group and wraps them into a time-indexed facade.
func (f *ObservationsFactory) CreateObservations(fileRefs []utils.FileRef,
	reprojection *reproject.Reprojection, emulatorFolder string) (*ObservationsWrapper, error) {
	if len(fileRefs) == 0 {
		return nil, fmt.Errorf("no file references given")
	}

	sorted := make([]utils.FileRef, len(fileRefs))
	copy(sorted, fileRefs)
	f.SortFileRefList(sorted)

	var groups [][]utils.FileRef
	for _, fileRef := range sorted {
		n := len(groups)
		if n > 0 && groups[n-1][0].StartTime.Equal(fileRef.StartTime) {
			groups[n-1] = append(groups[n-1], fileRef)
			continue
		}
		groups = append(groups, []utils.FileRef{fileRef})
	}

	wrapper := &ObservationsWrapper{observations: make(map[time.Time]ProductObservations)}
	for _, group := range groups {
		var provider ProductObservations
		for _, creator := range f.creators {
			if !f.canRead(creator, group) {
				continue
			}
			created, err := creator.CreateObservations(group, reprojection, emulatorFolder)
			if err != nil {
				return nil, err
			}
			provider = created
			break
		}
		if provider == nil {
			urls := make([]string, len(group))
			for i, fileRef := range group {
				urls[i] = fileRef.Url
			}
			return nil, &NoMatchingProviderError{Urls: urls}
		}
		wrapper.addObservations(group[0].StartTime, provider)
	}
	return wrapper, nil
}

// ObservationsWrapper multiplexes per-time providers behind one
// time-indexed interface.
type ObservationsWrapper struct {
	observations map[time.Time]ProductObservations
	times        []time.Time
}

func (w *ObservationsWrapper) addObservations(t time.Time, provider ProductObservations) {
	if _, exists := w.observations[t]; !exists {
		w.times = append(w.times, t)
		sort.Slice(w.times, func(i, j int) bool { return w.times[i].Before(w.times[j]) })
	}
	w.observations[t] = provider
}

func (w *ObservationsWrapper) providerAt(t time.Time) (ProductObservations, error) {
	provider, found := w.observations[t]
	if !found {
		return nil, fmt.Errorf("no observations available for time %v", t)
	}
	return provider, nil
}

func (w *ObservationsWrapper) GetNumObservations() int {
	return len(w.observations)
}

// Times returns the observation times in ascending order.
func (w *ObservationsWrapper) Times() []time.Time {
	out := make([]time.Time, len(w.times))
	copy(out, w.times)
	return out
}

func (w *ObservationsWrapper) GetBandData(t time.Time, bandIndex int, retrieveUncertainty bool) (*ObservationData, error) {
	provider, err := w.providerAt(t)
	if err != nil {
		return nil, err
	}
	return provider.GetBandData(bandIndex, retrieveUncertainty)
}

func (w *ObservationsWrapper) GetBandDataByName(t time.Time, bandName string, retrieveUncertainty bool) (*ObservationData, error) {
	provider, err := w.providerAt(t)
	if err != nil {
		return nil, err
	}
	return provider.GetBandDataByName(bandName, retrieveUncertainty)
}

func (w *ObservationsWrapper) GetDataType(t time.Time) (string, error) {
	provider, err := w.providerAt(t)
	if err != nil {
		return "", err
	}
	return provider.DataType(), nil
}

func (w *ObservationsWrapper) BandsPerObservation(t time.Time) (int, error) {
	provider, err := w.providerAt(t)
	if err != nil {
		return 0, err
	}
	return provider.BandsPerObservation(), nil
}

func (w *ObservationsWrapper) ReadGranule(t time.Time) (*Granule, error) {
	provider, err := w.providerAt(t)
	if err != nil {
		return nil, err
	}
	return provider.ReadGranule()
}
