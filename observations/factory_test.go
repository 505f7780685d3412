package observations

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoproc/surfobs/reproject"
	"github.com/eoproc/surfobs/utils"
)

type fakeObservations struct {
	name string
}

func (o *fakeObservations) GetBandData(bandIndex int, retrieveUncertainty bool) (*ObservationData, error) {
	return &ObservationData{Metadata: map[string]float64{"band": float64(bandIndex)}}, nil
}
func (o *fakeObservations) GetBandDataByName(bandName string, retrieveUncertainty bool) (*ObservationData, error) {
	return &ObservationData{}, nil
}
func (o *fakeObservations) BandsPerObservation() int { return 10 }
func (o *fakeObservations) DataType() string         { return o.name }
func (o *fakeObservations) SetNoDataValue(bandIndex int, noDataValue float64) error {
	return nil
}
func (o *fakeObservations) SetNoDataValueByName(bandName string, noDataValue float64) error {
	return nil
}
func (o *fakeObservations) ReadGranule() (*Granule, error) { return nil, nil }

type fakeCreator struct {
	name      string
	accepts   bool
	panics    bool
	created   int
	consulted int
	creation  error
}

func (c *fakeCreator) Name() string { return c.name }

func (c *fakeCreator) CanRead(fileRefs []utils.FileRef) bool {
	c.consulted++
	if c.panics {
		panic("broken creator")
	}
	return c.accepts
}

func (c *fakeCreator) CreateObservations(fileRefs []utils.FileRef, reprojection *reproject.Reprojection,
	emulatorFolder string) (ProductObservations, error) {
	c.created++
	if c.creation != nil {
		return nil, c.creation
	}
	return &fakeObservations{name: c.name}, nil
}

func refAt(url string, start time.Time) utils.FileRef {
	return utils.FileRef{Url: url, StartTime: start, EndTime: start}
}

func TestFactoryDispatchesInRegistrationOrder(t *testing.T) {
	first := &fakeCreator{name: "FIRST", accepts: true}
	second := &fakeCreator{name: "SECOND", accepts: true}

	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(first)
	factory.AddObservationsCreatorToRegistry(second)

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	wrapper, err := factory.CreateObservations([]utils.FileRef{refAt("/a", t0)}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 1, first.created, "first capable creator wins")
	assert.Equal(t, 0, second.created)
	assert.Equal(t, 0, second.consulted, "later creators are not consulted once one accepts")

	dataType, err := wrapper.GetDataType(t0)
	require.NoError(t, err)
	assert.Equal(t, "FIRST", dataType)
}

func TestFactorySkipsIncapableCreator(t *testing.T) {
	first := &fakeCreator{name: "FIRST", accepts: false}
	second := &fakeCreator{name: "SECOND", accepts: true}

	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(first)
	factory.AddObservationsCreatorToRegistry(second)

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	wrapper, err := factory.CreateObservations([]utils.FileRef{refAt("/a", t0)}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 1, first.consulted)
	assert.Equal(t, 0, first.created)
	assert.Equal(t, 1, second.created)

	dataType, err := wrapper.GetDataType(t0)
	require.NoError(t, err)
	assert.Equal(t, "SECOND", dataType)
}

func TestFactoryDegradesOnCanReadPanic(t *testing.T) {
	broken := &fakeCreator{name: "BROKEN", panics: true}
	healthy := &fakeCreator{name: "HEALTHY", accepts: true}

	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(broken)
	factory.AddObservationsCreatorToRegistry(healthy)

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	wrapper, err := factory.CreateObservations([]utils.FileRef{refAt("/a", t0)}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 1, broken.consulted, "broken creator is still consulted")
	assert.Equal(t, 1, healthy.created, "a failing check degrades to not-capable")
	assert.Equal(t, 1, wrapper.GetNumObservations())
}

func TestFactoryNoMatchingProvider(t *testing.T) {
	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(&fakeCreator{name: "NOPE", accepts: false})

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	_, err := factory.CreateObservations([]utils.FileRef{refAt("/a", t0), refAt("/b", t0)}, nil, "")
	require.Error(t, err)

	var noMatch *NoMatchingProviderError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, []string{"/a", "/b"}, noMatch.Urls)
}

func TestFactoryEmptyInput(t *testing.T) {
	factory := NewObservationsFactory()
	_, err := factory.CreateObservations(nil, nil, "")
	assert.Error(t, err)
}

func TestFactoryPropagatesCreationError(t *testing.T) {
	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(&fakeCreator{
		name: "FAILING", accepts: true, creation: fmt.Errorf("corrupt product"),
	})

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	_, err := factory.CreateObservations([]utils.FileRef{refAt("/a", t0)}, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt product")
}

func TestFactoryGroupsByStartTime(t *testing.T) {
	creator := &fakeCreator{name: "S2", accepts: true}
	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(creator)

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	// out of order on purpose; the factory sorts a copy
	fileRefs := []utils.FileRef{
		refAt("/day2", t1),
		refAt("/day1/a", t0),
		refAt("/day1/b", t0),
	}
	wrapper, err := factory.CreateObservations(fileRefs, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 2, creator.created, "refs sharing a start time form one group")
	assert.Equal(t, 2, wrapper.GetNumObservations())
	assert.Equal(t, []time.Time{t0, t1}, wrapper.Times())
	assert.Equal(t, "/day2", fileRefs[0].Url, "caller's slice is left untouched")
}

func TestWrapperUnknownTime(t *testing.T) {
	factory := NewObservationsFactory()
	factory.AddObservationsCreatorToRegistry(&fakeCreator{name: "S2", accepts: true})

	t0 := time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC)
	wrapper, err := factory.CreateObservations([]utils.FileRef{refAt("/a", t0)}, nil, "")
	require.NoError(t, err)

	_, err = wrapper.GetBandData(t0.Add(time.Hour), 0, false)
	assert.Error(t, err)

	bands, err := wrapper.BandsPerObservation(t0)
	require.NoError(t, err)
	assert.Equal(t, 10, bands)

	granule, err := wrapper.ReadGranule(t0)
	require.NoError(t, err)
	assert.Nil(t, granule)
}
