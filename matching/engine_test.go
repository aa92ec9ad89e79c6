package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/karunaapp/backend-api-go/donations"
	"github.com/karunaapp/backend-api-go/missions"
	"github.com/karunaapp/backend-api-go/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu                sync.Mutex
	reports           map[int64]*reports.Report
	donations         map[int64]*donations.Donation
	missions          []missions.Mission
	nextMissionID     int64
	fetchErr          error
	failCreateMission bool
}

func newFakeStore(rs []reports.Report, ds []donations.Donation) *fakeStore {
	store := &fakeStore{
		reports:   make(map[int64]*reports.Report),
		donations: make(map[int64]*donations.Donation),
	}
	for i := range rs {
		r := rs[i]
		store.reports[r.ID] = &r
	}
	for i := range ds {
		d := ds[i]
		store.donations[d.ID] = &d
	}
	return store
}

func (s *fakeStore) GetPendingReports(ctx context.Context) ([]reports.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var results []reports.Report
	for _, r := range s.reports {
		if r.Status == reports.StatusPendingMatch {
			results = append(results, *r)
		}
	}
	return results, nil
}

func (s *fakeStore) GetAvailableDonations(ctx context.Context) ([]donations.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var results []donations.Donation
	for _, d := range s.donations {
		if d.Status == donations.StatusAvailable {
			results = append(results, *d)
		}
	}
	return results, nil
}

func (s *fakeStore) CreateMission(ctx context.Context, mission missions.Mission) (*missions.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateMission {
		return nil, errors.New("insert failed")
	}
	s.nextMissionID++
	mission.ID = s.nextMissionID
	mission.Timestamp = time.Now()
	s.missions = append(s.missions, mission)
	return &mission, nil
}

func (s *fakeStore) flip(records map[int64]*reports.Report, id int64, expected, next string) bool {
	r, ok := records[id]
	if !ok || r.Status != expected {
		return false
	}
	r.Status = next
	return true
}

func (s *fakeStore) AssignReport(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flip(s.reports, id, reports.StatusPendingMatch, reports.StatusAssigned), nil
}

func (s *fakeStore) AssignDonation(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok || d.Status != donations.StatusAvailable {
		return false, nil
	}
	d.Status = donations.StatusAssigned
	return true, nil
}

func (s *fakeStore) ReleaseReport(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flip(s.reports, id, reports.StatusAssigned, reports.StatusPendingMatch)
	return nil
}

func (s *fakeStore) ReleaseDonation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if ok && d.Status == donations.StatusAssigned {
		d.Status = donations.StatusAvailable
	}
	return nil
}

// lngDistance reads the pair distance in meters straight out of the
// donation's longitude, keeping test distances exact.
func lngDistance(_, _, _, lng float64) (float64, error) {
	return lng, nil
}

// latPlusLngDistance sums the report latitude and donation longitude so
// tests can vary distance per pair.
func latPlusLngDistance(lat, _, _, lng float64) (float64, error) {
	return lat + lng, nil
}

func newTestEngine(store Store, distance DistanceFunc) *Engine {
	engine := NewEngine(store, nil, zap.NewNop(), nil)
	if distance != nil {
		engine.SetDistanceFunc(distance)
	}
	return engine
}

func pendingReport(id int64, peopleInNeed int) reports.Report {
	return reports.Report{ID: id, PeopleInNeed: peopleInNeed, Status: reports.StatusPendingMatch, Loc: []float64{0, 0}}
}

func availableDonation(id int64, resourceType, quantity string, distanceMeters float64) donations.Donation {
	return donations.Donation{ID: id, ResourceType: resourceType, Quantity: quantity, Status: donations.StatusAvailable, Loc: []float64{0, distanceMeters}}
}

func TestRunEndToEnd(t *testing.T) {
	store := newFakeStore(
		[]reports.Report{pendingReport(1, 3)},
		[]donations.Donation{availableDonation(2, "cooked meals", "10 meals", 2000)},
	)
	engine := newTestEngine(store, lngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchesFound)
	assert.Equal(t, 1, result.MissionsCreated)
	require.Len(t, result.CreatedMissions, 1)

	mission := result.CreatedMissions[0]
	assert.Equal(t, int64(1), mission.ReportID)
	assert.Equal(t, int64(2), mission.DonationID)
	assert.Equal(t, missions.StatusUnassigned, mission.Status)
	assert.Equal(t, 2.00, mission.EstimatedDistance)
	assert.Equal(t, 34, mission.EstimatedDuration)

	assert.Equal(t, reports.StatusAssigned, store.reports[1].Status)
	assert.Equal(t, donations.StatusAssigned, store.donations[2].Status)
}

func TestRunDerivedFieldsAtFiveKilometers(t *testing.T) {
	store := newFakeStore(
		[]reports.Report{pendingReport(1, 2)},
		[]donations.Donation{availableDonation(2, "water", "20 bottles", 5000)},
	)
	engine := newTestEngine(store, lngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)
	require.Len(t, result.CreatedMissions, 1)

	assert.Equal(t, 5.00, result.CreatedMissions[0].EstimatedDistance)
	assert.Equal(t, 40, result.CreatedMissions[0].EstimatedDuration)
}

func TestRunRadiusCutoff(t *testing.T) {
	store := newFakeStore(
		[]reports.Report{pendingReport(1, 10)},
		[]donations.Donation{availableDonation(2, "cooked meals", "100 meals", 10001)},
	)
	engine := newTestEngine(store, lngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, 0, result.MatchesFound)
	assert.Equal(t, 0, result.MissionsCreated)
	assert.Equal(t, reports.StatusPendingMatch, store.reports[1].Status)

	// exactly at the cutoff is still a candidate
	store = newFakeStore(
		[]reports.Report{pendingReport(1, 10)},
		[]donations.Donation{availableDonation(2, "cooked meals", "100 meals", 10000)},
	)
	engine = newTestEngine(store, lngDistance)

	result, err = engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MissionsCreated)
}

func TestRunGreedyPrefersHigherScore(t *testing.T) {
	near := pendingReport(1, 2)
	near.Loc = []float64{1000, 0}
	far := pendingReport(2, 2)
	far.Loc = []float64{4000, 0}

	store := newFakeStore(
		[]reports.Report{near, far},
		[]donations.Donation{availableDonation(10, "blankets", "5", 1000)},
	)
	engine := newTestEngine(store, latPlusLngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, 2, result.MatchesFound)
	require.Len(t, result.CreatedMissions, 1)
	assert.Equal(t, int64(1), result.CreatedMissions[0].ReportID)
	assert.Equal(t, reports.StatusPendingMatch, store.reports[2].Status)
}

func TestRunTieBreakIsDeterministic(t *testing.T) {
	store := newFakeStore(
		[]reports.Report{pendingReport(7, 2), pendingReport(3, 2)},
		[]donations.Donation{availableDonation(10, "groceries", "4 bags", 1500)},
	)
	engine := newTestEngine(store, lngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)
	require.Len(t, result.CreatedMissions, 1)

	// equal scores resolve to the lower report id
	assert.Equal(t, int64(3), result.CreatedMissions[0].ReportID)

	store = newFakeStore(
		[]reports.Report{pendingReport(1, 2)},
		[]donations.Donation{
			availableDonation(9, "groceries", "4 bags", 1500),
			availableDonation(4, "groceries", "4 bags", 1500),
		},
	)
	engine = newTestEngine(store, lngDistance)

	result, err = engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)
	require.Len(t, result.CreatedMissions, 1)
	assert.Equal(t, int64(4), result.CreatedMissions[0].DonationID)
}

func TestRunSkipsPairOnDistanceError(t *testing.T) {
	broken := pendingReport(1, 2)
	broken.Loc = []float64{-1, 0}
	fine := pendingReport(2, 2)
	fine.Loc = []float64{1000, 0}

	store := newFakeStore(
		[]reports.Report{broken, fine},
		[]donations.Donation{availableDonation(10, "water", "10 bottles", 500)},
	)
	engine := newTestEngine(store, func(lat, _, _, lng float64) (float64, error) {
		if lat < 0 {
			return 0, errors.New("bad coordinates")
		}
		return lat + lng, nil
	})

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchesFound)
	require.Len(t, result.CreatedMissions, 1)
	assert.Equal(t, int64(2), result.CreatedMissions[0].ReportID)
	assert.Equal(t, reports.StatusPendingMatch, store.reports[1].Status)
}

func TestRunReleasesClaimsOnMissionCreateFailure(t *testing.T) {
	store := newFakeStore(
		[]reports.Report{pendingReport(1, 3)},
		[]donations.Donation{availableDonation(2, "cooked meals", "10 meals", 2000)},
	)
	store.failCreateMission = true
	engine := newTestEngine(store, lngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchesFound)
	assert.Equal(t, 0, result.MissionsCreated)

	// both records stay matchable for a future pass
	assert.Equal(t, reports.StatusPendingMatch, store.reports[1].Status)
	assert.Equal(t, donations.StatusAvailable, store.donations[2].Status)
}

func TestRunIsIdempotentOnRetrigger(t *testing.T) {
	store := newFakeStore(
		[]reports.Report{pendingReport(1, 3)},
		[]donations.Donation{availableDonation(2, "cooked meals", "10 meals", 2000)},
	)
	engine := newTestEngine(store, lngDistance)

	first, err := engine.Run(context.Background(), Trigger{Reason: TriggerNewReport, ReportID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, first.MissionsCreated)

	second, err := engine.Run(context.Background(), Trigger{Reason: TriggerNewReport, ReportID: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, second.MatchesFound)
	assert.Equal(t, 0, second.MissionsCreated)
	assert.Len(t, store.missions, 1)
}

func TestRunStoreUnavailable(t *testing.T) {
	store := newFakeStore(nil, nil)
	store.fetchErr = errors.New("connection refused")
	engine := newTestEngine(store, lngDistance)

	result, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Empty(t, store.missions)
}

func TestConcurrentPassesNeverDoubleAssign(t *testing.T) {
	var rs []reports.Report
	var ds []donations.Donation
	for i := int64(1); i <= 20; i++ {
		rs = append(rs, pendingReport(i, 2))
		ds = append(ds, availableDonation(100+i, "cooked meals", "10 meals", float64(i*100)))
	}
	store := newFakeStore(rs, ds)
	engine := newTestEngine(store, lngDistance)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Run(context.Background(), Trigger{Reason: TriggerManual})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seenReports := make(map[int64]bool)
	seenDonations := make(map[int64]bool)
	for _, mission := range store.missions {
		assert.False(t, seenReports[mission.ReportID], "report %d assigned twice", mission.ReportID)
		assert.False(t, seenDonations[mission.DonationID], "donation %d assigned twice", mission.DonationID)
		seenReports[mission.ReportID] = true
		seenDonations[mission.DonationID] = true
	}
	// completeness is not guaranteed under racing passes, uniqueness is
	assert.NotEmpty(t, store.missions)
	assert.LessOrEqual(t, len(store.missions), 20)
}
