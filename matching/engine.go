package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Shopify/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/karunaapp/backend-api-go/donations"
	"github.com/karunaapp/backend-api-go/missions"
	"github.com/karunaapp/backend-api-go/reports"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	TriggerNewReport   = "new_report"
	TriggerNewDonation = "new_donation"
	TriggerManual      = "manual"

	MissionCreatedTopicName = "karuna.missions.created"

	// Fixed handling time at pickup and dropoff, before travel.
	baseDurationMinutes = 30
)

// ErrStoreUnavailable marks transient store failures. A pass that fails
// with it made no partial writes for the failed step and is safe to retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// Trigger describes why a pass was requested. The ids are carried for
// logging only, the pass always re-evaluates the full unresolved pool.
type Trigger struct {
	Reason     string `json:"trigger"`
	ReportID   int64  `json:"report_id,omitempty"`
	DonationID int64  `json:"donation_id,omitempty"`
}

// Store is the backing-store contract the engine needs. AssignReport and
// AssignDonation must flip status conditionally on the current value so
// concurrent passes cannot both claim one record.
type Store interface {
	GetPendingReports(ctx context.Context) ([]reports.Report, error)
	GetAvailableDonations(ctx context.Context) ([]donations.Donation, error)
	CreateMission(ctx context.Context, mission missions.Mission) (*missions.Mission, error)
	AssignReport(ctx context.Context, id int64) (bool, error)
	AssignDonation(ctx context.Context, id int64) (bool, error)
	ReleaseReport(ctx context.Context, id int64) error
	ReleaseDonation(ctx context.Context, id int64) error
}

// Candidate is a scored (report, donation) pair considered during one pass.
type Candidate struct {
	Report         reports.Report
	Donation       donations.Donation
	DistanceMeters float64
	Score          float64
}

type PassResult struct {
	MatchesFound    int                `json:"matches_found"`
	MissionsCreated int                `json:"missions_created"`
	CreatedMissions []missions.Mission `json:"created_missions"`
}

// Engine pairs pending reports with available donations and materializes
// each pair as a mission. All collaborators are injected, it keeps no
// state between passes.
type Engine struct {
	store    Store
	distance DistanceFunc
	producer sarama.SyncProducer
	logger   *zap.Logger
	passes   *prometheus.CounterVec
}

func NewEngine(store Store, producer sarama.SyncProducer, logger *zap.Logger, passes *prometheus.CounterVec) *Engine {
	return &Engine{
		store:    store,
		distance: HaversineMeters,
		producer: producer,
		logger:   logger,
		passes:   passes,
	}
}

// SetDistanceFunc swaps the distance implementation.
func (e *Engine) SetDistanceFunc(fn DistanceFunc) {
	e.distance = fn
}

// Run executes one matching pass over the current unresolved pool.
func (e *Engine) Run(ctx context.Context, trigger Trigger) (*PassResult, error) {
	if e.passes != nil {
		e.passes.With(prometheus.Labels{"trigger": trigger.Reason}).Inc()
	}

	logger := e.logger.With(
		zap.String("trigger", trigger.Reason),
		zap.Int64("trigger_report_id", trigger.ReportID),
		zap.Int64("trigger_donation_id", trigger.DonationID),
	)

	pending, err := e.store.GetPendingReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not fetch pending reports: %v", ErrStoreUnavailable, err)
	}

	available, err := e.store.GetAvailableDonations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not fetch available donations: %v", ErrStoreUnavailable, err)
	}

	candidates := e.buildCandidates(logger, pending, available)
	sortCandidates(candidates)

	result := &PassResult{
		MatchesFound:    len(candidates),
		CreatedMissions: make([]missions.Mission, 0),
	}

	consumedReports := make(map[int64]bool)
	consumedDonations := make(map[int64]bool)

	for _, candidate := range candidates {
		if consumedReports[candidate.Report.ID] || consumedDonations[candidate.Donation.ID] {
			continue
		}

		mission, ok := e.commit(ctx, logger, candidate)
		if !ok {
			continue
		}

		consumedReports[candidate.Report.ID] = true
		consumedDonations[candidate.Donation.ID] = true
		result.CreatedMissions = append(result.CreatedMissions, *mission)
		result.MissionsCreated++

		e.publishMissionCreated(logger, mission)
	}

	logger.Info("matching pass completed",
		zap.Int("matches_found", result.MatchesFound),
		zap.Int("missions_created", result.MissionsCreated))

	return result, nil
}

func (e *Engine) buildCandidates(logger *zap.Logger, pending []reports.Report, available []donations.Donation) []Candidate {
	var candidates []Candidate

	for _, report := range pending {
		for _, donation := range available {
			meters, err := e.distance(report.Latitude(), report.Longitude(), donation.Latitude(), donation.Longitude())
			if err != nil {
				logger.Warn("skipping pair, could not compute distance",
					zap.Int64("report_id", report.ID),
					zap.Int64("donation_id", donation.ID),
					zap.Error(err))
				continue
			}

			if meters > MaxMatchRadiusMeters {
				continue
			}

			candidates = append(candidates, Candidate{
				Report:         report,
				Donation:       donation,
				DistanceMeters: meters,
				Score:          Score(meters, donation.ResourceType, report.PeopleInNeed, donation.Quantity),
			})
		}
	}

	return candidates
}

// sortCandidates orders by score descending with an explicit tie-break on
// lower report id, then lower donation id, so passes over the same pool
// are deterministic regardless of store iteration order.
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Report.ID != candidates[j].Report.ID {
			return candidates[i].Report.ID < candidates[j].Report.ID
		}
		return candidates[i].Donation.ID < candidates[j].Donation.ID
	})
}

// commit claims both sides of a candidate and creates the mission. Claims
// are conditional on the record still being unresolved, a lost claim means
// a concurrent pass got there first. Any failure after a successful claim
// releases what was claimed so the record stays matchable by a later pass.
func (e *Engine) commit(ctx context.Context, logger *zap.Logger, candidate Candidate) (*missions.Mission, bool) {
	reportID := candidate.Report.ID
	donationID := candidate.Donation.ID

	claimed, err := e.store.AssignReport(ctx, reportID)
	if err != nil {
		logger.Error("could not claim report", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, false
	}
	if !claimed {
		return nil, false
	}

	claimed, err = e.store.AssignDonation(ctx, donationID)
	if err != nil || !claimed {
		if err != nil {
			logger.Error("could not claim donation", zap.Int64("donation_id", donationID), zap.Error(err))
		}
		e.release(ctx, logger, reportID, 0)
		return nil, false
	}

	mission := missions.Mission{
		ReportID:          reportID,
		DonationID:        donationID,
		Status:            missions.StatusUnassigned,
		EstimatedDistance: estimatedDistanceKm(candidate.DistanceMeters),
		EstimatedDuration: estimatedDurationMinutes(candidate.DistanceMeters),
	}

	created, err := e.store.CreateMission(ctx, mission)
	if err != nil {
		logger.Error("could not create mission",
			zap.Int64("report_id", reportID),
			zap.Int64("donation_id", donationID),
			zap.Error(err))
		e.release(ctx, logger, reportID, donationID)
		return nil, false
	}

	return created, true
}

func (e *Engine) release(ctx context.Context, logger *zap.Logger, reportID, donationID int64) {
	if reportID != 0 {
		if err := e.store.ReleaseReport(ctx, reportID); err != nil {
			logger.Error("could not release report", zap.Int64("report_id", reportID), zap.Error(err))
		}
	}
	if donationID != 0 {
		if err := e.store.ReleaseDonation(ctx, donationID); err != nil {
			logger.Error("could not release donation", zap.Int64("donation_id", donationID), zap.Error(err))
		}
	}
}

func (e *Engine) publishMissionCreated(logger *zap.Logger, mission *missions.Mission) {
	if e.producer == nil {
		return
	}

	payload, _ := jsoniter.Marshal(mission)
	_, _, err := e.producer.SendMessage(&sarama.ProducerMessage{
		Topic: MissionCreatedTopicName,
		Key:   sarama.StringEncoder(strconv.FormatInt(mission.ID, 10)),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		logger.Error("could not publish mission created event", zap.Int64("mission_id", mission.ID), zap.Error(err))
	}
}

// estimatedDistanceKm rounds to two decimals for the mission record.
func estimatedDistanceKm(meters float64) float64 {
	return math.Round(meters/1000*100) / 100
}

// estimatedDurationMinutes is base handling time plus a linear travel
// heuristic of two minutes per kilometer.
func estimatedDurationMinutes(meters float64) int {
	return baseDurationMinutes + int(math.Round(meters/1000*2))
}
