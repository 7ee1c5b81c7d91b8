// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	teamsInSearchQueue prometheus.GaugeVec
	commitElapsedTime  prometheus.HistogramVec
	unmatchedReasons   prometheus.CounterVec
	matchesCreated     prometheus.CounterVec
	searchTimeouts     prometheus.CounterVec
	repairFixes        prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)

	teamsInSearchQueue := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ab_festival_teams_in_search_queue",
			Help: "Number of teams currently in the search queue per festival instance and camp",
		}, []string{"instance_id", "camp"})

	//nolint:promlinter
	commitElapsedTime := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ab_festival_commit_elapsed_time_ms",
			Help:    "A histogram of pairing and finish commit elapsed time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"instance_id", "operation"})

	unmatchedReasons := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_festival_unmatched_reasons",
			Help: "A counter of reasons why a scheduler tick produced no pairing",
		}, []string{"instance_id", "reason"})

	matchesCreated := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_festival_matches_created",
			Help: "A counter of committed pairings per festival instance",
		}, []string{"instance_id"})

	searchTimeouts := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_festival_search_timeouts",
			Help: "A counter of search queue entries removed by timeout",
		}, []string{"instance_id"})

	repairFixes := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_festival_repair_fixes",
			Help: "A counter of consistency repair fixes per problem kind",
		}, []string{"instance_id", "problem"})

	return prometheusMetrics{
		teamsInSearchQueue: *teamsInSearchQueue,
		commitElapsedTime:  *commitElapsedTime,
		unmatchedReasons:   *unmatchedReasons,
		matchesCreated:     *matchesCreated,
		searchTimeouts:     *searchTimeouts,
		repairFixes:        *repairFixes,
	}
}

func (metrics prometheusMetrics) TeamsInSearchQueue(instanceID string, camp string, numTeams int) {
	metrics.teamsInSearchQueue.With(prometheus.Labels{"instance_id": instanceID, "camp": camp}).Set(float64(numTeams))
}

func (metrics prometheusMetrics) AddCommitElapsedTimeMs(instanceID, operation string, elapsedTime time.Duration) {
	metrics.commitElapsedTime.With(prometheus.Labels{"instance_id": instanceID, "operation": operation}).Observe(float64(elapsedTime.Milliseconds()))
}

func (metrics prometheusMetrics) AddUnmatchedReason(instanceID string, reason string) {
	metrics.unmatchedReasons.With(prometheus.Labels{"instance_id": instanceID, "reason": reason}).Add(float64(1))
}

func (metrics prometheusMetrics) AddMatchCreated(instanceID string) {
	metrics.matchesCreated.With(prometheus.Labels{"instance_id": instanceID}).Add(float64(1))
}

func (metrics prometheusMetrics) AddSearchTimeout(instanceID string) {
	metrics.searchTimeouts.With(prometheus.Labels{"instance_id": instanceID}).Add(float64(1))
}

func (metrics prometheusMetrics) AddRepairFixes(instanceID string, problem string, count int) {
	metrics.repairFixes.With(prometheus.Labels{"instance_id": instanceID, "problem": problem}).Add(float64(count))
}
