// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type FestivalMetrics interface {
	TeamsInSearchQueue(instanceID string, camp string, numTeams int)
	AddCommitElapsedTimeMs(instanceID, operation string, elapsedTime time.Duration)
	AddUnmatchedReason(instanceID string, reason string)
	AddMatchCreated(instanceID string)
	AddSearchTimeout(instanceID string)
	AddRepairFixes(instanceID string, problem string, count int)
}

func NewMetrics(registry *prometheus.Registry) FestivalMetrics {
	return setupPrometheusMetrics(registry)
}
