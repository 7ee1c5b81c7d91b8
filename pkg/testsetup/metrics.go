// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"time"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/metrics"
)

type stubMetricsCollection struct{}

func (s stubMetricsCollection) TeamsInSearchQueue(instanceID string, camp string, numTeams int) {
}

func (s stubMetricsCollection) AddCommitElapsedTimeMs(instanceID, operation string, elapsedTime time.Duration) {
}

func (s stubMetricsCollection) AddUnmatchedReason(instanceID string, reason string) {
}

func (s stubMetricsCollection) AddMatchCreated(instanceID string) {
}

func (s stubMetricsCollection) AddSearchTimeout(instanceID string) {
}

func (s stubMetricsCollection) AddRepairFixes(instanceID string, problem string, count int) {
}

func NewMetrics() metrics.FestivalMetrics {
	return stubMetricsCollection{}
}
