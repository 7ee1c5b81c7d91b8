// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package defaultengine

import (
	"github.com/AccelByte/extend-festival-matchmaker/pkg/common"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/envelope"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

// Repair scans every team document of the instance and heals contradictions:
// busy flags without an opponent, opponent references that do not reciprocate,
// leftover match fields on idle teams and side channel references whose
// channel no longer exists. Individual collaborator failures are logged and
// skipped; only the inability to list teams at all fails the pass.
func (e *DefaultEngine) Repair(scope *envelope.Scope, instanceID string) (*engine.RepairReport, error) {
	scope = scope.NewChildScope("DefaultEngine.Repair")
	defer scope.Finish()
	scope.SetAttributes(envelope.InstanceIDTag, instanceID)

	teams, err := e.registry.GetAllTeams(scope.Ctx, instanceID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*models.Team, len(teams))
	for _, team := range teams {
		byName[team.Name] = team
	}

	report := &engine.RepairReport{InstanceID: instanceID}
	for _, team := range teams {
		if fix := e.repairTeam(scope, instanceID, team, byName); fix != nil {
			report.Fixes = append(report.Fixes, *fix)
		}
	}

	counts := make(map[string]int)
	for _, fix := range report.Fixes {
		counts[fix.Problem]++
	}
	for problem, count := range counts {
		e.metrics.AddRepairFixes(instanceID, problem, count)
	}
	if report.FixCount() > 0 {
		scope.Log.Infof("consistency repair applied fixes: %s", common.LogJSONFormatter(report))
	}
	return report, nil
}

// repairTeam checks one team document and applies at most one fix. A reset
// covers every leftover field at once, so a team never needs two fixes in the
// same pass.
func (e *DefaultEngine) repairTeam(scope *envelope.Scope, instanceID string, team *models.Team, byName map[string]*models.Team) *engine.RepairFix {
	switch {
	case team.Busy && team.CurrentOpponent == "":
		team.ResetMatchState()
		e.saveRepaired(scope, instanceID, team)
		return &engine.RepairFix{TeamName: team.Name, Problem: constants.RepairProblemOrphanedBusy, Action: "reset to idle"}

	case team.Busy:
		opponent, ok := byName[team.CurrentOpponent]
		if !ok || opponent.CurrentOpponent != team.Name {
			team.ResetMatchState()
			e.saveRepaired(scope, instanceID, team)
			return &engine.RepairFix{TeamName: team.Name, Problem: constants.RepairProblemNonReciprocal, Action: "reset to idle"}
		}
		// Healthy active match; verify its side channel still exists.
		if team.SideChannelRef != "" {
			exists, err := e.channels.ChannelExists(scope.Ctx, team.SideChannelRef)
			if err != nil {
				scope.Log.WithError(err).WithField("team", team.Name).Warn("could not verify side channel, leaving reference untouched")
				return nil
			}
			if !exists {
				team.SideChannelRef = ""
				e.saveRepaired(scope, instanceID, team)
				return &engine.RepairFix{TeamName: team.Name, Problem: constants.RepairProblemDanglingChannel, Action: "cleared side channel reference"}
			}
		}
		return nil

	case team.CurrentOpponent != "" || team.MatchMultiplier != nil || team.SideChannelRef != "":
		team.ResetMatchState()
		e.saveRepaired(scope, instanceID, team)
		return &engine.RepairFix{TeamName: team.Name, Problem: constants.RepairProblemStaleMatchState, Action: "cleared leftover match fields"}
	}

	return nil
}

func (e *DefaultEngine) saveRepaired(scope *envelope.Scope, instanceID string, team *models.Team) {
	if err := e.registry.SaveTeam(scope.Ctx, instanceID, team); err != nil {
		scope.Log.WithError(err).WithField("team", team.Name).Warn("failed to persist repaired team state")
	}
}
