// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
)

var (
	ErrAlreadyQueued      = errors.New("team is already searching for an opponent")
	ErrTeamBusy           = errors.New("team is already in an active match")
	ErrTeamLocked         = errors.New("team is being processed by another operation")
	ErrTeamIncomplete     = errors.New("team does not meet the festival roster size requirement")
	ErrTeamNotFound       = errors.New("team is not registered in this festival")
	ErrFestivalNotFound   = errors.New("festival instance does not exist")
	ErrUnknownCamp        = errors.New("team camp is not part of this festival")
	ErrNotMatchedTogether = errors.New("teams are not currently matched with each other")
)

var eligibilityErrorCodeMap = map[error]int{
	ErrAlreadyQueued:      520101,
	ErrTeamBusy:           520102,
	ErrTeamLocked:         520103,
	ErrTeamIncomplete:     520104,
	ErrTeamNotFound:       520105,
	ErrFestivalNotFound:   520106,
	ErrNotMatchedTogether: 520107,
	ErrUnknownCamp:        520108,
}

// EligibilityErrorCode returns a code for the error.
// It returns 20002 if the error is not registered in the map.
func EligibilityErrorCode(err error) int {
	for registered, code := range eligibilityErrorCodeMap {
		if errors.Is(err, registered) {
			return code
		}
	}
	return 20002
}
