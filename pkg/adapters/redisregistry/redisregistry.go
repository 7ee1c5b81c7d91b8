// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package redisregistry backs the engine's team registry and match record
// store with Redis, for deployments where several processes share festival
// state. Team documents live in one hash per instance so a full scan for
// consistency repair is a single HGETALL.
package redisregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AccelByte/extend-festival-matchmaker/pkg/constants"
	"github.com/AccelByte/extend-festival-matchmaker/pkg/models"
)

const (
	teamsKeyFormat    = "festival:%s:teams"  // HASH: team name -> team JSON
	festivalKeyFormat = "festival:%s:config" // STRING: festival JSON
	recordKeyFormat   = "festival:record:%s" // HASH: data JSON, status
)

type Registry struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Registry {
	return &Registry{rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})}
}

// NewWithClient wraps an existing client, mainly for tests against miniredis
// or a shared connection pool.
func NewWithClient(client *redis.Client) *Registry {
	return &Registry{rdb: client}
}

func (r *Registry) Close() error {
	return r.rdb.Close()
}

func (r *Registry) GetAllTeams(ctx context.Context, instanceID string) ([]*models.Team, error) {
	fields, err := r.rdb.HGetAll(ctx, teamsKey(instanceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams := make([]*models.Team, 0, len(fields))
	for name, raw := range fields {
		team := &models.Team{}
		if err := json.Unmarshal([]byte(raw), team); err != nil {
			return nil, fmt.Errorf("decode team %q: %w", name, err)
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (r *Registry) FindTeamByName(ctx context.Context, instanceID, name string) (*models.Team, error) {
	raw, err := r.rdb.HGet(ctx, teamsKey(instanceID), name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read team %q: %w", name, err)
	}
	team := &models.Team{}
	if err := json.Unmarshal([]byte(raw), team); err != nil {
		return nil, fmt.Errorf("decode team %q: %w", name, err)
	}
	return team, nil
}

func (r *Registry) SaveTeam(ctx context.Context, instanceID string, team *models.Team) error {
	raw, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("encode team %q: %w", team.Name, err)
	}
	if err := r.rdb.HSet(ctx, teamsKey(instanceID), team.Name, raw).Err(); err != nil {
		return fmt.Errorf("save team %q: %w", team.Name, err)
	}
	return nil
}

func (r *Registry) GetFestival(ctx context.Context, instanceID string) (*models.Festival, error) {
	raw, err := r.rdb.Get(ctx, festivalKey(instanceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrFestivalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read festival %q: %w", instanceID, err)
	}
	festival := &models.Festival{}
	if err := json.Unmarshal([]byte(raw), festival); err != nil {
		return nil, fmt.Errorf("decode festival %q: %w", instanceID, err)
	}
	return festival, nil
}

// SaveFestival writes the instance descriptor. The engine never calls this;
// it is for whatever provisioning flow sets festivals up.
func (r *Registry) SaveFestival(ctx context.Context, festival *models.Festival) error {
	raw, err := json.Marshal(festival)
	if err != nil {
		return fmt.Errorf("encode festival %q: %w", festival.InstanceID, err)
	}
	if err := r.rdb.Set(ctx, festivalKey(festival.InstanceID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save festival %q: %w", festival.InstanceID, err)
	}
	return nil
}

func (r *Registry) CreateMatchRecord(ctx context.Context, record models.MatchRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode match record %q: %w", record.ID, err)
	}
	if err := r.rdb.HSet(ctx, recordKey(record.ID), map[string]any{
		"data":   raw,
		"status": record.Status,
	}).Err(); err != nil {
		return fmt.Errorf("create match record %q: %w", record.ID, err)
	}
	return nil
}

func (r *Registry) UpdateMatchStatus(ctx context.Context, recordID, status string) error {
	if err := r.rdb.HSet(ctx, recordKey(recordID), "status", status).Err(); err != nil {
		return fmt.Errorf("update match record %q: %w", recordID, err)
	}
	return nil
}

// GetMatchRecord reads a record back, reflecting any status update applied
// since creation.
func (r *Registry) GetMatchRecord(ctx context.Context, recordID string) (*models.MatchRecord, error) {
	fields, err := r.rdb.HGetAll(ctx, recordKey(recordID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read match record %q: %w", recordID, err)
	}
	raw, ok := fields["data"]
	if !ok {
		return nil, fmt.Errorf("match record %q: not found", recordID)
	}
	record := &models.MatchRecord{}
	if err := json.Unmarshal([]byte(raw), record); err != nil {
		return nil, fmt.Errorf("decode match record %q: %w", recordID, err)
	}
	if status, ok := fields["status"]; ok && status != "" {
		record.Status = status
	} else if record.Status == "" {
		record.Status = constants.MatchStatusActive
	}
	return record, nil
}

func teamsKey(instanceID string) string {
	return fmt.Sprintf(teamsKeyFormat, instanceID)
}

func festivalKey(instanceID string) string {
	return fmt.Sprintf(festivalKeyFormat, instanceID)
}

func recordKey(recordID string) string {
	return fmt.Sprintf(recordKeyFormat, recordID)
}
