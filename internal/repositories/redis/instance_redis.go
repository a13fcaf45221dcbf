package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "biosecurity"

// InstanceRedis keeps each instance as a JSON blob, plus a sorted set of ids
// scored by modification time (unix ms) and a plain key for the active id.
type InstanceRedis struct {
	client *redis.Client
	prefix string
}

func NewInstanceRedis(client *redis.Client, prefix string) repositories.InstanceRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &InstanceRedis{client: client, prefix: prefix}
}

func (r *InstanceRedis) instanceKey(namespace, id string) string {
	return fmt.Sprintf("%s:%s:instance:%s", r.prefix, namespace, id)
}

func (r *InstanceRedis) indexKey(namespace string) string {
	return fmt.Sprintf("%s:%s:instances", r.prefix, namespace)
}

func (r *InstanceRedis) activeKey(namespace string) string {
	return fmt.Sprintf("%s:%s:active", r.prefix, namespace)
}

func (r *InstanceRedis) Upsert(ctx context.Context, namespace string, instance *models.AssessmentInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("encode instance %s: %w", instance.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.instanceKey(namespace, instance.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(namespace), redis.Z{
			Score:  float64(instance.Metadata.UpdatedAt.UnixMilli()),
			Member: instance.ID,
		})
		return nil
	})
	return err
}

func (r *InstanceRedis) GetByID(ctx context.Context, namespace, id string) (*models.AssessmentInstance, error) {
	data, err := r.client.Get(ctx, r.instanceKey(namespace, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return decode(data)
}

func (r *InstanceRedis) GetLatest(ctx context.Context, namespace string) (*models.AssessmentInstance, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(namespace), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, repositories.ErrNotFound
	}
	return r.GetByID(ctx, namespace, ids[0])
}

func (r *InstanceRedis) List(ctx context.Context, namespace string, filters repositories.InstanceFilters) ([]*models.AssessmentInstance, error) {
	by := &redis.ZRangeBy{Min: "-inf", Max: "+inf", Offset: int64(filters.Offset)}
	if filters.UpdatedAfter != nil {
		by.Min = "(" + strconv.FormatInt(filters.UpdatedAfter.UnixMilli(), 10)
	}
	switch {
	case filters.Limit > 0:
		by.Count = int64(filters.Limit)
	case filters.Offset > 0:
		by.Count = -1
	}

	ids, err := r.client.ZRevRangeByScore(ctx, r.indexKey(namespace), by).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.AssessmentInstance{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.instanceKey(namespace, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	instances := make([]*models.AssessmentInstance, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a blob; skip it.
			continue
		}
		instance, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (r *InstanceRedis) ListIDs(ctx context.Context, namespace string) ([]string, error) {
	return r.client.ZRange(ctx, r.indexKey(namespace), 0, -1).Result()
}

func (r *InstanceRedis) Delete(ctx context.Context, namespace, id string) error {
	var deleted *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.instanceKey(namespace, id))
		pipe.ZRem(ctx, r.indexKey(namespace), id)
		return nil
	})
	if err != nil {
		return err
	}
	if deleted.Val() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *InstanceRedis) SetActive(ctx context.Context, namespace, id string) error {
	return r.client.Set(ctx, r.activeKey(namespace), id, 0).Err()
}

func (r *InstanceRedis) GetActive(ctx context.Context, namespace string) (string, error) {
	id, err := r.client.Get(ctx, r.activeKey(namespace)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repositories.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *InstanceRedis) ClearActive(ctx context.Context, namespace string) error {
	return r.client.Del(ctx, r.activeKey(namespace)).Err()
}

func decode(data []byte) (*models.AssessmentInstance, error) {
	var instance models.AssessmentInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	if instance.Answers == nil {
		instance.Answers = models.Answers{}
	}
	return &instance, nil
}
