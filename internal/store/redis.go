package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/yourname/contest-matchmaker/pkg/errs"
	"github.com/yourname/contest-matchmaker/pkg/types"
)

type RedisStore struct{ rdb *redis.Client }

const (
	ratingsKey    = "mm:ratings"  // ZSET: score=rating, member=playerKey
	profilePrefix = "mm:profile:" // STRING: profile JSON without history
	historyPrefix = "mm:history:" // LIST: rating history JSON, oldest first

	maxWatchRetries = 100
)

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})}
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) Ping(ctx context.Context) error {
	return errs.Storage("ping", s.rdb.Ping(ctx).Err())
}

func (s *RedisStore) Get(ctx context.Context, key string) (types.Profile, error) {
	pipe := s.rdb.Pipeline()
	raw := pipe.Get(ctx, profilePrefix+key)
	hist := pipe.LRange(ctx, historyPrefix+key, 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return types.Profile{}, errs.Storage("get", err)
	}
	p, err := decodeProfile(raw, hist)
	return p, errs.Storage("get", err)
}

func (s *RedisStore) Upsert(ctx context.Context, key string, u types.ProfileUpdate) (types.Profile, error) {
	return s.Modify(ctx, key, func(p *types.Profile) error {
		p.Apply(u)
		return nil
	})
}

// Modify runs fn inside a WATCH on the profile and history keys and retries
// when another writer commits first.
func (s *RedisStore) Modify(ctx context.Context, key string, fn func(p *types.Profile) error) (types.Profile, error) {
	var (
		out   types.Profile
		fnErr error
	)
	txf := func(tx *redis.Tx) error {
		p := types.NewProfile(key)
		raw, err := tx.Get(ctx, profilePrefix+key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("decode profile %s: %w", key, err)
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		p.RatingHistory = nil
		if fnErr = fn(&p); fnErr != nil {
			return fnErr
		}
		p.Key = key
		added := p.RatingHistory
		p.RatingHistory = nil

		enc, err := json.Marshal(p)
		if err != nil {
			return err
		}
		hist := make([]any, 0, len(added))
		for _, e := range added {
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			hist = append(hist, b)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profilePrefix+key, enc, 0)
			pipe.ZAdd(ctx, ratingsKey, redis.Z{Score: float64(p.Rating), Member: key})
			if len(hist) > 0 {
				pipe.RPush(ctx, historyPrefix+key, hist...)
			}
			return nil
		})
		out = p
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		fnErr = nil
		err := s.rdb.Watch(ctx, txf, profilePrefix+key, historyPrefix+key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if fnErr != nil {
			return types.Profile{}, fnErr
		}
		if err != nil {
			return types.Profile{}, errs.Storage("modify", err)
		}
		hist, err := s.rdb.LRange(ctx, historyPrefix+key, 0, -1).Result()
		if err != nil {
			return types.Profile{}, errs.Storage("modify", err)
		}
		out.RatingHistory, err = decodeHistory(hist)
		return out, errs.Storage("modify", err)
	}
	return types.Profile{}, errs.Storage("modify", fmt.Errorf("profile %s: too much contention", key))
}

// AppendRatingHistory pushes one entry. Profiles missing from the rating index
// are created with defaults so history never dangles.
func (s *RedisStore) AppendRatingHistory(ctx context.Context, key string, entry types.RatingChange) error {
	enc, err := json.Marshal(entry)
	if err != nil {
		return errs.Storage("append history", err)
	}
	def, err := json.Marshal(types.NewProfile(key))
	if err != nil {
		return errs.Storage("append history", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.SetNX(ctx, profilePrefix+key, def, 0)
	pipe.ZAddNX(ctx, ratingsKey, redis.Z{Score: types.DefaultRating, Member: key})
	pipe.RPush(ctx, historyPrefix+key, enc)
	_, err = pipe.Exec(ctx)
	return errs.Storage("append history", err)
}

// Query walks the rating index from the top. Natural order is rating
// descending with ties in reverse lexical key order.
func (s *RedisStore) Query(ctx context.Context, q Query) ([]types.Profile, error) {
	var (
		keys []string
		err  error
	)
	if b := q.Filter.Rating; b != nil {
		keys, err = s.rdb.ZRevRangeByScore(ctx, ratingsKey, &redis.ZRangeBy{
			Min: strconv.Itoa(b.Min),
			Max: strconv.Itoa(b.Max),
		}).Result()
	} else {
		keys, err = s.rdb.ZRevRange(ctx, ratingsKey, 0, -1).Result()
	}
	if err != nil {
		return nil, errs.Storage("query", err)
	}
	if len(keys) == 0 {
		return []types.Profile{}, nil
	}

	pipe := s.rdb.Pipeline()
	raws := make([]*redis.StringCmd, len(keys))
	hists := make([]*redis.StringSliceCmd, len(keys))
	for i, k := range keys {
		raws[i] = pipe.Get(ctx, profilePrefix+k)
		hists[i] = pipe.LRange(ctx, historyPrefix+k, 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, errs.Storage("query", err)
	}

	profiles := make([]types.Profile, 0, len(keys))
	for i := range keys {
		p, err := decodeProfile(raws[i], hists[i])
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, errs.Storage("query", err)
		}
		profiles = append(profiles, p)
	}
	return apply(profiles, q), nil
}

func decodeProfile(raw *redis.StringCmd, hist *redis.StringSliceCmd) (types.Profile, error) {
	b, err := raw.Bytes()
	if errors.Is(err, redis.Nil) {
		return types.Profile{}, errs.ErrNotFound
	}
	if err != nil {
		return types.Profile{}, err
	}
	var p types.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return types.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	entries, err := hist.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return types.Profile{}, err
	}
	p.RatingHistory, err = decodeHistory(entries)
	return p, err
}

func decodeHistory(raw []string) ([]types.RatingChange, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]types.RatingChange, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal([]byte(r), &out[i]); err != nil {
			return nil, fmt.Errorf("decode history entry %d: %w", i, err)
		}
	}
	return out, nil
}
