package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	locationTTL   = time.Hour
	EventsChannel = "foodbridge:events"
)

// ErrCacheUnavailable is returned by a Store without a Redis client.
var ErrCacheUnavailable = errors.New("redis not configured")

// Store wraps the Redis client with the keys this service owns.
type Store struct {
	client *redis.Client
}

// InitRedis connects to Redis and pings it.
func InitRedis(ctx context.Context, redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStore(client), nil
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *Store) enabled() bool {
	return s != nil && s.client != nil
}

func (s *Store) Ping(ctx context.Context) error {
	if !s.enabled() {
		return ErrCacheUnavailable
	}
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if !s.enabled() {
		return nil
	}
	return s.client.Close()
}

// CachedLocation is the last reported position of a delivery boy.
type CachedLocation struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Updated int64   `json:"updated"`
}

func locationKey(deliveryBoyID uint) string {
	return fmt.Sprintf("deliveryboy:location:%d", deliveryBoyID)
}

// SetDeliveryBoyLocation caches a location for an hour.
func (s *Store) SetDeliveryBoyLocation(ctx context.Context, deliveryBoyID uint, lat, lng float64) error {
	if !s.enabled() {
		return ErrCacheUnavailable
	}

	data, err := json.Marshal(CachedLocation{Lat: lat, Lng: lng, Updated: time.Now().Unix()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, locationKey(deliveryBoyID), data, locationTTL).Err()
}

// GetDeliveryBoyLocation returns redis.Nil when nothing is cached.
func (s *Store) GetDeliveryBoyLocation(ctx context.Context, deliveryBoyID uint) (*CachedLocation, error) {
	if !s.enabled() {
		return nil, ErrCacheUnavailable
	}

	data, err := s.client.Get(ctx, locationKey(deliveryBoyID)).Bytes()
	if err != nil {
		return nil, err
	}

	var loc CachedLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func geoKey(owner string) string {
	return "deliveryboys:geo:" + owner
}

// IndexAvailable adds or moves a delivery boy in its owner's GEO set.
func (s *Store) IndexAvailable(ctx context.Context, owner string, deliveryBoyID uint, lat, lng float64) error {
	if !s.enabled() {
		return ErrCacheUnavailable
	}
	return s.client.GeoAdd(ctx, geoKey(owner), &redis.GeoLocation{
		Name:      strconv.FormatUint(uint64(deliveryBoyID), 10),
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

func (s *Store) RemoveAvailable(ctx context.Context, owner string, deliveryBoyID uint) error {
	if !s.enabled() {
		return ErrCacheUnavailable
	}
	return s.client.ZRem(ctx, geoKey(owner), strconv.FormatUint(uint64(deliveryBoyID), 10)).Err()
}

// GeoMatch is one GEO search hit.
type GeoMatch struct {
	DeliveryBoyID uint
	DistanceKm    float64
}

// NearestAvailable returns up to limit indexed delivery boys of owner
// within radiusKm, nearest first. Equal distances are ordered by id.
func (s *Store) NearestAvailable(ctx context.Context, owner string, lat, lng, radiusKm float64, limit int) ([]GeoMatch, error) {
	if !s.enabled() {
		return nil, ErrCacheUnavailable
	}

	// Fetch everything in range so ties at the cutoff are resolved by id
	// rather than by Redis' internal order.
	locations, err := s.client.GeoRadius(ctx, geoKey(owner), lng, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]GeoMatch, 0, len(locations))
	for _, loc := range locations {
		id, err := strconv.ParseUint(loc.Name, 10, 64)
		if err != nil {
			continue
		}
		matches = append(matches, GeoMatch{DeliveryBoyID: uint(id), DistanceKm: loc.Dist})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].DeliveryBoyID < matches[j].DeliveryBoyID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func revokedKey(jti string) string {
	return "jwt:revoked:" + jti
}

// RevokeToken blacklists a token id until it would have expired anyway.
func (s *Store) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if !s.enabled() {
		return ErrCacheUnavailable
	}
	if jti == "" || ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if !s.enabled() {
		return false, ErrCacheUnavailable
	}
	n, err := s.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Publish sends an event to every instance.
func (s *Store) Publish(ctx context.Context, payload []byte) error {
	if !s.enabled() {
		return ErrCacheUnavailable
	}
	return s.client.Publish(ctx, EventsChannel, payload).Err()
}

func (s *Store) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, EventsChannel)
}
