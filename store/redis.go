package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/scanner/types"
)

// Redis key layout:
//
//	scan:<id>             JSON scan record
//	scan:<id>:vulns       list of JSON vulnerabilities, insertion order
//	scan:<id>:compliance  list of JSON compliance mappings, insertion order
//	scans:index           sorted set of scan IDs scored by creation time
const (
	scanIndexKey = "scans:index"

	// txRetries bounds optimistic-lock retries on status transitions.
	txRetries = 5
)

func scanKey(id string) string       { return "scan:" + id }
func vulnsKey(id string) string      { return "scan:" + id + ":vulns" }
func complianceKey(id string) string { return "scan:" + id + ":compliance" }

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisStore is a Redis-backed ScanStore using go-redis/v9. Scan records are
// stored as JSON values; status transitions use WATCH-based optimistic
// locking so concurrent writers cannot race a terminal state.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ ScanStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

// CreateScan persists a new scan with secrets stripped.
func (s *RedisStore) CreateScan(ctx context.Context, scan *types.Scan) error {
	if scan == nil || scan.ID == "" {
		return fmt.Errorf("scan ID is required")
	}

	clean := sanitizedScan(scan, s.now())
	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to marshal scan: %w", err)
	}

	ok, err := s.client.SetNX(ctx, scanKey(scan.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store scan %s: %w", scan.ID, err)
	}
	if !ok {
		return fmt.Errorf("scan %s: %w", scan.ID, ErrAlreadyExists)
	}

	if err := s.client.ZAdd(ctx, scanIndexKey, redis.Z{
		Score:  float64(clean.CreatedAt.UnixNano()),
		Member: scan.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index scan %s: %w", scan.ID, err)
	}
	return nil
}

// GetScan returns the scan by ID.
func (s *RedisStore) GetScan(ctx context.Context, id string) (*types.Scan, error) {
	data, err := s.client.Get(ctx, scanKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}

	var scan types.Scan
	if err := json.Unmarshal(data, &scan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan %s: %w", id, err)
	}
	return &scan, nil
}

// ListScans returns matching scans, newest first.
func (s *RedisStore) ListScans(ctx context.Context, filter Filter) ([]*types.Scan, error) {
	ids, err := s.client.ZRevRange(ctx, scanIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	var out []*types.Scan
	for _, id := range ids {
		scan, err := s.GetScan(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Index entry without a record: deleted concurrently.
				continue
			}
			return nil, err
		}
		if !filter.matches(scan) {
			continue
		}
		out = append(out, scan)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// UpdateScan overwrites the stored scan with secrets stripped.
func (s *RedisStore) UpdateScan(ctx context.Context, scan *types.Scan) error {
	if scan == nil || scan.ID == "" {
		return fmt.Errorf("scan ID is required")
	}

	clean := sanitizedScan(scan, s.now())
	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to marshal scan: %w", err)
	}

	ok, err := s.client.SetXX(ctx, scanKey(scan.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", scan.ID, err)
	}
	if !ok {
		return fmt.Errorf("scan %s: %w", scan.ID, ErrNotFound)
	}
	return nil
}

// UpdateScanProgress writes progress for a running scan; other states are
// left untouched. Uses WATCH-based optimistic locking like status
// transitions.
func (s *RedisStore) UpdateScanProgress(ctx context.Context, id string, progress float64) error {
	key := scanKey(id)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("scan %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to get scan %s: %w", id, err)
		}

		var scan types.Scan
		if err := json.Unmarshal(data, &scan); err != nil {
			return fmt.Errorf("failed to unmarshal scan %s: %w", id, err)
		}
		if scan.Status != types.ScanStatusRunning {
			return nil
		}
		scan.Progress = progress

		clean := sanitizedScan(&scan, s.now())
		out, err := json.Marshal(clean)
		if err != nil {
			return fmt.Errorf("failed to marshal scan %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("scan %s: progress update contended beyond %d retries", id, txRetries)
}

// UpdateScanStatus atomically transitions the scan using WATCH-based
// optimistic locking.
func (s *RedisStore) UpdateScanStatus(ctx context.Context, id string, status types.ScanStatus, mutate func(*types.Scan)) (*types.Scan, error) {
	key := scanKey(id)
	var updated *types.Scan

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("scan %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to get scan %s: %w", id, err)
		}

		var scan types.Scan
		if err := json.Unmarshal(data, &scan); err != nil {
			return fmt.Errorf("failed to unmarshal scan %s: %w", id, err)
		}
		if !scan.Status.CanTransitionTo(status) {
			return fmt.Errorf("scan %s: %s -> %s: %w", id, scan.Status, status, ErrInvalidTransition)
		}

		if mutate != nil {
			mutate(&scan)
		}
		// mutate cannot override the transition target.
		scan.Status = status

		clean := sanitizedScan(&scan, s.now())
		out, err := json.Marshal(clean)
		if err != nil {
			return fmt.Errorf("failed to marshal scan %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = clean
		return nil
	}

	for i := 0; i < txRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("scan %s: status transition contended beyond %d retries", id, txRetries)
}

// DeleteScan removes the scan and everything it owns.
func (s *RedisStore) DeleteScan(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, scanKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete scan %s: %w", id, err)
	}
	if removed == 0 {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, vulnsKey(id), complianceKey(id))
		pipe.ZRem(ctx, scanIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete scan %s records: %w", id, err)
	}
	return nil
}

// AddVulnerability appends a finding to its scan's list.
func (s *RedisStore) AddVulnerability(ctx context.Context, vuln *types.Vulnerability) error {
	if vuln == nil || vuln.ScanID == "" {
		return fmt.Errorf("vulnerability scan ID is required")
	}
	if err := s.requireScan(ctx, vuln.ScanID); err != nil {
		return err
	}

	data, err := json.Marshal(vuln)
	if err != nil {
		return fmt.Errorf("failed to marshal vulnerability: %w", err)
	}
	if err := s.client.RPush(ctx, vulnsKey(vuln.ScanID), data).Err(); err != nil {
		return fmt.Errorf("failed to store vulnerability for scan %s: %w", vuln.ScanID, err)
	}
	return nil
}

// ListVulnerabilities returns the scan's findings in insertion order.
func (s *RedisStore) ListVulnerabilities(ctx context.Context, scanID string) ([]*types.Vulnerability, error) {
	if err := s.requireScan(ctx, scanID); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, vulnsKey(scanID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list vulnerabilities for scan %s: %w", scanID, err)
	}

	out := make([]*types.Vulnerability, 0, len(raw))
	for _, item := range raw {
		var v types.Vulnerability
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vulnerability: %w", err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// AddComplianceMapping appends an assessment to its scan's list.
func (s *RedisStore) AddComplianceMapping(ctx context.Context, mapping *types.ComplianceMapping) error {
	if mapping == nil || mapping.ScanID == "" {
		return fmt.Errorf("mapping scan ID is required")
	}
	if err := s.requireScan(ctx, mapping.ScanID); err != nil {
		return err
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal compliance mapping: %w", err)
	}
	if err := s.client.RPush(ctx, complianceKey(mapping.ScanID), data).Err(); err != nil {
		return fmt.Errorf("failed to store compliance mapping for scan %s: %w", mapping.ScanID, err)
	}
	return nil
}

// ListComplianceMappings returns the scan's assessments in insertion order.
func (s *RedisStore) ListComplianceMappings(ctx context.Context, scanID string) ([]*types.ComplianceMapping, error) {
	if err := s.requireScan(ctx, scanID); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, complianceKey(scanID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance mappings for scan %s: %w", scanID, err)
	}

	out := make([]*types.ComplianceMapping, 0, len(raw))
	for _, item := range raw {
		var m types.ComplianceMapping
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal compliance mapping: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// requireScan verifies the parent scan exists.
func (s *RedisStore) requireScan(ctx context.Context, id string) error {
	n, err := s.client.Exists(ctx, scanKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check scan %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	return nil
}
