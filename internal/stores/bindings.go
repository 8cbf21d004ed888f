package stores

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	bindingRecordVersionV1 = 1
	bindingHeaderSize      = 1 + 2 + 32
	scanBatchSize          = 100
)

var (
	ErrBindingNotFound         = errors.New("verification binding not found")
	ErrBindingCodeMismatch     = errors.New("verification code mismatch")
	ErrBindingAttemptsExceeded = errors.New("verification attempts exceeded")
	ErrBindingRedisUnavailable = errors.New("verification redis unavailable")
	ErrAllocationExhausted     = errors.New("opaque id allocation exhausted")
)

// consumeBindingLua atomically performs GET→compare→DEL/SET on a binding record.
// KEYS[1] = binding key
// ARGV[1] = provided code hash (32 bytes)
// ARGV[2] = max attempts (int string)
// ARGV[3] = "1" to delete the binding on success
//
// Returns the record bytes on success or an error string:
// "not_found", "attempts_exceeded", "code_mismatch".
var consumeBindingLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

-- Layout: version(1) attempts(2 big-endian) codeHash(32) email(rest)
if string.len(data) < 35 or string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local attempts = string.byte(data, 2) * 256 + string.byte(data, 3)
local storedHash = string.sub(data, 4, 35)

if storedHash ~= ARGV[1] then
  attempts = attempts + 1
  if attempts >= tonumber(ARGV[2]) then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='not_found'}
  end
  local newData = string.sub(data, 1, 1) .. string.char(math.floor(attempts / 256), attempts % 256) .. string.sub(data, 4)
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  return {err='code_mismatch'}
end

if ARGV[3] == '1' then
  redis.call('DEL', KEYS[1])
end
return data
`)

// Binding maps an opaque verification id to the email it stands in for,
// together with the hash of the code issued for it.
type Binding struct {
	Email    string
	CodeHash [32]byte
	Attempts uint16
}

// BindingStore keeps OTP bindings under prefix+id with a Redis TTL.
type BindingStore struct {
	redis       redis.UniversalClient
	prefix      string
	newID       func() (string, error)
	maxAttempts int
}

// NewBindingStore returns a store that draws candidate ids from newID and gives up
// after maxAttempts collisions.
func NewBindingStore(redisClient redis.UniversalClient, prefix string, newID func() (string, error), maxAttempts int) *BindingStore {
	if prefix == "" {
		prefix = "emailId::"
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &BindingStore{
		redis:       redisClient,
		prefix:      prefix,
		newID:       newID,
		maxAttempts: maxAttempts,
	}
}

func (s *BindingStore) key(id string) string {
	return s.prefix + id
}

// Pattern returns the SCAN pattern covering every binding of this store.
func (s *BindingStore) Pattern() string {
	return s.prefix + "*"
}

// Allocate draws a fresh id, builds the record for it, and claims the key with
// SET NX so that no two callers can ever hold the same id. A taken candidate is
// discarded and a new one drawn.
func (s *BindingStore) Allocate(ctx context.Context, ttl time.Duration, build func(id string) Binding) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}

		record := build(id)
		claimed, err := s.redis.SetNX(ctx, s.key(id), encodeBinding(record), ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
		}
		if claimed {
			return id, nil
		}
	}

	return "", ErrAllocationExhausted
}

// Exists reports whether a live binding is held under id.
func (s *BindingStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
	}
	return n > 0, nil
}

// Resolve returns the binding for id without consuming it.
func (s *BindingStore) Resolve(ctx context.Context, id string) (*Binding, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrBindingNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
	}

	record, err := decodeBinding(data)
	if err != nil {
		return nil, ErrBindingNotFound
	}
	return record, nil
}

// Consume checks providedHash against the stored code hash. A mismatch counts
// as an attempt and the binding is dropped once maxAttempts is reached. With
// deleteOnSuccess the binding is removed on a match, otherwise it stays live
// until its TTL runs out.
func (s *BindingStore) Consume(
	ctx context.Context,
	id string,
	providedHash [32]byte,
	maxAttempts int,
	deleteOnSuccess bool,
) (*Binding, error) {
	del := "0"
	if deleteOnSuccess {
		del = "1"
	}

	result, err := consumeBindingLua.Run(ctx, s.redis,
		[]string{s.key(id)},
		string(providedHash[:]),
		maxAttempts,
		del,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrBindingNotFound
		case "attempts_exceeded":
			return nil, ErrBindingAttemptsExceeded
		case "code_mismatch":
			return nil, ErrBindingCodeMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrBindingRedisUnavailable)
	}

	record, err := decodeBinding([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
	}

	// Lua string comparison is not constant-time.
	if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		return nil, ErrBindingCodeMismatch
	}

	return record, nil
}

// Delete removes the binding for id. Missing bindings are not an error.
func (s *BindingStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
	}
	return nil
}

// DeleteMatching walks the keyspace with SCAN MATCH pattern and unlinks each batch.
// It returns the number of keys removed.
func (s *BindingStore) DeleteMatching(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
		}

		if len(keys) > 0 {
			n, err := s.redis.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func encodeBinding(record Binding) []byte {
	buf := make([]byte, bindingHeaderSize, bindingHeaderSize+len(record.Email))
	buf[0] = bindingRecordVersionV1
	binary.BigEndian.PutUint16(buf[1:3], record.Attempts)
	copy(buf[3:bindingHeaderSize], record.CodeHash[:])
	return append(buf, record.Email...)
}

func decodeBinding(data []byte) (*Binding, error) {
	if len(data) < bindingHeaderSize {
		return nil, errors.New("binding record too short")
	}
	if data[0] != bindingRecordVersionV1 {
		return nil, errors.New("invalid binding record version")
	}

	record := &Binding{
		Attempts: binary.BigEndian.Uint16(data[1:3]),
		Email:    string(data[bindingHeaderSize:]),
	}
	copy(record.CodeHash[:], data[3:bindingHeaderSize])
	return record, nil
}

// Ping measures a round trip to Redis.
func (s *BindingStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrBindingRedisUnavailable, err)
	}
	return time.Since(start), nil
}
