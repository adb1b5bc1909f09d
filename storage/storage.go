// Package storage persists service baselines, notification preferences and
// projects as JSON objects, either in a Cloud Storage bucket or a local
// directory for development.
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"
)

// ErrNotExist is returned when a record is missing.
var ErrNotExist = errors.New("storage: object doesn't exist")

// Store handles persistence of all durable records.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	salt      []byte
}

// New creates a new storage handler. When localPath is non-empty the store
// operates on the local filesystem and client may be nil.
func New(client *storage.Client, bucket, localPath string, salt []byte, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		salt:      salt,
		localPath: localPath,
		bucket:    bucket,
	}
}

// TokenFromEmail derives a deterministic, unguessable token from an email
// address. HMAC-SHA256 with a secret salt ensures tokens cannot be guessed
// without the salt.
func (s *Store) TokenFromEmail(email string) string {
	h := hmac.New(sha256.New, s.salt)
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil))
}

// safeKeyPart reports whether part is safe to embed in an object key.
// Rejects anything that could traverse paths or collide with the key scheme.
func safeKeyPart(part string) bool {
	if part == "" || len(part) > 128 {
		return false
	}
	for _, c := range part {
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}

func stateKey(slug string) string {
	if !safeKeyPart(slug) {
		return ""
	}
	return fmt.Sprintf("state-%s.json", slug)
}

// prefKey generates a preference filename from a token. The token must be
// exactly 64 lowercase hex characters (SHA256 output); validation is
// constant-time so key lookups leak nothing about partial matches.
func prefKey(token string) string {
	if len(token) != 64 {
		return ""
	}
	valid := 1
	for _, c := range token {
		isHexDigit := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isHexDigit {
			valid = 0
		}
	}
	if valid == 0 {
		return ""
	}
	return fmt.Sprintf("pref-%s.json", token)
}

func projectKey(id string) string {
	if !safeKeyPart(id) {
		return ""
	}
	return fmt.Sprintf("proj-%s.json", id)
}

// IsNotFound checks if an error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotExist) ||
		(err != nil && strings.Contains(err.Error(), "storage: object doesn't exist"))
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	if key == "" {
		return errors.New("invalid key format")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	// Local filesystem storage. The rename makes the object swap atomic so
	// a concurrent reader never sees a torn write.
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		tmp := filePath + ".tmp"
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		if err := os.Rename(tmp, filePath); err != nil {
			return fmt.Errorf("replace local record: %w", err)
		}
		s.logger.Debug("Record saved to local storage", "key", key)
		return nil
	}

	// Cloud Storage with retry logic for reliability. Object writes are
	// all-or-nothing, which is what keeps the baseline upsert atomic.
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("Record saved", "key", key)
	return nil
}

func (s *Store) read(ctx context.Context, key string, v any) error {
	if key == "" {
		return ErrNotExist
	}

	var data []byte

	if s.localPath != "" {
		var err error
		filePath := filepath.Join(s.localPath, key)
		data, err = os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotExist
			}
			return fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		var readData []byte
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
				if openErr != nil {
					// Don't retry on "not found" errors.
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(ErrNotExist)
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				readData, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(2*time.Minute),
			retry.MaxJitter(10*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", retryErr)
			}),
		)
		if err != nil {
			if IsNotFound(err) {
				return ErrNotExist
			}
			return fmt.Errorf("load after retries: %w", err)
		}
		data = readData
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("invalid key format")
	}

	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete from local storage: %w", err)
		}
		return nil
	}

	err := retry.Do(
		func() error {
			if deleteErr := s.client.Bucket(s.bucket).Object(key).Delete(ctx); deleteErr != nil {
				// Deletion is idempotent; missing objects are fine.
				if errors.Is(deleteErr, storage.ErrObjectNotExist) {
					return retry.Unrecoverable(nil)
				}
				return fmt.Errorf("delete from storage: %w", deleteErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying delete operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("delete after retries: %w", err)
	}
	return nil
}

// listKeys returns object keys with the given prefix.
func (s *Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}
		var keys []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			keys = append(keys, entry.Name())
		}
		return keys, nil
	}

	var keys []string
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}
