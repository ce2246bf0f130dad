package qbo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/pacefoods/crm_backend/config"
	"github.com/pacefoods/crm_backend/models"
)

const (
	refreshLockKey = "qbo:token:refresh"
	refreshLockTTL = 30 * time.Second

	// Refresh this far before the access token actually expires.
	expirySkew = 2 * time.Minute
)

// refreshMu serializes refreshes within this process. The redis lock covers
// other replicas.
var refreshMu sync.Mutex

// ActiveToken returns a valid access token and the realm it belongs to,
// refreshing first when the stored token is expired or about to expire.
// Returns ErrNotConnected when no active credential exists.
func ActiveToken(ctx context.Context) (string, string, error) {
	cred, err := models.ActiveCredential(ctx)
	if err != nil {
		return "", "", err
	}
	if cred == nil {
		return "", "", ErrNotConnected
	}
	if time.Until(cred.ExpiresAt) > expirySkew {
		return cred.AccessToken, cred.RealmId, nil
	}
	cred, err = refreshCredential(ctx, cred)
	if err != nil {
		return "", "", err
	}
	return cred.AccessToken, cred.RealmId, nil
}

// refreshCredential performs a single-flight token refresh. Concurrent callers
// on this process queue on refreshMu; callers on other replicas queue on the
// redis lock. Whoever gets in first re-reads the credential and skips the
// remote call if someone else already refreshed it.
func refreshCredential(ctx context.Context, stale *models.QuickbooksCredential) (*models.QuickbooksCredential, error) {
	refreshMu.Lock()
	defer refreshMu.Unlock()

	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, refreshLockKey, refreshLockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), 20),
		})
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	// Another caller may have refreshed while we waited for the lock.
	cred, err := models.ActiveCredential(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotConnected
	}
	if time.Until(cred.ExpiresAt) > expirySkew {
		return cred, nil
	}

	tokens, err := RefreshTokens(ctx, cred.RefreshToken)
	if err != nil {
		// A rejected refresh means the connection is dead; force a reconnect.
		if remoteErr, ok := err.(*RemoteError); ok && remoteErr.Status >= 400 && remoteErr.Status < 500 {
			_ = models.DeactivateCredential(ctx)
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		return nil, err
	}

	if err := cred.UpdateTokens(ctx, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt, tokens.RefreshTokenExpiresAt); err != nil {
		return nil, err
	}
	cred.AccessToken = tokens.AccessToken
	cred.RefreshToken = tokens.RefreshToken
	cred.ExpiresAt = tokens.ExpiresAt
	return cred, nil
}
