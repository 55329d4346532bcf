// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package uploads

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/cola-tui/internal/backend"
)

var (
	// ErrAlreadyUploaded is returned when the ledger already holds the
	// content for the target thread.
	ErrAlreadyUploaded = errors.New("already uploaded to this thread")

	// ErrTooLarge is returned for files over the size limit.
	ErrTooLarge = errors.New("file exceeds upload size limit")
)

// Target is the upload endpoint.
type Target interface {
	Upload(ctx context.Context, name string, content io.Reader, thread backend.ID) (*backend.UploadResult, error)
}

// Options configures an Uploader.
type Options struct {
	// RatePerSecond and Burst throttle uploads. Zero disables throttling.
	RatePerSecond float64
	Burst         int
	// MaxBytes rejects larger files. Zero means no limit.
	MaxBytes int64
}

// Uploader sends files to a Target.
type Uploader struct {
	target  Target
	ledger  *Ledger
	limiter *rate.Limiter
	opts    Options
	log     zerolog.Logger
}

// New returns an Uploader. ledger may be nil to disable dedupe.
func New(target Target, ledger *Ledger, opts Options, logger zerolog.Logger) *Uploader {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Uploader{
		target:  target,
		ledger:  ledger,
		limiter: rate.NewLimiter(limit, burst),
		opts:    opts,
		log:     logger,
	}
}

// Ledger returns the dedupe ledger, or nil.
func (u *Uploader) Ledger() *Ledger { return u.ledger }

// HashFile returns the hex sha256 of data.
func HashFile(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// UploadFile uploads the file at path into thread.
func (u *Uploader) UploadFile(ctx context.Context, path string, thread backend.ID) (*backend.UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if u.opts.MaxBytes > 0 && info.Size() > u.opts.MaxBytes {
		return nil, fmt.Errorf("%s (%d bytes): %w", filepath.Base(path), info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return u.UploadBytes(ctx, filepath.Base(path), data, thread)
}

// UploadBytes uploads data under name into thread.
func (u *Uploader) UploadBytes(ctx context.Context, name string, data []byte, thread backend.ID) (*backend.UploadResult, error) {
	hash := HashFile(data)
	if u.ledger != nil {
		seen, err := u.ledger.Seen(hash, thread)
		if err != nil {
			u.log.Warn().Err(err).Msg("ledger unavailable, uploading anyway")
		} else if seen {
			return nil, fmt.Errorf("%s: %w", name, ErrAlreadyUploaded)
		}
	}

	if err := u.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("upload throttled: %w", err)
	}

	res, err := u.target.Upload(ctx, name, bytes.NewReader(data), thread)
	if err != nil {
		return nil, err
	}

	if u.ledger != nil {
		// A server-assigned thread is where the content now lives.
		owner := thread
		if owner.IsZero() && !res.ThreadID.IsZero() {
			owner = res.ThreadID
		}
		entry := Entry{SHA256: hash, ThreadID: owner, Filename: name, Size: int64(len(data)), Message: res.Message}
		if err := u.ledger.Record(entry); err != nil {
			u.log.Warn().Err(err).Str("file", name).Msg("upload not recorded")
		}
	}

	u.log.Info().Str("file", name).Str("thread", thread.String()).Msg("uploaded")
	return res, nil
}
