package wbtx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/okian/wandbrain/pkg/logger"
)

// Verifier polls the HTTP API for the result of a sent attempt.
type Verifier struct {
	client  *http.Client
	baseURL string
	poll    time.Duration
}

// NewVerifier returns a Verifier for baseURL. Each request is bounded by timeout.
func NewVerifier(baseURL string, timeout, poll time.Duration) *Verifier {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Verifier{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		poll:    poll,
	}
}

// Await polls until the attempt is finalized and scored or ctx expires.
// A finalized but unscored attempt is returned together with ErrNotScored.
func (v *Verifier) Await(ctx context.Context, attempt uint32) (model.FinalResult, error) {
	ticker := time.NewTicker(v.poll)
	defer ticker.Stop()

	var (
		last  model.FinalResult
		found bool
	)
	for {
		res, ok, err := v.fetch(ctx, attempt)
		switch {
		case err != nil:
			logger.Get().Debug(ctx, "attempt lookup failed", logger.Uint32("attempt", attempt), logger.Error(err))
		case ok && res.Scored():
			return res, nil
		case ok:
			last, found = res, true
		}

		select {
		case <-ctx.Done():
			if found {
				return last, ErrNotScored
			}
			return model.FinalResult{}, ErrNotFinalized
		case <-ticker.C:
		}
	}
}

func (v *Verifier) fetch(ctx context.Context, attempt uint32) (model.FinalResult, bool, error) {
	url := v.baseURL + "/v1/attempts/" + strconv.FormatUint(uint64(attempt), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return model.FinalResult{}, false, fmt.Errorf("build request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return model.FinalResult{}, false, fmt.Errorf("get %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.FinalResult{}, false, nil
	default:
		return model.FinalResult{}, false, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	var res model.FinalResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return model.FinalResult{}, false, fmt.Errorf("decode result: %w", err)
	}
	return res, true, nil
}
