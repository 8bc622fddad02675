// Package setup seeds the target with users before the load starts and
// produces the immutable result shared by all virtual users.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/vuload/internal/http"
	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
)

// RequestName is the metrics name seed requests are recorded under.
const RequestName = "setup"

// UsersPath is the collection seed users are POSTed to.
const UsersPath = "/api/users"

// ErrSeedFailed is returned under the strict policy when a seed request
// still fails after its retries.
var ErrSeedFailed = errors.New("seed request failed")

// ErrSetupTimeout marks seeds that were not sent because the setup timeout
// expired.
var ErrSetupTimeout = errors.New("setup timeout exceeded")

// Doer executes HTTP requests. *http.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Recorder receives one sample per HTTP request. *metrics.Engine implements
// it.
type Recorder interface {
	Record(s metrics.Sample)
}

// Seeder issues the setup requests.
type Seeder struct {
	client   Doer
	recorder Recorder
	log      logrus.FieldLogger
	baseURL  string
	cfg      config.SetupConfig
}

// NewSeeder creates a seeder. recorder and log may be nil.
func NewSeeder(client Doer, baseURL string, cfg config.SetupConfig, recorder Recorder, log logrus.FieldLogger) *Seeder {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	if cfg.Policy == "" {
		cfg.Policy = config.SetupTolerate
	}
	return &Seeder{
		client:   client,
		recorder: recorder,
		log:      log,
		baseURL:  baseURL,
		cfg:      cfg,
	}
}

// Payload returns the body for the i-th seed user, counting from 1.
func Payload(i int) map[string]string {
	return map[string]string{
		"name":  fmt.Sprintf("TestUser%d", i),
		"email": fmt.Sprintf("testuser%d@example.com", i),
	}
}

// Run issues the seed requests one after another and returns the result.
//
// Under the tolerate policy failures are logged and counted, and seeds left
// unsent when the setup timeout expires are recorded as failed. Under the
// strict policy the first failure, or the timeout, aborts with an error.
// Cancellation of ctx always aborts.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	budget := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		budget, cancel = context.WithTimeout(ctx, s.cfg.Timeout.Std())
		defer cancel()
	}

	users := make([]User, 0, s.cfg.Users)
	for i := 1; i <= s.cfg.Users; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("setup interrupted after %d of %d users: %w", i-1, s.cfg.Users, err)
		}
		if err := budget.Err(); err != nil {
			if s.cfg.Policy == config.SetupStrict {
				return nil, fmt.Errorf("%w: setup timed out after %d of %d users: %v", ErrSeedFailed, i-1, s.cfg.Users, err)
			}
			s.log.WithFields(logrus.Fields{
				"seeded":  i - 1,
				"skipped": s.cfg.Users - i + 1,
			}).Warn("setup timeout exceeded, continuing")
			users = append(users, s.skipped(i, s.cfg.Users)...)
			break
		}

		u := s.seed(budget, i)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("setup interrupted after %d of %d users: %w", i-1, s.cfg.Users, err)
		}
		users = append(users, u)

		entry := s.log.WithFields(logrus.Fields{"seed": i, "status": u.Status})
		if u.OK() {
			entry.WithField("id", u.ID).Debug("seeded user")
			continue
		}

		if s.cfg.Policy == config.SetupStrict {
			entry.WithField("error", u.Error).Error("seed request failed, aborting run")
			return nil, fmt.Errorf("%w: user %d: %s", ErrSeedFailed, i, u.Error)
		}
		entry.WithField("error", u.Error).Warn("seed request failed, continuing")
	}

	result := NewResult(s.baseURL, users)
	s.log.WithFields(logrus.Fields{
		"seeded": result.Seeded(),
		"failed": result.Failed(),
	}).Info("setup complete")

	return result, nil
}

// skipped returns failed entries for the seeds from..to that were never sent.
func (s *Seeder) skipped(from, to int) []User {
	users := make([]User, 0, to-from+1)
	for i := from; i <= to; i++ {
		payload := Payload(i)
		users = append(users, User{
			Index: i,
			Name:  payload["name"],
			Email: payload["email"],
			Error: ErrSetupTimeout.Error(),
		})
	}
	return users
}

// usersURL is the absolute collection URL seeds are POSTed to.
func (s *Seeder) usersURL() string {
	if s.baseURL == "" {
		return UsersPath
	}
	return strings.TrimRight(s.baseURL, "/") + UsersPath
}

// seed creates one user, retrying transport errors and 5xx responses when
// retries are configured.
func (s *Seeder) seed(ctx context.Context, i int) User {
	payload := Payload(i)
	u := User{Index: i, Name: payload["name"], Email: payload["email"]}

	var resp *http.Response
	attempt := 0

	op := func() error {
		attempt++
		if attempt > 1 {
			s.log.WithFields(logrus.Fields{"seed": i, "attempt": attempt}).Debug("retrying seed request")
		}

		req := http.NewRequest("POST", s.usersURL()).
			WithHeader("Content-Type", "application/json").
			WithBody(payload)

		start := time.Now()
		r, err := s.client.Do(ctx, req)
		if err != nil {
			r = http.ErrorResponse(err, time.Since(start))
		}
		resp = r
		s.record(r)

		switch {
		case r.Error != nil:
			return r.Error
		case r.IsServerError():
			return fmt.Errorf("server returned %d", r.StatusCode)
		case r.Failed():
			return backoff.Permanent(fmt.Errorf("server returned %d", r.StatusCode))
		default:
			return nil
		}
	}

	err := backoff.Retry(op, s.backoff(ctx))

	u.Status = resp.StatusCode
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		u.Error = err.Error()
		return u
	}

	if id := gjson.GetBytes(resp.Body, "id"); id.Exists() {
		u.ID = id.String()
	}
	return u
}

func (s *Seeder) backoff(ctx context.Context) backoff.BackOff {
	if s.cfg.Retries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	b := backoff.NewExponentialBackOff()
	if s.cfg.RetryBackoff > 0 {
		b.InitialInterval = s.cfg.RetryBackoff.Std()
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.Retries)), ctx)
}

func (s *Seeder) record(r *http.Response) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(metrics.Sample{
		Name:     RequestName,
		Duration: r.Duration(),
		Status:   r.StatusCode,
		Failed:   r.Failed(),
		Bytes:    int64(len(r.Body)),
	})
}
