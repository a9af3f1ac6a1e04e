// Package retry runs an operation a bounded number of times with a pause
// between failures.
//
// Both page fetches and episode downloads go through Do. Page fetches use
// exponential backoff and only retry errors that pkg/errors reports as
// retryable; downloads use a constant delay and retry every incomplete
// attempt.
//
//	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
//		return fetch(ctx)
//	}, &retry.Config{
//		MaxAttempts: 5,
//		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
//		Logger:      logger.GetLogger(),
//	})
//
// The last failure is wrapped together with ErrExhausted, so callers can use
// errors.Is / errors.As on the result. Do never sleeps after the final attempt.
package retry
