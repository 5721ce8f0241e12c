package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/upstream"
)

// Gateway is the sole egress to the commerce API
type Gateway interface {
	Do(ctx context.Context, req upstream.Request, out any) error
}

// upstreamError classifies a gateway failure. action prefixes the client message.
func upstreamError(action string, err error) error {
	var (
		statusErr      *upstream.StatusError
		malformedErr   *upstream.MalformedError
		unreachableErr *upstream.UnreachableError
	)

	switch {
	case errors.As(err, &statusErr):
		return domain.WrapError(domain.KindUpstreamRejected, fmt.Sprintf("%s: %s", action, statusErr.Detail()), err)
	case errors.As(err, &malformedErr):
		return domain.WrapError(domain.KindUpstreamMalformed, action+": the commerce API returned an unreadable response", err)
	case errors.As(err, &unreachableErr):
		if unreachableErr.Timeout {
			return domain.WrapError(domain.KindUpstreamUnreachable, action+": the commerce API did not respond in time", err)
		}
		return domain.WrapError(domain.KindUpstreamUnreachable, action+": the commerce API is unreachable", err)
	case errors.Is(err, upstream.ErrInvalidRequest):
		return domain.WrapError(domain.KindInvalidRequest, action+": incomplete request", err)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
