// Package access decides whether a principal currently holds an entitlement.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/auth"
	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

// ErrLookupFailed wraps any failure reading grants.
var ErrLookupFailed = errors.New("access lookup failed")

// Grant is an entitlement record as stored.
type Grant struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ProductID string     `json:"product_id,omitempty"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the grant counts at instant now. With enforceExpiry
// off only the active flag matters.
func (g Grant) ActiveAt(now time.Time, enforceExpiry bool) bool {
	if !g.Active {
		return false
	}
	if enforceExpiry && g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return true
}

// GrantLister returns grants flagged active for a user.
type GrantLister interface {
	ListActive(ctx context.Context, userID string) ([]queries.AccessGrant, error)
}

// Checker evaluates entitlements.
type Checker struct {
	grants        GrantLister
	enforceExpiry bool
	now           func() time.Time
	logger        zerolog.Logger
}

func NewChecker(grants GrantLister, enforceExpiry bool, logger zerolog.Logger) *Checker {
	return &Checker{
		grants:        grants,
		enforceExpiry: enforceExpiry,
		now:           time.Now,
		logger:        logger.With().Str("component", "access").Logger(),
	}
}

// HasActiveEntitlement is true when at least one grant survives the expiry rule.
func (c *Checker) HasActiveEntitlement(ctx context.Context, principal auth.Principal) (bool, error) {
	rows, err := c.grants.ListActive(ctx, string(principal))
	if err != nil {
		decisions.WithLabelValues(decisionError).Inc()
		return false, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	now := c.now()
	for _, row := range rows {
		if grantFromRow(row).ActiveAt(now, c.enforceExpiry) {
			decisions.WithLabelValues(decisionGranted).Inc()
			return true, nil
		}
	}

	if len(rows) > 0 {
		c.logger.Debug().Str("user_id", string(principal)).Int("grants", len(rows)).Msg("all grants expired")
	}
	decisions.WithLabelValues(decisionDenied).Inc()
	return false, nil
}

func grantFromRow(row queries.AccessGrant) Grant {
	g := Grant{
		ID:     queries.FormatUUID(row.ID),
		UserID: row.UserID,
		Active: row.Active,
	}
	if row.ProductID.Valid {
		g.ProductID = row.ProductID.String
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		g.ExpiresAt = &t
	}
	return g
}

const (
	decisionGranted = "granted"
	decisionDenied  = "denied"
	decisionError   = "error"
)

var decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "question_bank_access_decisions_total",
	Help: "Entitlement checks by outcome.",
}, []string{"outcome"})

// Collectors exposes the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{decisions}
}
