package usecase

import (
	"context"
	"errors"

	"github.com/nyumbapay/paycore/internal/domain"
)

// MatchOutcome classifies the matcher's decision.
type MatchOutcome string

const (
	MatchOutcomeMatched   MatchOutcome = "matched"
	MatchOutcomeAmbiguous MatchOutcome = "ambiguous"
	MatchOutcomeNotFound  MatchOutcome = "not_found"
)

// Match rules, in precedence order.
const (
	MatchRuleAccountRef      = "account_ref"
	MatchRulePhone           = "phone"
	MatchRulePushCorrelation = "push_correlation"
)

// MatchResult is the matcher's answer for one notification.
type MatchResult struct {
	Outcome    MatchOutcome
	TenantID   string
	InvoiceID  string // set when the tenant has exactly one open invoice
	Rule       string
	Candidates []string // tenant ids, populated on ambiguity
}

// Matcher maps an inbound payment notification to a tenant and, where
// unambiguous, an invoice. An incorrect credit is a worse failure mode than a
// delayed one, so anything short of an unambiguous match routes to review.
type Matcher struct {
	tenants     TenantDirectory
	sessions    SessionRepository
	invoiceRepo InvoiceRepository
}

// NewMatcher creates a new Matcher.
func NewMatcher(tenants TenantDirectory, sessions SessionRepository, invoiceRepo InvoiceRepository) *Matcher {
	return &Matcher{
		tenants:     tenants,
		sessions:    sessions,
		invoiceRepo: invoiceRepo,
	}
}

// Match applies the precedence rules: exact account reference, then exact
// phone, then (for push notifications) the originating session's correlation
// id, which is unambiguous by construction. A shared phone on a push
// notification defers to the session rule before declaring ambiguity.
func (m *Matcher) Match(ctx context.Context, n *domain.Notification) (*MatchResult, error) {
	if n.AccountRef != "" {
		profile, err := m.tenants.FindByAccountRef(ctx, n.AccountRef)
		if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
			return nil, err
		}
		if profile != nil {
			return m.matched(ctx, profile.TenantID, MatchRuleAccountRef)
		}
	}

	if n.PayerPhone != "" {
		profiles, err := m.tenants.FindByPhone(ctx, n.PayerPhone)
		if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
			return nil, err
		}
		switch {
		case len(profiles) == 1:
			return m.matched(ctx, profiles[0].TenantID, MatchRulePhone)
		case len(profiles) > 1:
			if result, err := m.matchByPushSession(ctx, n); err != nil || result != nil {
				return result, err
			}
			candidates := make([]string, len(profiles))
			for i, p := range profiles {
				candidates[i] = p.TenantID
			}
			return &MatchResult{Outcome: MatchOutcomeAmbiguous, Rule: MatchRulePhone, Candidates: candidates}, nil
		}
	}

	if result, err := m.matchByPushSession(ctx, n); err != nil || result != nil {
		return result, err
	}

	return &MatchResult{Outcome: MatchOutcomeNotFound}, nil
}

// matchByPushSession resolves a push notification through the session that
// initiated it. Returns nil when the rule does not apply or no session is
// found.
func (m *Matcher) matchByPushSession(ctx context.Context, n *domain.Notification) (*MatchResult, error) {
	if n.Source != domain.PaymentSourcePush || n.CorrelationID == "" {
		return nil, nil
	}
	session, err := m.sessions.GetByCorrelationID(ctx, n.CorrelationID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.matched(ctx, session.TenantID, MatchRulePushCorrelation)
}

// matched pins an invoice when the tenant has exactly one open invoice;
// otherwise allocation decides across all of them.
func (m *Matcher) matched(ctx context.Context, tenantID, rule string) (*MatchResult, error) {
	result := &MatchResult{
		Outcome:  MatchOutcomeMatched,
		TenantID: tenantID,
		Rule:     rule,
	}

	open, err := m.invoiceRepo.ListOpen(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(open) == 1 {
		result.InvoiceID = open[0].ID
	}

	return result, nil
}
