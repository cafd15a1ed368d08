package service

import (
	"context"
	"strings"

	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ResolverParams struct {
	fx.In

	Log  *zap.Logger
	Repo ruledomain.Repository
}

// Resolver matches fiscal rules with a fixed precedence: exact
// (jurisdiction, operation code) first, then the jurisdiction-agnostic
// rule for the operation code. A rule scoped to a different jurisdiction
// never serves as a fallback.
type Resolver struct {
	log  *zap.Logger
	repo ruledomain.Repository
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		log:  p.Log.Named("fiscalrule.resolver"),
		repo: p.Repo,
	}
}

var _ ruledomain.Resolver = (*Resolver)(nil)

// Resolve returns the applicable rule, or (nil, nil) when no rule matches.
// Callers must treat a nil rule as "no opinion": dependent fields keep
// their prior values and the item is marked for manual review.
func (r *Resolver) Resolve(ctx context.Context, jurisdiction, operationCode string) (*ruledomain.FiscalRule, error) {
	jurisdiction = strings.ToUpper(strings.TrimSpace(jurisdiction))
	operationCode = strings.TrimSpace(operationCode)
	if operationCode == "" {
		return nil, ruledomain.ErrInvalidOperationCode
	}

	if jurisdiction != "" {
		rule, err := r.repo.FindByJurisdictionAndOperation(ctx, jurisdiction, operationCode)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			return rule, nil
		}
	}

	rule, err := r.repo.FindByOperation(ctx, operationCode)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		r.log.Debug("no fiscal rule matched",
			zap.String("jurisdiction", jurisdiction),
			zap.String("operation_code", operationCode),
		)
	}
	return rule, nil
}

// Enrich applies a matched rule to a catalog item's fiscal defaults.
//
// The override semantics are asymmetric on purpose:
//   - entry and outbound operation codes are always copied from the rule;
//   - tax-situation codes are copied only when the rule supplies one;
//   - rates are overridden only when the rule's rate is strictly positive.
//
// A zero rate in a rule means "no opinion", so a rule can never force an
// item's rate to zero; a legitimately zero outbound rate is set directly
// on the item. When rule is nil the item is left untouched except for the
// manual-review flag.
func Enrich(item *catalogdomain.Item, rule *ruledomain.FiscalRule) {
	if item == nil {
		return
	}
	if rule == nil {
		item.NeedsFiscalReview = true
		return
	}

	item.EntryCode = rule.EntryCode
	item.ExitCodeInternal = rule.ExitCodeInternal
	item.ExitCodeInterstate = rule.ExitCodeInterstate

	for _, k := range fiscal.TaxKinds {
		if cst := strings.TrimSpace(rule.CST(k)); cst != "" {
			item.SetCST(k, cst)
		}
		if rate := rule.Rate(k); rate.IsPositive() {
			item.SetRate(k, rate)
		}
	}
}
